package provision

import (
	"errors"
	"strings"

	"github.com/conduction/solr-tenant-provision/internal/solr"
)

// Failure reasons carried in ErrorDetail.Reason, refining the error kind.
const (
	ReasonHTTPError          = "http_error"
	ReasonInvalidJSON        = "invalid_json_response"
	ReasonSolrAPIError       = "solr_api_error"
	ReasonTransport          = "transport_exception"
	ReasonArchiveUnreadable  = "archive_unreadable"
	ReasonPropagationTimeout = "propagation_timeout"
	ReasonSolrValidation     = "solr_validation_error"
	ReasonNetwork            = "network_connectivity"
	ReasonUnknown            = "unknown"
)

// propagationErrorPhrases are the known SOLR phrasings of a configSet that
// has been created but is not yet visible to the node handling the request.
// Only these failures are worth retrying during collection creation.
var propagationErrorPhrases = []string{
	"configset does not exist",
	"could not find configset",
	"can not find the specified config set",
	"unable to locate configset",
	"specified config does not exist",
}

func isPropagationError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range propagationErrorPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func classifyConfigSetError(err error) string {
	var httpErr *solr.HTTPError
	var decodeErr *solr.DecodeError
	var apiErr *solr.APIError
	var transportErr *solr.TransportError
	switch {
	case errors.As(err, &httpErr):
		return ReasonHTTPError
	case errors.As(err, &decodeErr):
		return ReasonInvalidJSON
	case errors.As(err, &apiErr):
		return ReasonSolrAPIError
	case errors.As(err, &transportErr):
		return ReasonTransport
	default:
		return ReasonUnknown
	}
}

func classifyCollectionError(err error) string {
	var apiErr *solr.APIError
	var transportErr *solr.TransportError
	switch {
	case errors.As(err, &apiErr):
		return ReasonSolrValidation
	case errors.As(err, &transportErr):
		return ReasonNetwork
	default:
		return ReasonUnknown
	}
}

// errorContext flattens a client error into named diagnostic fields. The
// hint is a concrete remediation suggestion for the operator.
func errorContext(err error, hint string) map[string]any {
	ctx := map[string]any{}
	if err != nil {
		ctx["error"] = err.Error()
	}

	var httpErr *solr.HTTPError
	var decodeErr *solr.DecodeError
	var apiErr *solr.APIError
	var transportErr *solr.TransportError
	switch {
	case errors.As(err, &apiErr):
		ctx["url"] = apiErr.URL
		ctx["http_status"] = apiErr.HTTPStatus
		ctx["solr_code"] = apiErr.Code
		ctx["solr_msg"] = apiErr.Msg
		if len(apiErr.Metadata) > 0 {
			ctx["solr_metadata"] = apiErr.Metadata
		}
	case errors.As(err, &httpErr):
		ctx["url"] = httpErr.URL
		ctx["http_status"] = httpErr.StatusCode
		ctx["response_body"] = httpErr.Body
	case errors.As(err, &decodeErr):
		ctx["url"] = decodeErr.URL
		ctx["response_body"] = decodeErr.Body
	case errors.As(err, &transportErr):
		ctx["url"] = transportErr.URL
	}

	if hint != "" {
		ctx["hint"] = hint
	}
	return ctx
}
