package solr

import "fmt"

// TransportError is a network-level failure before any HTTP response
// arrived (connection refused, DNS, timeout, truncated body).
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("solr request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response whose body did not carry a SOLR error
// payload.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("solr request to %s returned HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// DecodeError is a 2xx response whose body was not valid JSON.
type DecodeError struct {
	URL  string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("solr response from %s is not valid JSON: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// APIError is an explicit SOLR error payload (error object present or
// responseHeader.status != 0), regardless of the HTTP status code.
type APIError struct {
	URL        string
	HTTPStatus int
	Code       int
	Msg        string
	Metadata   []string
}

func (e *APIError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("solr error from %s (code %d): %s", e.URL, e.Code, e.Msg)
	}
	return fmt.Sprintf("solr error from %s (code %d)", e.URL, e.Code)
}
