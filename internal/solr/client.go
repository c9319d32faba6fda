// Package solr is a minimal client for the SolrCloud admin HTTP API:
// configSet, collection and schema lifecycle plus the probes the tenant
// provisioner needs. Document indexing/query APIs are out of scope except
// for the trivial validation select.
package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultPort     = 8983
	DefaultBasePath = "/solr"

	// Reads are cheap admin lookups; writes include configSet uploads and
	// collection creation, which SolrCloud coordinates through ZooKeeper.
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second

	maxErrorBodyBytes = 2048
)

type Config struct {
	Scheme       string
	Host         string
	Port         int
	BasePath     string
	Username     string
	Password     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	// Timeouts are applied per request via context, not on the client.
	return &Client{cfg: cfg, httpClient: &http.Client{}}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := &url.URL{
		Scheme: c.cfg.Scheme,
		Host:   net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port)),
		Path:   c.cfg.BasePath,
	}
	u = u.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body io.Reader, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("build solr request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{URL: rawURL, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return &TransportError{URL: rawURL, Err: err}
	}

	var env envelope
	jsonErr := json.Unmarshal(raw, &env)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// SOLR reports admin failures as JSON error payloads on non-2xx
		// responses; surface the parsed message so callers can match it.
		if jsonErr == nil && env.Error != nil {
			return &APIError{
				URL:        rawURL,
				HTTPStatus: res.StatusCode,
				Code:       env.Error.Code,
				Msg:        env.Error.Msg,
				Metadata:   env.Error.Metadata,
			}
		}
		return &HTTPError{URL: rawURL, StatusCode: res.StatusCode, Body: truncate(raw)}
	}

	if jsonErr != nil {
		return &DecodeError{URL: rawURL, Body: truncate(raw), Err: jsonErr}
	}
	if env.Error != nil || env.ResponseHeader.Status != 0 {
		apiErr := &APIError{URL: rawURL, HTTPStatus: res.StatusCode, Code: env.ResponseHeader.Status}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Msg = env.Error.Msg
			apiErr.Metadata = env.Error.Metadata
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &DecodeError{URL: rawURL, Body: truncate(raw), Err: err}
		}
	}
	return nil
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBodyBytes {
		return string(raw[:maxErrorBodyBytes]) + "...(truncated)"
	}
	return string(raw)
}

// CheckConnectivity issues a lightweight system-info probe. It has no side
// effects and reports whether the admin API answered with a well-formed
// success envelope.
func (c *Client) CheckConnectivity(ctx context.Context) (bool, error) {
	u := c.endpoint("admin/info/system", url.Values{"wt": {"json"}})
	if err := c.do(ctx, http.MethodGet, u, "", nil, c.cfg.ReadTimeout, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) ListConfigSets(ctx context.Context) ([]string, error) {
	u := c.endpoint("admin/configs", url.Values{"action": {"LIST"}, "wt": {"json"}})
	var out configSetListResponse
	if err := c.do(ctx, http.MethodGet, u, "", nil, c.cfg.ReadTimeout, &out); err != nil {
		return nil, err
	}
	return out.ConfigSets, nil
}

// UploadConfigSet creates a configSet from a packaged archive. The UPLOAD
// action is used instead of CREATE-from-template because CREATE requires a
// trusted base configSet in clustered deployments.
func (c *Client) UploadConfigSet(ctx context.Context, name string, archive []byte) error {
	u := c.endpoint("admin/configs", url.Values{
		"action": {"UPLOAD"},
		"name":   {name},
		"wt":     {"json"},
	})
	return c.do(ctx, http.MethodPost, u, "application/octet-stream", bytes.NewReader(archive), c.cfg.WriteTimeout, nil)
}

func (c *Client) DeleteConfigSet(ctx context.Context, name string) error {
	u := c.endpoint("admin/configs", url.Values{
		"action": {"DELETE"},
		"name":   {name},
		"wt":     {"json"},
	})
	return c.do(ctx, http.MethodGet, u, "", nil, c.cfg.WriteTimeout, nil)
}

func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	u := c.endpoint("admin/collections", url.Values{"action": {"LIST"}, "wt": {"json"}})
	var out collectionListResponse
	if err := c.do(ctx, http.MethodGet, u, "", nil, c.cfg.ReadTimeout, &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

func (c *Client) CreateCollection(ctx context.Context, name, configSet string, numShards, replicationFactor int) error {
	u := c.endpoint("admin/collections", url.Values{
		"action":                {"CREATE"},
		"name":                  {name},
		"collection.configName": {configSet},
		"numShards":             {strconv.Itoa(numShards)},
		"replicationFactor":     {strconv.Itoa(replicationFactor)},
		"wt":                    {"json"},
	})
	return c.do(ctx, http.MethodGet, u, "", nil, c.cfg.WriteTimeout, nil)
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	u := c.endpoint("admin/collections", url.Values{
		"action": {"DELETE"},
		"name":   {name},
		"wt":     {"json"},
	})
	return c.do(ctx, http.MethodGet, u, "", nil, c.cfg.WriteTimeout, nil)
}

// ClusterStatus is used both as a health read and as a best-effort trigger
// for ZooKeeper state refresh on the receiving node.
func (c *Client) ClusterStatus(ctx context.Context) error {
	u := c.endpoint("admin/collections", url.Values{"action": {"CLUSTERSTATUS"}, "wt": {"json"}})
	return c.do(ctx, http.MethodGet, u, "", nil, c.cfg.ReadTimeout, nil)
}

func (c *Client) AddField(ctx context.Context, collection string, field Field) error {
	return c.schemaPost(ctx, collection, addFieldMessage{Field: field})
}

func (c *Client) ReplaceField(ctx context.Context, collection string, field Field) error {
	return c.schemaPost(ctx, collection, replaceFieldMessage{Field: field})
}

func (c *Client) schemaPost(ctx context.Context, collection string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode schema message: %w", err)
	}
	u := c.endpoint(collection+"/schema", url.Values{"wt": {"json"}})
	return c.do(ctx, http.MethodPost, u, "application/json", bytes.NewReader(body), c.cfg.WriteTimeout, nil)
}

// Query issues a match-all select with zero rows requested, purely to
// confirm the collection answers with a success envelope.
func (c *Client) Query(ctx context.Context, collection string) error {
	u := c.endpoint(collection+"/select", url.Values{
		"q":    {"*:*"},
		"rows": {"0"},
		"wt":   {"json"},
	})
	return c.do(ctx, http.MethodGet, u, "", nil, c.cfg.ReadTimeout, nil)
}
