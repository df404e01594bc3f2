package cluster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/justapithecus/assay/types"
)

// WriteTokenHeader is the response header carrying the opaque token for
// a successful write.
const WriteTokenHeader = "X-Iox-Write-Token"

// HTTPConfig holds the endpoints and identity for an HTTP-backed
// cluster handle. Router, Querier, Ingester and Compactor are base URLs
// (scheme://host:port, no trailing slash required).
type HTTPConfig struct {
	Router    string
	Querier   string
	Ingester  string
	Compactor string
	// Namespace is "org_bucket" form; the write path splits it on the
	// first underscore for the org and bucket query parameters.
	Namespace string
	// AuthToken, when non-empty, is sent as a Token authorization header.
	AuthToken string
	// Client overrides the HTTP client. Nil uses http.DefaultClient.
	Client *http.Client
}

// HTTPCluster is the shipped Cluster implementation, driving an
// IOx-style deployment over its HTTP surfaces.
type HTTPCluster struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPCluster creates a cluster handle from cfg.
func NewHTTPCluster(cfg HTTPConfig) (*HTTPCluster, error) {
	if cfg.Router == "" {
		return nil, fmt.Errorf("router URL is required")
	}
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.Querier == "" {
		cfg.Querier = cfg.Router
	}
	if cfg.Ingester == "" {
		cfg.Ingester = cfg.Querier
	}
	if cfg.Compactor == "" {
		cfg.Compactor = cfg.Router
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPCluster{cfg: cfg, client: client}, nil
}

// Namespace returns the namespace this handle operates on.
func (c *HTTPCluster) Namespace() string {
	return c.cfg.Namespace
}

// orgBucket splits an "org_bucket" namespace on the first underscore.
func orgBucket(namespace string) (org, bucket string) {
	org, bucket, found := strings.Cut(namespace, "_")
	if !found {
		return namespace, namespace
	}
	return org, bucket
}

func (c *HTTPCluster) do(req *http.Request) (*http.Response, error) {
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Token "+c.cfg.AuthToken)
	}
	return c.client.Do(req)
}

// WriteLineProtocol posts payload to the router's v2 write endpoint and
// returns the write token from the response headers. Payloads are
// validated locally before anything is sent.
func (c *HTTPCluster) WriteLineProtocol(ctx context.Context, lineProtocol string) (types.WriteToken, error) {
	if err := ValidateLineProtocol(lineProtocol); err != nil {
		return "", err
	}

	org, bucket := orgBucket(c.cfg.Namespace)
	u := fmt.Sprintf("%s/api/v2/write?org=%s&bucket=%s",
		strings.TrimRight(c.cfg.Router, "/"), url.QueryEscape(org), url.QueryEscape(bucket))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(lineProtocol))
	if err != nil {
		return "", fmt.Errorf("build write request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	defer discardBody(resp)

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrWriteRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	token := resp.Header.Get(WriteTokenHeader)
	if token == "" {
		return "", fmt.Errorf("%w: write succeeded but no %s header in response", ErrWriteRejected, WriteTokenHeader)
	}
	return types.WriteToken(token), nil
}

// writeInfo fetches the status string for a token from conn's write
// info endpoint: "pending", "readable" or "persisted".
func (c *HTTPCluster) writeInfo(ctx context.Context, token types.WriteToken, conn Connection) (string, error) {
	base := c.cfg.Querier
	if conn == IngesterConnection {
		base = c.cfg.Ingester
	}
	u := fmt.Sprintf("%s/api/v1/write_info?write_token=%s",
		strings.TrimRight(base, "/"), url.QueryEscape(string(token)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build write_info request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("write_info (%s): %w", conn, err)
	}
	defer discardBody(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("read write_info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("write_info (%s): status %d: %s", conn, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	status := gjson.GetBytes(body, "status").String()
	if status == "" {
		return "", fmt.Errorf("write_info (%s): response missing status field", conn)
	}
	return status, nil
}

// TokenReadable reports whether token's write is visible to queries.
// A persisted write is by definition readable.
func (c *HTTPCluster) TokenReadable(ctx context.Context, token types.WriteToken, conn Connection) (bool, error) {
	status, err := c.writeInfo(ctx, token, conn)
	if err != nil {
		return false, err
	}
	return status == "readable" || status == "persisted", nil
}

// TokenPersisted reports whether token's write has reached durable
// storage.
func (c *HTTPCluster) TokenPersisted(ctx context.Context, token types.WriteToken, conn Connection) (bool, error) {
	status, err := c.writeInfo(ctx, token, conn)
	if err != nil {
		return false, err
	}
	return status == "persisted", nil
}

// ParquetFileCount asks the catalog how many Parquet files it has for
// the namespace.
func (c *HTTPCluster) ParquetFileCount(ctx context.Context, namespace string) (int, error) {
	u := fmt.Sprintf("%s/api/v1/namespaces/%s/parquet_files",
		strings.TrimRight(c.cfg.Router, "/"), url.PathEscape(namespace))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build parquet_files request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("parquet_files: %w", err)
	}
	defer discardBody(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return 0, fmt.Errorf("read parquet_files response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("parquet_files: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return int(gjson.GetBytes(body, "parquet_files.#").Int()), nil
}

// Compact triggers one compaction pass and blocks until the compactor
// reports completion.
func (c *HTTPCluster) Compact(ctx context.Context) error {
	u := strings.TrimRight(c.cfg.Compactor, "/") + "/api/v1/compact"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("build compact request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCompactionFailed, err)
	}
	defer discardBody(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrCompactionFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Query runs text against namespace in the given dialect. On a non-2xx
// response the body's code and message are surfaced as a *QueryError;
// bodies without an explicit code fall back to the HTTP status mapping.
func (c *HTTPCluster) Query(ctx context.Context, dialect Dialect, text, namespace string) (Rows, error) {
	u := strings.TrimRight(c.cfg.Querier, "/") + "/api/v1/query"

	reqBody := fmt.Sprintf(`{"namespace":%q,"query":%q,"dialect":%q}`, namespace, text, dialect)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, &QueryError{Code: CodeUnavailable, Message: err.Error(), Err: err}
	}
	defer discardBody(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read query response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		qe := &QueryError{
			Code:    codeFromHTTPStatus(resp.StatusCode),
			Message: strings.TrimSpace(string(body)),
		}
		if code := gjson.GetBytes(body, "code").String(); code != "" {
			qe.Code = ParseCode(code)
		}
		if msg := gjson.GetBytes(body, "message").String(); msg != "" {
			qe.Message = msg
		}
		return nil, qe
	}

	var rows Rows
	for _, r := range gjson.GetBytes(body, "rows").Array() {
		rows = append(rows, r.String())
	}
	return rows, nil
}

// MetricsText fetches the router's exported metrics as raw text.
func (c *HTTPCluster) MetricsText(ctx context.Context) (string, error) {
	u := strings.TrimRight(c.cfg.Router, "/") + "/metrics"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build metrics request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("fetch metrics: %w", err)
	}
	defer discardBody(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read metrics response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch metrics: status %d", resp.StatusCode)
	}
	return string(body), nil
}

// discardBody drains and closes a response body so the underlying
// connection can be reused.
func discardBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// Verify HTTPCluster implements Cluster.
var _ Cluster = (*HTTPCluster)(nil)
