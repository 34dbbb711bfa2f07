// Package zabbixapi is a JSON-RPC client for the Zabbix frontend API. It
// implements the importer ports on top of hostgroup.get, template.get,
// template.create and template.update.
package zabbixapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	// RPS limits the request rate; 0 means 10.
	RPS float64
	// Timeout bounds each HTTP request when HTTPClient is nil; 0 means 30s.
	Timeout time.Duration
	// TemplateGroups resolves groups with templategroup.get (Zabbix 6.2+)
	// instead of hostgroup.get.
	TemplateGroups bool
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client calls a Zabbix API endpoint. It is safe for concurrent use.
type Client struct {
	url            string
	token          string
	http           *http.Client
	limiter        *rate.Limiter
	logger         *slog.Logger
	templateGroups bool
	nextID         atomic.Int64
}

// APIError is an error object returned by the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *APIError) Error() string {
	if e.Data == "" {
		return fmt.Sprintf("zabbix api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("zabbix api error %d: %s %s", e.Code, e.Message, e.Data)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *APIError       `json:"error"`
	ID      int64           `json:"id"`
}

// New creates a Client for endpoint, usually .../api_jsonrpc.php. token is
// sent as a bearer token when non-empty.
func New(endpoint, token string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid zabbix api url %q", endpoint)
	}
	if opts.RPS <= 0 {
		opts.RPS = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	burst := int(opts.RPS)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		url:            endpoint,
		token:          token,
		http:           opts.HTTPClient,
		limiter:        rate.NewLimiter(rate.Limit(opts.RPS), burst),
		logger:         opts.Logger,
		templateGroups: opts.TemplateGroups,
	}, nil
}

// Call invokes method with params and decodes the result into result, which
// may be nil. API-level failures are returned as *APIError.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	id := c.nextID.Add(1)
	body, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json-rpc")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	c.logger.Debug("zabbix api call", "method", method, "id", id, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: unexpected HTTP status %d: %s", method, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var rpc response
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if rpc.Error != nil {
		return fmt.Errorf("%s: %w", method, rpc.Error)
	}
	if rpc.ID != id {
		return fmt.Errorf("%s: response id %d does not match request id %d", method, rpc.ID, id)
	}
	if result == nil {
		return nil
	}
	if len(rpc.Result) == 0 {
		return errors.New(method + ": response has no result")
	}
	if err := json.Unmarshal(rpc.Result, result); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}
