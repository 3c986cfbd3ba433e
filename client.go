package welcome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultBaseURL is the Netatmo API base URL.
	DefaultBaseURL = "https://api.netatmo.net"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseSize caps JSON response bodies. Netatmo bodies stay
	// well under 16k; anything past 64k is treated as an error.
	DefaultMaxResponseSize = 65535

	// DefaultMaxPictureSize caps camera picture downloads.
	DefaultMaxPictureSize = 1 << 20
)

// API endpoints, relative to the base URL.
const (
	pathToken            = "/oauth2/token"
	pathGetUser          = "/api/getuser"
	pathDeviceList       = "/api/devicelist"
	pathGetHomeData      = "/api/gethomedata"
	pathGetNextEvents    = "/api/getnextevents"
	pathGetLastEventOf   = "/api/getlasteventof"
	pathGetEventsUntil   = "/api/geteventsuntil"
	pathGetCameraPicture = "/api/getcamerapicture"
	pathAddWebhook       = "/api/addwebhook"
	pathDropWebhook      = "/api/dropwebhook"
	pathPing             = "/command/ping"
)

const (
	statusOK        = "ok"
	formContentType = "application/x-www-form-urlencoded;charset=utf-8"
)

// Client performs the raw HTTP exchanges with the Netatmo API.
// It carries no credentials; see Session for authenticated access.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	rest            *resty.Client
	logger          *slog.Logger
	metrics         *metrics
	maxResponseSize int64
	maxPictureSize  int64
	now             func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP request timeout.
// This option can be applied in any order relative to other options. A client
// passed to WithHTTPClient is copied, never modified.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		hc := http.Client{}
		if c.httpClient != nil {
			hc = *c.httpClient
		}
		hc.Timeout = timeout
		c.httpClient = &hc
	}
}

// WithMaxResponseSize overrides the JSON response size ceiling.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseSize = n
		}
	}
}

// WithMaxPictureSize overrides the camera picture size ceiling.
func WithMaxPictureSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPictureSize = n
		}
	}
}

// WithClock replaces the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a new unauthenticated Netatmo API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:         DefaultBaseURL,
		httpClient:      defaultHTTPClient(),
		maxResponseSize: DefaultMaxResponseSize,
		maxPictureSize:  DefaultMaxPictureSize,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	if c.logger != nil {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc.Transport = &LoggingTransport{Base: base, Logger: c.logger}
	}
	c.rest = resty.NewWithClient(&hc)

	return c
}

// defaultHTTPClient returns the default HTTP client configuration
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DisableKeepAlives:   false,
		},
	}
}

// BaseURL returns the API base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// response is a fully read HTTP response.
type response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// do performs an HTTP request against target and reads at most limit bytes of
// the response. Form params are sent url-encoded on POST and ignored on GET.
func (c *Client) do(ctx context.Context, method, target, label string, params url.Values, limit int64) (*response, error) {
	start := time.Now()

	req := c.rest.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "application/json")
	if method == http.MethodPost && params != nil {
		req.SetHeader("Content-Type", formContentType).
			SetBody(params.Encode())
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		c.metrics.observeRequest(label, resultError, time.Since(start))
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body := resp.RawBody()
	defer body.Close()

	data, err := readLimited(body, limit)
	if err != nil {
		c.metrics.observeRequest(label, resultError, time.Since(start))
		return nil, err
	}

	out := &response{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        data,
	}

	if out.StatusCode >= 400 {
		c.metrics.observeRequest(label, resultError, time.Since(start))
		return nil, c.handleError(out.StatusCode, data)
	}

	c.metrics.observeRequest(label, resultSuccess, time.Since(start))
	return out, nil
}

// readLimited reads r fully, failing if it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, limit)
	}
	return data, nil
}

// post performs a form-encoded POST against an API path and returns the raw
// JSON body.
func (c *Client) post(ctx context.Context, path string, params url.Values) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+path, path, params, c.maxResponseSize)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// postRaw performs a form-encoded POST whose response is not JSON.
func (c *Client) postRaw(ctx context.Context, path string, params url.Values, limit int64) (*response, error) {
	return c.do(ctx, http.MethodPost, c.baseURL+path, path, params, limit)
}

// get performs an unauthenticated GET against an absolute URL.
func (c *Client) get(ctx context.Context, target, label string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, target, label, nil, c.maxResponseSize)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// errorBody covers both error shapes the API produces: the API form
// {"error":{"code":2,"message":"..."}} and the OAuth form
// {"error":"invalid_grant","error_description":"..."}.
type errorBody struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

type apiErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// parseErrorBody extracts the code and message of an error payload.
func parseErrorBody(body []byte) (code int, msg string, ok bool) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Error) == 0 {
		return 0, "", false
	}

	var detail apiErrorDetail
	if err := json.Unmarshal(eb.Error, &detail); err == nil && detail.Message != "" {
		return detail.Code, detail.Message, true
	}

	var name string
	if err := json.Unmarshal(eb.Error, &name); err == nil && name != "" {
		if eb.ErrorDescription != "" {
			return 0, name + " - " + eb.ErrorDescription, true
		}
		return 0, name, true
	}
	return 0, "", false
}

// handleError converts HTTP error responses to appropriate errors.
func (c *Client) handleError(statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}

	if code, msg, ok := parseErrorBody(body); ok {
		return &APIError{
			StatusCode: statusCode,
			Code:       code,
			Message:    msg,
		}
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    truncatePreview(body),
	}
}

// envelope is the wrapper around every API response body.
type envelope struct {
	Status     string          `json:"status"`
	Body       json.RawMessage `json:"body"`
	TimeExec   float64         `json:"time_exec"`
	TimeServer int64           `json:"time_server"`
}

// decodeEnvelope unwraps an API response, rejecting non-ok statuses.
func decodeEnvelope(data []byte, resourceName string) (*envelope, error) {
	env, err := unmarshalResponse[envelope](data, resourceName)
	if err != nil {
		return nil, err
	}
	if env.Status != "" && env.Status != statusOK {
		return nil, statusError(env.Status, data)
	}
	if len(env.Body) == 0 || string(env.Body) == "null" {
		return nil, fmt.Errorf("%w: %s has no body", ErrMalformedResponse, resourceName)
	}
	return env, nil
}

// statusError builds the error for a 200 response whose status is not ok.
func statusError(status string, data []byte) error {
	if code, msg, ok := parseErrorBody(data); ok {
		return &APIError{StatusCode: http.StatusOK, Code: code, Message: msg}
	}
	return &APIError{StatusCode: http.StatusOK, Message: "status " + status}
}

// isContextError reports whether err came from ctx being done.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
