// Package api is the HTTP client of the notes service.
//
// Every call attaches "Authorization: Bearer <token>" taken from a
// TokenSource and an X-Request-ID header. Non-2xx responses are returned as
// *errs.APIError carrying the body's "message" field.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/errs"
)

// TokenSource yields the bearer token for the next request. An empty token
// sends the request unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

const headerRequestID = "X-Request-ID"

// DefaultTimeout bounds one request when no WithTimeout option is given.
const DefaultTimeout = 30 * time.Second

// Client calls the notes service. It is safe for concurrent use.
type Client struct {
	r      *resty.Client
	log    *zap.Logger
	tokens TokenSource
}

type options struct {
	log     *zap.Logger
	timeout time.Duration
	hc      *http.Client
	tokens  TokenSource
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option { return func(o *options) { o.hc = hc } }

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option { return func(o *options) { o.tokens = ts } }

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	o := options{log: zap.NewNop(), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	var rc *resty.Client
	if o.hc != nil {
		rc = resty.NewWithClient(o.hc)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(o.timeout).
		SetHeader("Accept", "application/json").
		SetLogger(o.log.Sugar())

	c := &Client{r: rc, log: o.log, tokens: o.tokens}
	rc.OnBeforeRequest(c.beforeRequest)
	rc.OnAfterResponse(c.afterResponse)
	rc.OnError(c.onError)
	return c
}

// SetTokenSource swaps the token source. It must be called before the client
// is shared between goroutines.
func (c *Client) SetTokenSource(ts TokenSource) { c.tokens = ts }

func (c *Client) beforeRequest(_ *resty.Client, r *resty.Request) error {
	if r.Token == "" && c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			r.SetAuthToken(tok)
		}
	}
	id, ok := RequestIDFromCtx(r.Context())
	if !ok {
		var err error
		id, err = uuid.NewV4()
		if err != nil {
			return fmt.Errorf("request id: %w", err)
		}
	}
	r.SetHeader(headerRequestID, id.String())
	return nil
}

func (c *Client) afterResponse(_ *resty.Client, resp *resty.Response) error {
	// только метаданные, без тел запросов
	c.log.Debug("http",
		zap.String("method", resp.Request.Method),
		zap.String("path", resp.Request.URL),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("dur", resp.Time()),
		zap.String("request_id", resp.Request.Header.Get(headerRequestID)),
	)
	return nil
}

func (c *Client) onError(r *resty.Request, err error) {
	c.log.Warn("http failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL),
		zap.String("request_id", r.Header.Get(headerRequestID)),
		zap.Error(err),
	)
}

type errorBody struct {
	Message string `json:"message"`
}

// envelope is the {data: ...} wrapper used by most endpoints.
type envelope[T any] struct {
	Data T `json:"data"`
}

// call executes one request. prep may set body, query and path params. When
// out is non-nil the 2xx body is decoded into it.
func (c *Client) call(ctx context.Context, method, path string, prep func(*resty.Request), out any) error {
	req := c.r.R().SetContext(ctx)
	if prep != nil {
		prep(req)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !resp.IsSuccess() {
		apiErr := &errs.APIError{Status: resp.StatusCode()}
		var eb errorBody
		if json.Unmarshal(resp.Body(), &eb) == nil {
			apiErr.Message = strings.TrimSpace(eb.Message)
		}
		return fmt.Errorf("%s %s: %w", method, path, apiErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
