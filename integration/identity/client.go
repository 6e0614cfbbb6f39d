package identity

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
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/session"
)

const (
	tracerName      = "github.com/ideatrek/authgate/integration/identity"
	maxResponseSize = 1 << 20
)

// Client talks to a GoTrue-compatible identity backend over HTTP.
type Client struct {
	cfg    Config
	base   *url.URL
	http   *http.Client
	tracer trace.Tracer
	log    *slog.Logger
}

var _ session.Provider = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewClient creates a backend client. It fails when cfg is not Configured.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("identity: parse url: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}

	c := &Client{
		cfg:    cfg,
		base:   base,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		tracer: otel.Tracer(tracerName),
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SignInWithPassword implements session.Provider.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*session.Grant, error) {
	body := map[string]string{"email": email, "password": password}
	return c.token(ctx, "password", body)
}

// RefreshSession implements session.Provider.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*session.Grant, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return c.token(ctx, "refresh_token", body)
}

// ExchangeCode implements session.Provider.
func (c *Client) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*session.Grant, error) {
	body := map[string]string{"auth_code": authCode, "code_verifier": codeVerifier}
	return c.token(ctx, "pkce", body)
}

// SignOut implements session.Provider.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := c.start(ctx, "identity.signout")
	defer span.End()

	_, err := c.do(ctx, span, http.MethodPost, "/auth/v1/logout", nil, nil, accessToken)
	return c.finish(span, err)
}

// SignUp implements session.Provider. The grant carries no tokens when the
// backend requires email confirmation.
func (c *Client) SignUp(ctx context.Context, email, password string) (*session.Grant, error) {
	ctx, span := c.start(ctx, "identity.signup")
	defer span.End()

	data, err := c.do(ctx, span, http.MethodPost, "/auth/v1/signup", nil,
		map[string]string{"email": email, "password": password}, "")
	if err != nil {
		return nil, c.finish(span, err)
	}

	var payload tokenResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, c.finish(span, fmt.Errorf("%w: %w", session.ErrMalformedGrant, err))
	}
	grant := payload.grant()
	if !grant.HasSession() && payload.ID != "" {
		grant.User = session.User{ID: payload.ID, Email: payload.Email, Role: payload.Role}
	}
	if grant.User.ID == "" {
		return nil, c.finish(span, fmt.Errorf("%w: signup returned no user", session.ErrMalformedGrant))
	}
	return grant, c.finish(span, nil)
}

// ResetPassword implements session.Provider.
func (c *Client) ResetPassword(ctx context.Context, email, redirectTo string) error {
	ctx, span := c.start(ctx, "identity.recover")
	defer span.End()

	q := url.Values{}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	_, err := c.do(ctx, span, http.MethodPost, "/auth/v1/recover", q,
		map[string]string{"email": email}, "")
	return c.finish(span, err)
}

// Health implements session.Provider.
func (c *Client) Health(ctx context.Context) error {
	ctx, span := c.start(ctx, "identity.health")
	defer span.End()

	_, err := c.do(ctx, span, http.MethodGet, "/auth/v1/health", nil, nil, "")
	return c.finish(span, err)
}

// tokenResponse covers the token endpoint and the signup endpoint, which
// returns a bare user when confirmation is pending.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`

	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`

	errorBody
}

func (t tokenResponse) grant() *session.Grant {
	g := &session.Grant{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	switch {
	case t.ExpiresAt > 0:
		g.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		g.ExpiresAt = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	if t.User != nil {
		g.User = session.User{ID: t.User.ID, Email: t.User.Email, Role: t.User.Role}
	}
	return g
}

// errorBody covers the error shapes the backend has used over time.
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	MessageField     string `json:"message"`
	ErrorField       string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorBody) message() string {
	for _, m := range []string{e.Msg, e.MessageField, e.ErrorDescription, e.ErrorField} {
		if m != "" {
			return m
		}
	}
	return ""
}

func (e errorBody) code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	if s, ok := e.Code.(string); ok {
		return s
	}
	if e.ErrorDescription != "" {
		return e.ErrorField
	}
	return ""
}

// token calls the token endpoint. A successful response that also reports an
// error returns both the grant and the error; the caller decides which wins.
func (c *Client) token(ctx context.Context, grantType string, body any) (*session.Grant, error) {
	ctx, span := c.start(ctx, "identity.token", attribute.String("identity.grant_type", grantType))
	defer span.End()

	q := url.Values{"grant_type": {grantType}}
	data, err := c.do(ctx, span, http.MethodPost, "/auth/v1/token", q, body, "")
	if err != nil {
		return nil, c.finish(span, err)
	}

	var payload tokenResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, c.finish(span, fmt.Errorf("%w: %w", session.ErrMalformedGrant, err))
	}
	grant := payload.grant()
	if !grant.HasSession() {
		return nil, c.finish(span, fmt.Errorf("%w: no access token", session.ErrMalformedGrant))
	}
	if msg := payload.message(); msg != "" {
		c.log.WarnContext(ctx, "identity backend returned a session with an error",
			logger.Component("identity"), logger.Action(grantType), slog.String("message", msg))
		return grant, c.finish(span, &BackendError{Status: http.StatusOK, Code: payload.code(), Message: msg})
	}
	return grant, c.finish(span, nil)
}

func (c *Client) do(ctx context.Context, span trace.Span, method, path string, q url.Values, body any, bearer string) ([]byte, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("identity: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = c.cfg.AnonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.DebugContext(ctx, "identity request failed",
			logger.Component("identity"), logger.Path(path), logger.Elapsed(start), logger.Error(err))
		return nil, fmt.Errorf("%w: %w", session.ErrBackendUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", session.ErrBackendUnreachable, err)
	}

	c.log.DebugContext(ctx, "identity request",
		logger.Component("identity"),
		logger.Method(method),
		logger.Path(path),
		logger.StatusCode(resp.StatusCode),
		logger.Elapsed(start))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp.StatusCode, data)
	}
	return data, nil
}

func decodeError(status int, data []byte) error {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil || body.message() == "" {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &BackendError{Status: status, Message: msg}
	}
	return &BackendError{Status: status, Code: body.code(), Message: body.message()}
}

func (c *Client) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("server.address", c.base.Host))
	return c.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
}

func (c *Client) finish(span trace.Span, err error) error {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}
	span.RecordError(err)
	var be *BackendError
	if errors.As(err, &be) {
		span.SetAttributes(attribute.String("identity.error_code", be.Code))
	}
	span.SetStatus(codes.Error, err.Error())
	return err
}
