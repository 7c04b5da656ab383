package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/tbourn/pawconnect/internal/notify"
	"github.com/tbourn/pawconnect/internal/observability"
)

const (
	requestIDHeader = "X-Request-ID"
	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 16 << 20
	// defaultTimeout bounds a call when Options.Timeout is unset.
	defaultTimeout = 30 * time.Second
)

// Notification texts for cross-cutting failures.
const (
	MsgSessionExpired = "Session expired. Please login again."
	MsgForbidden      = "You do not have permission to perform this action."
	MsgNotFound       = "Resource not found."
	MsgServerError    = "Server error. Please try again later."
	MsgNetworkError   = "Network error. Please check your connection."
)

// AuthMode says whether a call carries the bearer credential.
type AuthMode int

const (
	// AuthNone never attaches a credential.
	AuthNone AuthMode = iota
	// AuthOptional attaches the credential when one is held.
	AuthOptional
	// AuthRequired fails locally with ErrAuthRequired when none is held.
	AuthRequired
)

// TokenSource is the session owner as seen by the adapter.
type TokenSource interface {
	// Token returns the current bearer credential, or "".
	Token() string
	// ExpireToken clears the session if it still holds token and reports
	// whether this call did the clearing.
	ExpireToken(ctx context.Context, token string) bool
}

// Navigator is the front end's location as seen by the adapter.
type Navigator interface {
	// Location returns the current location path (e.g. "/adoption").
	Location() string
	// Redirect moves the front end to path.
	Redirect(path string)
}

// Options configures a Client. Zero values get defaults.
type Options struct {
	BaseURL    string        // backend root, no trailing slash
	Timeout    time.Duration // fixed upper bound per call
	LoginPath  string        // login entry point (default "/login")
	RateRPS    float64       // outbound token bucket rate; 0 disables
	RateBurst  int           // bucket size
	HTTPClient *http.Client  // default: otelhttp-instrumented transport
	Tokens     TokenSource
	Notifier   notify.Notifier
	Navigator  Navigator
}

// Client performs calls against the backend and normalizes their outcome.
// It is safe for concurrent use.
type Client struct {
	base      string
	timeout   time.Duration
	loginPath string
	hc        *http.Client
	limiter   *rate.Limiter
	notifier  notify.Notifier

	mu     sync.RWMutex
	tokens TokenSource
	nav    Navigator
}

// New builds a Client from opts.
func New(opts Options) *Client {
	c := &Client{
		base:      strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		timeout:   opts.Timeout,
		loginPath: opts.LoginPath,
		hc:        opts.HTTPClient,
		notifier:  notify.Or(opts.Notifier),
		tokens:    opts.Tokens,
		nav:       opts.Navigator,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.loginPath == "" {
		c.loginPath = "/login"
	}
	if c.hc == nil {
		c.hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if opts.RateRPS > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateRPS), burst)
	}
	return c
}

// SetTokenSource installs the session owner. The session cache and the
// client reference each other, so one side is wired after construction.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

// SetNavigator installs the front end's navigator.
func (c *Client) SetNavigator(n Navigator) {
	c.mu.Lock()
	c.nav = n
	c.mu.Unlock()
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.base }

// LoginPath returns the login entry point used on session expiry.
func (c *Client) LoginPath() string { return c.loginPath }

func (c *Client) deps() (TokenSource, Navigator) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens, c.nav
}

// Call sends a JSON request and returns the normalized result: the envelope
// data when the backend wraps its answer, the raw body otherwise. Every
// failure is an *Error. Calls are never retried.
func (c *Client) Call(ctx context.Context, method, path string, body any, auth AuthMode) (json.RawMessage, error) {
	var (
		rd          io.Reader
		contentType string
	)
	if body != nil {
		buf, err := encodeBody(body)
		if err != nil {
			return nil, &Error{Kind: KindClient, Status: http.StatusBadRequest, Message: "could not encode request", Err: err}
		}
		rd = bytes.NewReader(buf)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, rd, contentType, auth)
}

// Do performs Call and decodes the result into T. A 2xx body that does not
// decode is an invalid-response error.
func Do[T any](ctx context.Context, c *Client, method, path string, body any, auth AuthMode) (T, error) {
	var out T
	raw, err := c.Call(ctx, method, path, body, auth)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, InvalidResponse(http.StatusOK, err)
	}
	return out, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(body)
	}
}

// send is the shared pipeline of JSON calls and uploads: credential,
// throttle, request id, timeout, logging, metrics, normalization and the
// cross-cutting failure side effects.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, auth AuthMode) (json.RawMessage, error) {
	tokens, _ := c.deps()

	// live is the session's credential when the call left; a 401 expires it
	// even when the call itself went out anonymously.
	var live, tok string
	if tokens != nil {
		live = strings.TrimSpace(tokens.Token())
	}
	if auth != AuthNone {
		tok = live
	}
	if auth == AuthRequired && tok == "" {
		return nil, NewAuthRequiredError()
	}

	rid := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, &Error{Kind: KindClient, Status: http.StatusBadRequest, Message: "invalid request", RequestID: rid, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, rid)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	lg := log.With().
		Str("request_id", rid).
		Str("method", method).
		Str("url", redactURL(req.URL)).
		Logger()
	if id := observability.TraceID(ctx); id != "" {
		lg = lg.With().Str("trace_id", id).Logger()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			e := &Error{Kind: KindTransport, Message: NetworkMessage, RequestID: rid, Err: err}
			c.record(lg, method, e, 0, 0)
			c.onFailure(ctx, e, live)
			return nil, e
		}
	}

	apiInflight.Inc()
	start := time.Now()
	raw, status, e := c.roundTrip(req)
	apiInflight.Dec()
	latency := time.Since(start)

	if e != nil {
		e.RequestID = rid
		c.record(lg, method, e, status, latency)
		c.onFailure(ctx, e, live)
		return nil, e
	}
	c.record(lg, method, nil, status, latency)
	return raw, nil
}

func (c *Client) roundTrip(req *http.Request) (json.RawMessage, int, *Error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, &Error{Kind: KindTransport, Message: NetworkMessage, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, &Error{Kind: KindTransport, Status: resp.StatusCode, Message: NetworkMessage, Err: err}
	}
	raw, e := normalize(resp.StatusCode, body)
	if e != nil {
		return nil, resp.StatusCode, e
	}
	return raw, resp.StatusCode, nil
}

// record logs and counts one finished call.
func (c *Client) record(lg zerolog.Logger, method string, e *Error, status int, latency time.Duration) {
	kind := kindOK
	if e != nil {
		kind = string(e.Kind)
	}
	apiReqs.WithLabelValues(method, kind).Inc()
	apiLat.WithLabelValues(method).Observe(latency.Seconds())

	ev := lg.Debug()
	switch {
	case e == nil:
	case e.Kind == KindTransport || e.Kind == KindServer:
		ev = lg.Error().Err(e.Err)
	default:
		ev = lg.Warn()
	}
	if e != nil {
		ev = ev.Str("kind", string(e.Kind)).Str("message", e.Message)
	}
	ev.Int("status", status).Dur("latency", latency).Msg("api call")
}

// onFailure applies the cross-cutting side effects of a failed call.
//
// On 401 the session holding the exact token that was live when the call
// left is cleared, whatever the call's auth mode, and only the caller that
// cleared it notifies and redirects to the login entry point. Nothing happens while the front end already sits on that entry
// point. 400s are left to the form that issued the call.
func (c *Client) onFailure(ctx context.Context, e *Error, tok string) {
	switch {
	case e.Kind == KindAuthRequired:
		return
	case e.Kind == KindTransport:
		if errors.Is(e.Err, context.Canceled) {
			return
		}
		notify.Error(c.notifier, MsgNetworkError)
	case e.Kind == KindServer:
		notify.Error(c.notifier, MsgServerError)
	case e.Kind == KindRejected, e.Kind == KindInvalidResponse:
		notify.Error(c.notifier, e.Message)
	case e.Status == http.StatusUnauthorized:
		c.expireSession(ctx, tok)
	case e.Status == http.StatusForbidden:
		notify.Error(c.notifier, MsgForbidden)
	case e.Status == http.StatusNotFound:
		notify.Error(c.notifier, MsgNotFound)
	case e.Status == http.StatusBadRequest:
	default:
		notify.Error(c.notifier, e.Message)
	}
}

func (c *Client) expireSession(ctx context.Context, tok string) {
	tokens, nav := c.deps()
	if nav != nil && samePath(nav.Location(), c.loginPath) {
		return
	}
	if tokens == nil || tok == "" {
		return
	}
	// The request context may be past its deadline; the clear must still land.
	if !tokens.ExpireToken(context.WithoutCancel(ctx), tok) {
		return
	}
	notify.Warning(c.notifier, MsgSessionExpired)
	if nav != nil {
		nav.Redirect(c.loginPath)
	}
}

func samePath(a, b string) bool {
	a = strings.TrimRight(a, "/")
	b = strings.TrimRight(b, "/")
	return a == b
}

// Path joins escaped segments under the API root, e.g.
// Path("adoption", 12) == "/api/adoption/12".
func Path(segments ...any) string {
	var sb strings.Builder
	sb.WriteString("/api")
	for _, s := range segments {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(fmt.Sprint(s)))
	}
	return sb.String()
}

// WithQuery appends q to path.
func WithQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
