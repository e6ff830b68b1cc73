/*
Package gateway translates game UI operations into backend HTTP calls.

Every operation has two phases. Preparing builds the request (endpoint, method, JSON
body, bearer header) synchronously, and may refuse it locally when a token is required
but absent. Finishing classifies the HTTP status, decodes the body with a tolerant
field-by-field policy, mutates the session and publishes notifications. The blocking
methods on Gateway run both phases back to back; Async runs the exchange on a
goroutine and the finishing phase on the owner's loop.
*/
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"mmoclient/internal/app/events"
	"mmoclient/internal/app/session"
	"mmoclient/internal/configs"
	"mmoclient/internal/pkg/errs"
	"mmoclient/internal/pkg/logx"
	"mmoclient/internal/pkg/randx"
)

// MaxResponseBodySize caps how much of a response body is read. A larger body fails
// the call with ErrRequestFailed wrapping ErrResponseTooLarge and is never decoded.
const MaxResponseBodySize = 1 << 20 // 1 MB

// ErrResponseTooLarge is the cause attached when a body exceeds MaxResponseBodySize.
var ErrResponseTooLarge = errors.New("gateway: response body too large")

// RequestIDHeader carries the per-request id, echoed in the backend's logs.
const RequestIDHeader = "X-Request-Id"

// Doer is the HTTP client capability. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures a Gateway.
type Options struct {
	// BaseURL is the backend root, e.g. http://localhost:3000.
	BaseURL string

	// Client performs the HTTP exchange. Defaults to a fresh http.Client.
	Client Doer

	// Timeout bounds each request including any rate limiter wait.
	// Defaults to configs.DefaultRequestTimeout.
	Timeout time.Duration

	// RequestsPerSecond and Burst configure the outbound limiter. Zero
	// RequestsPerSecond disables it.
	RequestsPerSecond float64
	Burst             int

	// StrictAuth makes CreateCharacter and SavePosition refuse to run without
	// a token.
	StrictAuth bool

	// Publisher receives LoginFailed and CharacterCreated. The session publishes
	// the other two events itself. Nil drops them.
	Publisher events.Publisher

	// Metrics is optional.
	Metrics *Metrics
}

// OptionsFromConfig maps the client configuration onto Options.
func OptionsFromConfig(cfg *configs.ClientConfig) Options {
	return Options{
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
		StrictAuth:        cfg.StrictAuth,
	}
}

// Gateway is the network front of the session. It holds no session state itself.
type Gateway struct {
	baseURL    *url.URL
	client     Doer
	timeout    time.Duration
	limiter    *rate.Limiter
	strictAuth bool

	session   *session.Session
	publisher events.Publisher
	metrics   *Metrics
	logger    zerolog.Logger
}

// New returns a Gateway feeding sess.
func New(sess *session.Session, opts Options) (*Gateway, error) {
	if sess == nil {
		return nil, fmt.Errorf("gateway: nil session")
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid base URL %q: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway: base URL %q must be absolute", opts.BaseURL)
	}

	g := &Gateway{
		baseURL:    base,
		client:     opts.Client,
		timeout:    opts.Timeout,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		strictAuth: opts.StrictAuth,
		session:    sess,
		publisher:  opts.Publisher,
		metrics:    opts.Metrics,
		logger:     logx.Component("gateway"),
	}

	if g.client == nil {
		g.client = &http.Client{}
	}
	if g.timeout <= 0 {
		g.timeout = configs.DefaultRequestTimeout
	}
	if opts.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1))
	}
	if g.publisher == nil {
		g.publisher = events.Discard
	}

	return g, nil
}

// Session returns the session the gateway feeds.
func (g *Gateway) Session() *session.Session {
	return g.session
}

// authPolicy says how an operation treats the bearer token.
type authPolicy int

const (
	// authNone never sends a token.
	authNone authPolicy = iota

	// authRequired refuses to send the request without a token.
	authRequired

	// authIfAvailable sends the token when there is one and lets the backend
	// decide otherwise.
	authIfAvailable
)

// authenticated reports whether the endpoint sits behind the backend's token check,
// which decides whether a 401 means ErrUnauthenticated.
func (p authPolicy) authenticated() bool {
	return p != authNone
}

// endpoint describes one backend operation.
type endpoint struct {
	op      string
	method  string
	path    string
	auth    authPolicy
	success int

	// conflict is the ErrConflict detail for a 409, empty when 409 is not special.
	conflict string
}

// response is a completed HTTP exchange.
type response struct {
	endpoint  endpoint
	status    int
	body      []byte
	requestID string
}

// prepare builds the request for e. It fails with ErrUnauthenticated, without
// touching the network, when the endpoint requires a token the session lacks.
func (g *Gateway) prepare(ctx context.Context, e endpoint, body any) (*http.Request, error) {
	policy := e.auth
	if policy == authIfAvailable && g.strictAuth {
		policy = authRequired
	}

	if policy == authRequired && !g.session.IsAuthenticated() {
		g.logger.Warn().Str("operation", e.op).Msg("Not authenticated, request not sent")
		return nil, errs.NewError(errs.ErrUnauthenticated)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode %s body: %w", e.op, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := g.baseURL.JoinPath(e.path)

	req, err := http.NewRequestWithContext(ctx, e.method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("gateway: build %s request: %w", e.op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, randx.RequestID())

	if policy != authNone {
		if header := g.session.AuthHeaderValue(); header != "" {
			req.Header.Set("Authorization", header)
		}
	}

	return req, nil
}

// exchange performs the HTTP round trip. Any failure to obtain a complete
// response, including the timeout, is ErrTransportFailure.
func (g *Gateway) exchange(e endpoint, req *http.Request) (*response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), g.timeout)
	defer cancel()

	requestID := req.Header.Get(RequestIDHeader)
	logger := g.logger.With().
		Str("operation", e.op).
		Str("request_method", req.Method).
		Str("request_path", req.URL.Path).
		Str("request_id", requestID).
		Logger()

	start := time.Now()
	defer func() {
		g.metrics.observeDuration(e.op, time.Since(start))
	}()

	if err := g.limiter.Wait(ctx); err != nil {
		logger.Warn().Err(err).Msg("Rate limiter wait aborted")
		return nil, errs.NewError(errs.ErrTransportFailure, err)
	}

	res, err := g.client.Do(req.WithContext(ctx))
	if err != nil {
		logger.Warn().Err(err).Dur("latency", time.Since(start)).Msg("Request failed before a response arrived")
		return nil, errs.NewError(errs.ErrTransportFailure, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, MaxResponseBodySize+1))
	if err != nil {
		logger.Warn().Err(err).Int("status", res.StatusCode).Msg("Reading response body failed")
		return nil, errs.NewError(errs.ErrTransportFailure, err)
	}
	if len(body) > MaxResponseBodySize {
		logger.Warn().Int("status", res.StatusCode).Int("limit", MaxResponseBodySize).Msg("Response body too large")
		return nil, errs.NewError(errs.ErrRequestFailed, ErrResponseTooLarge).WithResponse(res.StatusCode, "")
	}

	logger.Debug().
		Int("status", res.StatusCode).
		Int("bytes", len(body)).
		Dur("latency", time.Since(start)).
		Msg("Response received")

	return &response{endpoint: e, status: res.StatusCode, body: body, requestID: requestID}, nil
}

// call is a prepared operation: the request to send, or the reason it was refused.
type call struct {
	endpoint endpoint
	req      *http.Request
	err      error
}

func (g *Gateway) newCall(ctx context.Context, e endpoint, body any) *call {
	req, err := g.prepare(ctx, e, body)
	return &call{endpoint: e, req: req, err: err}
}

// result is the raw outcome of a call, before classification.
type result struct {
	endpoint endpoint
	res      *response
	err      error
}

// do sends c unless preparing it already failed.
func (g *Gateway) do(c *call) result {
	if c.err != nil {
		return result{endpoint: c.endpoint, err: c.err}
	}
	res, err := g.exchange(c.endpoint, c.req)
	return result{endpoint: c.endpoint, res: res, err: err}
}

// classify applies the status policy: the endpoint's success code passes; 401 on
// an authenticated endpoint is ErrUnauthenticated; 409 on an endpoint with a
// conflict detail is ErrConflict; everything else is ErrRequestFailed.
func classify(res *response) error {
	e := res.endpoint

	switch {
	case res.status == e.success:
		return nil
	case res.status == http.StatusUnauthorized && e.auth.authenticated():
		return errs.NewError(errs.ErrUnauthenticated).WithResponse(res.status, string(res.body))
	case res.status == http.StatusConflict && e.conflict != "":
		return errs.NewError(errs.ErrConflict, e.conflict).WithResponse(res.status, string(res.body))
	default:
		return errs.NewError(errs.ErrRequestFailed).WithResponse(res.status, string(res.body))
	}
}

// check returns the call's error, or the status classification when the
// exchange completed.
func (r result) check() error {
	if r.err != nil {
		return r.err
	}
	return classify(r.res)
}

// record logs and counts the final outcome of an operation.
func (g *Gateway) record(r result, err error, warnings int) {
	outcome := outcomeOf(err)
	g.metrics.countOutcome(r.endpoint.op, outcome)

	event := g.logger.Info()
	if err != nil {
		event = g.logger.Warn().Err(err)
	}
	if r.res != nil {
		event = event.Int("status", r.res.status).Str("request_id", r.res.requestID)
	}
	event.Str("operation", r.endpoint.op).
		Str("outcome", outcome).
		Int("decode_warnings", warnings).
		Msg("Operation completed")
}

func outcomeOf(err error) string {
	switch errs.CodeOf(err) {
	case 0:
		if err != nil {
			return "error"
		}
		return "success"
	case errs.ErrTransportFailure:
		return "transport_failure"
	case errs.ErrUnauthenticated:
		return "unauthenticated"
	case errs.ErrConflict:
		return "conflict"
	default:
		return "request_failed"
	}
}

// finite reports whether v can be sent as a JSON number.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
