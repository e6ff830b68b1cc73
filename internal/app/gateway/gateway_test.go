package gateway

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"mmoclient/internal/app/events"
	"mmoclient/internal/app/session"
	"mmoclient/internal/app/user"
	"mmoclient/internal/configs"
	"mmoclient/internal/handler"
	"mmoclient/internal/pkg/errs"
)

const testSecret = "gateway-test-secret"

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(ev events.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

// countingDoer fails the test if it is ever used.
type countingDoer struct {
	calls atomic.Int32
}

func (d *countingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return nil, io.ErrUnexpectedEOF
}

type fixture struct {
	gateway *Gateway
	session *session.Session
	events  *recorder
	metrics *Metrics
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	rec := &recorder{}
	sess := session.New(rec)
	metrics := NewMetrics(prometheus.NewRegistry())

	opts.Publisher = rec
	opts.Metrics = metrics
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}

	g, err := New(sess, opts)
	require.NoError(t, err)

	return &fixture{gateway: g, session: sess, events: rec, metrics: metrics}
}

// startBackend serves the development backend on a test server.
func startBackend(t *testing.T) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := &configs.ServerConfig{Environment: configs.EnvDevelopment, JWTSecret: testSecret}
	srv := httptest.NewServer(handler.Router(ctx, handler.NewAppDeps(cfg, user.NewStore())))

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

// stub answers every request with status and body.
func stub(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func requireCode(t *testing.T, err error, code int) *errs.CustomError {
	t.Helper()

	require.Error(t, err)
	customErr, ok := errs.As(err)
	require.True(t, ok, "expected a CustomError, got %v", err)
	require.Equal(t, code, customErr.Code, "unexpected error: %v", err)
	return customErr
}

func register(t *testing.T, g *Gateway, username string) {
	t.Helper()
	require.NoError(t, g.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "hunter2hunter2",
	}))
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := New(session.New(nil), Options{BaseURL: "/api"})
	assert.Error(t, err)

	_, err = New(nil, Options{BaseURL: "http://localhost:3000"})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	srv := startBackend(t)
	f := newFixture(t, Options{BaseURL: srv.URL})

	health, err := f.gateway.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", health.Status)
	assert.NotEmpty(t, health.Timestamp)
}

func TestHealthCheck_ServerErrorIsRequestFailed(t *testing.T) {
	srv := stub(t, http.StatusInternalServerError, `{"status":"ERROR","message":"Database connection failed"}`)
	f := newFixture(t, Options{BaseURL: srv.URL})

	_, err := f.gateway.HealthCheck(context.Background())

	customErr := requireCode(t, err, errs.ErrRequestFailed)
	assert.Equal(t, http.StatusInternalServerError, customErr.Status)
	assert.Contains(t, customErr.Body, "Database connection failed")
}

func TestFullFlowAgainstBackend(t *testing.T) {
	srv := startBackend(t)
	f := newFixture(t, Options{BaseURL: srv.URL})
	ctx := context.Background()

	register(t, f.gateway, "sabri")
	assert.False(t, f.session.IsAuthenticated(), "register does not log in")

	login, err := f.gateway.Login(ctx, "sabri", "hunter2hunter2")
	require.NoError(t, err)
	assert.Empty(t, login.Warnings)
	assert.True(t, f.session.IsAuthenticated())
	assert.Equal(t, "sabri", f.session.Username())
	assert.Positive(t, f.session.UserID())
	assert.Equal(t, 1, f.events.count(events.LoginSucceeded))

	created, err := f.gateway.CreateCharacter(ctx, "Aria", "mage")
	require.NoError(t, err)
	assert.Equal(t, "Aria", created.Character.Name)
	assert.Equal(t, "mage", created.Character.CharacterClass)
	assert.Equal(t, 1, f.events.count(events.CharacterCreated))
	assert.Empty(t, f.session.Characters(), "create does not touch the roster")

	_, err = f.gateway.CreateCharacter(ctx, "Brom", "")
	require.NoError(t, err)

	roster, err := f.gateway.ListCharacters(ctx)
	require.NoError(t, err)
	assert.Empty(t, roster.Warnings)
	require.Len(t, f.session.Characters(), 2)
	assert.Equal(t, "Brom", f.session.Characters()[0].Name, "newest first")
	assert.Equal(t, session.DefaultCharacterClass, f.session.Characters()[0].CharacterClass)
	assert.Equal(t, 1, f.session.Characters()[1].Level)
	assert.Equal(t, 1, f.events.count(events.CharacterListReceived))

	aria := created.Character.CharacterID
	require.NoError(t, f.gateway.SavePosition(ctx, aria, 12.5, -3, 0.25))

	got, err := f.gateway.GetCharacter(ctx, aria)
	require.NoError(t, err)
	assert.Equal(t, 12.5, got.Character.X)
	assert.Equal(t, -3.0, got.Character.Y)
	assert.Equal(t, 0.25, got.Character.Z)

	identity, err := f.gateway.VerifyToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sabri", identity.Username)
	assert.Equal(t, f.session.UserID(), identity.UserID)

	f.gateway.Logout()
	assert.False(t, f.session.IsAuthenticated())
	assert.Empty(t, f.session.Characters())

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.requests.WithLabelValues(OpLogin, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.requests.WithLabelValues(OpCreateCharacter, "success")))
}

func TestLogin_DecodesBodyIntoSession(t *testing.T) {
	srv := stub(t, http.StatusOK, `{"token":"abc123","username":"sabri","user_id":7}`)
	f := newFixture(t, Options{BaseURL: srv.URL})

	res, err := f.gateway.Login(context.Background(), "sabri", "pw")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, "abc123", f.session.Token())
	assert.Equal(t, "sabri", f.session.Username())
	assert.Equal(t, 7, f.session.UserID())
	assert.True(t, f.session.IsLoggedIn())
	assert.Equal(t, 1, f.events.count(events.LoginSucceeded))
	assert.Zero(t, f.events.count(events.LoginFailed))
}

func TestLogin_MissingUsernameUsesPlaceholder(t *testing.T) {
	srv := stub(t, http.StatusOK, `{"token":"abc123","user_id":7}`)
	f := newFixture(t, Options{BaseURL: srv.URL})

	res, err := f.gateway.Login(context.Background(), "sabri", "pw")
	require.NoError(t, err)

	assert.Equal(t, PlaceholderUsername, f.session.Username())
	assert.Equal(t, "abc123", f.session.Token())
	assert.True(t, f.session.IsLoggedIn())

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, errs.ErrDecodeWarning, res.Warnings[0].Code)
	assert.Equal(t, "user.username", res.Warnings[0].Detail)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.decodeWarnings.WithLabelValues(OpLogin)))
}

func TestLogin_NestedUserObject(t *testing.T) {
	srv := stub(t, http.StatusOK, `{"message":"Login successful","user":{"user_id":"12","username":"nested"},"token":"tok"}`)
	f := newFixture(t, Options{BaseURL: srv.URL})

	res, err := f.gateway.Login(context.Background(), "nested", "pw")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "nested", f.session.Username())
	assert.Equal(t, 12, f.session.UserID())
}

func TestLogin_MissingTokenFails(t *testing.T) {
	srv := stub(t, http.StatusOK, `{"username":"sabri","user_id":7}`)
	f := newFixture(t, Options{BaseURL: srv.URL})

	_, err := f.gateway.Login(context.Background(), "sabri", "pw")

	requireCode(t, err, errs.ErrRequestFailed)
	assert.False(t, f.session.IsAuthenticated())
	assert.Equal(t, 1, f.events.count(events.LoginFailed))
	assert.Zero(t, f.events.count(events.LoginSucceeded))
}

func TestLogin_BadCredentialsIsRequestFailed(t *testing.T) {
	srv := startBackend(t)
	f := newFixture(t, Options{BaseURL: srv.URL})
	register(t, f.gateway, "sabri")

	_, err := f.gateway.Login(context.Background(), "sabri", "wrong-password1")

	customErr := requireCode(t, err, errs.ErrRequestFailed)
	assert.Equal(t, http.StatusUnauthorized, customErr.Status)
	assert.False(t, f.session.IsAuthenticated())
	assert.Equal(t, 1, f.events.count(events.LoginFailed))
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	srv := startBackend(t)
	f := newFixture(t, Options{BaseURL: srv.URL})
	register(t, f.gateway, "sabri")

	err := f.gateway.Register(context.Background(), RegisterInput{
		Username: "SABRI",
		Email:    "other@example.com",
		Password: "hunter2hunter2",
	})

	customErr := requireCode(t, err, errs.ErrConflict)
	assert.Equal(t, "username or email exists", customErr.Detail)
	assert.Equal(t, http.StatusConflict, customErr.Status)
}

func TestRegister_ValidationErrorIsRequestFailed(t *testing.T) {
	srv := startBackend(t)
	f := newFixture(t, Options{BaseURL: srv.URL})

	err := f.gateway.Register(context.Background(), RegisterInput{Username: "ab", Email: "x", Password: "short"})

	customErr := requireCode(t, err, errs.ErrRequestFailed)
	assert.Equal(t, http.StatusBadRequest, customErr.Status)
}

func TestCreateCharacter_ConflictLeavesRosterUnchanged(t *testing.T) {
	srv := startBackend(t)
	f := newFixture(t, Options{BaseURL: srv.URL})
	ctx := context.Background()

	register(t, f.gateway, "sabri")
	_, err := f.gateway.Login(ctx, "sabri", "hunter2hunter2")
	require.NoError(t, err)
	_, err = f.gateway.CreateCharacter(ctx, "Aria", "mage")
	require.NoError(t, err)
	_, err = f.gateway.ListCharacters(ctx)
	require.NoError(t, err)
	before := f.session.Characters()

	_, err = f.gateway.CreateCharacter(ctx, "Aria", "warrior")

	customErr := requireCode(t, err, errs.ErrConflict)
	assert.Equal(t, "name exists", customErr.Detail)
	assert.Equal(t, before, f.session.Characters())
	assert.Equal(t, 1, f.events.count(events.CharacterCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.requests.WithLabelValues(OpCreateCharacter, "conflict")))
}

func TestListCharacters_OversizedBodyIsNotDecoded(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"characters":[`)
	for i := 1; b.Len() <= MaxResponseBodySize; i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"character_id":%d,"name":"Hero%d","class":"mage","level":3}`, i, i)
	}
	b.WriteString(`]}`)
	srv := stub(t, http.StatusOK, b.String())

	f := newFixture(t, Options{BaseURL: srv.URL})
	require.NoError(t, f.session.SetAuthData("abc123", "sabri", 7))
	kept := []session.Character{{CharacterID: 1, Name: "Aria", CharacterClass: "mage", Level: 2}}
	f.session.SetCharacterList(kept)
	listed := f.events.count(events.CharacterListReceived)

	roster, err := f.gateway.ListCharacters(context.Background())

	customErr := requireCode(t, err, errs.ErrRequestFailed)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.Equal(t, http.StatusOK, customErr.Status)
	assert.Nil(t, roster)
	assert.Equal(t, kept, f.session.Characters())
	assert.Equal(t, listed, f.events.count(events.CharacterListReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.requests.WithLabelValues(OpListCharacters, "request_failed")))
}

func TestListCharacters_UnauthenticatedSendsNothing(t *testing.T) {
	doer := &countingDoer{}
	f := newFixture(t, Options{BaseURL: "http://game.invalid", Client: doer})

	_, err := f.gateway.ListCharacters(context.Background())

	requireCode(t, err, errs.ErrUnauthenticated)
	assert.Zero(t, doer.calls.Load())
	assert.Zero(t, f.events.count(events.CharacterListReceived))
}

func TestCreateCharacter_SendsWithoutTokenByDefault(t *testing.T) {
	srv := startBackend(t)
	f := newFixture(t, Options{BaseURL: srv.URL})

	_, err := f.gateway.CreateCharacter(context.Background(), "Aria", "mage")

	customErr := requireCode(t, err, errs.ErrUnauthenticated)
	assert.Equal(t, http.StatusUnauthorized, customErr.Status, "the backend rejected it, so it was sent")
	assert.Zero(t, f.events.count(events.CharacterCreated))
}

func TestStrictAuth_FailsFast(t *testing.T) {
	doer := &countingDoer{}
	f := newFixture(t, Options{BaseURL: "http://game.invalid", Client: doer, StrictAuth: true})
	ctx := context.Background()

	_, err := f.gateway.CreateCharacter(ctx, "Aria", "mage")
	requireCode(t, err, errs.ErrUnauthenticated)

	err = f.gateway.SavePosition(ctx, 1, 0, 0, 0)
	requireCode(t, err, errs.ErrUnauthenticated)

	assert.Zero(t, doer.calls.Load())
}

func TestStatusPolicy_AuthenticatedCalls(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   int
	}{
		{"401 means re-login", http.StatusUnauthorized, errs.ErrUnauthenticated},
		{"403 is a plain rejection", http.StatusForbidden, errs.ErrRequestFailed},
		{"500", http.StatusInternalServerError, errs.ErrRequestFailed},
		{"409 is not special here", http.StatusConflict, errs.ErrRequestFailed},
		{"204 is not the success code", http.StatusNoContent, errs.ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := stub(t, tt.status, `{"error":"nope"}`)
			f := newFixture(t, Options{BaseURL: srv.URL})
			require.NoError(t, f.session.SetAuthData("tok", "sabri", 7))
			f.session.SetCharacterList([]session.Character{{CharacterID: 1, Name: "Aria"}})

			_, err := f.gateway.ListCharacters(context.Background())

			customErr := requireCode(t, err, tt.code)
			assert.Equal(t, tt.status, customErr.Status)
			assert.Len(t, f.session.Characters(), 1, "a failed list keeps the roster")
			assert.True(t, f.session.IsAuthenticated(), "401 does not log out")
		})
	}
}

func TestTransportFailure_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	f := newFixture(t, Options{BaseURL: base})

	_, err := f.gateway.HealthCheck(context.Background())

	customErr := requireCode(t, err, errs.ErrTransportFailure)
	assert.Zero(t, customErr.Status)
	assert.NotNil(t, customErr.Unwrap())
}

func TestTransportFailure_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	f := newFixture(t, Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := f.gateway.HealthCheck(context.Background())

	requireCode(t, err, errs.ErrTransportFailure)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.requests.WithLabelValues(OpHealthCheck, "transport_failure")))
}

func TestRateLimiter_WaitBeyondTimeoutIsTransportFailure(t *testing.T) {
	srv := stub(t, http.StatusOK, `{"status":"OK"}`)
	f := newFixture(t, Options{
		BaseURL:           srv.URL,
		Timeout:           100 * time.Millisecond,
		RequestsPerSecond: 0.01,
		Burst:             1,
	})

	_, err := f.gateway.HealthCheck(context.Background())
	require.NoError(t, err)

	_, err = f.gateway.HealthCheck(context.Background())
	requireCode(t, err, errs.ErrTransportFailure)
}

func TestRequestShape(t *testing.T) {
	type captured struct {
		method, path, contentType, auth, requestID string
		body                                       []byte
	}
	got := make(chan captured, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- captured{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			requestID:   r.Header.Get(RequestIDHeader),
			body:        body,
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"message":"Position saved successfully"}`)
	}))
	t.Cleanup(srv.Close)

	f := newFixture(t, Options{BaseURL: srv.URL + "/game"})
	require.NoError(t, f.session.SetAuthData("abc123", "sabri", 7))

	require.NoError(t, f.gateway.SavePosition(context.Background(), 42, 1.5, 2, -3))

	c := <-got
	assert.Equal(t, http.MethodPut, c.method)
	assert.Equal(t, "/game/api/characters/42/position", c.path)
	assert.Equal(t, "application/json", c.contentType)
	assert.Equal(t, "Bearer abc123", c.auth)
	assert.NotEmpty(t, c.requestID)
	assert.Equal(t, int64(42), gjson.GetBytes(c.body, "characterId").Int())
	assert.Equal(t, 1.5, gjson.GetBytes(c.body, "x").Float())
	assert.Equal(t, -3.0, gjson.GetBytes(c.body, "z").Float())
}

func TestRegister_NeverSendsToken(t *testing.T) {
	auth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	f := newFixture(t, Options{BaseURL: srv.URL})
	require.NoError(t, f.session.SetAuthData("abc123", "sabri", 7))

	require.NoError(t, f.gateway.Register(context.Background(), RegisterInput{Username: "other"}))
	assert.Empty(t, <-auth)
}

func TestSavePosition_InvalidArguments(t *testing.T) {
	doer := &countingDoer{}
	f := newFixture(t, Options{BaseURL: "http://game.invalid", Client: doer})
	ctx := context.Background()

	assert.ErrorIs(t, f.gateway.SavePosition(ctx, 0, 1, 2, 3), ErrInvalidArgument)
	assert.ErrorIs(t, f.gateway.SavePosition(ctx, 1, math.NaN(), 2, 3), ErrInvalidArgument)
	assert.ErrorIs(t, f.gateway.SavePosition(ctx, 1, 1, math.Inf(1), 3), ErrInvalidArgument)
	assert.Zero(t, doer.calls.Load())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &configs.ClientConfig{
		BaseURL:           "http://localhost:3000",
		RequestTimeout:    3 * time.Second,
		RequestsPerSecond: 4,
		RequestBurst:      2,
		StrictAuth:        true,
	}

	opts := OptionsFromConfig(cfg)

	assert.Equal(t, cfg.BaseURL, opts.BaseURL)
	assert.Equal(t, cfg.RequestTimeout, opts.Timeout)
	assert.Equal(t, 4.0, opts.RequestsPerSecond)
	assert.Equal(t, 2, opts.Burst)
	assert.True(t, opts.StrictAuth)
}
