package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmoclient/internal/app/events"
	"mmoclient/internal/app/loop"
	"mmoclient/internal/pkg/errs"
)

func TestAsync_CompletionRunsOnlyWhenDrained(t *testing.T) {
	srv := stub(t, http.StatusOK, `{"token":"abc123","username":"sabri","user_id":7}`)
	f := newFixture(t, Options{BaseURL: srv.URL})
	l := loop.New()
	a := NewAsync(f.gateway, l)
	t.Cleanup(a.Close)

	var (
		called bool
		result *LoginResult
	)
	a.Login("sabri", "pw", func(res *LoginResult, err error) {
		require.NoError(t, err)
		called = true
		result = res
	})
	a.Wait()

	assert.False(t, called)
	assert.False(t, f.session.IsAuthenticated(), "session is only touched on the owner")
	assert.Zero(t, f.events.count(events.LoginSucceeded))

	assert.Equal(t, 1, l.Drain())

	assert.True(t, called)
	assert.Equal(t, 7, result.UserID)
	assert.True(t, f.session.IsAuthenticated())
	assert.Equal(t, 1, f.events.count(events.LoginSucceeded))
}

func TestAsync_UnauthenticatedListNeverHitsNetwork(t *testing.T) {
	doer := &countingDoer{}
	f := newFixture(t, Options{BaseURL: "http://game.invalid", Client: doer})
	l := loop.New()
	a := NewAsync(f.gateway, l)
	t.Cleanup(a.Close)

	var got error
	a.ListCharacters(func(_ *Roster, err error) { got = err })

	assert.Equal(t, 1, l.Pending(), "refusal is queued without waiting on anything")
	l.Drain()

	assert.True(t, errs.HasCode(got, errs.ErrUnauthenticated))
	assert.Zero(t, doer.calls.Load())
}

func TestAsync_FullFlowThroughRun(t *testing.T) {
	srv := startBackend(t)
	f := newFixture(t, Options{BaseURL: srv.URL})
	l := loop.New()
	a := NewAsync(f.gateway, l)
	t.Cleanup(a.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = l.Run(ctx) }()

	step := make(chan error, 1)
	await := func() {
		t.Helper()
		select {
		case err := <-step:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("completion never ran")
		}
	}

	a.Register(RegisterInput{Username: "sabri", Email: "sabri@example.com", Password: "hunter2hunter2"}, func(err error) { step <- err })
	await()

	a.Login("sabri", "hunter2hunter2", func(_ *LoginResult, err error) { step <- err })
	await()

	a.CreateCharacter("Aria", "mage", func(_ *CharacterResult, err error) { step <- err })
	await()

	a.ListCharacters(func(r *Roster, err error) {
		if err == nil && len(r.Characters) != 1 {
			t.Errorf("roster has %d entries", len(r.Characters))
		}
		step <- err
	})
	await()

	id := f.session.Characters()[0].CharacterID
	a.SavePosition(id, 1, 2, 3, func(err error) { step <- err })
	await()

	a.GetCharacter(id, func(c *CharacterResult, err error) {
		if err == nil && c.Character.X != 1 {
			t.Errorf("x = %v", c.Character.X)
		}
		step <- err
	})
	await()

	a.VerifyToken(func(_ *Identity, err error) { step <- err })
	await()

	a.HealthCheck(func(_ *Health, err error) { step <- err })
	await()
}

func TestAsync_CloseAbortsInFlight(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	f := newFixture(t, Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	l := loop.New()
	a := NewAsync(f.gateway, l)

	var got error
	a.HealthCheck(func(_ *Health, err error) { got = err })

	a.Close()
	l.Drain()

	assert.True(t, errs.HasCode(got, errs.ErrTransportFailure))
}

func TestAsync_NilDoneIsAllowed(t *testing.T) {
	srv := stub(t, http.StatusOK, `{"message":"Position saved successfully"}`)
	f := newFixture(t, Options{BaseURL: srv.URL})
	l := loop.New()
	a := NewAsync(f.gateway, l)
	t.Cleanup(a.Close)

	a.SavePosition(1, 0, 0, 0, nil)
	a.Wait()

	assert.NotPanics(t, func() { l.Drain() })
}

func TestAsync_ClosedLoopDropsCompletion(t *testing.T) {
	srv := stub(t, http.StatusOK, `{"status":"OK"}`)
	f := newFixture(t, Options{BaseURL: srv.URL})
	l := loop.New()
	l.Close()
	a := NewAsync(f.gateway, l)
	t.Cleanup(a.Close)

	called := false
	a.HealthCheck(func(*Health, error) { called = true })
	a.Wait()
	l.Drain()

	assert.False(t, called)
}
