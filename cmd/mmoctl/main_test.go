package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmoclient/internal/app/session"
	"mmoclient/internal/app/user"
	"mmoclient/internal/configs"
	"mmoclient/internal/handler"
	"mmoclient/internal/pkg/errs"
)

type harness struct {
	baseURL     string
	sessionFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := &configs.ServerConfig{Environment: configs.EnvDevelopment, JWTSecret: "mmoctl-test-secret"}
	srv := httptest.NewServer(handler.Router(ctx, handler.NewAppDeps(cfg, user.NewStore())))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return &harness{
		baseURL:     srv.URL,
		sessionFile: filepath.Join(t.TempDir(), "session.yaml"),
	}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--base-url", h.baseURL, "--session-file", h.sessionFile}, args...))

	err := cmd.Execute()
	return buf.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := h.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	subcommands := []string{"health", "ping", "register", "login", "logout", "whoami", "characters", "character", "create", "select", "save-position"}
	for _, sub := range subcommands {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
	assert.Contains(t, output, "--base-url")
	assert.Contains(t, output, "--strict-auth")
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "health")

	assert.Contains(t, out, "OK: Server is running")
}

func TestPing(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "ping", "--count", "3", "--interval", "5ms")

	assert.Contains(t, out, "seq=1 ok")
	assert.Contains(t, out, "seq=3 ok")
	assert.Contains(t, out, "3 sent, 3 ok, 0 failed")
}

func TestPing_UnreachableBackend(t *testing.T) {
	h := newHarness(t)
	h.baseURL = "http://127.0.0.1:1"

	out, err := h.run(t, "ping", "-n", "1", "--timeout", "200ms")

	require.Error(t, err)
	assert.Contains(t, out, "seq=1 error: Could not reach the game server.")
}

func TestSessionPersistsAcrossInvocations(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "register", "-u", "sabri", "-e", "sabri@example.com", "-p", "hunter2hunter2")
	assert.Contains(t, out, "Account sabri created")

	out = h.mustRun(t, "login", "-u", "sabri", "-p", "hunter2hunter2")
	assert.Contains(t, out, "Logged in as sabri")

	info, err := os.Stat(h.sessionFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out = h.mustRun(t, "create", "Aria", "mage")
	match := regexp.MustCompile(`Created Aria the mage \(#(\d+)\)`).FindStringSubmatch(out)
	require.Len(t, match, 2, out)
	id := match[1]

	out = h.mustRun(t, "characters")
	assert.Contains(t, out, "Aria")
	assert.Contains(t, out, "mage")

	out = h.mustRun(t, "select", id)
	assert.Contains(t, out, "Selected Aria")

	out = h.mustRun(t, "characters", "--cached")
	assert.Regexp(t, `\*\s+`+id+`\s+Aria`, out)

	out = h.mustRun(t, "save-position", "1.5", "2", "3")
	assert.Contains(t, out, "Saved position of #"+id)

	out = h.mustRun(t, "character", id)
	assert.Contains(t, out, "position: 1.5, 2, 3")

	out = h.mustRun(t, "whoami", "--verify")
	assert.Contains(t, out, "sabri (user id")
	assert.Contains(t, out, "Token expires:")

	snap, err := session.LoadSnapshot(h.sessionFile)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.AuthToken)
	assert.Len(t, snap.Characters, 1)

	out = h.mustRun(t, "logout")
	assert.Contains(t, out, "Logged out")

	out = h.mustRun(t, "whoami")
	assert.Contains(t, out, "Not logged in")
}

func TestCharacters_RequiresLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "characters")

	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.ErrUnauthenticated))
	assert.Equal(t, "Please sign in to continue.", describe(err))
}

func TestCreate_StrictAuthWithoutLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "--strict-auth", "create", "Aria")

	assert.True(t, errs.HasCode(err, errs.ErrUnauthenticated))
}

func TestSelect_UnknownCharacter(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "select", "42")

	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrNotInRoster)
}

func TestSavePosition_NeedsSelection(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "save-position", "1", "2", "3")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no character selected")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", assert.AnError, assert.AnError.Error()},
		{"conflict", errs.NewError(errs.ErrConflict, "name exists").WithResponse(409, `{"error":"dup"}`), "Conflict: name exists (HTTP 409)"},
		{"rejected", errs.NewError(errs.ErrRequestFailed).WithResponse(500, `{"error":"boom"}`), `The game server rejected the request. (HTTP 500: {"error":"boom"})`},
		{"transport", errs.NewError(errs.ErrTransportFailure), "Could not reach the game server."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.err))
		})
	}
}
