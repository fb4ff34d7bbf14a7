package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetboard/fleetboard/internal/authz"
	"github.com/fleetboard/fleetboard/internal/shared"
)

func newTestHandler(t *testing.T, adminCodeHash string) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "fleetboard_session", "test-secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(logger, NewOAuthConfig("client-id", "client-secret", "http://localhost/api/auth/callback"), nil, nil, nil, adminCodeHash)
	return NewHandler(logger, service, authz.NewGuard(nil), sessions), sessions
}

func requestWithSession(t *testing.T, sessions *shared.SessionManager, target string) (*http.Request, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestLoginRedirectsToDiscordWithState(t *testing.T) {
	h, sessions := newTestHandler(t, "")
	req, sess := requestWithSession(t, sessions, "/api/auth/login")
	rec := httptest.NewRecorder()

	h.login(rec, req)

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "discord.com", loc.Host)
	assert.Contains(t, loc.Query().Get("scope"), "guilds.members.read")

	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Equal(t, state, sess.Get("oauth:state"))
}

func TestLoginRejectsWrongAdminCode(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	h, sessions := newTestHandler(t, string(hash))
	req, sess := requestWithSession(t, sessions, "/api/auth/login?admin_code=battery-staple")
	rec := httptest.NewRecorder()

	h.login(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, sess.Get("oauth:admin"))
}

func TestLoginIgnoresAdminCodeWhenFlowDisabled(t *testing.T) {
	h, sessions := newTestHandler(t, "")
	req, sess := requestWithSession(t, sessions, "/api/auth/login?admin_code=anything")
	rec := httptest.NewRecorder()

	h.login(rec, req)

	// No hash configured means no bootstrap flow at all.
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, sess.Get("oauth:admin"))
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	h, sessions := newTestHandler(t, "")
	req, sess := requestWithSession(t, sessions, "/api/auth/callback?code=abc&state=forged")
	sess.Set("oauth:state", "genuine")
	rec := httptest.NewRecorder()

	h.callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// The stored state is consumed either way.
	assert.Empty(t, sess.Get("oauth:state"))
}

func TestCallbackRejectsMissingState(t *testing.T) {
	h, sessions := newTestHandler(t, "")
	req, _ := requestWithSession(t, sessions, "/api/auth/callback?code=abc")
	rec := httptest.NewRecorder()

	h.callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyState(t *testing.T) {
	tests := []struct {
		name   string
		got    string
		stored string
		ok     bool
	}{
		{name: "match", got: "abc", stored: "abc", ok: true},
		{name: "mismatch", got: "abc", stored: "def"},
		{name: "missing callback state", got: "", stored: "abc"},
		{name: "nothing stored", got: "abc", stored: ""},
		{name: "both empty", got: "", stored: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyState(tt.got, tt.stored)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, shared.ErrOAuthStateMismatch)
			}
		})
	}
}

func TestVerifyAdminCode(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	oauthCfg := NewOAuthConfig("client-id", "client-secret", "http://localhost/api/auth/callback")

	svc := NewService(logger, oauthCfg, nil, nil, nil, string(hash))
	assert.ErrorIs(t, svc.VerifyAdminCode(context.Background(), "battery-staple"), shared.ErrInvalidAdminCode)
	assert.ErrorIs(t, svc.VerifyAdminCode(context.Background(), ""), shared.ErrInvalidAdminCode)

	// No hash configured means the bootstrap flow is disabled entirely.
	disabled := NewService(logger, oauthCfg, nil, nil, nil, "")
	assert.ErrorIs(t, disabled.VerifyAdminCode(context.Background(), "correct-horse"), shared.ErrInvalidAdminCode)
}

func TestDisplayNamePrefersGlobalName(t *testing.T) {
	assert.Equal(t, "Pilot", DiscordUser{Username: "pilot#1234", GlobalName: "Pilot"}.DisplayName())
	assert.Equal(t, "pilot#1234", DiscordUser{Username: "pilot#1234"}.DisplayName())
}
