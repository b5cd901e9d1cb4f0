package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/middleware"
	"lounge-chat/internal/service"
	"lounge-chat/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingIssuer struct{}

func (failingIssuer) Issue(string) (*domain.Session, error) {
	return nil, errors.New("entropy exhausted")
}

func (failingIssuer) Revoke(*domain.Session) {}

func (failingIssuer) TTL() time.Duration { return time.Hour }

func setupAuthHandler(t *testing.T) (*AuthHandler, *service.ChatService, *service.SessionService) {
	t.Helper()
	chat := testutil.NewTestChatService(100)
	sessions := testutil.NewTestSessionService(t)
	return NewAuthHandler(chat, sessions, false), chat, sessions
}

func withUsername(r *http.Request, username string) *http.Request {
	return r.WithContext(middleware.WithUsername(r.Context(), username))
}

func TestAuthHandler_Register_Success(t *testing.T) {
	h, chat, sessions := setupAuthHandler(t)

	w := httptest.NewRecorder()
	h.Register(w, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/register", RegisterRequest{Username: "  alice  "}))

	testutil.AssertStatusCode(t, w, http.StatusCreated)
	resp := testutil.DecodeJSON[RegisterResponse](t, w)
	assert.Equal(t, "alice", resp.Username)
	assert.NotEmpty(t, resp.CSRFToken)

	color, ok := chat.ColorOf(context.Background(), "alice")
	assert.True(t, ok, "alice should be registered")
	assert.Equal(t, color, resp.Color)

	cookie := testutil.AssertCookie(t, w, middleware.SessionCookieName)
	assert.True(t, cookie.HttpOnly, "session cookie must be HttpOnly")
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, int(sessions.TTL().Seconds()), cookie.MaxAge)
	assert.False(t, cookie.Secure, "secure cookies are off in tests")

	session, err := sessions.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Username)
	assert.Equal(t, resp.CSRFToken, session.CSRFToken)
}

func TestAuthHandler_Register_SecureCookie(t *testing.T) {
	h := NewAuthHandler(testutil.NewTestChatService(10), testutil.NewTestSessionService(t), true)

	w := httptest.NewRecorder()
	h.Register(w, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/register", RegisterRequest{Username: "alice"}))

	cookie := testutil.AssertCookie(t, w, middleware.SessionCookieName)
	assert.True(t, cookie.Secure, "cookie should be Secure")
}

func TestAuthHandler_Register_Errors(t *testing.T) {
	tests := []struct {
		name     string
		username string
		status   int
		code     string
	}{
		{"too short", "a", http.StatusBadRequest, domain.CodeInvalidName},
		{"blank", "   ", http.StatusBadRequest, domain.CodeInvalidName},
		{"too long", strings.Repeat("x", 21), http.StatusBadRequest, domain.CodeInvalidName},
		{"taken", "alice", http.StatusConflict, domain.CodeNameTaken},
		{"taken after trim", " alice ", http.StatusConflict, domain.CodeNameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, chat, _ := setupAuthHandler(t)
			_, err := chat.Register(context.Background(), "alice", "")
			require.NoError(t, err)

			w := httptest.NewRecorder()
			h.Register(w, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/register", RegisterRequest{Username: tt.username}))

			testutil.AssertErrorCode(t, w, tt.status, tt.code)
			testutil.AssertNoCookie(t, w, middleware.SessionCookieName)
		})
	}
}

func TestAuthHandler_Register_InvalidJSON(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/register", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.Register(w, req)

	testutil.AssertErrorCode(t, w, http.StatusBadRequest, middleware.CodeValidationFailed)
}

func TestAuthHandler_Register_IssueFailureLeavesNameFree(t *testing.T) {
	chat := testutil.NewTestChatService(10)
	h := NewAuthHandler(chat, failingIssuer{}, false)

	w := httptest.NewRecorder()
	h.Register(w, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/register", RegisterRequest{Username: "alice"}))

	testutil.AssertErrorCode(t, w, http.StatusInternalServerError, domain.CodeInternal)
	assert.NotContains(t, w.Body.String(), "entropy")

	_, ok := chat.ColorOf(context.Background(), "alice")
	assert.False(t, ok, "name should stay free")
}

func TestAuthHandler_Logout(t *testing.T) {
	h, chat, _ := setupAuthHandler(t)
	_, err := chat.Register(context.Background(), "alice", "")
	require.NoError(t, err)

	req := withUsername(httptest.NewRequest(http.MethodPost, "/api/v1/logout", nil), "alice")
	w := httptest.NewRecorder()
	h.Logout(w, req)

	testutil.AssertStatusCode(t, w, http.StatusNoContent)

	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Equal(t, "", cleared.Value)
	assert.Negative(t, cleared.MaxAge, "cookie should be expired")

	_, ok := chat.ColorOf(context.Background(), "alice")
	assert.False(t, ok, "name should be released")

	// the freed name can be claimed again
	_, err = chat.Register(context.Background(), "alice", "")
	require.NoError(t, err)
}

func TestAuthHandler_Logout_RevokesSession(t *testing.T) {
	h, chat, sessions := setupAuthHandler(t)

	w := httptest.NewRecorder()
	h.Register(w, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/register", RegisterRequest{Username: "alice"}))
	testutil.AssertStatusCode(t, w, http.StatusCreated)

	session, err := sessions.Validate(testutil.AssertCookie(t, w, middleware.SessionCookieName).Value)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/logout", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), session))
	w = httptest.NewRecorder()
	h.Logout(w, req)
	testutil.AssertStatusCode(t, w, http.StatusNoContent)

	_, err = sessions.Validate(session.Token)
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)

	// a new session takes the name; the old one cannot act as alice
	_, err = chat.Register(context.Background(), "alice", "new-session")
	require.NoError(t, err)
	_, err = chat.Submit(context.Background(), session.Identity(), domain.Draft{Text: "replayed"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuthHandler_Me_NameHeldByAnotherSession(t *testing.T) {
	h, chat, _ := setupAuthHandler(t)
	_, err := chat.Register(context.Background(), "alice", "current-session")
	require.NoError(t, err)

	stale := testutil.NewTestSession(testutil.WithSessionUsername("alice"))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), stale))

	w := httptest.NewRecorder()
	h.Me(w, req)

	testutil.AssertErrorCode(t, w, http.StatusUnauthorized, domain.CodeUnauthenticated)
}

func TestAuthHandler_Logout_Unauthenticated(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/api/v1/logout", nil))

	testutil.AssertErrorCode(t, w, http.StatusUnauthorized, domain.CodeUnauthenticated)
}

func TestAuthHandler_Me(t *testing.T) {
	h, chat, _ := setupAuthHandler(t)
	alice, err := chat.Register(context.Background(), "alice", "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.Me(w, withUsername(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), "alice"))

	testutil.AssertStatusCode(t, w, http.StatusOK)
	assert.Equal(t, alice, testutil.DecodeJSON[domain.User](t, w))
}

func TestAuthHandler_Me_SessionOutlivedRegistry(t *testing.T) {
	h, chat, _ := setupAuthHandler(t)

	w := httptest.NewRecorder()
	h.Me(w, withUsername(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), "bob"))

	testutil.AssertStatusCode(t, w, http.StatusOK)
	user := testutil.DecodeJSON[domain.User](t, w)
	assert.Equal(t, "bob", user.Username)

	color, ok := chat.ColorOf(context.Background(), "bob")
	assert.True(t, ok, "bob should be registered again")
	assert.Equal(t, color, user.Color)
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	w := httptest.NewRecorder()
	h.Me(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	testutil.AssertErrorCode(t, w, http.StatusUnauthorized, domain.CodeUnauthenticated)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{domain.CodeInvalidName, http.StatusBadRequest},
		{domain.CodeNameTaken, http.StatusConflict},
		{domain.CodeUnauthenticated, http.StatusUnauthorized},
		{domain.CodeEmptyMessage, http.StatusBadRequest},
		{domain.CodeTextTooLong, http.StatusBadRequest},
		{domain.CodeInvalidImage, http.StatusBadRequest},
		{domain.CodeImageTooLarge, http.StatusRequestEntityTooLarge},
		{domain.CodeInternal, http.StatusInternalServerError},
		{"something_else", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(tt.code))
		})
	}
}
