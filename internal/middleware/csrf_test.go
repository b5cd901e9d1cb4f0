package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/security"
	"lounge-chat/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func csrfHandler(called *bool) http.Handler {
	return CSRF(security.NewTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func withSession(req *http.Request, session *domain.Session) *http.Request {
	return req.WithContext(WithSession(req.Context(), session))
}

func TestCSRF_SkipsSafeMethods(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			w := httptest.NewRecorder()
			csrfHandler(&called).ServeHTTP(w, httptest.NewRequest(method, "/api/v1/messages", nil))

			assert.True(t, called)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestCSRF_ExemptPaths(t *testing.T) {
	tests := []struct {
		path   string
		exempt bool
	}{
		{"/health", true},
		{"/health/ready", true},
		{"/metrics", true},
		{"/ws", true},
		{"/wsx", false},
		{"/api/v1/messages", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.exempt, isExemptPath(tt.path))
		})
	}
}

func TestCSRF_RejectsNonAuthenticatedRequest(t *testing.T) {
	called := false
	w := httptest.NewRecorder()
	csrfHandler(&called).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/messages", nil))

	assert.False(t, called)
	testutil.AssertErrorCode(t, w, http.StatusUnauthorized, domain.CodeUnauthenticated)
}

func TestCSRF_TokenChecks(t *testing.T) {
	session := testutil.NewTestSession(testutil.WithCSRFToken("expected-token"))

	tests := []struct {
		name       string
		header     string
		value      string
		wantCalled bool
		wantStatus int
	}{
		{"missing", "", "", false, http.StatusForbidden},
		{"wrong", CSRFHeaderName, "other-token", false, http.StatusForbidden},
		{"valid", CSRFHeaderName, "expected-token", true, http.StatusOK},
		{"alternate_header", "X-XSRF-Token", "expected-token", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/logout", nil), session)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			called := false
			w := httptest.NewRecorder()
			csrfHandler(&called).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCalled, called)
			if tt.wantStatus == http.StatusForbidden {
				testutil.AssertErrorCode(t, w, http.StatusForbidden, CodeForbidden)
			} else {
				assert.Equal(t, tt.wantStatus, w.Code)
			}
		})
	}
}

func TestCSRF_WithIssuedSession(t *testing.T) {
	sessions := testutil.NewTestSessionService(t)
	issued, err := sessions.Issue("alice")
	assert.NoError(t, err)

	// the CSRF token survives the round trip through the signed cookie
	validated, err := sessions.Validate(issued.Token)
	assert.NoError(t, err)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/messages", nil), validated)
	req.Header.Set(CSRFHeaderName, issued.CSRFToken)

	called := false
	w := httptest.NewRecorder()
	csrfHandler(&called).ServeHTTP(w, req)

	assert.True(t, called)
}

func TestAuthThenCSRF_Chain(t *testing.T) {
	sessions := testutil.NewTestSessionService(t)
	issued, err := sessions.Issue("alice")
	assert.NoError(t, err)

	var gotUser string
	chain := Auth(sessions)(CSRF(security.NewTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUsername(r.Context())
		w.WriteHeader(http.StatusCreated)
	})))

	w := httptest.NewRecorder()
	chain.ServeHTTP(w, testutil.NewSessionRequest(t, http.MethodPost, "/api/v1/messages", map[string]string{"text": "hi"}, issued))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "alice", gotUser)

	// a session from another login does not vouch for this one's CSRF token
	other, err := sessions.Issue("bob")
	assert.NoError(t, err)
	forged := *issued
	forged.CSRFToken = other.CSRFToken

	w = httptest.NewRecorder()
	chain.ServeHTTP(w, testutil.NewSessionRequest(t, http.MethodPost, "/api/v1/messages", nil, &forged))
	testutil.AssertErrorCode(t, w, http.StatusForbidden, CodeForbidden)
}
