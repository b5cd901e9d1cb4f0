package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lounge-chat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Names used by the session boundary, duplicated here so test helpers do not
// depend on the middleware package
const (
	SessionCookieName = "session"
	CSRFHeaderName    = "X-CSRF-Token"
)

// AssertStatusCode reports a status mismatch together with the response body
func AssertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, w.Code, "body: %s", w.Body.String())
}

// AssertErrorCode checks that the response is the JSON error envelope with
// the given status and machine-readable code and a non-empty message.
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	AssertStatusCode(t, w, expectedStatus)

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	assert.Equal(t, expectedCode, body.Code, "message %q", body.Error)
	assert.NotEmpty(t, body.Error, "error response has an empty message")
}

func AssertHeader(t *testing.T, w *httptest.ResponseRecorder, key, expected string) {
	t.Helper()
	assert.Equal(t, expected, w.Header().Get(key), "header %q", key)
}

// AssertCookie returns the named response cookie, failing the test when it
// was not set.
func AssertCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	require.Failf(t, "cookie not set", "expected cookie %q", name)
	return nil
}

// AssertNoCookie fails when the response sets a live cookie with the given
// name. A cookie being cleared does not count.
func AssertNoCookie(t *testing.T, w *httptest.ResponseRecorder, name string) {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name && c.Value != "" && c.MaxAge >= 0 {
			assert.Failf(t, "unexpected cookie", "cookie %q set to %q", name, c.Value)
		}
	}
}

// NewJSONRequest builds a request whose body is body encoded as JSON
func NewJSONRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "marshal request body")
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func NewRequestWithCookie(t *testing.T, method, url, cookieName, cookieValue string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: cookieValue})
	return req
}

// NewSessionRequest creates a JSON request carrying the session cookie and
// its CSRF header
func NewSessionRequest(t *testing.T, method, url string, body any, session *domain.Session) *http.Request {
	t.Helper()
	req := NewJSONRequest(t, method, url, body)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Token})
	req.Header.Set(CSRFHeaderName, session.CSRFToken)
	return req
}

// DecodeJSON decodes the recorded response body into T
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result), "body: %s", w.Body.String())
	return result
}

// StreamBody is a JSON request body {"<field>":"aaa..."} generated on demand,
// so tests can send very large bodies without allocating them. It counts the
// bytes handed to its reader.
type StreamBody struct {
	prefix   []byte
	fill     int64
	suffix   []byte
	consumed int64
}

func NewStreamBody(field string, size int64) *StreamBody {
	return &StreamBody{
		prefix: []byte(`{"` + field + `":"`),
		fill:   size,
		suffix: []byte(`"}`),
	}
}

func (b *StreamBody) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		switch {
		case len(b.prefix) > 0:
			c := copy(p[n:], b.prefix)
			b.prefix = b.prefix[c:]
			n += c
		case b.fill > 0:
			c := int64(len(p) - n)
			if c > b.fill {
				c = b.fill
			}
			for i := int64(0); i < c; i++ {
				p[n+int(i)] = 'a'
			}
			b.fill -= c
			n += int(c)
		case len(b.suffix) > 0:
			c := copy(p[n:], b.suffix)
			b.suffix = b.suffix[c:]
			n += c
		default:
			b.consumed += int64(n)
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
	}
	b.consumed += int64(n)
	return n, nil
}

// Consumed returns how many bytes have been read from the body
func (b *StreamBody) Consumed() int64 {
	return b.consumed
}
