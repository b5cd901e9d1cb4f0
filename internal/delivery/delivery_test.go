package delivery

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marker(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(name))
	}
}

func strategies() (Strategy, Strategy) {
	return NewPush(marker("push")), NewPull(marker("pull"))
}

func TestFromMode(t *testing.T) {
	push, pull := strategies()

	tests := []struct {
		mode string
		want []string
	}{
		{ModePush, []string{ModePush}},
		{ModePull, []string{ModePull}},
		{ModeBoth, []string{ModePush, ModePull}},
		{"", []string{ModePush, ModePull}},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := FromMode(tt.mode, push, pull)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Names(got))
		})
	}
}

func TestFromMode_Unknown(t *testing.T) {
	push, pull := strategies()

	_, err := FromMode("carrier-pigeon", push, pull)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestMount(t *testing.T) {
	push, pull := strategies()

	tests := []struct {
		mode     string
		path     string
		wantCode int
		wantBody string
	}{
		{ModePush, PushPath, http.StatusOK, "push"},
		{ModePush, PullPath, http.StatusNotFound, ""},
		{ModePull, PullPath, http.StatusOK, "pull"},
		{ModePull, PushPath, http.StatusNotFound, ""},
		{ModeBoth, PushPath, http.StatusOK, "push"},
		{ModeBoth, PullPath, http.StatusOK, "pull"},
	}

	for _, tt := range tests {
		t.Run(tt.mode+tt.path, func(t *testing.T) {
			enabled, err := FromMode(tt.mode, push, pull)
			require.NoError(t, err)

			r := chi.NewRouter()
			for _, s := range enabled {
				s.Mount(r)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}
