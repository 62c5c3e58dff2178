package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuth(t *testing.T) {
	tests := []struct {
		desc   string
		key    string
		header map[string]string
		want   int
	}{
		{"bearer token", "secret", map[string]string{"Authorization": "Bearer secret"}, http.StatusNoContent},
		{"lowercase scheme", "secret", map[string]string{"Authorization": "bearer secret"}, http.StatusNoContent},
		{"api key header", "secret", map[string]string{"X-API-Key": "secret"}, http.StatusNoContent},
		{"wrong token", "secret", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"basic scheme ignored", "secret", map[string]string{"Authorization": "Basic secret"}, http.StatusUnauthorized},
		{"missing token", "secret", nil, http.StatusUnauthorized},
		{"no key configured", "", map[string]string{"X-API-Key": ""}, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/bots/btc/stop", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			Auth(tc.key)(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error"`)
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := Logging(logger)(okHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Contains(t, buf.String(), "status=204")
	assert.Contains(t, buf.String(), "path=/api/status")

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Empty(t, buf.String(), "health probes log at debug")

	failing := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Contains(t, buf.String(), "level=ERROR")
}
