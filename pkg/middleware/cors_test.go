package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		origin     string
		wantOrigin string
		wantVary   bool
	}{
		{name: "wildcard", cfg: CORSConfig{AllowedOrigins: []string{"*"}}, origin: "https://a.test", wantOrigin: "*"},
		{name: "listed origin", cfg: CORSConfig{AllowedOrigins: []string{"https://a.test"}}, origin: "https://a.test", wantOrigin: "https://a.test", wantVary: true},
		{name: "unlisted origin", cfg: CORSConfig{AllowedOrigins: []string{"https://a.test"}}, origin: "https://b.test", wantOrigin: ""},
		{name: "wildcard with credentials echoes", cfg: CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}, origin: "https://c.test", wantOrigin: "https://c.test", wantVary: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			CORS(tt.cfg)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantVary {
				assert.Equal(t, "Origin", rec.Header().Get("Vary"))
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/reviews", nil)
	req.Header.Set("Origin", "https://a.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	CORS(CORSConfig{AllowedOrigins: []string{"*"}})(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
}
