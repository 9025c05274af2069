package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crumbworks/sheetforge/internal/config"
)

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.SecurityConfig
		key        string
		wantStatus int
	}{
		{
			name:       "disabled passes everything",
			cfg:        config.SecurityConfig{RequireAPIKey: false},
			key:        "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid key accepted",
			cfg:        config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"alpha", "beta"}},
			key:        "beta",
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing key rejected",
			cfg:        config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"alpha"}},
			key:        "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong key rejected",
			cfg:        config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"alpha"}},
			key:        "intruder",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "required with no keys rejects all",
			cfg:        config.SecurityConfig{RequireAPIKey: true},
			key:        "anything",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyAuth(&tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/workbooks", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestIsValidAPIKey(t *testing.T) {
	keys := []string{"alpha", "beta"}

	if !isValidAPIKey("alpha", keys) {
		t.Error("isValidAPIKey(alpha) = false, want true")
	}
	if isValidAPIKey("gamma", keys) {
		t.Error("isValidAPIKey(gamma) = true, want false")
	}
	if isValidAPIKey("alpha", nil) {
		t.Error("isValidAPIKey with no configured keys = true, want false")
	}
}
