package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSMiddleware_AllowOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed string
		origin  string
		want    string
	}{
		{"単一設定・Originなし", "http://localhost:3000", "", "http://localhost:3000"},
		{"単一設定・一致", "http://localhost:3000", "http://localhost:3000", "http://localhost:3000"},
		{"単一設定・不一致", "http://localhost:3000", "http://localhost:4000", ""},
		{"複数設定・1つ目", "https://app.example.com, https://admin.example.com/", "https://app.example.com", "https://app.example.com"},
		{"複数設定・末尾スラッシュ付きで設定", "https://app.example.com, https://admin.example.com/", "https://admin.example.com", "https://admin.example.com"},
		{"複数設定・許可されていない", "https://app.example.com, https://admin.example.com", "https://evil.example.com", ""},
		{"複数設定・Originなし", "https://app.example.com, https://admin.example.com", "", ""},
		{"未設定", "", "http://localhost:3000", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewCORSMiddleware(tt.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusCreated)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/roles", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if !called || w.Code != http.StatusCreated {
				t.Errorf("next handler should run: called = %v, status = %d", called, w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
			if got := w.Header().Get("Vary"); got != "Origin" {
				t.Errorf("Vary = %q, want Origin", got)
			}
		})
	}
}

// プリフライトは後続に渡さず204で応答する
func TestCORSMiddleware_Preflight(t *testing.T) {
	handler := NewCORSMiddleware("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not be called for OPTIONS")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/roles/1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	want := map[string]string{
		"Access-Control-Allow-Origin":  "http://localhost:3000",
		"Access-Control-Allow-Methods": "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "Authorization, Content-Type",
		"Access-Control-Max-Age":       "86400",
	}
	for header, v := range want {
		if got := w.Header().Get(header); got != v {
			t.Errorf("%s = %q, want %q", header, got, v)
		}
	}
}
