package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewOutboundClient_Timeout(t *testing.T) {
	client := NewOutboundClient(3 * time.Second)
	if client.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Fatal("expected guarded Transport")
	}
}

// httptestサーバーはループバックのhttpで起動されるため拒否される
func TestNewOutboundClient_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewOutboundClient(2 * time.Second)
	if _, err := client.Get(ts.URL); err == nil {
		t.Fatal("expected error for loopback request, got nil")
	}
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "https://oauth2.googleapis.com/token", wantErr: false},
		{url: "https://accounts.google.com/o/oauth2/auth", wantErr: false},
		{url: "https://www.googleapis.com/oauth2/v2/userinfo", wantErr: false},
		{url: "", wantErr: true},
		{url: "http://oauth2.googleapis.com/token", wantErr: true},
		{url: "ftp://example.com", wantErr: true},
		{url: "https://localhost/token", wantErr: true},
		{url: "https://127.0.0.1/token", wantErr: true},
		{url: "https://10.0.0.5/token", wantErr: true},
		{url: "https://169.254.169.254/computeMetadata/v1/", wantErr: true},
		{url: "https://[::1]/token", wantErr: true},
		{url: "https:///token", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateEndpoint(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateEndpoint(%q) expected error", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateEndpoint(%q) unexpected error: %v", tt.url, err)
			}
		})
	}
}
