package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/tabula/internal/config"
	"github.com/zoobzio/clockz"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:   "untrusted peer ignores headers",
			remote: "203.0.113.7:4000",
			headers: map[string]string{
				"X-Forwarded-For": "1.2.3.4",
			},
			want: "203.0.113.7",
		},
		{
			name:    "trusted cidr uses x-real-ip",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:4000",
			headers: map[string]string{"X-Real-IP": "198.51.100.9"},
			want:    "198.51.100.9",
		},
		{
			name:    "trusted bare ip uses first forwarded entry",
			trusted: []string{"127.0.0.1"},
			remote:  "127.0.0.1:4000",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.1"},
			want:    "198.51.100.9",
		},
		{
			name:    "garbage header keeps peer",
			trusted: []string{"127.0.0.1"},
			remote:  "127.0.0.1:4000",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			want:    "127.0.0.1",
		},
		{
			name:    "invalid trusted entries are skipped",
			trusted: []string{"bogus", ""},
			remote:  "127.0.0.1:4000",
			headers: map[string]string{"X-Real-IP": "198.51.100.9"},
			want:    "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	called := false
	h := APIKeyAuth(config.SecurityConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	if !called {
		t.Error("handler not called with auth disabled")
	}
}

func TestAPIKeyAuth_Body(t *testing.T) {
	h := APIKeyAuth(config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(APIKeyHeader, "k3")
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"AUTH002"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req.Header.Set(APIKeyHeader, "k2")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second key status = %d, want 200", rec.Code)
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusBadRequest, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			prev := slog.Default()
			slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
			t.Cleanup(func() { slog.SetDefault(prev) })

			h := Logger(clockz.NewFakeClock())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("abc"))
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("log = %q, want %s", out, tt.want)
			}
			if !strings.Contains(out, "bytes=3") {
				t.Errorf("log = %q, want bytes=3", out)
			}
		})
	}
}
