package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/tabula/internal/config"
	"github.com/JonMunkholm/tabula/internal/logging"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth returns middleware that checks the X-API-Key header against the
// configured keys. When RequireAPIKey is false every request passes.
// A missing key is 401 (AUTH001); an unknown key is 403 (AUTH002).
func APIKeyAuth(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	keys := make([][]byte, len(cfg.APIKeys))
	for i, k := range cfg.APIKeys {
		keys[i] = []byte(k)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			logger := logging.FromContext(r.Context())
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				logger.Warn("auth: missing API key", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				denied(w, http.StatusUnauthorized, "Missing API key", "AUTH001")
				return
			}

			if !isValidAPIKey([]byte(apiKey), keys) {
				logger.Warn("auth: invalid API key", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				denied(w, http.StatusForbidden, "Invalid API key", "AUTH002")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidAPIKey compares against every key so timing does not reveal which
// one, if any, matched.
func isValidAPIKey(key []byte, validKeys [][]byte) bool {
	valid := 0
	for _, k := range validKeys {
		valid |= subtle.ConstantTimeCompare(key, k)
	}
	return valid == 1
}

func denied(w http.ResponseWriter, status int, detail, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"detail": detail,
		"code":   code,
		"action": "Send a valid key in the " + APIKeyHeader + " header",
	})
}
