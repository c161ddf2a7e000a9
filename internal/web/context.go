package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/tabula/internal/core"
)

// WithRequestMetadata attaches the client IP and User-Agent so run logs can
// name the caller. RemoteAddr is already rewritten by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, r.RemoteAddr, r.UserAgent())
}
