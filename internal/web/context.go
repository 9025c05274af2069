package web

import (
	"context"
	"net/http"

	"github.com/crumbworks/sheetforge/internal/core"
)

// WithRequestMetadata adds the client IP and User-Agent to context for
// audit recording. RemoteAddr has already been resolved by the
// TrustedRealIP middleware.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, r.RemoteAddr)
	ctx = core.ContextWithUserAgent(ctx, r.Header.Get("User-Agent"))
	return ctx
}
