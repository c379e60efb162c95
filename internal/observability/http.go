package observability

import (
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

const serviceName = "venuecal"

// Requests that are never traced: probes and static uploads.
var (
	untracedPaths    = map[string]bool{"/health": true, "/favicon.ico": true}
	untracedPrefixes = []string{"/uploads/"}
	untracedExts     = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true, ".ico": true}
)

// EchoMiddleware returns the server tracing middleware.
func EchoMiddleware() echo.MiddlewareFunc {
	return otelecho.Middleware(serviceName, otelecho.WithSkipper(traceSkipper))
}

// EchoSpanEnrichmentMiddleware stores the request id and matched route on the
// request context so logs and spans carry them.
func EchoSpanEnrichmentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := WithRequestMetadata(c.Request().Context(), requestID, resolvedRoute(c))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func traceSkipper(c echo.Context) bool {
	requestPath := c.Request().URL.Path
	if untracedPaths[requestPath] {
		return true
	}
	for _, prefix := range untracedPrefixes {
		if strings.HasPrefix(requestPath, prefix) {
			return true
		}
	}
	return untracedExts[strings.ToLower(path.Ext(requestPath))]
}

func resolvedRoute(c echo.Context) string {
	if route := strings.TrimSpace(c.Path()); route != "" {
		return route
	}
	return c.Request().URL.Path
}
