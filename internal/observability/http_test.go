package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func TestTraceSkipper(t *testing.T) {
	e := echo.New()
	cases := map[string]bool{
		"/health":               true,
		"/uploads/abc-x.png":    true,
		"/poster.JPG":           true,
		"/api/events":           false,
		"/api/admin/import/url": false,
		"/calendar.ics":         false,
	}
	for target, want := range cases {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		if got := traceSkipper(c); got != want {
			t.Fatalf("traceSkipper(%q) = %v, want %v", target, got, want)
		}
	}
}

func TestEchoSpanEnrichmentMiddlewareStoresRouteAndRequestID(t *testing.T) {
	e := echo.New()
	e.Use(middleware.RequestID(), EchoSpanEnrichmentMiddleware())

	var route, requestID string
	e.GET("/api/events/:id", func(c echo.Context) error {
		route, _ = RouteFromContext(c.Request().Context())
		requestID, _ = RequestIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/abc", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if route != "/api/events/:id" {
		t.Fatalf("unexpected route %q", route)
	}
	if requestID == "" || requestID != rec.Header().Get(echo.HeaderXRequestID) {
		t.Fatalf("request id %q does not match response header %q", requestID, rec.Header().Get(echo.HeaderXRequestID))
	}
}
