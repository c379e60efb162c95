package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/venuecal/internal/ingest"
)

type errorResponse struct {
	Error string `json:"error"`
}

func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{Error: message})
}

// imageErrorStatus maps a remote image rejection to the status returned to
// the admin client.
func imageErrorStatus(kind ingest.ImageErrorKind) int {
	switch kind {
	case ingest.ImageErrorInvalidURL, ingest.ImageErrorNotImage:
		return http.StatusBadRequest
	case ingest.ImageErrorTooLarge:
		return http.StatusRequestEntityTooLarge
	case ingest.ImageErrorTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseLimit(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 0 {
		return 0, false
	}
	return limit, true
}
