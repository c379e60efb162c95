package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/venuecal/internal/app/domain"
	appservices "github.com/fr0stylo/venuecal/internal/app/services"
	"github.com/fr0stylo/venuecal/internal/calendar"
)

// EventReader serves the public read side of the catalog.
type EventReader interface {
	List(ctx context.Context) []domain.Event
	Upcoming(ctx context.Context, now time.Time) []domain.Event
	Get(ctx context.Context, id string) (domain.Event, error)
}

// CalendarConfig labels the ICS feed.
type CalendarConfig struct {
	Name      string
	Location  *time.Location
	PublicURL string
}

// EventRoutes registers the public event endpoints.
type EventRoutes struct {
	events   EventReader
	calendar CalendarConfig
	now      func() time.Time
}

// NewEventRoutes constructs public event routes.
func NewEventRoutes(events EventReader, cal CalendarConfig) *EventRoutes {
	if cal.Location == nil {
		cal.Location = time.UTC
	}
	return &EventRoutes{events: events, calendar: cal, now: time.Now}
}

// RegisterRoutes registers public routes on the server.
func (r *EventRoutes) RegisterRoutes(s *echo.Echo) {
	s.GET("/health", r.handleHealth)
	s.GET("/api/events", r.handleList)
	s.GET("/api/events/:id", r.handleGet)
	s.GET("/calendar.ics", r.handleICS)
}

func (r *EventRoutes) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type eventsResponse struct {
	Events []domain.Event `json:"events"`
}

func (r *EventRoutes) handleList(c echo.Context) error {
	ctx := c.Request().Context()
	var events []domain.Event
	if parseBool(c.QueryParam("upcoming")) {
		// Event dates are venue-local, so "now" is read on the venue clock.
		events = r.events.Upcoming(ctx, r.now().In(r.calendar.Location))
	} else {
		events = r.events.List(ctx)
	}
	return c.JSON(http.StatusOK, eventsResponse{Events: events})
}

func (r *EventRoutes) handleGet(c echo.Context) error {
	event, err := r.events.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, appservices.ErrEventNotFound) {
		return jsonError(c, http.StatusNotFound, "event not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, event)
}

func (r *EventRoutes) handleICS(c echo.Context) error {
	feed := calendar.Feed(r.events.List(c.Request().Context()), calendar.FeedOptions{
		Name:      r.calendar.Name,
		Timezone:  zoneLabel(r.calendar.Location),
		PublicURL: r.calendar.PublicURL,
	}, r.now())
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}

func zoneLabel(loc *time.Location) string {
	if loc == nil || loc == time.UTC {
		return ""
	}
	return loc.String()
}
