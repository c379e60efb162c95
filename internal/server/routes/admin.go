package routes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/venuecal/internal/app/domain"
	appservices "github.com/fr0stylo/venuecal/internal/app/services"
	"github.com/fr0stylo/venuecal/internal/ingest"
)

const maxCSVUploadBytes = 5 << 20

// EventWriter is the mutating side of the catalog.
type EventWriter interface {
	Create(ctx context.Context, draft domain.Draft) (domain.Event, error)
	Update(ctx context.Context, id string, patch domain.Patch) (domain.Event, error)
	Delete(ctx context.Context, id string) bool
	ReplaceAll(ctx context.Context, events []domain.Event) ([]domain.Event, error)
}

// BulkImporter runs a CSV import.
type BulkImporter interface {
	Import(ctx context.Context, r io.Reader, opts ingest.BulkOptions) (ingest.BulkResult, error)
}

// PageImporter turns one event page into a draft.
type PageImporter interface {
	Import(ctx context.Context, rawURL string) (domain.Draft, error)
}

// ImageImporter copies a remote image into uploads.
type ImageImporter interface {
	Import(ctx context.Context, rawURL string) (string, error)
}

// AdminDeps wires the admin endpoints.
type AdminDeps struct {
	Events      EventWriter
	Bulk        BulkImporter
	Pages       PageImporter
	Images      ImageImporter
	Concurrency int
	Logger      *slog.Logger
}

// AdminRoutes registers the authenticated catalog and import endpoints.
type AdminRoutes struct {
	deps AdminDeps
	auth *AuthRoutes
}

// NewAdminRoutes constructs admin routes guarded by auth.
func NewAdminRoutes(auth *AuthRoutes, deps AdminDeps) *AdminRoutes {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AdminRoutes{deps: deps, auth: auth}
}

// RegisterRoutes registers admin routes on the server.
func (a *AdminRoutes) RegisterRoutes(s *echo.Echo) {
	g := s.Group("/api/admin", a.auth.RequireAdmin)
	g.POST("/events", a.handleCreate)
	g.PUT("/events", a.handleReplaceAll)
	g.PATCH("/events/:id", a.handleUpdate)
	g.DELETE("/events/:id", a.handleDelete)
	g.POST("/import/csv", a.handleImportCSV)
	g.POST("/import/url", a.handleImportURL)
	g.POST("/images/fetch", a.handleFetchImage)
}

func (a *AdminRoutes) handleCreate(c echo.Context) error {
	var draft domain.Draft
	if err := c.Bind(&draft); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid event payload")
	}
	event, err := a.deps.Events.Create(c.Request().Context(), draft)
	if err != nil {
		return a.catalogError(c, err)
	}
	a.deps.Logger.InfoContext(c.Request().Context(), "Event created", "event_id", event.ID)
	return c.JSON(http.StatusCreated, event)
}

func (a *AdminRoutes) handleUpdate(c echo.Context) error {
	var patch domain.Patch
	if err := c.Bind(&patch); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid event payload")
	}
	event, err := a.deps.Events.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return a.catalogError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

func (a *AdminRoutes) handleDelete(c echo.Context) error {
	if !a.deps.Events.Delete(c.Request().Context(), c.Param("id")) {
		return jsonError(c, http.StatusNotFound, "event not found")
	}
	a.deps.Logger.InfoContext(c.Request().Context(), "Event deleted", "event_id", c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (a *AdminRoutes) handleReplaceAll(c echo.Context) error {
	var events []domain.Event
	if err := c.Bind(&events); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid events payload")
	}
	stored, err := a.deps.Events.ReplaceAll(c.Request().Context(), events)
	if err != nil {
		return a.catalogError(c, err)
	}
	a.deps.Logger.InfoContext(c.Request().Context(), "Event catalog replaced", "events", len(stored))
	return c.JSON(http.StatusOK, eventsResponse{Events: stored})
}

func (a *AdminRoutes) handleImportCSV(c echo.Context) error {
	limit, ok := parseLimit(c.FormValue("limit"))
	if !ok {
		return jsonError(c, http.StatusBadRequest, "limit must be a non-negative integer")
	}
	header, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "multipart field \"file\" is required")
	}
	if header.Size > maxCSVUploadBytes {
		return jsonError(c, http.StatusRequestEntityTooLarge, "csv file too large")
	}
	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	result, err := a.deps.Bulk.Import(c.Request().Context(), file, ingest.BulkOptions{
		DryRun:      parseBool(c.FormValue("dryRun")),
		Limit:       limit,
		Concurrency: a.deps.Concurrency,
	})
	if errors.Is(err, ingest.ErrUnreadableInput) {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type urlRequest struct {
	URL string `json:"url"`
}

func (a *AdminRoutes) handleImportURL(c echo.Context) error {
	var req urlRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return jsonError(c, http.StatusBadRequest, "url is required")
	}
	draft, err := a.deps.Pages.Import(c.Request().Context(), req.URL)
	if errors.Is(err, ingest.ErrPageFetch) {
		return jsonError(c, http.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]domain.Draft{"draft": draft})
}

func (a *AdminRoutes) handleFetchImage(c echo.Context) error {
	var req urlRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return jsonError(c, http.StatusBadRequest, "url is required")
	}
	ref, err := a.deps.Images.Import(c.Request().Context(), strings.TrimSpace(req.URL))
	if err != nil {
		var imageErr *ingest.ImageError
		if errors.As(err, &imageErr) {
			return c.JSON(imageErrorStatus(imageErr.Kind), map[string]string{
				"error": imageErr.Error(),
				"kind":  string(imageErr.Kind),
			})
		}
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"image": ref})
}

func (a *AdminRoutes) catalogError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, appservices.ErrEventNotFound):
		return jsonError(c, http.StatusNotFound, "event not found")
	case errors.Is(err, appservices.ErrInvalidEvent):
		return jsonError(c, http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
