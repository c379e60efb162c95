package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fr0stylo/venuecal/internal/app/domain"
	appservices "github.com/fr0stylo/venuecal/internal/app/services"
	"github.com/fr0stylo/venuecal/internal/ingest"
)

const testAdminToken = "s3cret"

type fakeBulk struct {
	opts ingest.BulkOptions
	body string
	err  error
}

func (f *fakeBulk) Import(_ context.Context, r io.Reader, opts ingest.BulkOptions) (ingest.BulkResult, error) {
	raw, _ := io.ReadAll(r)
	f.body = string(raw)
	f.opts = opts
	if f.err != nil {
		return ingest.BulkResult{}, f.err
	}
	return ingest.BulkResult{Accepted: 1, DryRun: opts.DryRun}, nil
}

type fakePages struct{}

func (fakePages) Import(_ context.Context, rawURL string) (domain.Draft, error) {
	if strings.Contains(rawURL, "down") {
		return domain.Draft{}, fmt.Errorf("%w: connection refused", ingest.ErrPageFetch)
	}
	return domain.Draft{Name: "Imported", TicketsURL: rawURL}, nil
}

type fakeImages struct {
	err error
}

func (f fakeImages) Import(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "/uploads/abc-poster.png", nil
}

type testEnv struct {
	e       *echo.Echo
	catalog *appservices.EventCatalog
	bulk    *fakeBulk
	images  *fakeImages
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ids := 0
	catalog := appservices.NewEventCatalog(nil, nil, nil,
		appservices.WithLogger(log),
		appservices.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("evt-%d", ids)
		}),
	)
	t.Cleanup(func() {
		_ = catalog.Close(context.Background())
	})

	env := &testEnv{e: echo.New(), catalog: catalog, bulk: &fakeBulk{}, images: &fakeImages{}}
	env.e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup: "header:X-CSRF-Token",
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ") || c.Path() == "/auth/login"
		},
	}))

	auth := NewAuthRoutes(AuthConfig{SessionKey: "test-session-key", AdminToken: testAdminToken})
	events := NewEventRoutes(catalog, CalendarConfig{Name: "Venue"})
	events.now = func() time.Time { return time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC) }
	auth.RegisterRoutes(env.e)
	events.RegisterRoutes(env.e)
	NewAdminRoutes(auth, AdminDeps{
		Events:      catalog,
		Bulk:        env.bulk,
		Pages:       fakePages{},
		Images:      env.images,
		Concurrency: 3,
		Logger:      log,
	}).RegisterRoutes(env.e)
	return env
}

func (env *testEnv) do(t *testing.T, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) admin(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return env.do(t, method, target, reader, map[string]string{echo.HeaderAuthorization: "Bearer " + testAdminToken})
}

func TestAdminRoutesRequireAuthentication(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/admin/events", strings.NewReader(`{"name":"x","date":"2025-01-01"}`), nil)
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, rec.Code, "cookie requests without a CSRF token are rejected first")
	assert.Empty(t, env.catalog.List(context.Background()))

	rec = env.do(t, http.MethodPost, "/api/admin/events", strings.NewReader(`{}`), map[string]string{echo.HeaderAuthorization: "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid admin token"}`, rec.Body.String())
}

func TestEventCRUDOverAdminAPI(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodPost, "/api/admin/events", `{"name":"Late","date":"2025-03-05","time":"21:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.admin(t, http.MethodPost, "/api/admin/events", `{"name":"Early","date":"2025-03-05","time":"18:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/events", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Events, 2)
	assert.Equal(t, "Early", list.Events[0].Name)

	rec = env.admin(t, http.MethodPatch, "/api/admin/events/evt-1", `{"time":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, domain.TimeUnspecified, updated.Time)
	assert.Equal(t, "Late", updated.Name)

	rec = env.do(t, http.MethodGet, "/api/events/evt-1", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.admin(t, http.MethodDelete, "/api/admin/events/evt-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.admin(t, http.MethodDelete, "/api/admin/events/evt-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/events/evt-1", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRejectsInvalidEvent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodPost, "/api/admin/events", `{"name":"No date"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid event")
}

func TestReplaceAllRejectsDuplicateIDs(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodPut, "/api/admin/events", `[{"id":"a","name":"A","date":"2025-01-01"},{"id":"a","name":"B","date":"2025-01-02"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.admin(t, http.MethodPut, "/api/admin/events", `[{"id":"b","name":"B","date":"2025-01-02"},{"name":"A","date":"2025-01-01"}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	var list eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Events, 2)
	assert.Equal(t, "A", list.Events[0].Name)
	assert.NotEmpty(t, list.Events[0].ID)
}

func TestUpcomingUsesEndOfDayRule(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.catalog.ReplaceAll(context.Background(), []domain.Event{
		{Name: "Yesterday", Date: "2025-03-01"},
		{Name: "Today untimed", Date: "2025-03-02"},
		{Name: "Today morning", Date: "2025-03-02", Time: "09:00"},
		{Name: "Tomorrow", Date: "2025-03-03", Time: "20:00"},
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/events?upcoming=1", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var list eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	names := make([]string, 0, len(list.Events))
	for _, event := range list.Events {
		names = append(names, event.Name)
	}
	assert.Equal(t, []string{"Today untimed", "Tomorrow"}, names)
}

func TestCalendarFeed(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.catalog.ReplaceAll(context.Background(), []domain.Event{{Name: "Gig", Date: "2025-03-03", Time: "20:00"}})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/calendar.ics", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/calendar")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Gig")
	assert.Contains(t, rec.Body.String(), "X-WR-CALNAME:Venue")
}

func TestImportCSVPassesOptions(t *testing.T) {
	env := newTestEnv(t)
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "events.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("name,start\nShow,2025-01-01 20:00:00\n"))
	require.NoError(t, writer.WriteField("dryRun", "true"))
	require.NoError(t, writer.WriteField("limit", "5"))
	require.NoError(t, writer.Close())

	rec := env.do(t, http.MethodPost, "/api/admin/import/csv", &body, map[string]string{
		echo.HeaderAuthorization: "Bearer " + testAdminToken,
		echo.HeaderContentType:   writer.FormDataContentType(),
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ingest.BulkOptions{DryRun: true, Limit: 5, Concurrency: 3}, env.bulk.opts)
	assert.Contains(t, env.bulk.body, "Show")
	assert.Contains(t, rec.Body.String(), `"dryRun":true`)
}

func TestImportCSVErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodPost, "/api/admin/import/csv", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.bulk.err = fmt.Errorf("%w: missing header", ingest.ErrUnreadableInput)
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "empty.csv")
	_, _ = part.Write(nil)
	require.NoError(t, writer.Close())
	rec = env.do(t, http.MethodPost, "/api/admin/import/csv", &body, map[string]string{
		echo.HeaderAuthorization: "Bearer " + testAdminToken,
		echo.HeaderContentType:   writer.FormDataContentType(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing header")
}

func TestImportURL(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodPost, "/api/admin/import/url", `{"url":"https://tickets.example.com/e/1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"draft":{"name":"Imported","date":"","time":"","organizer":"","image":"","ticketsUrl":"https://tickets.example.com/e/1","description":""}}`, rec.Body.String())

	rec = env.admin(t, http.MethodPost, "/api/admin/import/url", `{"url":"https://down.example.com"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.admin(t, http.MethodPost, "/api/admin/import/url", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchImageMapsErrorKinds(t *testing.T) {
	cases := []struct {
		kind ingest.ImageErrorKind
		want int
	}{
		{ingest.ImageErrorInvalidURL, http.StatusBadRequest},
		{ingest.ImageErrorNotImage, http.StatusBadRequest},
		{ingest.ImageErrorTooLarge, http.StatusRequestEntityTooLarge},
		{ingest.ImageErrorTimeout, http.StatusGatewayTimeout},
		{ingest.ImageErrorBadStatus, http.StatusBadGateway},
		{ingest.ImageErrorFetchFailed, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			env := newTestEnv(t)
			env.images.err = &ingest.ImageError{Kind: tc.kind, URL: "https://img.example.com/a.png"}

			rec := env.admin(t, http.MethodPost, "/api/admin/images/fetch", `{"url":"https://img.example.com/a.png"}`)

			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, rec.Body.String(), string(tc.kind))
		})
	}
}

func TestFetchImageSuccessAndUnexpectedError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodPost, "/api/admin/images/fetch", `{"url":"https://img.example.com/a.png"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"image":"/uploads/abc-poster.png"}`, rec.Body.String())

	env.images.err = errors.New("upload: disk full")
	rec = env.admin(t, http.MethodPost, "/api/admin/images/fetch", `{"url":"https://img.example.com/a.png"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSessionLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/login", strings.NewReader(`{"token":"nope"}`), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", strings.NewReader(`{"token":"`+testAdminToken+`"}`), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	sessionCookie := findCookie(rec.Result().Cookies(), authSessionName)
	require.NotNil(t, sessionCookie)

	rec = env.do(t, http.MethodGet, "/auth/csrf", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var csrf map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &csrf))
	csrfCookie := findCookie(rec.Result().Cookies(), "_csrf")
	require.NotNil(t, csrfCookie)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/events", strings.NewReader(`{"name":"Via session","date":"2025-05-01"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-CSRF-Token", csrf["csrfToken"])
	req.AddCookie(sessionCookie)
	req.AddCookie(csrfCookie)
	created := httptest.NewRecorder()
	env.e.ServeHTTP(created, req)
	assert.Equal(t, http.StatusCreated, created.Code, created.Body.String())
}

func TestEmptyAdminTokenDisablesAdmin(t *testing.T) {
	auth := NewAuthRoutes(AuthConfig{SessionKey: "k"})
	assert.False(t, auth.validToken(""))
	assert.False(t, auth.validToken("anything"))
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
