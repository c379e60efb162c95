package routes

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/venuecal/internal/observability"
)

const (
	authSessionName     = "venuecal-admin"
	authSessionAdminKey = "admin"
	authSessionSinceKey = "since"
)

// AuthConfig configures the admin session store and shared admin token.
type AuthConfig struct {
	SessionKey    string
	AdminToken    string
	SecureCookies bool
}

// AuthRoutes exchanges the admin token for a session cookie and guards admin
// routes. An empty AdminToken disables admin access entirely.
type AuthRoutes struct {
	store      *sessions.CookieStore
	adminToken string
}

// NewAuthRoutes constructs auth routes.
func NewAuthRoutes(config AuthConfig) *AuthRoutes {
	store := sessions.NewCookieStore([]byte(config.SessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	return &AuthRoutes{store: store, adminToken: strings.TrimSpace(config.AdminToken)}
}

// RegisterRoutes registers authentication routes on the server.
func (a *AuthRoutes) RegisterRoutes(s *echo.Echo) {
	s.POST("/auth/login", a.handleLogin)
	s.POST("/auth/logout", a.handleLogout)
	s.GET("/auth/csrf", a.handleCSRF)
}

type loginRequest struct {
	Token string `json:"token" form:"token"`
}

func (a *AuthRoutes) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid login request")
	}
	if !a.validToken(req.Token) {
		return jsonError(c, http.StatusUnauthorized, "invalid admin token")
	}

	session, err := a.session(c)
	if err != nil {
		return err
	}
	session.Values[authSessionAdminKey] = true
	session.Values[authSessionSinceKey] = time.Now().UTC().Unix()
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *AuthRoutes) handleLogout(c echo.Context) error {
	session, err := a.session(c)
	if err != nil {
		return err
	}
	delete(session.Values, authSessionAdminKey)
	delete(session.Values, authSessionSinceKey)
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *AuthRoutes) handleCSRF(c echo.Context) error {
	token, _ := c.Get("csrf").(string)
	return c.JSON(http.StatusOK, map[string]string{"csrfToken": token})
}

// RequireAdmin accepts either a bearer admin token or an admin session.
func (a *AuthRoutes) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor := ""
		if token, ok := bearerToken(c.Request()); ok {
			if !a.validToken(token) {
				return jsonError(c, http.StatusUnauthorized, "invalid admin token")
			}
			actor = "token"
		} else if a.hasAdminSession(c) {
			actor = "session"
		}
		if actor == "" {
			return jsonError(c, http.StatusUnauthorized, "admin authentication required")
		}
		ctx := observability.WithActor(c.Request().Context(), actor)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (a *AuthRoutes) validToken(token string) bool {
	token = strings.TrimSpace(token)
	if a.adminToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) == 1
}

func (a *AuthRoutes) hasAdminSession(c echo.Context) bool {
	if a.adminToken == "" {
		return false
	}
	session, err := a.session(c)
	if err != nil {
		return false
	}
	admin, _ := session.Values[authSessionAdminKey].(bool)
	return admin
}

// session returns the admin session, replacing a cookie that no longer
// decodes (for example after the secret rotated) with a fresh session.
func (a *AuthRoutes) session(c echo.Context) (*sessions.Session, error) {
	session, err := a.store.Get(c.Request(), authSessionName)
	if err != nil && isInvalidSecureCookieError(err) {
		clearSessionCookie(c, authSessionName)
		return session, nil
	}
	return session, err
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func isInvalidSecureCookieError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "securecookie") && strings.Contains(msg, "not valid")
}

func clearSessionCookie(c echo.Context, name string) {
	http.SetCookie(c.Response(), &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Request().TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
