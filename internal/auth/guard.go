package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	errx "github.com/tinnova-pe/cotizador/internal/core/error"
)

// SessionCookie carries the provider access token between requests.
const SessionCookie = "cotizador_session"

const contextUserKey = "auth.user"

// Provider is the slice of the auth provider's surface this service
// consumes. Sessions are present/absent; their contents stay opaque.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	GetUser(ctx context.Context, accessToken string) (User, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Guard gates every route behind a live provider session. The token is
// validated against the provider on each request, so a session revoked
// elsewhere fails the very next call, same as a missing one (fail closed,
// no retry). Browser navigation is redirected to the login surface with
// the original destination preserved; API calls get a 401.
func Guard(provider Provider, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || strings.TrimSpace(token) == "" {
			deny(c, loginPath)
			return
		}

		user, err := provider.GetUser(c.Request.Context(), token)
		if err != nil {
			deny(c, loginPath)
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// UserFrom returns the authenticated user injected by the guard.
func UserFrom(c *gin.Context) (User, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return User{}, false
	}
	user, ok := v.(User)
	return user, ok
}

func deny(c *gin.Context, loginPath string) {
	if c.Request.Method == http.MethodGet && wantsHTML(c) {
		target := loginPath + "?redirect=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":    errx.AuthErrorMessage,
		"redirect": loginPath,
	})
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
