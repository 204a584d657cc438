package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tinnova-pe/cotizador/internal/auth"
	errx "github.com/tinnova-pe/cotizador/internal/core/error"
	logx "github.com/tinnova-pe/cotizador/pkg/logger"
)

// MsgMissingCredentials rejects a sign-in form with a blank field before
// any provider call.
const MsgMissingCredentials = "enter your email and password"

const loginPageHTML = `<!doctype html>
<html lang="es">
<head><meta charset="utf-8"><title>Portal Tinnova</title></head>
<body>
<form method="post" action="%s">
  <h1>Portal Tinnova</h1>
  <p>Acceso exclusivo para usuarios autorizados.</p>
  <label>Correo <input type="email" name="email"></label>
  <label>Contraseña <input type="password" name="password"></label>
  <button type="submit">Ingresar</button>
</form>
</body>
</html>
`

func (s *Server) loginPage(c *gin.Context) {
	// The guard lands here with ?redirect=<original path>; the form must
	// carry it through so login can send the user back.
	action := "/api/login"
	if target := c.Query("redirect"); target != "" {
		action += "?redirect=" + url.QueryEscape(target)
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(loginPageHTML, action)))
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, errx.Validation(MsgMissingCredentials))
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(c, errx.Validation(MsgMissingCredentials))
		return
	}

	session, err := s.provider.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetCookie(auth.SessionCookie, session.AccessToken, session.ExpiresIn, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"redirect": safeRedirect(c.Query("redirect"))})
}

func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(auth.SessionCookie); err == nil && token != "" {
		if err := s.provider.SignOut(c.Request.Context(), token); err != nil {
			logx.Warn().Err(err).Msg("provider sign-out failed")
		}
	}
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"redirect": LoginPath})
}

// safeRedirect confines the post-login destination to local paths so the
// redirect parameter cannot point off-site.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return AppPath
	}
	return target
}
