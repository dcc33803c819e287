package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/security"
)

const (
	refreshCookie  = "refresh_token"
	rememberCookie = "remember_token"
)

// setSecretCookie writes an httpOnly, SameSite=Strict cookie. Secrets never
// appear in a response body.
func (h HandlerSet) setSecretCookie(c *gin.Context, name string, secret *security.Secret, maxAgeSeconds int) {
	if secret == nil {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    secret.Raw,
		Path:     h.cfg.Cookies.Path,
		Domain:   h.cfg.Cookies.Domain,
		MaxAge:   maxAgeSeconds,
		Expires:  secret.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h HandlerSet) clearCookie(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.cfg.Cookies.Path,
		Domain:   h.cfg.Cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h HandlerSet) setRefreshCookie(c *gin.Context, secret *security.Secret) {
	h.setSecretCookie(c, refreshCookie, secret, int(h.cfg.Security.RefreshTTL.Seconds()))
}

func (h HandlerSet) setRememberCookie(c *gin.Context, secret *security.Secret) {
	h.setSecretCookie(c, rememberCookie, secret, int(h.cfg.Security.RememberTTL.Seconds()))
}

func (h HandlerSet) clearSessionCookies(c *gin.Context) {
	h.clearCookie(c, refreshCookie)
	h.clearCookie(c, rememberCookie)
}

func readCookie(c *gin.Context, name string) string {
	value, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return value
}
