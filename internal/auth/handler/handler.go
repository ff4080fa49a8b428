package handler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"connect-service/internal/auth/provider"
	"connect-service/internal/extsession"
	"connect-service/internal/link"
	"connect-service/internal/reconcile"
	"connect-service/internal/returnto"
	"connect-service/internal/session"

	"github.com/gin-gonic/gin"
)

// Handler is the imperative shell around the reconciler: it performs all
// I/O (session reads, redirects, linker calls) only after the pure decision
// has been made.
type Handler struct {
	providers *provider.Registry
	sessions  session.Store
	externals extsession.Store
	accounts  Accounts
	linker    *link.Linker
	probe     *reconcile.Probe
	deauth    DeauthHandler
}

// Accounts is the local account collaborator as the handlers see it: the
// linker's view plus password signup.
type Accounts interface {
	link.Accounts
	Register(ctx context.Context, username, password string) (string, error)
}

// DeauthHandler verifies and applies a signed revocation notification.
type DeauthHandler interface {
	Handle(ctx context.Context, signedRequest string) error
}

func NewHandler(
	registry *provider.Registry,
	sessions session.Store,
	externals extsession.Store,
	accounts Accounts,
	linker *link.Linker,
	probe *reconcile.Probe,
	deauth DeauthHandler,
) *Handler {
	return &Handler{
		providers: registry,
		sessions:  sessions,
		externals: externals,
		accounts:  accounts,
		linker:    linker,
		probe:     probe,
		deauth:    deauth,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/connect", h.connect)
	r.POST("/connect/choose-name", h.chooseName)
	r.POST("/connect/merge", h.mergeAccount)
	r.POST("/connect/logout-and-continue", h.logoutAndContinue)
	r.POST("/connect/deauth", h.deauthorize)

	r.GET("/oauth/login/:provider", h.oauthLogin)
	r.GET("/oauth/callback/:provider", h.oauthCallback)

	r.POST("/login", h.login)
	r.POST("/register", h.register)
	r.POST("/auth/logout", h.logout)
}

// returnTarget reads and sanitizes the post-action redirect destination
// from the request.
func (h *Handler) returnTarget(c *gin.Context) returnto.Target {
	raw := c.Query("returnto")
	if raw == "" {
		raw = c.PostForm("returnto")
	}
	rawQuery := c.Query("returntoquery")
	if rawQuery == "" {
		rawQuery = c.PostForm("returntoquery")
	}
	return returnto.Resolve(raw, rawQuery)
}

// issueSession logs the given account in on this browser.
func (h *Handler) issueSession(c *gin.Context, accountID string) error {

	sessionID, err := session.GenerateID()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(session.TTL)

	if err := h.sessions.Create(c.Request.Context(), session.Session{
		SessionID: sessionID,
		UserID:    accountID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// currentSession returns the live local session for this request, nil when
// there is none.
func (h *Handler) currentSession(c *gin.Context) *session.Session {
	cookie, err := c.Request.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sess, err := h.sessions.Get(c.Request.Context(), cookie.Value)
	if err != nil || sess == nil {
		return nil
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil
	}
	return sess
}

// currentExternal returns the live external session, nil when there is none.
func (h *Handler) currentExternal(c *gin.Context) *extsession.External {
	cookie, err := c.Request.Cookie(extsession.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	ext, err := h.externals.Get(c.Request.Context(), cookie.Value)
	if err != nil || ext == nil {
		return nil
	}
	if time.Now().After(ext.ExpiresAt) {
		return nil
	}
	return ext
}

// successRedirect sends the browser back to the sanitized target, tagging
// the destination with the just-connected flag when a link was committed.
func (h *Handler) successRedirect(c *gin.Context, target returnto.Target, connected bool) {
	if connected {
		if target.Query != "" {
			target.Query += "&"
		}
		target.Query += "connected=1"
	}
	c.Redirect(http.StatusFound, target.URL())
}

// loginRedirect sends the browser to the local login page, preserving the
// return target.
func (h *Handler) loginRedirect(c *gin.Context, target returnto.Target) {
	dest := "/login"
	if target.Path != returnto.Home {
		q := "returnto=" + url.QueryEscape(target.Path)
		if target.Query != "" {
			q += "&returntoquery=" + url.QueryEscape(target.Query)
		}
		dest += "?" + q
	}
	c.Redirect(http.StatusFound, dest)
}
