package handler

import (
	"net/http"
	"net/url"
	"time"

	"connect-service/internal/extsession"
	"connect-service/internal/logger"
	"connect-service/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	returnToCookieName = "__oauth_returnto"
	returnToTTL        = 5 * time.Minute
)

// oauthLogin starts the external sign-in dance for the named provider.
func (h *Handler) oauthLogin(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "unknown oauth provider",
			"available": h.providers.Names(),
		})
		return
	}

	saveReturnTo(c)

	state := generateState(c)
	_, codeChallenge := generatePKCE(c)

	authURL := p.AuthCodeURL(state, codeChallenge)
	c.Redirect(http.StatusFound, authURL)
}

// oauthCallback finishes the dance: it verifies the provider response,
// records the verified identity as the external session and hands control
// to the reconciliation entry point. No linking decisions are made here.
func (h *Handler) oauthCallback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid state",
		})
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		// Failed external sign-in is not authentication; start over.
		c.Redirect(http.StatusFound, "/login")
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("oauth callback missing code and error", nil)
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	codeVerifier := getPKCEVerifier(c)
	if codeVerifier == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "missing pkce verifier",
		})
		return
	}

	identity, err := p.ExchangeCode(
		c.Request.Context(),
		code,
		codeVerifier,
	)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication failed",
		})
		return
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	expiresAt := time.Now().Add(extsession.TTL)

	if err := h.externals.Create(c.Request.Context(), extsession.External{
		SessionID:  sessionID,
		Provider:   identity.Provider,
		ExternalID: identity.ExternalID,
		Attributes: identity.Attributes,
		ExpiresAt:  expiresAt,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist session",
		})
		return
	}

	extsession.SetCookie(c.Writer, sessionID, expiresAt)

	c.Redirect(http.StatusFound, "/connect"+takeReturnTo(c))
}

// saveReturnTo carries the return target across the provider round trip.
func saveReturnTo(c *gin.Context) {
	target := returnParams(c)
	if target == "" {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     returnToCookieName,
		Value:    target,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(returnToTTL.Seconds()),
	})
}

// takeReturnTo returns the saved return target as a query suffix for the
// reconciliation entry point, clearing the carry cookie.
func takeReturnTo(c *gin.Context) string {
	cookie, err := c.Request.Cookie(returnToCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:   returnToCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return "?" + cookie.Value
}

func returnParams(c *gin.Context) string {
	raw := c.Query("returnto")
	if raw == "" {
		return ""
	}
	params := "returnto=" + url.QueryEscape(raw)
	if q := c.Query("returntoquery"); q != "" {
		params += "&returntoquery=" + url.QueryEscape(q)
	}
	return params
}
