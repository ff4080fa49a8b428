package handler

import (
	"errors"
	"net/http"

	"connect-service/internal/link"
	"connect-service/internal/logger"
	"connect-service/internal/session"

	"github.com/gin-gonic/gin"
)

// mergeAccount links the current external identity to the account the user
// is already signed in as. Requires both sessions; both sides are
// re-validated against the store inside the linker.
func (h *Handler) mergeAccount(c *gin.Context) {

	sess := h.currentSession(c)
	ext := h.currentExternal(c)
	if sess == nil || ext == nil {
		c.Redirect(http.StatusFound, "/connect")
		return
	}

	target := h.returnTarget(c)

	err := h.linker.MergeCurrent(c.Request.Context(), link.MergeRequest{
		AccountID:  sess.UserID,
		ExternalID: ext.ExternalID,
		Attributes: ext.Attributes,
		Update:     c.PostFormArray("update"),
	})

	switch {
	case err == nil:
		logger.Info("accounts merged", map[string]any{
			"account_id":  sess.UserID,
			"external_id": ext.ExternalID,
		})
		h.successRedirect(c, target, true)
	case errors.Is(err, link.ErrAlreadyLinked):
		c.JSON(http.StatusConflict, gin.H{"error": "already_linked"})
	case errors.Is(err, link.ErrReadOnly):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "read_only"})
	default:
		logger.Error("merge failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}

// logoutAndContinue logs the current local account out and, when the
// external identity maps to another account, logs that account in.
func (h *Handler) logoutAndContinue(c *gin.Context) {

	if sess := h.currentSession(c); sess != nil {
		_ = h.sessions.Delete(c.Request.Context(), sess.SessionID)
	}
	session.ClearCookie(c.Writer, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	target := h.returnTarget(c)

	ext := h.currentExternal(c)
	if ext == nil {
		h.loginRedirect(c, target)
		return
	}

	mapped, err := h.linker.Find(c.Request.Context(), ext.ExternalID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}
	if mapped == "" {
		h.loginRedirect(c, target)
		return
	}

	if err := h.issueSession(c, mapped); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}

	logger.Info("continued as mapped account", map[string]any{
		"account_id":  mapped,
		"external_id": ext.ExternalID,
	})
	h.successRedirect(c, target, false)
}
