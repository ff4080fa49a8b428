package handler

import (
	"errors"
	"net/http"

	"connect-service/internal/account"
	"connect-service/internal/extsession"
	"connect-service/internal/link"
	"connect-service/internal/logger"
	"connect-service/internal/reconcile"

	"github.com/gin-gonic/gin"
)

// chooseName commits the choose-a-name form: either attach the external
// identity to an existing account (with re-authentication) or create a new
// account under the chosen username.
func (h *Handler) chooseName(c *gin.Context) {

	ext := h.currentExternal(c)
	if ext == nil {
		// External session expired or never existed; restart the flow.
		c.Redirect(http.StatusFound, "/connect")
		return
	}

	if c.PostForm("cancel") != "" {
		// Abandon the connect attempt entirely: drop the external session
		// so a later visit does not re-prompt.
		_ = h.externals.Delete(c.Request.Context(), ext.SessionID)
		extsession.ClearCookie(c.Writer)
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
		return
	}

	target := h.returnTarget(c)
	update := c.PostFormArray("update")
	strategy := c.PostForm("strategy")

	if strategy == "existing" {
		accountID, err := h.linker.AttachExisting(c.Request.Context(), link.AttachRequest{
			Username:   c.PostForm("existing_username"),
			Password:   c.PostForm("existing_password"),
			ExternalID: ext.ExternalID,
			Attributes: ext.Attributes,
			Update:     update,
		})
		if err != nil {
			h.chooseNameError(c, ext.Attributes, err)
			return
		}

		if err := h.issueSession(c, accountID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
			return
		}

		logger.Info("external identity attached", map[string]any{
			"account_id":  accountID,
			"external_id": ext.ExternalID,
		})
		h.successRedirect(c, target, true)
		return
	}

	username, ok := h.chosenUsername(c, strategy, ext.Attributes)
	if !ok {
		h.chooseNameError(c, ext.Attributes, link.ErrInvalidUsername)
		return
	}

	// Re-check the local session immediately before committing; a double
	// form post may already have created the account and logged us in.
	var sessionAccountID string
	if sess := h.currentSession(c); sess != nil {
		sessionAccountID = sess.UserID
	}

	accountID, err := h.linker.CreateAccount(c.Request.Context(), link.CreateRequest{
		Username:         username,
		ExternalID:       ext.ExternalID,
		Attributes:       ext.Attributes,
		Update:           update,
		SessionAccountID: sessionAccountID,
	})
	if err != nil {
		h.chooseNameError(c, ext.Attributes, err)
		return
	}

	if sessionAccountID == "" {
		if err := h.issueSession(c, accountID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
			return
		}
	}

	logger.Info("account created for external identity", map[string]any{
		"account_id":  accountID,
		"external_id": ext.ExternalID,
	})
	h.successRedirect(c, target, true)
}

// chosenUsername resolves the naming strategy to a concrete candidate.
// Attribute-derived strategies fall back to the manual field when the
// attribute yields nothing usable, mirroring the form's behavior.
func (h *Handler) chosenUsername(
	c *gin.Context,
	strategy string,
	attrs map[string]string,
) (string, bool) {

	var username string

	switch strategy {
	case "nick", "first", "full":
		username = account.CandidateUsername(strategy, attrs)
		if username == "" {
			username = c.PostForm("username")
		}
	case "manual":
		username = c.PostForm("username")
	case "auto":
		username = account.GenerateUsername(attrs)
	default:
		return "", false
	}

	if !account.ValidUsername(username) {
		return "", false
	}
	return username, true
}

// chooseNameError re-renders the choose-a-name prompt with the error
// attached, so the user can correct the same step.
func (h *Handler) chooseNameError(c *gin.Context, attrs map[string]string, err error) {
	view := gin.H{
		"view":       reconcile.PromptChooseNewAccountName.String(),
		"candidates": usernameCandidates(attrs),
	}

	switch {
	case errors.Is(err, link.ErrInvalidUsername):
		view["error"] = "invalid_username"
		c.JSON(http.StatusUnprocessableEntity, view)
	case errors.Is(err, link.ErrInvalidCredential):
		view["error"] = "invalid_credentials"
		c.JSON(http.StatusUnauthorized, view)
	case errors.Is(err, link.ErrAlreadyLinked):
		view["error"] = "already_linked"
		c.JSON(http.StatusConflict, view)
	case errors.Is(err, link.ErrReadOnly):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "read_only"})
	default:
		logger.Error("choose-name failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
