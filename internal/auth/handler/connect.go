package handler

import (
	"net/http"

	"connect-service/internal/account"
	"connect-service/internal/auth"
	"connect-service/internal/logger"
	"connect-service/internal/reconcile"

	"github.com/gin-gonic/gin"
)

// connect is the reconciliation entry point. It probes the three session
// facts, runs the pure reconciler exactly once, and only then performs the
// side effect the outcome calls for.
func (h *Handler) connect(c *gin.Context) {

	rc, ext, err := h.probe.Build(c.Request.Context(), c.Request)
	if err != nil {
		logger.Error("mapping store unavailable", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "service unavailable",
		})
		return
	}

	out := reconcile.Reconcile(rc)
	target := h.returnTarget(c)

	switch out.Action {

	case reconcile.RedirectToLocalLogin:
		h.loginRedirect(c, target)

	case reconcile.NoAction:
		if rc.LocalAuthed && !rc.ExternalAuthed {
			// Consistent state, but the visit is interactive: offer to
			// attach an external identity (or note the existing link).
			c.JSON(http.StatusOK, gin.H{
				"view":   reconcile.PromptAttachExternalSession.String(),
				"linked": len(rc.LocalMappings) > 0,
			})
			return
		}
		h.successRedirect(c, target, false)

	case reconcile.PromptChooseNewAccountName:
		c.JSON(http.StatusOK, gin.H{
			"view":       out.Action.String(),
			"candidates": usernameCandidates(ext.Attributes),
			"attributes": ext.Attributes,
		})

	case reconcile.AutoLoginAs:
		if err := h.issueSession(c, out.AccountID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to create session",
			})
			return
		}
		h.successRedirect(c, target, false)

	case reconcile.PromptMergeAccounts:
		name, _ := h.accounts.DisplayName(c.Request.Context(), rc.LocalAccountID)
		c.JSON(http.StatusOK, gin.H{
			"view":     out.Action.String(),
			"account":  name,
			"external": ext.Attributes[auth.AttrFullName],
		})

	case reconcile.ConflictDifferentMapping:
		name, _ := h.accounts.DisplayName(c.Request.Context(), rc.LocalAccountID)
		c.JSON(http.StatusConflict, gin.H{
			"view":     out.Action.String(),
			"account":  name,
			"external": ext.Attributes[auth.AttrFullName],
		})

	case reconcile.PromptLogoutAndContinueAs:
		name, _ := h.accounts.DisplayName(c.Request.Context(), out.AccountID)
		c.JSON(http.StatusOK, gin.H{
			"view":       out.Action.String(),
			"account_id": out.AccountID,
			"account":    name,
			"external":   ext.Attributes[auth.AttrFirstName],
		})
	}
}

// usernameCandidates builds the choose-a-name options from the external
// display attributes. Strategies without a usable attribute are omitted;
// auto and manual are always available.
func usernameCandidates(attrs map[string]string) map[string]string {
	candidates := map[string]string{
		"auto": account.GenerateUsername(attrs),
	}
	for _, strategy := range []string{"nick", "first", "full"} {
		if name := account.CandidateUsername(strategy, attrs); name != "" {
			candidates[strategy] = name
		}
	}
	return candidates
}
