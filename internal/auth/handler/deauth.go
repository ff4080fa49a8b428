package handler

import (
	"errors"
	"net/http"

	"connect-service/internal/deauth"

	"github.com/gin-gonic/gin"
)

// deauthorize is the provider-initiated revocation callback. The payload
// must carry a valid provider signature; anything unverifiable is bounced
// to the generic entry point and never treated as a mutation request.
func (h *Handler) deauthorize(c *gin.Context) {

	signedRequest := c.PostForm("signed_request")
	if signedRequest == "" {
		c.Redirect(http.StatusFound, "/connect")
		return
	}

	err := h.deauth.Handle(c.Request.Context(), signedRequest)
	switch {
	case err == nil:
		// Acknowledge idempotently, whether or not a mapping existed.
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, deauth.ErrMalformed),
		errors.Is(err, deauth.ErrBadSignature),
		errors.Is(err, deauth.ErrBadAlgorithm):
		// Authenticity failure; discard without detail.
		c.Redirect(http.StatusFound, "/connect")
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	}
}
