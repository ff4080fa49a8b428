package deauth

import (
	"context"

	"connect-service/internal/logger"
)

// Detacher is the single mutation the deauthorization path may perform.
type Detacher interface {
	Detach(ctx context.Context, externalID string) error
}

// Handler processes provider-initiated revocation notifications. This is
// the only path that mutates state without an authenticated local session,
// so signature verification is mandatory and cannot be bypassed: the
// notification moves from unverified to verified only through
// ParseSignedRequest, and Detach is invoked only on verified input.
type Handler struct {
	secret string
	links  Detacher
}

func NewHandler(secret string, links Detacher) *Handler {
	return &Handler{
		secret: secret,
		links:  links,
	}
}

// Handle verifies the signed notification and detaches the revoked
// external identity. Verification failure returns the parse error and
// leaves the mapping store untouched; detaching an unknown external id
// succeeds as a no-op.
func (h *Handler) Handle(ctx context.Context, signedRequest string) error {

	n, err := ParseSignedRequest(h.secret, signedRequest)
	if err != nil {
		logger.Warn("deauthorization notification rejected", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if err := h.links.Detach(ctx, n.ExternalID); err != nil {
		return err
	}

	logger.Info("external identity deauthorized", map[string]any{
		"external_id": n.ExternalID,
	})

	return nil
}
