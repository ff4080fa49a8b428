package reconcile

import (
	"context"
	"net/http"
	"time"

	"connect-service/internal/extsession"
	"connect-service/internal/link"
	"connect-service/internal/logger"
	"connect-service/internal/session"
)

// Probe reads the local session, the external session and the persisted
// mapping into a Context. It is read-only and has no side effects.
//
// Session reads fail open to "logged out", never to "logged in": a store
// hiccup on either session downgrades that side to unauthenticated. Mapping
// store reads are different; they gate mutations downstream, so their
// failure fails the request.
type Probe struct {
	sessions  session.Store
	externals extsession.Store
	links     link.Store
}

func NewProbe(
	sessions session.Store,
	externals extsession.Store,
	links link.Store,
) *Probe {
	return &Probe{
		sessions:  sessions,
		externals: externals,
		links:     links,
	}
}

// Build constructs the per-request Context. The returned External carries
// the display attributes views need; nil when no external session exists.
func (p *Probe) Build(
	ctx context.Context,
	r *http.Request,
) (Context, *extsession.External, error) {

	var rc Context

	if sess := p.localSession(ctx, r); sess != nil {
		rc.LocalAuthed = true
		rc.LocalAccountID = sess.UserID
	}

	ext := p.externalSession(ctx, r)
	if ext != nil {
		rc.ExternalAuthed = true
		rc.ExternalID = ext.ExternalID
	}

	if rc.ExternalAuthed {
		mapped, err := p.links.Find(ctx, rc.ExternalID)
		if err != nil {
			return Context{}, nil, err
		}
		rc.MappedAccountID = mapped
	}

	if rc.LocalAuthed {
		mappings, err := p.links.FindByAccount(ctx, rc.LocalAccountID)
		if err != nil {
			return Context{}, nil, err
		}
		rc.LocalMappings = mappings
	}

	return rc, ext, nil
}

func (p *Probe) localSession(ctx context.Context, r *http.Request) *session.Session {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sess, err := p.sessions.Get(ctx, cookie.Value)
	if err != nil {
		logger.Warn("local session read failed", map[string]any{
			"error": err.Error(),
		})
		return nil
	}
	if sess == nil || time.Now().After(sess.ExpiresAt) {
		return nil
	}
	return sess
}

func (p *Probe) externalSession(ctx context.Context, r *http.Request) *extsession.External {
	cookie, err := r.Cookie(extsession.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	ext, err := p.externals.Get(ctx, cookie.Value)
	if err != nil {
		logger.Warn("external session read failed", map[string]any{
			"error": err.Error(),
		})
		return nil
	}
	if ext == nil || time.Now().After(ext.ExpiresAt) {
		return nil
	}
	return ext
}
