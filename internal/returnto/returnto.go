package returnto

import (
	"net/url"
	"path"
	"strings"
)

// Home is the fallback destination for rejected targets.
const Home = "/"

// connectedParam is the internal "just connected" query flag. It is
// stripped before the target round-trips through another reconciliation
// cycle, so repeated cycles cannot accumulate copies of it.
const connectedParam = "connected"

// denied are the reconciliation-flow endpoints a post-action redirect must
// never point back into; redirecting there would loop.
var denied = map[string]struct{}{
	"/logout":  {},
	"/signup":  {},
	"/connect": {},
}

// Target is a sanitized internal redirect destination.
type Target struct {
	Path  string
	Query string
}

// URL renders the target as a relative URL.
func (t Target) URL() string {
	if t.Query == "" {
		return t.Path
	}
	return t.Path + "?" + t.Query
}

// Resolve sanitizes a raw post-action redirect target. Absolute URLs,
// unparseable values and reconciliation-flow endpoints all fall back to
// the site home. Resolve is idempotent: resolving an already-resolved
// target returns it unchanged.
func Resolve(rawTarget, rawQuery string) Target {

	// Browsers treat backslashes in Location headers as slashes, so
	// "/\evil.example" would leave the site even though it parses with an
	// empty host. Normalize before the host and denylist checks.
	rawTarget = strings.ReplaceAll(rawTarget, `\`, "/")

	u, err := url.Parse(rawTarget)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return Target{Path: Home}
	}

	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)

	if _, ok := denied[p]; ok || strings.HasPrefix(p, "/connect/") {
		return Target{Path: Home}
	}

	return Target{Path: p, Query: sanitizeQuery(rawQuery)}
}

func sanitizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}
	values.Del(connectedParam)

	return values.Encode()
}
