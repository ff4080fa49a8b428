package auth

// Identity represents a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions.
type Identity struct {
	Provider   string            // e.g. "oidc"
	ExternalID string            // provider-scoped unique user identifier (sub)
	Attributes map[string]string // display attributes asserted by the provider
}

// Display attribute keys populated by providers. The choose-a-name flow
// derives username candidates from these.
const (
	AttrFullName  = "fullname"
	AttrFirstName = "firstname"
	AttrNickname  = "nickname"
	AttrEmail     = "email"
)
