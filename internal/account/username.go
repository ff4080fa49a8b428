package account

import (
	"strings"
	"unicode"

	"connect-service/internal/auth"
	"connect-service/internal/utils"
)

// reservedUsernames can never be registered through the linking flow.
var reservedUsernames = map[string]struct{}{
	"admin":         {},
	"administrator": {},
	"root":          {},
	"system":        {},
	"moderator":     {},
	"anonymous":     {},
}

// ValidUsername reports whether name satisfies the naming policy:
// 2-40 runes, starts with a letter, letters/digits/space/dot/dash/underscore
// only, not reserved. Uniqueness is checked by the store, not here.
func ValidUsername(name string) bool {
	name = strings.TrimSpace(name)

	runes := []rune(name)
	if len(runes) < 2 || len(runes) > 40 {
		return false
	}
	if !unicode.IsLetter(runes[0]) {
		return false
	}
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
		case r == ' ' || r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}

	_, reserved := reservedUsernames[strings.ToLower(name)]
	return !reserved
}

// CandidateUsername derives a username candidate for the given naming
// strategy from the external display attributes. Empty when the strategy
// has no usable attribute.
func CandidateUsername(strategy string, attrs map[string]string) string {
	var name string
	switch strategy {
	case "nick":
		name = attrs[auth.AttrNickname]
	case "first":
		name = attrs[auth.AttrFirstName]
	case "full":
		name = attrs[auth.AttrFullName]
	}
	name = strings.TrimSpace(name)
	if !ValidUsername(name) {
		return ""
	}
	return name
}

// GenerateUsername picks an automatic username: the first valid attribute
// candidate, otherwise a random fallback. The random fallback makes
// collisions with existing accounts vanishingly unlikely.
func GenerateUsername(attrs map[string]string) string {
	for _, strategy := range []string{"nick", "first", "full"} {
		if name := CandidateUsername(strategy, attrs); name != "" {
			return name
		}
	}
	return "user" + utils.RandomDigits(8)
}
