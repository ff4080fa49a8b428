package deauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrMalformed    = errors.New("deauth: malformed signed request")
	ErrBadAlgorithm = errors.New("deauth: unsupported signature algorithm")
	ErrBadSignature = errors.New("deauth: signature mismatch")
)

// Notification is the payload of a provider-signed revocation callback.
type Notification struct {
	Algorithm  string `json:"algorithm"`
	ExternalID string `json:"user_id"`
	IssuedAt   int64  `json:"issued_at"`
}

// ParseSignedRequest verifies and decodes a signed revocation notification
// of the form base64url(signature) "." base64url(payload), where signature
// is HMAC-SHA256 over the encoded payload with the shared app secret.
//
// The signature is checked before the payload is interpreted; an
// unverifiable notification yields an error and no Notification.
func ParseSignedRequest(secret, signedRequest string) (*Notification, error) {

	sigPart, payloadPart, ok := strings.Cut(signedRequest, ".")
	if !ok || sigPart == "" || payloadPart == "" {
		return nil, ErrMalformed
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, ErrMalformed
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payloadPart))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, ErrBadSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, ErrMalformed
	}

	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, ErrMalformed
	}

	if !strings.EqualFold(n.Algorithm, "HMAC-SHA256") {
		return nil, ErrBadAlgorithm
	}
	if n.ExternalID == "" {
		return nil, ErrMalformed
	}

	return &n, nil
}
