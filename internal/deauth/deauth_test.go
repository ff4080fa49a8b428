package deauth_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"connect-service/internal/deauth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "app-secret-for-tests"

func sign(t *testing.T, secret string, payload map[string]any) string {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	encoded := base64.RawURLEncoding.EncodeToString(raw)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(encoded))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return sig + "." + encoded
}

func TestParseSignedRequest(t *testing.T) {
	t.Run("valid notification", func(t *testing.T) {
		signed := sign(t, testSecret, map[string]any{
			"algorithm": "HMAC-SHA256",
			"user_id":   "fb-42",
			"issued_at": 1756600000,
		})

		n, err := deauth.ParseSignedRequest(testSecret, signed)
		require.NoError(t, err)
		assert.Equal(t, "fb-42", n.ExternalID)
		assert.EqualValues(t, 1756600000, n.IssuedAt)
	})

	t.Run("algorithm case-insensitive", func(t *testing.T) {
		signed := sign(t, testSecret, map[string]any{
			"algorithm": "hmac-sha256",
			"user_id":   "fb-42",
		})

		_, err := deauth.ParseSignedRequest(testSecret, signed)
		assert.NoError(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		signed := sign(t, "some-other-secret", map[string]any{
			"algorithm": "HMAC-SHA256",
			"user_id":   "fb-42",
		})

		_, err := deauth.ParseSignedRequest(testSecret, signed)
		assert.ErrorIs(t, err, deauth.ErrBadSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		signed := sign(t, testSecret, map[string]any{
			"algorithm": "HMAC-SHA256",
			"user_id":   "fb-42",
		})
		sigPart, _, ok := strings.Cut(signed, ".")
		require.True(t, ok)
		forged := base64.RawURLEncoding.EncodeToString(
			[]byte(`{"algorithm":"HMAC-SHA256","user_id":"fb-99"}`))
		tampered := sigPart + "." + forged

		_, err := deauth.ParseSignedRequest(testSecret, tampered)
		assert.ErrorIs(t, err, deauth.ErrBadSignature)
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		signed := sign(t, testSecret, map[string]any{
			"algorithm": "HMAC-MD5",
			"user_id":   "fb-42",
		})

		_, err := deauth.ParseSignedRequest(testSecret, signed)
		assert.ErrorIs(t, err, deauth.ErrBadAlgorithm)
	})

	t.Run("missing user id", func(t *testing.T) {
		signed := sign(t, testSecret, map[string]any{
			"algorithm": "HMAC-SHA256",
		})

		_, err := deauth.ParseSignedRequest(testSecret, signed)
		assert.ErrorIs(t, err, deauth.ErrMalformed)
	})

	t.Run("malformed inputs", func(t *testing.T) {
		for _, bad := range []string{
			"",
			"no-dot-here",
			".payload-only",
			"sig-only.",
			"!!!.!!!",
		} {
			_, err := deauth.ParseSignedRequest(testSecret, bad)
			assert.ErrorIs(t, err, deauth.ErrMalformed, "input %q", bad)
		}
	})
}

type recordingDetacher struct {
	detached []string
	err      error
}

func (r *recordingDetacher) Detach(_ context.Context, externalID string) error {
	if r.err != nil {
		return r.err
	}
	r.detached = append(r.detached, externalID)
	return nil
}

func TestHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("verified notification detaches", func(t *testing.T) {
		links := &recordingDetacher{}
		h := deauth.NewHandler(testSecret, links)

		signed := sign(t, testSecret, map[string]any{
			"algorithm": "HMAC-SHA256",
			"user_id":   "fb-42",
		})

		require.NoError(t, h.Handle(ctx, signed))
		assert.Equal(t, []string{"fb-42"}, links.detached)
	})

	t.Run("unverified notification never detaches", func(t *testing.T) {
		links := &recordingDetacher{}
		h := deauth.NewHandler(testSecret, links)

		signed := sign(t, "wrong-secret", map[string]any{
			"algorithm": "HMAC-SHA256",
			"user_id":   "fb-42",
		})

		err := h.Handle(ctx, signed)
		assert.ErrorIs(t, err, deauth.ErrBadSignature)
		assert.Empty(t, links.detached)
	})

	t.Run("detach failure surfaces", func(t *testing.T) {
		links := &recordingDetacher{err: context.DeadlineExceeded}
		h := deauth.NewHandler(testSecret, links)

		signed := sign(t, testSecret, map[string]any{
			"algorithm": "HMAC-SHA256",
			"user_id":   "fb-42",
		})

		assert.ErrorIs(t, h.Handle(ctx, signed), context.DeadlineExceeded)
	})
}
