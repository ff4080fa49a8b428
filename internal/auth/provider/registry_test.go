package provider

import (
	"context"
	"testing"

	"connect-service/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name string
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) AuthCodeURL(_, _ string) string { return "" }

func (s stubProvider) ExchangeCode(_ context.Context, _, _ string) (*auth.Identity, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubProvider{name: "oidc"}, stubProvider{name: "acme"})

	p, err := r.Get("oidc")
	require.NoError(t, err)
	assert.Equal(t, "oidc", p.Name())

	_, err = r.Get("nope")
	assert.Error(t, err)

	assert.Equal(t, []string{"acme", "oidc"}, r.Names())
}
