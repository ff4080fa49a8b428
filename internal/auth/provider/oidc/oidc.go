package oidc

import (
	"context"
	"errors"
	"fmt"

	"connect-service/internal/auth"
	"connect-service/internal/logger"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const providerName = "oidc"

// Provider implements OAuth + OIDC authentication against any provider
// supporting discovery. It returns identity facts only; no user, linking
// or session decisions are made here.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *gooidc.IDTokenVerifier
}

// New initializes an OIDC provider using discovery. issuer must be the
// provider issuer URL, e.g. https://accounts.example.com
func New(
	ctx context.Context,
	issuer string,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*Provider, error) {

	if issuer == "" || clientID == "" || redirectURL == "" {
		return nil, errors.New("oidc provider config missing required fields")
	}

	oidcProvider, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&gooidc.Config{
		ClientID: clientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			gooidc.ScopeOpenID,
			"profile",
			"email",
		},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		verifier:    verifier,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode exchanges the authorization code and returns a normalized
// identity. The id_token signature is verified before any claim is trusted.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("oidc token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("provider did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("id_token verification failed: %w", err)
	}

	var claims struct {
		Subject           string `json:"sub"`
		Name              string `json:"name"`
		GivenName         string `json:"given_name"`
		Nickname          string `json:"nickname"`
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
	}

	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("id_token claims parse failed: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("id_token missing sub claim")
	}

	attrs := map[string]string{}
	if claims.Name != "" {
		attrs[auth.AttrFullName] = claims.Name
	}
	if claims.GivenName != "" {
		attrs[auth.AttrFirstName] = claims.GivenName
	}
	if claims.Nickname != "" {
		attrs[auth.AttrNickname] = claims.Nickname
	} else if claims.PreferredUsername != "" {
		attrs[auth.AttrNickname] = claims.PreferredUsername
	}
	if claims.Email != "" {
		attrs[auth.AttrEmail] = claims.Email
	}

	logger.Info("oidc verified", map[string]any{
		"issuer":          idToken.Issuer,
		"subject_present": claims.Subject != "",
		"audience":        idToken.Audience,
		"expiry_unix":     idToken.Expiry.Unix(),
	})

	return &auth.Identity{
		Provider:   providerName,
		ExternalID: claims.Subject,
		Attributes: attrs,
	}, nil
}
