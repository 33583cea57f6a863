package fitbit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/fitbit"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

// Scopes are the permissions the dashboard needs to read every metric family.
var Scopes = []string{"activity", "heartrate", "sleep", "profile"}

type Provider struct {
	oauthConfig *oauth2.Config
}

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint overrides the public Fitbit endpoint; tests point it at a local server.
	Endpoint *oauth2.Endpoint
}

func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("fitbit oauth config missing required fields")
	}

	endpoint := fitbit.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
	}, nil
}

// OAuthConfig is shared with the upstream client so it can refresh expired tokens.
func (p *Provider) OAuthConfig() *oauth2.Config {
	return p.oauthConfig
}

// AuthCodeURL builds the authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (p *Provider) ExchangeCode(ctx context.Context, code, verifier string) (*domain.ProviderCredentials, error) {
	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("fitbit token exchange failed: %w", err)
	}

	userID, _ := token.Extra("user_id").(string)
	if userID == "" {
		return nil, errors.New("fitbit did not return user_id")
	}

	var scopes []string
	if raw, ok := token.Extra("scope").(string); ok {
		scopes = strings.Fields(raw)
	}

	return &domain.ProviderCredentials{
		ProviderUserID: userID,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenType:      token.TokenType,
		Expiry:         token.Expiry,
		Scopes:         scopes,
	}, nil
}
