// Package identity talks to the Google OAuth2 endpoints used for social login.
package identity

import (
	"context"
	"errors"
	"fmt"

	"clipshare/internal/observability"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// ErrNoIDToken is returned when the token exchange did not include an id_token.
var ErrNoIDToken = errors.New("token response has no id_token")

// Google builds consent URLs and exchanges authorization codes.
type Google struct {
	cfg   *oauth2.Config
	state string
}

// Option configures Google.
type Option func(*Google)

// WithEndpoint overrides the Google endpoints. Tests point this at a local server.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(g *Google) {
		g.cfg.Endpoint = ep
	}
}

// WithState sets the state parameter sent on consent URLs.
func WithState(state string) Option {
	return func(g *Google) {
		g.state = state
	}
}

// NewGoogle requests the profile and email scopes for clientID.
func NewGoogle(clientID, clientSecret, redirectURL string, opts ...Option) (*Google, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("google client credentials not configured")
	}
	g := &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"profile", "email"},
		},
		state: "clipshare",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// AuthURL returns the consent page address the client opens.
func (g *Google) AuthURL() string {
	return g.cfg.AuthCodeURL(g.state, oauth2.AccessTypeOffline)
}

// IDToken exchanges an authorization code and returns the raw id_token.
func (g *Google) IDToken(ctx context.Context, code string) (string, error) {
	ctx, span := observability.StartClientSpan(ctx, "google", "exchange")
	defer span.End()

	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		err = fmt.Errorf("google code exchange: %w", err)
		observability.RecordErrorInContext(ctx, err)
		return "", err
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return "", ErrNoIDToken
	}
	return idToken, nil
}
