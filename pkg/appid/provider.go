// Package appid adapts IBM App ID onto golang.org/x/oauth2. It derives the
// tenant endpoints, adds the App ID authorization parameters, and parses the
// App ID specific responses: introspection, revocation and user info.
package appid

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

var defaultScopes = []string{oidc.ScopeOpenID}

// Provider is safe for concurrent use; it holds only immutable configuration
// and the HTTP client.
type Provider struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	verifier   *oidc.IDTokenVerifier
}

func New(cfg Config) (*Provider, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	p := &Provider{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
	}

	p.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       p.DefaultScopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthorizationEndpoint(),
			TokenURL:  p.TokenEndpoint(),
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	keySet := oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), p.httpClient), p.PublicKeysEndpoint())
	p.verifier = oidc.NewVerifier(p.Issuer(), keySet, &oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: cfg.ClientID == "",
	})

	return p, nil
}

func (p *Provider) BaseAuthURI() string   { return p.cfg.BaseAuthURI }
func (p *Provider) TenantID() string      { return p.cfg.TenantID }
func (p *Provider) IDP() IDP              { return p.cfg.IDP }
func (p *Provider) RedirectRoute() string { return p.cfg.RedirectRoute }
func (p *Provider) ClientID() string      { return p.cfg.ClientID }

// DefaultScopes returns a copy of the scopes requested when none are given.
func (p *Provider) DefaultScopes() []string {
	scopes := make([]string, len(defaultScopes))
	copy(scopes, defaultScopes)
	return scopes
}

type authParams struct {
	idp      string
	verifier string
}

type AuthOption func(*authParams)

// WithIDP overrides the configured identity provider for one authorization
// request.
func WithIDP(idp string) AuthOption {
	return func(a *authParams) {
		a.idp = idp
	}
}

// WithPKCE adds an S256 code challenge derived from verifier.
func WithPKCE(verifier string) AuthOption {
	return func(a *authParams) {
		a.verifier = verifier
	}
}

// AuthorizationURL returns the URL the user agent is sent to. The idp
// parameter is always present.
func (p *Provider) AuthorizationURL(state string, opts ...AuthOption) (string, error) {
	if state == "" {
		return "", &ConfigurationError{Msg: "state is required"}
	}

	params := &authParams{idp: string(p.cfg.IDP)}
	for _, opt := range opts {
		opt(params)
	}

	idp, err := ParseIDP(params.idp)
	if err != nil {
		return "", err
	}

	authOpts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("idp", string(idp)),
	}

	if params.verifier != "" {
		authOpts = append(authOpts, oauth2.S256ChallengeOption(params.verifier))
	}

	return p.oauth.AuthCodeURL(state, authOpts...), nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// Exchange runs the authorization_code grant.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	token, err := p.oauth.Exchange(p.clientContext(ctx), code, opts...)
	if err != nil {
		return nil, tokenError("exchange code", err)
	}

	return token, nil
}

// PasswordToken runs the resource owner password credentials grant.
func (p *Provider) PasswordToken(ctx context.Context, username, password string) (*oauth2.Token, error) {
	token, err := p.oauth.PasswordCredentialsToken(p.clientContext(ctx), username, password)
	if err != nil {
		return nil, tokenError("password grant", err)
	}

	return token, nil
}

// Refresh runs the refresh_token grant.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ts := p.oauth.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})

	token, err := ts.Token()
	if err != nil {
		return nil, tokenError("refresh token", err)
	}

	return token, nil
}

// tokenError turns an error body from the token endpoint into a
// ProviderError, and wraps anything else.
func tokenError(op string, err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.ErrorCode != "" {
		pErr := &ProviderError{
			Code:        rErr.ErrorCode,
			Description: rErr.ErrorDescription,
		}
		if rErr.Response != nil {
			pErr.StatusCode = rErr.Response.StatusCode
		}
		return pErr
	}

	return fmt.Errorf("%s: %w", op, err)
}

// ResourceOwner fetches the user info of the token's owner.
func (p *Provider) ResourceOwner(ctx context.Context, token *oauth2.Token) (*ResourceOwner, error) {
	if token == nil || token.AccessToken == "" {
		return nil, &ConfigurationError{Msg: "access token is required"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoEndpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	parsed, err := p.do(req)
	if err != nil {
		return nil, err
	}

	raw, ok := parsed.(map[string]any)
	if !ok {
		return nil, &ProtocolError{Msg: "Invalid response received from Authorization Server. Expected JSON."}
	}

	return NewResourceOwner(raw), nil
}

// VerifyIDToken verifies the id_token returned next to token against the
// tenant's public keys.
func (p *Provider) VerifyIDToken(ctx context.Context, token *oauth2.Token) (*oidc.IDToken, error) {
	if token == nil {
		return nil, &ProtocolError{Msg: "id_token is missing"}
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, &ProtocolError{Msg: "id_token is missing"}
	}

	idToken, err := p.verifier.Verify(oidc.ClientContext(ctx, p.httpClient), rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id_token: %w", err)
	}

	log.WithFields(log.Fields{
		"tenant":  p.cfg.TenantID,
		"subject": idToken.Subject,
	}).Debug("verified id_token")

	return idToken, nil
}
