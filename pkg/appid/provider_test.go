package appid

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/kanopy-platform/appid-gateway/pkg/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestProvider(t *testing.T, idp IDP) (*Provider, *mocks.AppIDServer) {
	t.Helper()

	srv, err := mocks.NewAppIDServer()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	p, err := New(Config{
		BaseAuthURI:   srv.BaseAuthURI(),
		TenantID:      mocks.TestTenantID,
		RedirectRoute: "mock_redirect_route",
		IDP:           idp,
		ClientID:      mocks.TestClientID,
		ClientSecret:  mocks.TestClientSecret,
		RedirectURL:   "https://app.example.com/callback",
		HTTPClient:    srv.Client(),
	})
	require.NoError(t, err)

	return p, srv
}

func TestAuthorizationURL(t *testing.T) {
	t.Parallel()

	p, _ := newTestProvider(t, "")

	authURL, err := p.AuthorizationURL("mock_state")
	assert.NoError(t, err)

	u, err := url.Parse(authURL)
	assert.NoError(t, err)
	assert.Equal(t, p.AuthorizationEndpoint(), u.Scheme+"://"+u.Host+u.Path)

	query := u.Query()
	assert.Equal(t, mocks.TestClientID, query.Get("client_id"))
	assert.Equal(t, "https://app.example.com/callback", query.Get("redirect_uri"))
	assert.Equal(t, "mock_state", query.Get("state"))
	assert.Equal(t, "openid", query.Get("scope"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "saml", query.Get("idp"))
}

func TestAuthorizationURLIDP(t *testing.T) {
	t.Parallel()

	p, _ := newTestProvider(t, IDPFacebook)

	authURL, err := p.AuthorizationURL("mock_state")
	assert.NoError(t, err)
	u, err := url.Parse(authURL)
	assert.NoError(t, err)
	assert.Equal(t, "facebook", u.Query().Get("idp"))

	authURL, err = p.AuthorizationURL("mock_state", WithIDP(string(IDPGoogle)))
	assert.NoError(t, err)
	u, err = url.Parse(authURL)
	assert.NoError(t, err)
	assert.Equal(t, "google", u.Query().Get("idp"))

	_, err = p.AuthorizationURL("mock_state", WithIDP("not_allowed"))
	var cErr *ConfigurationError
	assert.ErrorAs(t, err, &cErr)
	assert.EqualError(t, err, `IDP "not_allowed" is not supported.`)

	_, err = p.AuthorizationURL("")
	assert.ErrorAs(t, err, &cErr)
}

func TestAuthorizationURLPKCE(t *testing.T) {
	t.Parallel()

	p, _ := newTestProvider(t, "")
	verifier := oauth2.GenerateVerifier()

	authURL, err := p.AuthorizationURL("mock_state", WithPKCE(verifier))
	assert.NoError(t, err)

	u, err := url.Parse(authURL)
	assert.NoError(t, err)
	assert.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), u.Query().Get("code_challenge"))
}

func TestExchange(t *testing.T) {
	t.Parallel()

	p, srv := newTestProvider(t, "")

	token, err := p.Exchange(context.Background(), "mock_authorization_code")
	assert.NoError(t, err)
	assert.Equal(t, "mock_access_token", token.AccessToken)
	assert.Equal(t, "mock_refresh_token", token.RefreshToken)
	assert.NotEmpty(t, token.Extra("id_token"))
	assert.True(t, token.Valid())

	req, ok := srv.LastRequest("token")
	assert.True(t, ok)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, mocks.TestClientID, req.Username)
	assert.Equal(t, mocks.TestClientSecret, req.Password)
	assert.Equal(t, "authorization_code", req.Form.Get("grant_type"))
	assert.Equal(t, "mock_authorization_code", req.Form.Get("code"))
}

func TestExchangeErrorResponse(t *testing.T) {
	t.Parallel()

	p, srv := newTestProvider(t, "")
	srv.SetResponse("token", mocks.JSONResponse(http.StatusBadRequest, map[string]interface{}{
		"error":             "invalid_grant",
		"error_description": "Code not found",
	}))

	_, err := p.Exchange(context.Background(), "mock_authorization_code")

	var pErr *ProviderError
	assert.ErrorAs(t, err, &pErr)
	assert.EqualError(t, err, "invalid_grant: Code not found")
	assert.Equal(t, http.StatusBadRequest, pErr.StatusCode)
}

func TestPasswordToken(t *testing.T) {
	t.Parallel()

	p, srv := newTestProvider(t, "")

	token, err := p.PasswordToken(context.Background(), "demouser", "testpass")
	assert.NoError(t, err)
	assert.Equal(t, "mock_access_token", token.AccessToken)

	req, _ := srv.LastRequest("token")
	assert.Equal(t, "password", req.Form.Get("grant_type"))
	assert.Equal(t, "demouser", req.Form.Get("username"))
	assert.Equal(t, "testpass", req.Form.Get("password"))
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	p, srv := newTestProvider(t, "")

	token, err := p.Refresh(context.Background(), "old_refresh_token")
	assert.NoError(t, err)
	assert.Equal(t, "mock_access_token", token.AccessToken)

	req, _ := srv.LastRequest("token")
	assert.Equal(t, "refresh_token", req.Form.Get("grant_type"))
	assert.Equal(t, "old_refresh_token", req.Form.Get("refresh_token"))
}

func TestResourceOwner(t *testing.T) {
	t.Parallel()

	p, srv := newTestProvider(t, "")

	token, err := p.Exchange(context.Background(), "mock_authorization_code")
	require.NoError(t, err)

	owner, err := p.ResourceOwner(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, "1", owner.ID())
	assert.Equal(t, "Kilgore Trout", owner.FullName())
	email, err := owner.Email()
	assert.NoError(t, err)
	assert.Equal(t, "kilgore@kilgore.trout", email)
	assert.Equal(t, "Kilgore Trout/Org1/Org2/ACME", owner.LotusNotesID())
	assert.Equal(t, "BY", owner.Location())

	req, _ := srv.LastRequest("userinfo")
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "Bearer mock_access_token", req.Header.Get("Authorization"))
}

func TestResourceOwnerErrors(t *testing.T) {
	t.Parallel()

	p, srv := newTestProvider(t, "")
	token := &oauth2.Token{AccessToken: "mock_access_token"}

	srv.SetResponse("userinfo", mocks.JSONResponse(http.StatusOK, map[string]interface{}{
		"error":             "invalid_token",
		"error_description": "Token expired",
	}))
	_, err := p.ResourceOwner(context.Background(), token)
	var pErr *ProviderError
	assert.ErrorAs(t, err, &pErr)
	assert.EqualError(t, err, "invalid_token: Token expired")

	srv.SetResponse("userinfo", mocks.TextResponse(http.StatusOK, `{"error":"invalid_token","error_description":"Token expired"}`))
	_, err = p.ResourceOwner(context.Background(), token)
	assert.ErrorAs(t, err, &pErr)
	assert.EqualError(t, err, "invalid_token: Token expired")

	srv.SetResponse("userinfo", mocks.JSONResponse(http.StatusOK, []string{"a"}))
	_, err = p.ResourceOwner(context.Background(), token)
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)

	srv.SetResponse("userinfo", mocks.TextResponse(http.StatusUnauthorized, "denied"))
	_, err = p.ResourceOwner(context.Background(), token)
	assert.ErrorAs(t, err, &pErr)
	assert.Equal(t, http.StatusUnauthorized, pErr.StatusCode)

	_, err = p.ResourceOwner(context.Background(), &oauth2.Token{})
	var cErr *ConfigurationError
	assert.ErrorAs(t, err, &cErr)
}

func TestVerifyIDToken(t *testing.T) {
	t.Parallel()

	p, srv := newTestProvider(t, "")

	token, err := p.Exchange(context.Background(), "mock_authorization_code")
	require.NoError(t, err)

	idToken, err := p.VerifyIDToken(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, "mock_subject", idToken.Subject)
	assert.Equal(t, srv.Issuer(), idToken.Issuer)

	var claims struct {
		Email string `json:"email"`
	}
	assert.NoError(t, idToken.Claims(&claims))
	assert.Equal(t, "kilgore@kilgore.trout", claims.Email)

	_, err = p.VerifyIDToken(context.Background(), &oauth2.Token{AccessToken: "mock_access_token"})
	var pErr *ProtocolError
	assert.ErrorAs(t, err, &pErr)
}

func TestVerifyIDTokenWrongAudience(t *testing.T) {
	t.Parallel()

	p, srv := newTestProvider(t, "")

	idToken, err := srv.MintIDToken(jwt.MapClaims{"aud": "another_client"})
	require.NoError(t, err)

	token := (&oauth2.Token{AccessToken: "mock_access_token"}).WithExtra(map[string]interface{}{
		"id_token": idToken,
	})

	_, err = p.VerifyIDToken(context.Background(), token)
	assert.Error(t, err)
}
