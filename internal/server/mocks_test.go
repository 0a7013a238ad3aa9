package server

import (
	"context"

	"github.com/kanopy-platform/appid-gateway/pkg/appid"
	"github.com/kanopy-platform/appid-gateway/pkg/mocks"
	"golang.org/x/oauth2"
)

type mockTokenService struct {
	active  bool
	revoked bool
	owner   *appid.ResourceOwner
	err     error

	lastToken string
}

func newMockTokenService() *mockTokenService {
	return &mockTokenService{
		active:  true,
		revoked: true,
		owner:   appid.NewResourceOwner(mocks.DefaultUserInfo()),
	}
}

func (m *mockTokenService) Introspect(ctx context.Context, token string) (bool, error) {
	m.lastToken = token
	return m.active, m.err
}

func (m *mockTokenService) Revoke(ctx context.Context, token string) (bool, error) {
	m.lastToken = token
	return m.revoked, m.err
}

func (m *mockTokenService) ResourceOwner(ctx context.Context, token *oauth2.Token) (*appid.ResourceOwner, error) {
	m.lastToken = token.AccessToken
	if m.err != nil {
		return nil, m.err
	}
	return m.owner, nil
}
