package server

import (
	"context"

	"github.com/kanopy-platform/appid-gateway/pkg/appid"
	"golang.org/x/oauth2"
)

// TokenService is the part of appid.Provider the gateway calls.
type TokenService interface {
	Introspect(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token string) (bool, error)
	ResourceOwner(ctx context.Context, token *oauth2.Token) (*appid.ResourceOwner, error)
}

var _ TokenService = (*appid.Provider)(nil)
