package appid

import "strings"

type EndpointKind string

const (
	EndpointAuthorization EndpointKind = "authorization"
	EndpointToken         EndpointKind = "token"
	EndpointUserInfo      EndpointKind = "userinfo"
	EndpointIntrospect    EndpointKind = "introspect"
	EndpointRevoke        EndpointKind = "revoke"
	EndpointPublicKeys    EndpointKind = "publickeys"
)

// Endpoint returns {baseAuthURI}/{tenantID}/{kind}.
func Endpoint(baseAuthURI, tenantID string, kind EndpointKind) string {
	return Issuer(baseAuthURI, tenantID) + "/" + string(kind)
}

// Issuer is the "iss" App ID puts in the id_tokens of a tenant.
func Issuer(baseAuthURI, tenantID string) string {
	return strings.Join([]string{baseAuthURI, tenantID}, "/")
}

func (p *Provider) AuthorizationEndpoint() string {
	return Endpoint(p.cfg.BaseAuthURI, p.cfg.TenantID, EndpointAuthorization)
}

func (p *Provider) TokenEndpoint() string {
	return Endpoint(p.cfg.BaseAuthURI, p.cfg.TenantID, EndpointToken)
}

func (p *Provider) UserInfoEndpoint() string {
	return Endpoint(p.cfg.BaseAuthURI, p.cfg.TenantID, EndpointUserInfo)
}

func (p *Provider) IntrospectEndpoint() string {
	return Endpoint(p.cfg.BaseAuthURI, p.cfg.TenantID, EndpointIntrospect)
}

func (p *Provider) RevokeEndpoint() string {
	return Endpoint(p.cfg.BaseAuthURI, p.cfg.TenantID, EndpointRevoke)
}

func (p *Provider) PublicKeysEndpoint() string {
	return Endpoint(p.cfg.BaseAuthURI, p.cfg.TenantID, EndpointPublicKeys)
}

func (p *Provider) Issuer() string {
	return Issuer(p.cfg.BaseAuthURI, p.cfg.TenantID)
}
