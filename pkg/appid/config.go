package appid

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

type IDP string

const (
	IDPSAML     IDP = "saml"
	IDPAnon     IDP = "appid_anon"
	IDPFacebook IDP = "facebook"
	IDPGoogle   IDP = "google"
)

const defaultTimeout = 30 * time.Second

var supportedIDPs = map[IDP]struct{}{
	IDPSAML:     {},
	IDPAnon:     {},
	IDPFacebook: {},
	IDPGoogle:   {},
}

// ParseIDP checks s against the identity providers App ID accepts in the
// "idp" authorization parameter. An empty value selects SAML.
func ParseIDP(s string) (IDP, error) {
	if s == "" {
		return IDPSAML, nil
	}

	idp := IDP(s)
	if _, ok := supportedIDPs[idp]; !ok {
		return "", &ConfigurationError{Msg: fmt.Sprintf("IDP %q is not supported.", s)}
	}

	return idp, nil
}

// Config holds the settings of one App ID tenant and the OAuth2 client
// registered in it.
type Config struct {
	// BaseAuthURI is the OAuth server root, e.g.
	// https://us-south.appid.cloud.ibm.com/oauth/v4
	BaseAuthURI string
	TenantID    string

	// RedirectRoute is the name of the application route that handles the
	// authorization callback. It is only stored.
	RedirectRoute string

	// IDP selects the identity provider App ID delegates to. Defaults to saml.
	IDP IDP

	ClientID     string
	ClientSecret string
	RedirectURL  string

	// HTTPClient is used for every call to the tenant. Defaults to a pooled
	// cleanhttp client with a 30s timeout.
	HTTPClient *http.Client
}

func (c Config) validate() (Config, error) {
	if c.BaseAuthURI == "" || c.TenantID == "" {
		return c, &ConfigurationError{Msg: "Required fields (base_auth_uri or tenant_id) are missing."}
	}

	idp, err := ParseIDP(string(c.IDP))
	if err != nil {
		return c, err
	}
	c.IDP = idp

	if c.HTTPClient == nil {
		c.HTTPClient = DefaultHTTPClient(defaultTimeout)
	}

	return c, nil
}

// DefaultHTTPClient returns a client on a pooled transport that does not share
// state with http.DefaultTransport.
func DefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: cleanhttp.DefaultPooledTransport(),
		Timeout:   timeout,
	}
}
