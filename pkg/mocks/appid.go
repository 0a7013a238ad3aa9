// Package mocks provides a fake App ID tenant for tests.
package mocks

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
)

const (
	TestTenantID     = "mock_tenant_id"
	TestClientID     = "mock_client_id"
	TestClientSecret = "mock_client_secret"
	TestKeyID        = "mock_key"
)

// Response is a canned answer for one endpoint.
type Response struct {
	Status      int
	ContentType string
	Body        string
}

func JSONResponse(status int, v interface{}) Response {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mock: cannot marshal response: %v", err))
	}

	return Response{Status: status, ContentType: "application/json", Body: string(b)}
}

func TextResponse(status int, body string) Response {
	return Response{Status: status, ContentType: "text/plain; charset=utf-8", Body: body}
}

// RecordedRequest is what the fake tenant saw of a request.
type RecordedRequest struct {
	Method   string
	Header   http.Header
	Form     url.Values
	Username string
	Password string
}

// AppIDServer serves the endpoints of one App ID tenant under
// {URL}/oauth/v4/{tenant}/.
type AppIDServer struct {
	*httptest.Server

	key *rsa.PrivateKey

	mu        sync.Mutex
	responses map[string]Response
	requests  map[string]RecordedRequest
}

func NewAppIDServer() (*AppIDServer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("mock: error from GenerateKey: %v", err)
	}

	s := &AppIDServer{
		key:       key,
		responses: map[string]Response{},
		requests:  map[string]RecordedRequest{},
	}

	router := mux.NewRouter()
	router.HandleFunc("/oauth/v4/{tenant}/{endpoint}", s.handle)
	s.Server = httptest.NewServer(router)

	return s, nil
}

// BaseAuthURI is the value to configure the provider with.
func (s *AppIDServer) BaseAuthURI() string {
	return s.URL + "/oauth/v4"
}

func (s *AppIDServer) Issuer() string {
	return s.BaseAuthURI() + "/" + TestTenantID
}

// SetResponse overrides the answer of endpoint, e.g. "introspect".
func (s *AppIDServer) SetResponse(endpoint string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[endpoint] = resp
}

// LastRequest returns the most recent request to endpoint.
func (s *AppIDServer) LastRequest(endpoint string) (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[endpoint]
	return req, ok
}

// MintIDToken signs an id_token for the tenant. claims override the defaults.
func (s *AppIDServer) MintIDToken(claims jwt.MapClaims) (string, error) {
	now := time.Now()
	all := jwt.MapClaims{
		"iss":   s.Issuer(),
		"aud":   TestClientID,
		"sub":   "mock_subject",
		"iat":   now.Unix(),
		"exp":   now.Add(1 * time.Hour).Unix(),
		"email": "kilgore@kilgore.trout",
		"name":  "Kilgore Trout",
	}
	for k, v := range claims {
		all[k] = v
	}

	idToken := jwt.NewWithClaims(jwt.SigningMethodRS256, all)
	idToken.Header["kid"] = TestKeyID

	signed, err := idToken.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("mock: error from SignedString: %v", err)
	}

	return signed, nil
}

func (s *AppIDServer) handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if vars["tenant"] != TestTenantID {
		http.NotFound(w, r)
		return
	}
	endpoint := vars["endpoint"]

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec := RecordedRequest{
		Method: r.Method,
		Header: r.Header.Clone(),
		Form:   r.PostForm,
	}
	rec.Username, rec.Password, _ = r.BasicAuth()

	s.mu.Lock()
	s.requests[endpoint] = rec
	resp, ok := s.responses[endpoint]
	s.mu.Unlock()

	if !ok {
		var err error
		resp, ok, err = s.defaultResponse(endpoint)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
	}

	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.Status)
	_, _ = w.Write([]byte(resp.Body))
}

func (s *AppIDServer) defaultResponse(endpoint string) (Response, bool, error) {
	switch endpoint {
	case "token":
		idToken, err := s.MintIDToken(nil)
		if err != nil {
			return Response{}, false, err
		}
		return JSONResponse(http.StatusOK, map[string]interface{}{
			"access_token":  "mock_access_token",
			"id_token":      idToken,
			"refresh_token": "mock_refresh_token",
			"token_type":    "Bearer",
			"expires_in":    3600,
		}), true, nil
	case "userinfo":
		return JSONResponse(http.StatusOK, DefaultUserInfo()), true, nil
	case "introspect":
		return JSONResponse(http.StatusOK, map[string]interface{}{"active": true}), true, nil
	case "revoke":
		return TextResponse(http.StatusOK, "OK"), true, nil
	case "publickeys":
		return JSONResponse(http.StatusOK, s.jwks()), true, nil
	}

	return Response{}, false, nil
}

func (s *AppIDServer) jwks() map[string]interface{} {
	pub := s.key.PublicKey

	return map[string]interface{}{
		"keys": []map[string]interface{}{
			{
				"kty": "RSA",
				"use": "sig",
				"alg": "RS256",
				"kid": TestKeyID,
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
}

// DefaultUserInfo is the user info document the fake tenant returns.
func DefaultUserInfo() map[string]interface{} {
	return map[string]interface{}{
		"sub":   "1",
		"name":  "Kilgore Trout",
		"email": "Kilgore@Kilgore.Trout",
		"identities": []interface{}{
			map[string]interface{}{
				"idpUserInfo": map[string]interface{}{
					"attributes": map[string]interface{}{
						"cnum":         "xxx-001",
						"lotusnotesid": "CN=Kilgore Trout/OU=Org1/OU=Org2/O=ACME@ACMEMail",
						"ibminfo":      map[string]interface{}{"dept": "XYZ"},
						"locate":       "BY",
						"uid":          "1",
					},
				},
			},
		},
	}
}
