package appid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 1 << 20

// Introspect reports whether the authorization server considers token active.
func (p *Provider) Introspect(ctx context.Context, token string) (bool, error) {
	parsed, err := p.postToken(ctx, p.IntrospectEndpoint(), token)
	if err != nil {
		return false, err
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return false, &ProtocolError{Msg: "Invalid response received from Authorization Server. Expected JSON."}
	}

	return truthy(obj["active"]), nil
}

// Revoke asks the authorization server to revoke token. It reports true only
// when the server answers with the literal body OK.
func (p *Provider) Revoke(ctx context.Context, token string) (bool, error) {
	parsed, err := p.postToken(ctx, p.RevokeEndpoint(), token)
	if err != nil {
		return false, err
	}

	body, ok := parsed.(string)
	if !ok {
		return false, &ProtocolError{Msg: `Invalid response received from Authorization Server. Expected "OK".`}
	}

	return body == "OK", nil
}

func (p *Provider) ValidateAccessToken(ctx context.Context, token *oauth2.Token) (bool, error) {
	if token == nil {
		return false, &ConfigurationError{Msg: "access token is required"}
	}

	return p.Introspect(ctx, token.AccessToken)
}

// RevokeRefreshToken revokes the refresh token of token, or its access token
// when no refresh token was issued.
func (p *Provider) RevokeRefreshToken(ctx context.Context, token *oauth2.Token) (bool, error) {
	if token == nil {
		return false, &ConfigurationError{Msg: "token is required"}
	}

	if token.RefreshToken != "" {
		return p.Revoke(ctx, token.RefreshToken)
	}

	return p.Revoke(ctx, token.AccessToken)
}

func (p *Provider) postToken(ctx context.Context, endpoint, token string) (any, error) {
	form := url.Values{}
	form.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(url.QueryEscape(p.cfg.ClientID), url.QueryEscape(p.cfg.ClientSecret))

	return p.do(req)
}

// do sends req and returns the parsed body: the decoded JSON value when the
// body is JSON, whatever the declared content type, the raw text otherwise.
func (p *Provider) do(req *http.Request) (any, error) {
	logger := log.WithFields(log.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL.Path, err)
	}

	logger.WithField("status", resp.StatusCode).Debug("app id response")

	parsed, err := parseBody(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}

	if err := checkResponse(resp.StatusCode, parsed); err != nil {
		return nil, err
	}

	return parsed, nil
}

func parseBody(contentType string, body []byte) (any, error) {
	parsed, err := decodeJSON(body)
	if err == nil {
		return parsed, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		return nil, &ProtocolError{Msg: fmt.Sprintf("Failed to parse JSON response: %v", err)}
	}

	return string(body), nil
}

// decodeJSON decodes exactly one JSON value from body.
func decodeJSON(body []byte) (any, error) {
	var parsed any

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}

	return parsed, nil
}

// truthy treats false, zero, "", "0", null and empty containers as false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}
