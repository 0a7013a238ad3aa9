package appid

import (
	"fmt"
	"net/http"
	"strings"
)

// ConfigurationError is returned when a provider cannot be built from the
// supplied settings, or when an authorization request carries an unsupported
// option.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

// ProtocolError is returned when the authorization server answers with a body
// whose shape does not match the endpoint's contract.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return e.Msg
}

// ProviderError carries an explicit error reported by the authorization
// server. When the server only answered with a failure status, Code is the
// status text and Description the body text.
type ProviderError struct {
	Code        string
	Description string
	StatusCode  int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unavailable reports whether the server failed on its side (5xx) rather than
// rejecting the request.
func (e *ProviderError) Unavailable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// checkResponse is shared by every call that parses a response body. Any JSON
// object with a non-empty "error" field is a provider error, whatever the
// status code.
func checkResponse(statusCode int, parsed any) error {
	if obj, ok := parsed.(map[string]any); ok {
		if code := stringValue(obj["error"]); code != "" {
			return &ProviderError{
				Code:        code,
				Description: stringValue(obj["error_description"]),
				StatusCode:  statusCode,
			}
		}
	}

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		text, _ := parsed.(string)
		return &ProviderError{
			Code:        http.StatusText(statusCode),
			Description: strings.TrimSpace(text),
			StatusCode:  statusCode,
		}
	}

	return nil
}
