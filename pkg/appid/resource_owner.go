package appid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ResourceOwner is the user info document of an App ID user.
type ResourceOwner struct {
	raw        map[string]any
	attributes map[string]any
}

func NewResourceOwner(raw map[string]any) *ResourceOwner {
	if raw == nil {
		raw = map[string]any{}
	}

	raw = deepCopy(raw)

	return &ResourceOwner{
		raw:        raw,
		attributes: idpAttributes(raw),
	}
}

// ParseResourceOwner decodes a user info body. Numbers keep their textual
// form so a numeric "sub" reads back unchanged.
func ParseResourceOwner(body []byte) (*ResourceOwner, error) {
	var raw map[string]any

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, &ProtocolError{Msg: fmt.Sprintf("Failed to parse user info: %v", err)}
	}

	return NewResourceOwner(raw), nil
}

// idpAttributes returns identities[0].idpUserInfo.attributes, or an empty map
// when any segment is missing or empty.
func idpAttributes(raw map[string]any) map[string]any {
	identities, ok := raw["identities"].([]any)
	if !ok || len(identities) == 0 {
		return map[string]any{}
	}

	identity, ok := identities[0].(map[string]any)
	if !ok {
		return map[string]any{}
	}

	userInfo, ok := identity["idpUserInfo"].(map[string]any)
	if !ok {
		return map[string]any{}
	}

	attributes, ok := userInfo["attributes"].(map[string]any)
	if !ok {
		return map[string]any{}
	}

	return attributes
}

func (r *ResourceOwner) ID() string {
	return stringValue(r.raw["sub"])
}

func (r *ResourceOwner) FullName() string {
	return stringValue(r.raw["name"])
}

// Email returns the lowercased email claim. A payload without the claim is a
// protocol error; an empty claim is returned as is.
func (r *ResourceOwner) Email() (string, error) {
	v, ok := r.raw["email"]
	if !ok || v == nil {
		return "", &ProtocolError{Msg: "email claim is missing"}
	}

	return strings.ToLower(stringValue(v)), nil
}

func (r *ResourceOwner) Cnum() string {
	return stringValue(r.attributes["cnum"])
}

func (r *ResourceOwner) IBMInfo() map[string]any {
	info, ok := r.attributes["ibminfo"].(map[string]any)
	if !ok {
		return map[string]any{}
	}

	return deepCopy(info)
}

func (r *ResourceOwner) Location() string {
	return stringValue(r.attributes["locate"])
}

func (r *ResourceOwner) UID() string {
	return stringValue(r.attributes["uid"])
}

// LotusNotesID returns the readable form of the lotusnotesid attribute, or ""
// when it is not set.
func (r *ResourceOwner) LotusNotesID() string {
	id := stringValue(r.attributes["lotusnotesid"])
	if id == "" {
		return ""
	}

	return ParseLotusNotesID(id)
}

func (r *ResourceOwner) Attributes() map[string]any {
	return deepCopy(r.attributes)
}

// ToMap returns a copy of the user info document as received.
func (r *ResourceOwner) ToMap() map[string]any {
	return deepCopy(r.raw)
}

func deepCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// ParseLotusNotesID turns a canonical Notes name such as
// "CN=Jane Doe/OU=Org1/O=ACME@ACMEMail" into "Jane Doe/Org1/ACME". Only the
// text between the first and second "=" of a component is kept.
func ParseLotusNotesID(id string) string {
	var parts []string

	for _, component := range strings.Split(id, "/") {
		_, value, found := strings.Cut(component, "=")
		if !found {
			continue
		}
		value, _, _ = strings.Cut(value, "=")
		parts = append(parts, value)
	}

	joined := strings.Join(parts, "/")
	if i := strings.Index(joined, "@"); i >= 0 {
		joined = joined[:i]
	}

	return joined
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
