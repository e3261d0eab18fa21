package automation

import (
	"encoding/json"
	"strings"

	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// Cookie is one name/value pair of a normalized credential bundle.
// Attribute fields from the raw encodings (domain, path, expiry, sameSite)
// are deliberately dropped; only the pair survives.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NormalizeCredentials converts an account's stored credential bundle into
// name/value pairs. Three raw encodings are tolerated: a JSON array of
// cookie objects, a single JSON object, and a semicolon-delimited
// "name=value; name=value" string (possibly JSON-quoted).
func NormalizeCredentials(raw json.RawMessage) []Cookie {
	if len(raw) == 0 {
		return nil
	}

	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return fromMaps(list)
	}

	var single map[string]any
	if err := json.Unmarshal(raw, &single); err == nil {
		return fromMaps([]map[string]any{single})
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return fromHeaderString(s)
	}
	return fromHeaderString(string(raw))
}

// NormalizeAccountCredentials is NormalizeCredentials applied to an account.
func NormalizeAccountCredentials(acct *domain.Account) []Cookie {
	return NormalizeCredentials(acct.Cookies)
}

// CookieHeader renders the pairs as a Cookie request header value.
func CookieHeader(cookies []Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// HasSession reports whether the bundle contains the named session cookie.
func HasSession(cookies []Cookie, name string) bool {
	for _, c := range cookies {
		if c.Name == name {
			return true
		}
	}
	return false
}

func fromMaps(list []map[string]any) []Cookie {
	var cookies []Cookie
	for _, m := range list {
		name, _ := m["name"].(string)
		value, _ := m["value"].(string)
		if name == "" {
			continue
		}
		cookies = append(cookies, Cookie{Name: name, Value: value})
	}
	return cookies
}

func fromHeaderString(s string) []Cookie {
	var cookies []Cookie
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found || name == "" {
			continue
		}
		cookies = append(cookies, Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return cookies
}
