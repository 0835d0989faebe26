package relayer

import "net/http"

// DefaultAPIKeyName is the header or cookie name used when an API key auth omits one.
const DefaultAPIKeyName = "x-api-key"

// Auth attaches credentials to outbound relayer requests. Implementations are
// BearerToken, APIKeyHeader and APIKeyCookie.
type Auth interface {
	apply(req *http.Request)
}

// BearerToken sends "Authorization: Bearer <Token>".
type BearerToken struct {
	Token string
}

func (a BearerToken) apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// APIKeyHeader sends the key in a request header.
type APIKeyHeader struct {
	Name  string
	Value string
}

func (a APIKeyHeader) apply(req *http.Request) {
	name := a.Name
	if name == "" {
		name = DefaultAPIKeyName
	}
	req.Header.Set(name, a.Value)
}

// APIKeyCookie sends the key as a cookie.
type APIKeyCookie struct {
	Name  string
	Value string
}

func (a APIKeyCookie) apply(req *http.Request) {
	name := a.Name
	if name == "" {
		name = DefaultAPIKeyName
	}
	req.AddCookie(&http.Cookie{Name: name, Value: a.Value})
}
