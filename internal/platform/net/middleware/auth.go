package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	perr "crossposter/internal/platform/errors"
	pnet "crossposter/internal/platform/net"
)

// AuthPort authenticates a request and names the caller
type AuthPort interface {
	Parse(r *http.Request) (caller string, err error)
}

// Auth rejects requests the port refuses; a nil port lets everything through
func Auth(p AuthPort, write func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if p == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := p.Parse(r)
			if err != nil {
				write(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(pnet.WithCaller(r.Context(), caller)))
		})
	}
}

// StaticToken accepts "Authorization: Bearer <token>" for one shared token
type StaticToken struct {
	Token  string
	Caller string
}

// Parse implements AuthPort
func (s StaticToken) Parse(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	got, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || got == "" {
		return "", perr.Unauthorizedf("missing bearer token")
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(s.Token)) != 1 {
		return "", perr.Unauthorizedf("invalid bearer token")
	}
	if s.Caller == "" {
		return "api", nil
	}
	return s.Caller, nil
}

// TokenPort returns a StaticToken port, or nil when token is empty
func TokenPort(token string) AuthPort {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return StaticToken{Token: token}
}
