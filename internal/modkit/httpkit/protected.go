package httpkit

import (
	"net/http"

	phttp "crossposter/internal/platform/net/http"
	"crossposter/internal/platform/net/middleware"
)

// Auth rejects requests p refuses with an error envelope
// A nil port lets every request through
func Auth(p middleware.AuthPort) func(http.Handler) http.Handler {
	return middleware.Auth(p, phttp.RespondError)
}

// Protected mounts fn in a group that runs Auth first
func Protected(r Router, p middleware.AuthPort, fn func(Router)) {
	r.Group(func(g Router) {
		g.Use(Auth(p))
		fn(g)
	})
}
