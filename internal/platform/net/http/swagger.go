package http

import (
	stdhttp "net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// MountSwagger serves doc at /docs/openapi.json and the swagger UI under /docs/
func MountSwagger(r Router, enabled bool, doc []byte) {
	if !enabled || len(doc) == 0 {
		return
	}
	r.Get("/docs/openapi.json", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(doc)
	})
	ui := httpSwagger.Handler(httpSwagger.URL("/docs/openapi.json"))
	r.Get("/docs/*", ui)
}
