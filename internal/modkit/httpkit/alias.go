// Package httpkit is the small HTTP surface modules mount routes with
package httpkit

import (
	"net/http"

	phttp "crossposter/internal/platform/net/http"
)

type (
	// Envelope is the JSON body every endpoint answers with
	Envelope = phttp.Envelope
	// Response is returned by return style handlers
	Response = phttp.Response
	// Handler is the platform handler func
	Handler = phttp.Handler
	// Router is the platform router seam
	Router = phttp.Router
)

// OK is a 200 response
func OK(data any) Response { return phttp.OK(data) }

// Created is a 201 response
func Created(data any) Response { return phttp.Created(data) }

// Accepted is a 202 response
func Accepted(data any) Response { return phttp.Accepted(data) }

// Error maps err to its status and envelope
func Error(err error) Response { return phttp.Error(err) }

// Handle adapts a return style handler
func Handle(fn func(*http.Request) Response) Handler { return phttp.Handle(fn) }

// JSON binds and validates T, then wraps fn's result
// fn may return a Response to pick its own status
func JSON[T any](fn func(*http.Request, T) (any, error)) Handler { return phttp.JSONHandler(fn) }

// Call wraps a body-less fn
func Call(fn func(*http.Request) (any, error)) Handler { return phttp.JSONHandlerNoBody(fn) }
