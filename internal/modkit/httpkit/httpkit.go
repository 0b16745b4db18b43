// Package httpkit is what modules import to register routes
// it aliases the platform http package so handlers never see chi
package httpkit

import (
	"net/http"

	phttp "syncengine/internal/platform/net/http"
)

type (
	// Router is the module routing surface
	Router = phttp.Router

	// Handler is the registered handler shape
	Handler = phttp.Handler

	// Response lets a handler pick its own status
	Response = phttp.Response
)

// Status returns data with an explicit status code
func Status(code int, data any) Response { return phttp.Status(code, data) }

// Param returns the named path parameter
func Param(r *http.Request, key string) string { return phttp.URLParam(r, key) }

// Get mounts a body-less JSON handler under GET
func Get(r Router, path string, h func(*http.Request) (any, error)) { r.Get(path, phttp.Call(h)) }

// Post mounts a body-less JSON handler under POST
func Post(r Router, path string, h func(*http.Request) (any, error)) { r.Post(path, phttp.Call(h)) }

// Delete mounts a body-less JSON handler under DELETE
func Delete(r Router, path string, h func(*http.Request) (any, error)) { r.Delete(path, phttp.Call(h)) }

// PostJSON mounts a handler that receives a validated T body under POST
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.Bind(h))
}

// PutJSON mounts a handler that receives a validated T body under PUT
func PutJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Put(path, phttp.Bind(h))
}
