// Package http writes the JSON envelope and adapts chi to the module router
package http

import (
	"encoding/json"
	"net/http"

	pnet "syncengine/internal/platform/net"
	"syncengine/internal/platform/net/http/bind"
)

// Envelope is the body of every response
type Envelope = pnet.Wire

// JSON writes v with status
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Response is what return style handlers produce
// a Body that is an error is rendered as an error envelope
type Response struct {
	Status int
	Body   any
}

// OK is a 200 with data
func OK(data any) Response { return Response{Status: http.StatusOK, Body: data} }

// Status is data with an explicit status, e.g. 503 from a failing readiness probe
func Status(code int, data any) Response { return Response{Status: code, Body: data} }

// Error renders err with the status its code maps to
func Error(err error) Response { return Response{Body: err} }

// Handle adapts a Response returning func
func Handle(fn func(*http.Request) Response) Handler {
	return func(w http.ResponseWriter, r *http.Request) { fn(r).write(w, r) }
}

func (resp Response) write(w http.ResponseWriter, r *http.Request) {
	reqID := pnet.RequestID(r.Context())
	if err, ok := resp.Body.(error); ok {
		status, body := pnet.Error(err, reqID)
		JSON(w, status, body)
		return
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	JSON(w, status, pnet.Reply(status, resp.Body, reqID))
}

func result(out any, err error) Response {
	if err != nil {
		return Error(err)
	}
	if resp, ok := out.(Response); ok {
		return resp
	}
	return OK(out)
}

// Call adapts a handler without a request body
// fn may return a Response to pick its own status
func Call(fn func(*http.Request) (any, error)) Handler {
	return Handle(func(r *http.Request) Response { return result(fn(r)) })
}

// Bind decodes and validates a T body before calling fn
func Bind[T any](fn func(*http.Request, T) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return Error(err)
		}
		return result(fn(r, in))
	})
}
