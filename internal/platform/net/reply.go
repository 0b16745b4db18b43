package net

import (
	"net/http"

	perr "syncengine/internal/platform/errors"
)

// Wire is the response envelope shared by every endpoint
type Wire struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// Reply builds a success envelope
func Reply(status int, data any, reqID string) Wire {
	return Wire{StatusCode: status, Status: http.StatusText(status), RequestID: reqID, Data: data}
}

// Error maps err to its status and envelope, the cause chain is not exposed
func Error(err error, reqID string) (int, Wire) {
	status := perr.HTTPStatus(err)
	pw := perr.WireFrom(err)
	return status, Wire{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       pw.Code,
		Error:      pw.Message,
		Field:      pw.Field,
		RequestID:  reqID,
	}
}
