// Package rpc implements request-reply messaging over RabbitMQ: an outbound
// client that performs blocking, correlated calls, and an inbound dispatcher
// that demultiplexes action-tagged messages onto registered handlers. Every
// reply, success or failure, is wrapped in the same Envelope shape.
package rpc

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform reply wrapper. Status 200 means Data holds the
// result and Message is empty; any other status means Message describes the
// failure and Data carries at least {"message": ...} so a remote error can
// be reconstructed on the calling side.
type Envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message,omitempty"`
	Path    string          `json:"path"`
	Data    json.RawMessage `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
}

// OK wraps a successful result. Path names the producing service and is
// diagnostic only.
func OK(path string, data any) Envelope {
	body, err := json.Marshal(data)
	if err != nil {
		return Fail(http.StatusInternalServerError, path, "failed to encode response: "+err.Error())
	}
	return Envelope{Status: http.StatusOK, Path: path, Data: body}
}

// Fail wraps a failure with an HTTP-style status code.
func Fail(status int, path, message string) Envelope {
	body, _ := json.Marshal(errorBody{Message: message})
	return Envelope{Status: status, Message: message, Path: path, Data: body}
}
