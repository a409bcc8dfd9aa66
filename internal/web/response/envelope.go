package response

import (
	"net/http"
)

// Envelope is the JSON body returned to asynchronous callers in place of a
// rendered page or redirect.
type Envelope struct {
	Data     *string       `json:"data,omitempty"`
	Redirect *string       `json:"redirect,omitempty"`
	Errors   []StatusError `json:"errors,omitempty"`
}

type StatusError struct {
	Status int `json:"status"`
}

// Translate maps a captured response onto an Envelope. Successful responses
// carry the body, redirects carry the target and client or server errors
// carry the status code. Informational statuses yield an empty envelope.
func Translate(status int, location string, body []byte) Envelope {
	switch {
	case status >= 200 && status < 300:
		data := string(body)
		return Envelope{Data: &data}
	case status >= 300 && status < 400:
		return Envelope{Redirect: &location}
	case status >= 400 && status < 600:
		return Envelope{Errors: []StatusError{{Status: status}}}
	}
	return Envelope{}
}

// WriteEnvelope always answers 200 so the caller inspects the envelope instead of the status line.
func WriteEnvelope(w http.ResponseWriter, r *http.Request, envelope Envelope) {
	JSONResponse(w, r, http.StatusOK, envelope)
}
