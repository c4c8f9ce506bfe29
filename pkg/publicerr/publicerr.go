// Package publicerr holds errors which are safe to show to the caller of the
// serve handler, along with the HTTP status to respond with.
package publicerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/inngest/inngestsdk/pkg/headers"
)

const (
	DefaultMessage = "Something went wrong.  Please try again"
	DefaultStatus  = http.StatusInternalServerError
)

// Wrap wraps a root cause error with an HTTP status and a public message.
func Wrap(err error, status int, msg string) error {
	return Error{
		Message: msg,
		Status:  status,
		Err:     err,
	}
}

// Wrapf is Wrap with fmt.Sprintf formatting of the message.
func Wrapf(err error, status int, msg string, opts ...any) error {
	return Wrap(err, status, fmt.Sprintf(msg, opts...))
}

// WrapDefaults wraps an error with the default message and default status.
func WrapDefaults(err error) error {
	return Wrap(err, DefaultStatus, DefaultMessage)
}

// WithData attaches data to err, wrapping it with the defaults if it isn't
// already a public error.
func WithData(err error, data map[string]any) error {
	var d Error
	if !errors.As(err, &d) {
		d = WrapDefaults(err).(Error)
	}
	d.Data = data
	return d
}

// Errorf is fmt.Errorf for errors whose message is shown to the caller as-is.
func Errorf(status int, message string, opts ...any) error {
	err := fmt.Errorf(message, opts...)
	return Error{
		Message: err.Error(),
		Status:  status,
		Err:     err,
	}
}

// Error wraps a root cause error with a friendly message to display to the
// public.  Error() returns the root cause for logging.
type Error struct {
	Code string `json:"code,omitempty"`
	// Message is the message to display.
	Message string `json:"error"`
	// Data is a KV map of extra error data.
	Data map[string]any `json:"data,omitempty"`
	// Status is the HTTP status code to respond with.
	Status int `json:"status"`
	// Err is the root cause, used for debugging.
	Err error `json:"-"`
}

func (e Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}

func (e Error) Unwrap() error {
	return e.Err
}

// HTTPErr returns a public Error with the given status, using the standard
// library's text for that status as the message.
func HTTPErr(status int) Error {
	m := http.StatusText(status)
	if m == "" {
		status = http.StatusInternalServerError
		m = http.StatusText(status)
	}
	return Error{
		Message: m,
		Status:  status,
	}
}

// WriteHTTP writes err as a JSON body.  Errors which aren't public are
// written with the default message and status, so that internal details are
// never shown.
func WriteHTTP(w http.ResponseWriter, err error) error {
	var pe Error
	if !errors.As(err, &pe) {
		pe = WrapDefaults(err).(Error)
	}
	if pe.Status == 0 {
		pe.Status = DefaultStatus
	}

	w.Header().Set(headers.HeaderKeyContentType, "application/json")
	w.WriteHeader(pe.Status)
	return json.NewEncoder(w).Encode(pe)
}
