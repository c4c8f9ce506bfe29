package inngest

import (
	"net/url"
)

const (
	RuntimeTypeHTTP = "http"
)

type Runtime interface {
	RuntimeType() string
	Map() map[string]any
}

// RuntimeHTTP is a function step served over HTTP.
type RuntimeHTTP struct {
	URL string `json:"url"`
}

// NewRuntimeHTTP returns the runtime for the given step of a function served
// at appURL.
func NewRuntimeHTTP(appURL *url.URL, fnID, stepID string) RuntimeHTTP {
	u := *appURL
	if u.Path == "" {
		u.Path = "/"
	}
	q := u.Query()
	q.Set("fnId", fnID)
	q.Set("stepId", stepID)
	u.RawQuery = q.Encode()
	return RuntimeHTTP{URL: u.String()}
}

// Map returns the runtime as it's sent when registering.
func (r RuntimeHTTP) Map() map[string]any {
	return map[string]any{
		"type": RuntimeTypeHTTP,
		"url":  r.URL,
	}
}

func (RuntimeHTTP) RuntimeType() string {
	return RuntimeTypeHTTP
}
