// Package adapter defines how a serve handler reads requests from a web
// framework.  Each framework provides an Adapter for a single request;  the
// handler asks the adapter which kind of request it is.
package adapter

import (
	"context"
	"encoding/json"
	"net/url"
)

// Adapter reads a single incoming request.  At most one of Register, Run and
// View returns a non-nil action.
type Adapter interface {
	// Framework is the name of the framework which received the request.
	Framework() string
	// URL is the full URL of the request.
	URL() (*url.URL, error)
	// Register returns a RegisterAction when the request asks the app to
	// sync its functions.
	Register(ctx context.Context) (*RegisterAction, error)
	// Run returns a RunAction when the request asks the app to run a tick of
	// a function.
	Run(ctx context.Context) (*RunAction, error)
	// View returns a ViewAction when the request asks for the app's
	// introspection data.
	View(ctx context.Context) (*ViewAction, error)
}

type RegisterAction struct {
	DeployID string
}

type RunAction struct {
	// Data is the tick request body.
	Data json.RawMessage
	// FnID is the ID of the function to run.
	FnID string
	// StepID is the ID of the step to run, or "step" if the function should
	// be run from the start.
	StepID    string
	Signature string
}

type ViewAction struct {
	IsIntrospection bool
}
