package consts

import "time"

const (
	// DefaultRetryCount is used when no retry count for a function is specified.
	DefaultRetryCount = 4

	// MaxRetries represents the maximum number of retries for a particular function or step
	MaxRetries = 30

	// MaxCancellations represents the max automatic cancellation signals per function
	MaxCancellations = 5

	// MaxTriggers represents the maximum number of triggers a function can have.
	MaxTriggers = 10

	// DefaultStepID is the ID of the single step registered for every SDK
	// function.  A request for this step ID runs the function from the top
	// and never targets a specific op.
	DefaultStepID = "step"

	// FailureSuffix is appended to a function's ID to name its failure
	// handler.
	FailureSuffix = "-failure"

	// FailureNameSuffix is appended to a function's name to name its failure
	// handler.
	FailureNameSuffix = " (failure)"

	// MaxBodySize is the maximum payload size read from a run request.
	MaxBodySize = 1024 * 1024 * 4

	// DefaultAsyncBoundary is how long every tracked routine may stay busy
	// without parking on a step before the tick is considered to be waiting
	// on untracked work.
	DefaultAsyncBoundary = 100 * time.Millisecond

	// RequestVersion is the SDK request version sent at registration.
	RequestVersion = 1

	SDKName    = "go"
	SDKVersion = "0.1.0"
)

const (
	// QueryFnID selects the function to run.
	QueryFnID = "fnId"
	// QueryStepID selects the op to run within the function.
	QueryStepID = "stepId"
	// QueryDeployID is sent by the orchestrator when requesting a sync.
	QueryDeployID = "deployId"
	// QueryIntrospect requests introspection output on GET.
	QueryIntrospect = "introspect"
)
