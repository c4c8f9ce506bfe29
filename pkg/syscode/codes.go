package syscode

const (
	CodeConfigInvalid  = "config_invalid"
	CodeRequestInvalid = "request_invalid"
	CodeStepNotFound   = "step_not_found"
	CodeUnknown        = "unknown"

	// Determinism violations.  These are stable identifiers shared with the
	// orchestrator and other SDKs, and must never change.
	CodeStepUsedAfterAsync            = "STEP_USED_AFTER_ASYNC"
	CodeAsyncDetectedAfterMemoization = "ASYNC_DETECTED_AFTER_MEMOIZATION"
	CodeNonDeterministicFunction      = "NON_DETERMINISTIC_FUNCTION"
)
