//go:generate go run github.com/dmarkham/enumer -trimprefix=Opcode -type=Opcode -json -text

package enums

type Opcode int

const (
	// OpcodeNone represents the default opcode 0, which does nothing
	OpcodeNone Opcode = iota
	// OpcodeStep is a step which has been executed, carrying its output
	// or error.  This is reported when a run callback executes within a tick.
	OpcodeStep
	// OpcodeStepPlanned is a discovered run step which has not yet been
	// executed.  The orchestrator schedules it and requests it by ID.
	OpcodeStepPlanned
	OpcodeSleep
	OpcodeWaitForEvent
	OpcodeInvokeFunction
	// OpcodeStepError is reserved for steps which errored and have no
	// further retries.
	OpcodeStepError
)

// IsRunnable returns whether ops of this type carry a callback which is
// executed from within the SDK.
func (o Opcode) IsRunnable() bool {
	return o == OpcodeStep || o == OpcodeStepPlanned
}
