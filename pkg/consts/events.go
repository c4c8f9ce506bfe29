package consts

const (
	InternalNamePrefix = "inngest/"

	FnFailedName   = InternalNamePrefix + "function.failed"
	FnInvokeName   = InternalNamePrefix + "function.invoked"
	FnCronName     = InternalNamePrefix + "scheduled.timer"
	FnFinishedName = InternalNamePrefix + "function.finished"
)
