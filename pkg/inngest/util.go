package inngest

import (
	"github.com/inngest/inngestsdk/pkg/consts"
)

func GetFailureHandlerSlug(functionSlug string) string {
	return functionSlug + consts.FailureSuffix
}

func GetFailureHandlerName(functionName string) string {
	return functionName + consts.FailureNameSuffix
}

// StrPtr returns a pointer to the given string.
func StrPtr(s string) *string {
	return &s
}

func IntPtr(i int) *int {
	return &i
}
