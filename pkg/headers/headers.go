package headers

import (
	"fmt"
	"net/http"

	"github.com/inngest/inngestsdk/pkg/consts"
)

const (
	HeaderKeySDK          = "X-Inngest-SDK"
	HeaderKeyFramework    = "X-Inngest-Framework"
	HeaderKeyNoRetry      = "X-Inngest-No-Retry"
	HeaderKeyRetryAfter   = "Retry-After"
	HeaderKeySignature    = "X-Inngest-Signature"
	HeaderKeyServerTiming = "Server-Timing"
	HeaderKeyContentType  = "Content-Type"
	HeaderKeyReqVersion   = "X-Inngest-Req-Version"
)

// SDK returns the SDK header value, eg. "go:v0.1.0".
func SDK() string {
	return fmt.Sprintf("%s:v%s", consts.SDKName, consts.SDKVersion)
}

// SetStatic sets the headers included on every SDK response.
func SetStatic(h http.Header, framework string) {
	h.Set(HeaderKeySDK, SDK())
	h.Set(HeaderKeyReqVersion, fmt.Sprintf("%d", consts.RequestVersion))
	if framework != "" {
		h.Set(HeaderKeyFramework, framework)
	}
}
