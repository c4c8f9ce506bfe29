package util

import (
	"fmt"
	"net"
	"net/url"

	"github.com/inngest/inngestsdk/pkg/consts"
)

// NormalizeAppURL normalizes the URL an app is served from, so that the same
// app is always registered under the same URL:
//
//   - localhost, 127.0.0.1 and 0.0.0.0 are all rewritten to localhost
//   - the deployId query parameter is removed
//   - http is upgraded to https when forceHTTPS is set
func NormalizeAppURL(u string, forceHTTPS bool) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}

	if forceHTTPS && parsed.Scheme == "http" {
		parsed.Scheme = "https"
	}

	q := parsed.Query()
	if q.Has(consts.QueryDeployID) {
		q.Del(consts.QueryDeployID)
		parsed.RawQuery = q.Encode()
	}

	if host, port, err := net.SplitHostPort(parsed.Host); err == nil {
		switch host {
		case "localhost", "127.0.0.1", "0.0.0.0":
			parsed.Host = fmt.Sprintf("localhost:%s", port)
		}
	}

	return parsed.String()
}
