// Package httpadapter adapts a net/http request for the serve handler.
package httpadapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/inngest/inngestsdk/pkg/adapter"
	"github.com/inngest/inngestsdk/pkg/consts"
	"github.com/inngest/inngestsdk/pkg/headers"
	"github.com/inngest/inngestsdk/pkg/publicerr"
)

const Framework = "nethttp"

// New returns an adapter for r.  Request bodies larger than maxBody are
// rejected;  a maxBody of 0 uses consts.MaxBodySize.
func New(r *http.Request, maxBody int64) adapter.Adapter {
	if maxBody <= 0 {
		maxBody = consts.MaxBodySize
	}
	return httpAdapter{r: r, maxBody: maxBody}
}

type httpAdapter struct {
	r       *http.Request
	maxBody int64
}

func (a httpAdapter) Framework() string {
	return Framework
}

// URL returns the absolute URL of the request.  The scheme is taken from
// X-Forwarded-Proto when present.
func (a httpAdapter) URL() (*url.URL, error) {
	u := *a.r.URL
	if u.Host == "" {
		u.Host = a.r.Host
	}
	if u.Scheme == "" {
		switch {
		case a.r.Header.Get("X-Forwarded-Proto") != "":
			u.Scheme = a.r.Header.Get("X-Forwarded-Proto")
		case a.r.TLS != nil:
			u.Scheme = "https"
		default:
			u.Scheme = "http"
		}
	}
	if u.Host == "" {
		return nil, fmt.Errorf("request has no host")
	}
	return &u, nil
}

func (a httpAdapter) Register(ctx context.Context) (*adapter.RegisterAction, error) {
	if a.r.Method != http.MethodPut {
		return nil, nil
	}
	return &adapter.RegisterAction{
		DeployID: a.r.URL.Query().Get(consts.QueryDeployID),
	}, nil
}

func (a httpAdapter) Run(ctx context.Context) (*adapter.RunAction, error) {
	if a.r.Method != http.MethodPost {
		return nil, nil
	}

	defer a.r.Body.Close()
	byt, err := io.ReadAll(io.LimitReader(a.r.Body, a.maxBody+1))
	if err != nil {
		return nil, publicerr.Wrap(err, http.StatusBadRequest, "error reading request body")
	}
	if int64(len(byt)) > a.maxBody {
		return nil, publicerr.Errorf(http.StatusRequestEntityTooLarge, "request body exceeds %d bytes", a.maxBody)
	}

	q := a.r.URL.Query()
	return &adapter.RunAction{
		Data:      byt,
		FnID:      q.Get(consts.QueryFnID),
		StepID:    q.Get(consts.QueryStepID),
		Signature: a.r.Header.Get(headers.HeaderKeySignature),
	}, nil
}

func (a httpAdapter) View(ctx context.Context) (*adapter.ViewAction, error) {
	if a.r.Method != http.MethodGet {
		return nil, nil
	}
	return &adapter.ViewAction{
		IsIntrospection: a.r.URL.Query().Has(consts.QueryIntrospect),
	}, nil
}
