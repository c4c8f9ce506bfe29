package sdk

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/inngest/inngestsdk/pkg/consts"
	"github.com/inngest/inngestsdk/pkg/headers"
	"github.com/inngest/inngestsdk/pkg/syscode"
	"github.com/inngest/inngestsdk/pkg/util"
)

var (
	ErrNoFunctions = fmt.Errorf("No functions registered within your app")
)

type DeployType string

const (
	DeployTypePing DeployType = "ping"
)

// RegisterRequest is sent to the orchestrator to sync every function served
// by the app.
type RegisterRequest struct {
	// V is the version for this request, which lets us upgrade the SDKs
	// and APIs with backwards compatiblity.
	V string `json:"v"`
	// URL represents the entire URL which hosts the functions, eg.
	// https://www.example.com/api/v1/inngest
	URL string `json:"url"`
	// DeployType represents how this was deployed, eg. via a ping.
	DeployType DeployType `json:"deployType"`
	// SDK represents the SDK language and version used for these
	// functions, in the format: "go:v0.1.0"
	SDK string `json:"sdk"`
	// Framework represents the framework used to host these functions.
	Framework string `json:"framework,omitempty"`
	// AppName represents a namespaced app name for each deployed function.
	AppName string `json:"appName"`
	// Functions represents all functions hosted within this deploy.
	Functions []SDKFunction `json:"functions"`
	// Headers holds the environment the app is registered within.
	Headers Headers `json:"headers"`

	// checksum is a memoized field.
	checksum string
}

type Headers struct {
	Env      string `json:"env,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// FromReadCloser decodes a RegisterRequest, eg. from an HTTP request body,
// normalizing its URLs.
func FromReadCloser(r io.ReadCloser, forceHTTPS bool) (RegisterRequest, error) {
	defer r.Close()

	fr := RegisterRequest{}
	if err := json.NewDecoder(r).Decode(&fr); err != nil {
		return fr, err
	}
	fr.Normalize(forceHTTPS)
	return fr, nil
}

func (f *RegisterRequest) Checksum() (string, error) {
	if f.checksum != "" {
		return f.checksum, nil
	}
	byt, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(byt)
	f.checksum = hex.EncodeToString(sum[:])
	return f.checksum, nil
}

func (f RegisterRequest) SDKLanguage() string {
	parts := strings.Split(f.SDK, ":")
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

func (f RegisterRequest) SDKVersion() string {
	parts := strings.Split(f.SDK, ":")
	if len(parts) > 1 {
		return parts[1]
	}
	return ""
}

// Validate checks every function within the request, returning a
// syscode.Error listing each issue.
func (f RegisterRequest) Validate(ctx context.Context) error {
	if len(f.Functions) == 0 {
		return ErrNoFunctions
	}

	// err is a multierror which stores all function and validation errors for easy
	// reporting and debugging.
	var err error

	seen := map[string]struct{}{}
	for _, fn := range f.Functions {
		if _, ok := seen[fn.Slug]; ok {
			err = multierror.Append(err, fmt.Errorf("Duplicate function ID: %s", fn.Slug))
		}
		seen[fn.Slug] = struct{}{}

		if ferr := fn.Validate(ctx); ferr != nil {
			err = multierror.Append(err, ferr)
		}
	}

	if err != nil {
		data := syscode.DataMultiErr{}
		data.Append(err)

		return &syscode.Error{
			Code: syscode.CodeConfigInvalid,
			Data: data,
		}
	}
	return nil
}

// Normalize rewrites the app and step URLs to their canonical form.
func (f *RegisterRequest) Normalize(forceHTTPS bool) {
	f.URL = util.NormalizeAppURL(f.URL, forceHTTPS)

	for _, fn := range f.Functions {
		for _, step := range fn.Steps {
			if stepURL, ok := step.Runtime["url"].(string); ok {
				step.Runtime["url"] = util.NormalizeAppURL(stepURL, forceHTTPS)
			}
		}
	}
	f.checksum = ""
}

// Registrar syncs an app's functions with the orchestrator.
type Registrar interface {
	Register(ctx context.Context, deployID string, r RegisterRequest) error
}

type RegistrarFunc func(ctx context.Context, deployID string, r RegisterRequest) error

func (f RegistrarFunc) Register(ctx context.Context, deployID string, r RegisterRequest) error {
	return f(ctx, deployID, r)
}

// HTTPRegistrar posts registration requests to the orchestrator's register
// endpoint.  Network errors and 5xx responses are retried.
type HTTPRegistrar struct {
	// URL is the register endpoint, eg. http://localhost:8288/fn/register.
	URL    string
	Client *http.Client
	// Retry controls retries.  Defaults to util.NewRetryConf().
	Retry *util.RetryConf
}

// RegisterError is returned when the orchestrator rejects a registration.
type RegisterError struct {
	Status int
	Body   string
}

func (e RegisterError) Error() string {
	return fmt.Sprintf("error registering functions: %d %s", e.Status, e.Body)
}

func (h HTTPRegistrar) Register(ctx context.Context, deployID string, r RegisterRequest) error {
	byt, err := json.Marshal(r)
	if err != nil {
		return err
	}

	u, err := url.Parse(h.URL)
	if err != nil {
		return fmt.Errorf("invalid register url: %w", err)
	}
	if deployID != "" {
		q := u.Query()
		q.Set(consts.QueryDeployID, deployID)
		u.RawQuery = q.Encode()
	}

	conf := util.NewRetryConf()
	if h.Retry != nil {
		conf = *h.Retry
	}
	conf.RetryableErrors = func(err error) bool {
		var rerr RegisterError
		if errors.As(err, &rerr) {
			return rerr.Status >= http.StatusInternalServerError
		}
		return true
	}

	_, err = util.WithRetry(ctx, "register", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.post(ctx, u.String(), r.SDK, byt)
	}, conf)
	return err
}

func (h HTTPRegistrar) post(ctx context.Context, u, sdk string, byt []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(byt))
	if err != nil {
		return err
	}
	req.Header.Set(headers.HeaderKeyContentType, "application/json")
	req.Header.Set(headers.HeaderKeySDK, sdk)

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error registering functions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return RegisterError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}
