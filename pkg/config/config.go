// Package config loads the configuration for serving an app.  Values are
// read in priority order:
//
//  1. Config files (lowest priority)
//  2. Environment variables with the INNGEST_ prefix
//  3. CLI flags, applied by the caller via the Flag helpers
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inngest/inngestsdk/pkg/consts"
	"github.com/inngest/inngestsdk/pkg/logger"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"
	"github.com/xhit/go-str2duration/v2"
)

const EnvPrefix = "INNGEST_"

// FileNames are searched for in each directory, in order.
var FileNames = []string{"inngestsdk.json", "inngestsdk.yaml", "inngestsdk.yml"}

type Config struct {
	App       App       `koanf:"app"`
	Serve     Serve     `koanf:"serve"`
	Execution Execution `koanf:"execution"`
	Log       Log       `koanf:"log"`
}

type App struct {
	ID string `koanf:"id"`
}

type Serve struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// Path is the path the serve handler is mounted at.
	Path string `koanf:"path"`
	// Origin is the public origin of the app, eg. https://example.com.  If
	// empty, the origin of each request is used.
	Origin string `koanf:"origin"`
	// RegisterURL is the orchestrator's register endpoint.
	RegisterURL string `koanf:"register_url"`
}

// Addr returns the address to listen on.
func (s Serve) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Execution struct {
	// AsyncBoundary is a duration string, eg. "100ms".
	AsyncBoundary             string `koanf:"async_boundary"`
	DisableImmediateExecution bool   `koanf:"disable_immediate_execution"`
}

// Boundary parses AsyncBoundary, defaulting to consts.DefaultAsyncBoundary.
func (e Execution) Boundary() (time.Duration, error) {
	if e.AsyncBoundary == "" {
		return consts.DefaultAsyncBoundary, nil
	}
	d, err := str2duration.ParseDuration(e.AsyncBoundary)
	if err != nil {
		return 0, fmt.Errorf("invalid execution.async_boundary %q: %w", e.AsyncBoundary, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("execution.async_boundary must be positive, got %q", e.AsyncBoundary)
	}
	return d, nil
}

type Log struct {
	Level   string `koanf:"level"`
	Handler string `koanf:"handler"`
	// File, if set, also receives every log line as JSON.
	File string `koanf:"file"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		App: App{ID: "inngestsdk"},
		Serve: Serve{
			Host:        "0.0.0.0",
			Port:        3000,
			Path:        "/api/inngest",
			RegisterURL: "http://localhost:8288/fn/register",
		},
		Execution: Execution{
			AsyncBoundary: consts.DefaultAsyncBoundary.String(),
		},
		Log: Log{Level: "info", Handler: "dev"},
	}
}

// Loader loads a Config.  Each Loader holds its own koanf instance.
type Loader struct {
	k *koanf.Koanf
	// Dir is the directory from which config files are searched for,
	// walking up to the root.  Defaults to the working directory.
	Dir string
}

func NewLoader() *Loader {
	return &Loader{k: koanf.New(".")}
}

// Load reads the config file at path, or searches for one when path is
// empty, then applies environment variables.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	log := logger.StdlibLogger(ctx)

	if path == "" {
		path = l.search(log)
	}
	if path != "" {
		if err := l.loadFile(path); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		log.Debug("using config", "file", path)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	cfg := Default()
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if _, err := cfg.Execution.Boundary(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// search returns the first config file found from Dir up to the root.
func (l *Loader) search(log logger.Logger) string {
	dir := l.Dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			log.Warn("error getting current directory", "error", err)
			return ""
		}
		dir = cwd
	}

	for {
		for _, name := range FileNames {
			full := filepath.Join(dir, name)
			if _, err := os.Stat(full); err == nil {
				return full
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func (l *Loader) loadFile(path string) error {
	var parser koanf.Parser
	switch filepath.Ext(path) {
	case ".json":
		parser = json.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return fmt.Errorf("config file must be JSON or YAML")
	}
	return l.k.Load(file.Provider(path), parser)
}

// loadEnv maps INNGEST_SERVE__PORT to serve.port.  Single underscores are
// kept, so INNGEST_EXECUTION__ASYNC_BOUNDARY maps to execution.async_boundary.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if !strings.Contains(key, "__") {
			// Only nested keys are config;  eg. INNGEST_DEV is ignored.
			return "", nil
		}
		return strings.ReplaceAll(key, "__", "."), value
	}), nil)
}

// Exists returns whether key was set by a config file or the environment.
func (l *Loader) Exists(key string) bool {
	return l.k.Exists(key)
}

// StringFlag returns the flag's value if it was set explicitly, or current.
func StringFlag(cmd *cli.Command, name, current string) string {
	if cmd.IsSet(name) {
		return cmd.String(name)
	}
	return current
}

func IntFlag(cmd *cli.Command, name string, current int) int {
	if cmd.IsSet(name) {
		return cmd.Int(name)
	}
	return current
}

func BoolFlag(cmd *cli.Command, name string, current bool) bool {
	if cmd.IsSet(name) {
		return cmd.Bool(name)
	}
	return current
}
