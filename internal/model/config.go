package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	_ "embed"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 80

	// Unbounded is the concurrency limit meaning no bound at all.
	Unbounded int64 = 0
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

// Duration is a time.Duration which (un)marshals as a Go duration string.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration %s is negative", s)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config is the startup configuration. It is loaded once, validated and
// never mutated afterwards, so requests share it without synchronization.
type Config struct {
	Host              string        `json:"host,omitempty"`
	Port              int           `json:"port,omitempty"`
	ExecutablePath    string        `json:"executablePath"`
	MaxConcurrency    *int          `json:"maxConcurrency,omitempty"`
	Concurrent        *bool         `json:"concurrent,omitempty"`
	InvocationTimeout Duration      `json:"invocationTimeout,omitempty"`
	AllowedParameters []string      `json:"allowedParameters,omitempty"`
	DefaultParameters DefaultParams `json:"defaultParameters,omitempty"`
}

// ConcurrencyLimit folds both configuration spellings into one number:
// a positive bound, or Unbounded. The legacy concurrent flag maps false to
// a bound of exactly 1 and true to Unbounded. -1 or nothing at all means
// Unbounded too.
func (c Config) ConcurrencyLimit() int64 {
	switch {
	case c.MaxConcurrency != nil:
		if *c.MaxConcurrency < 1 {
			return Unbounded
		}
		return int64(*c.MaxConcurrency)
	case c.Concurrent != nil:
		if *c.Concurrent {
			return Unbounded
		}
		return 1
	default:
		return Unbounded
	}
}

// Timeout returns the per-invocation deadline, zero meaning none.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.InvocationTimeout)
}

// VerifyExecutable checks that the wrapped executable exists and carries an
// execute bit. Called once before the server starts accepting requests, so
// an obviously dead configuration fails fast instead of producing a 500 per
// request.
func (c Config) VerifyExecutable() error {
	info, err := os.Stat(c.ExecutablePath)
	if err != nil {
		return fmt.Errorf("executablePath: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("executablePath %s is a directory", c.ExecutablePath)
	}
	if info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("executablePath %s is not executable", c.ExecutablePath)
	}
	return nil
}

// LoadConfig validates the JSON document from r against the CUE schema and
// decodes it into a Config. Decoding goes through encoding/json rather than
// the unified CUE value because defaultParameters must keep its document
// key order.
func LoadConfig(r io.Reader) (Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}

	expr, err := cuejson.Extract("microwrap.json", raw)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	doc := cueCtx.BuildExpr(expr)
	if doc.Err() != nil {
		return Config{}, doc.Err()
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := json.Unmarshal(raw, &out); err != nil {
		return Config{}, err
	}

	if out.MaxConcurrency != nil && out.Concurrent != nil {
		return Config{}, errors.New("maxConcurrency and concurrent are mutually exclusive")
	}

	// schema defaults, mirrored here since decoding bypasses the CUE value
	if out.Host == "" {
		out.Host = DefaultHost
	}
	if out.Port == 0 {
		out.Port = DefaultPort
	}

	return out, nil
}

// WriteConfig stores cfg as an indented JSON document.
func WriteConfig(w io.Writer, cfg Config) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// DefaultConfig is the sample configuration written on first run. It wraps
// /bin/echo so a fresh install answers requests out of the box.
func DefaultConfig() Config {
	var defaults DefaultParams
	defaults.Set("greeting", StringValue("hello"))

	return Config{
		Host:              DefaultHost,
		Port:              8080,
		ExecutablePath:    "/bin/echo",
		AllowedParameters: []string{"greeting"},
		DefaultParameters: defaults,
	}
}
