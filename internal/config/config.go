package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/touchy/internal/engine"
	"github.com/roach88/touchy/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// Config is the contents of a touchy config file.
//
// Every field is optional. Rule fields that are absent keep whatever the
// rule store already holds for the row's key.
type Config struct {
	Database  string                  `yaml:"database"`
	Port      string                  `yaml:"port"`
	Switches  engine.Switches         `yaml:"switches"`
	Decay     Decay                   `yaml:"decay"`
	Domains   engine.Domains          `yaml:"domains"`
	Selectors Selectors               `yaml:"selectors"`
	Rows      map[string][]RuleConfig `yaml:"rows"`
}

// Decay configures pull-back timing. Zero durations take the engine
// defaults.
type Decay struct {
	Tick time.Duration `yaml:"tick"`
	Idle time.Duration `yaml:"idle"`
}

// Selectors holds the initial key selector fields per row.
type Selectors struct {
	Tablet map[string]string `yaml:"tablet"`
	Mouse  map[string]string `yaml:"mouse"`
}

// RuleConfig overrides the fields of the rule bound to Axis.
type RuleConfig struct {
	Axis        ir.Axis  `yaml:"axis"`
	Enabled     *bool    `yaml:"enabled"`
	Channel     *int     `yaml:"channel"`
	MessageType *string  `yaml:"message_type"`
	ControlType *string  `yaml:"control_type"`
	RangeFrom   *int     `yaml:"range_from"`
	RangeTo     *int     `yaml:"range_to"`
	Threshold   *float64 `yaml:"threshold"`
	Step        *int     `yaml:"step"`
	Value       *int     `yaml:"value"`
	PullBack    *bool    `yaml:"pull_back"`
}

// Default returns the config used when no file is given.
func Default() *Config {
	return &Config{Switches: engine.DefaultSwitches()}
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	}
	return Parse(path, data)
}

// Parse checks data against the config schema and decodes it. filename
// is only used in error positions.
func Parse(filename string, data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	if err := checkSchema(filename, data); err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: err.Error()}
	}
	return cfg, nil
}

// checkSchema unifies the YAML document with #Config from the embedded
// schema.
func checkSchema(filename string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return formatCUEError(ErrCodeSyntax, err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return formatCUEError(ErrCodeSyntax, err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(ErrCodeSchema, err)
	}
	return nil
}

// Load error codes.
const (
	ErrCodeNotFound = "CONFIG_NOT_FOUND"
	ErrCodeSyntax   = "CONFIG_SYNTAX"
	ErrCodeSchema   = "CONFIG_SCHEMA"
	ErrCodeDecode   = "CONFIG_DECODE"
)

// LoadError reports a config file that could not be read or does not
// match the schema.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(code string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// IsLoadError reports whether err is a *LoadError with the given code.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Code == code
}
