package ctxlog

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	smerrors "github.com/Station-Manager/errors"
	"github.com/czechbol/ctxlog/rotate"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config is the declarative form of a Dispatcher and its handlers. Without
// any console or file section it builds a single console handler.
//
// In YAML, quote rotation times ("00:00"); an unquoted 00.00 is a number.
// A rotation section loaded by ParseConfig starts from rotate.DefaultConfig,
// so leaving out keep retains rotate.DefaultKeep backups.
type Config struct {
	Level             string         `koanf:"level" json:"level,omitempty" validate:"omitempty,oneof=debug info warning warn error critical"`
	Debug             bool           `koanf:"debug" json:"debug,omitempty"`
	TimeFormat        string         `koanf:"time_format" json:"time_format,omitempty"`
	ShutdownTimeoutMS int            `koanf:"shutdown_timeout_ms" json:"shutdown_timeout_ms,omitempty" validate:"gte=0"`
	Console           *ConsoleConfig `koanf:"console" json:"console,omitempty"`
	Files             []FileConfig   `koanf:"files" json:"files,omitempty" validate:"dive"`
}

type ConsoleConfig struct {
	Level      string `koanf:"level" json:"level,omitempty" validate:"omitempty,oneof=debug info warning warn error critical"`
	Serialize  bool   `koanf:"serialize" json:"serialize,omitempty"`
	TimeFormat string `koanf:"time_format" json:"time_format,omitempty"`
	Color      string `koanf:"color" json:"color,omitempty" validate:"omitempty,oneof=auto always never"`
	Stream     string `koanf:"stream" json:"stream,omitempty" validate:"omitempty,oneof=stdout stderr split"`
}

type FileConfig struct {
	Level string `koanf:"level" json:"level,omitempty" validate:"omitempty,oneof=debug info warning warn error critical"`
	// Serialize defaults to true for files.
	Serialize  *bool          `koanf:"serialize" json:"serialize,omitempty"`
	TimeFormat string         `koanf:"time_format" json:"time_format,omitempty"`
	Path       string         `koanf:"path" json:"path" validate:"required"`
	Rotation   *rotate.Config `koanf:"rotation" json:"rotation,omitempty"`
}

// Config formats accepted by ParseConfig.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// LoadConfig reads a YAML (.yaml, .yml) or JSON (.json) file.
func LoadConfig(path string) (*Config, error) {
	const op smerrors.Op = "ctxlog.LoadConfig"
	format, err := detectFormat(path)
	if err != nil {
		return nil, smerrors.New(op).Err(err).Msg(errMsgLoadConfig)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, smerrors.New(op).Err(err).Msg(errMsgLoadConfig)
	}
	return ParseConfig(data, format)
}

// ParseConfig decodes data in the given format and validates the result.
// Empty data yields the zero Config.
func ParseConfig(data []byte, format string) (*Config, error) {
	const op smerrors.Op = "ctxlog.ParseConfig"

	var parser koanf.Parser
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, smerrors.New(op).Err(fmt.Errorf("%w: %q", ErrUnknownFormat, format)).Msg(errMsgLoadConfig)
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, smerrors.New(op).Err(err).Msg(errMsgLoadConfig)
		}
	}

	cfg := &Config{}
	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				rotationDefaultsHook,
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", cfg, conf); err != nil {
		return nil, smerrors.New(op).Err(err).Msg(errMsgLoadConfig)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var rotateConfigType = reflect.TypeOf(rotate.Config{})

// rotationDefaultsHook fills the keys a rotation section leaves out from
// rotate.DefaultConfig, so an omitted keep retains backups.
func rotationDefaultsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() == reflect.Pointer {
		to = to.Elem()
	}
	section, ok := data.(map[string]any)
	if to != rotateConfigType || !ok {
		return data, nil
	}
	def := rotate.DefaultConfig()
	defaults := map[string]any{
		"keep":        def.Keep,
		"compression": string(def.Compression),
		"engine":      string(def.Engine),
	}
	out := make(map[string]any, len(section)+len(defaults))
	for key, val := range section {
		out[key] = val
		for name := range defaults {
			if strings.EqualFold(key, name) {
				delete(defaults, name)
			}
		}
	}
	for name, val := range defaults {
		out[name] = val
	}
	return out, nil
}

func detectFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: extension %q", ErrUnknownFormat, ext)
	}
}

// Build validates c and returns a dispatcher with its handlers, consoles
// first. Extra options are applied after the ones derived from c. Handlers
// opened before a failure are closed again.
func (c *Config) Build(opts ...Option) (*Dispatcher, error) {
	const op smerrors.Op = "ctxlog.Config.Build"
	if err := validateConfig(c); err != nil {
		return nil, err
	}

	var handlers []Handler
	fail := func(err error) (*Dispatcher, error) {
		for _, h := range handlers {
			_ = h.Close()
		}
		return nil, smerrors.New(op).Err(err).Msg(errMsgBuildHandler)
	}

	if cc := c.Console; cc != nil {
		handlers = append(handlers, NewConsoleHandler(ConsoleOptions{
			HandlerOptions: HandlerOptions{
				Level:      levelOrNotSet(cc.Level),
				Serialize:  cc.Serialize,
				TimeFormat: firstNonEmpty(cc.TimeFormat, c.TimeFormat),
			},
			Color:  ColorMode(cc.Color),
			Stream: Stream(cc.Stream),
		}))
	}
	for _, fc := range c.Files {
		serialize := true
		if fc.Serialize != nil {
			serialize = *fc.Serialize
		}
		h, err := NewFileHandler(FileOptions{
			HandlerOptions: HandlerOptions{
				Level:      levelOrNotSet(fc.Level),
				Serialize:  serialize,
				TimeFormat: firstNonEmpty(fc.TimeFormat, c.TimeFormat),
			},
			Path:     fc.Path,
			Rotation: fc.Rotation,
		})
		if err != nil {
			return fail(err)
		}
		handlers = append(handlers, h)
	}
	if len(handlers) == 0 {
		handlers = append(handlers, NewConsoleHandler(ConsoleOptions{
			HandlerOptions: HandlerOptions{TimeFormat: c.TimeFormat},
		}))
	}

	level := LevelInfo
	if c.Level != "" {
		level = levelOrNotSet(c.Level)
	}
	dopts := []Option{
		WithLevel(level),
		WithDebug(c.Debug),
		WithHandlers(handlers...),
	}
	if c.ShutdownTimeoutMS > 0 {
		dopts = append(dopts, WithShutdownTimeout(time.Duration(c.ShutdownTimeoutMS)*time.Millisecond))
	}
	return NewDispatcher(append(dopts, opts...)...), nil
}

// levelOrNotSet parses a level that validation already accepted.
func levelOrNotSet(s string) Level {
	l, err := ParseLevel(s)
	if err != nil {
		return LevelNotSet
	}
	return l
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
