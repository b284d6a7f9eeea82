package rotate

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
)

// Compression selects how backups are compressed.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZip  Compression = "zip"
)

// Ext returns the file extension appended to compressed backups.
func (c Compression) Ext() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionZip:
		return ".zip"
	default:
		return ""
	}
}

func (c Compression) enabled() bool {
	return c == CompressionGzip || c == CompressionZip
}

// Engine selects the Rotator implementation.
type Engine string

const (
	EngineBuiltin    Engine = "builtin"
	EngineLumberjack Engine = "lumberjack"
)

// DefaultKeep is the number of backups retained by DefaultConfig.
const DefaultKeep = 5

// Config describes when and how a file is rotated.
//
// Size and time triggers are exclusive in effect: when a size trigger is
// configured the Time setting is ignored.
type Config struct {
	// SizeBytes rotates once the next write would grow the file past it.
	SizeBytes int64 `koanf:"size_bytes" json:"size_bytes,omitempty" validate:"gte=0"`

	// Size is SizeBytes in human form ("20MB", "512KiB", "10B"). SizeBytes
	// takes precedence when both are set.
	Size string `koanf:"size" json:"size,omitempty" validate:"omitempty,bytesize"`

	// Time is the daily rotation boundary as "HH:MM" (24h, local time).
	Time string `koanf:"time" json:"time,omitempty" validate:"omitempty,clock"`

	// Keep bounds the number of backups. 0 keeps none.
	Keep int `koanf:"keep" json:"keep" validate:"gte=0,lte=1024"`

	Compression Compression `koanf:"compression" json:"compression,omitempty" validate:"omitempty,oneof=none gzip zip"`

	Engine Engine `koanf:"engine" json:"engine,omitempty" validate:"omitempty,oneof=builtin lumberjack"`

	// MaxAgeDays additionally prunes backups by age. Only honoured by the
	// lumberjack engine, which also requires Keep >= 1.
	MaxAgeDays int `koanf:"max_age_days" json:"max_age_days,omitempty" validate:"gte=0"`
}

// DefaultConfig returns a config without triggers that keeps DefaultKeep
// uncompressed backups.
func DefaultConfig() Config {
	return Config{
		Keep:        DefaultKeep,
		Compression: CompressionNone,
		Engine:      EngineBuiltin,
	}
}

// MaxBytes resolves the size trigger. Zero means no size trigger.
func (c Config) MaxBytes() (int64, error) {
	if c.SizeBytes > 0 {
		return c.SizeBytes, nil
	}
	if c.Size == "" {
		return 0, nil
	}
	n, err := parseSize(c.Size)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Validate checks field ranges and engine specific restrictions.
func (c Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Engine != EngineLumberjack {
		return nil
	}

	maxBytes, err := c.MaxBytes()
	if err != nil {
		return err
	}
	if maxBytes == 0 {
		return fmt.Errorf("%w: lumberjack requires a size trigger", ErrUnsupported)
	}
	if c.Time != "" {
		return fmt.Errorf("%w: lumberjack cannot rotate on time", ErrUnsupported)
	}
	if c.Compression == CompressionZip {
		return fmt.Errorf("%w: lumberjack only compresses with gzip", ErrUnsupported)
	}
	// lumberjack reads MaxBackups 0 as "keep every backup"
	if c.Keep == 0 {
		return fmt.Errorf("%w: lumberjack needs keep >= 1", ErrUnsupported)
	}
	return nil
}

var (
	validate *validator.Validate
	once     sync.Once
)

func validatorInstance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// registration only fails for empty tags or nil funcs
		_ = RegisterValidators(validate)
	})
	return validate
}

// RegisterValidators adds the "clock" (HH:MM) and "bytesize" ("20MB") tags
// used by Config to v, so structs embedding a Config can be validated in one
// pass.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, _, err := parseClock(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}
	return v.RegisterValidation("bytesize", func(fl validator.FieldLevel) bool {
		n, err := parseSize(fl.Field().String())
		return err == nil && n > 0
	})
}

// parseClock accepts "HH:MM" and the dotted "HH.MM" form.
func parseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, ":.")
	if sep <= 0 || sep == len(s)-1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err = strconv.Atoi(s[:sep])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrInvalidTime, s)
	}
	minute, err = strconv.Atoi(s[sep+1:])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrInvalidTime, s)
	}
	return hour, minute, nil
}

func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSize, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidSize, s)
	}
	return int64(n), nil
}
