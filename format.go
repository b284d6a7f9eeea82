package ctxlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Keys of the structured form. User fields that collide with one of them are
// written with a leading underscore.
const (
	KeyLevel     = "level"
	KeyEvent     = "event"
	KeyTimestamp = "timestamp"
	KeyStartTime = "start_time"
	KeyException = "exception"
	KeyChildren  = "children"
	KeyMessage   = "message"
)

var reservedKeys = map[string]bool{
	KeyLevel:     true,
	KeyEvent:     true,
	KeyTimestamp: true,
	KeyStartTime: true,
	KeyException: true,
	KeyChildren:  true,
	KeyMessage:   true,
}

// TimeFormatISO selects RFC 3339 with nanoseconds.
const TimeFormatISO = "iso"

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorCyan    = "\x1b[36m"
	colorBoldRed = "\x1b[1;31m"
)

// Formatter turns records into bytes. It has no state besides its settings
// and the same record always serializes to the same bytes.
type Formatter struct {
	// TimeFormat is a Go time layout or TimeFormatISO (the default).
	TimeFormat string
	// Color adds ANSI colors to the human form.
	Color bool
}

// Serialize renders rec as one JSON line, or as a human readable block when
// humanReadable is set. The output ends with a newline.
func (f Formatter) Serialize(rec *Record, humanReadable bool) ([]byte, error) {
	if rec == nil {
		return nil, errors.New("ctxlog: serialize nil record")
	}
	if !humanReadable {
		return f.structured(rec, true), nil
	}
	return f.human(rec)
}

// human renders every record of the tree once, in pre-order, indenting each
// block two spaces per level.
func (f Formatter) human(rec *Record) ([]byte, error) {
	var out, block bytes.Buffer
	var err error
	rec.Walk(func(r *Record, depth int) bool {
		if err != nil {
			return false
		}
		block.Reset()
		w := f.consoleWriter(&block, r)
		if _, err = w.Write(f.structured(r, false)); err != nil {
			return false
		}
		indent := strings.Repeat("  ", depth)
		for _, line := range strings.SplitAfter(block.String(), "\n") {
			if line == "" {
				continue
			}
			out.WriteString(indent)
			out.WriteString(line)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("ctxlog: render record: %w", err)
	}
	return out.Bytes(), nil
}

func (f Formatter) layout() string {
	if f.TimeFormat == "" || f.TimeFormat == TimeFormatISO {
		return time.RFC3339Nano
	}
	return f.TimeFormat
}

// structured writes rec as one JSON line, its subtree included when
// children is set.
func (f Formatter) structured(rec *Record, children bool) []byte {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := logger.Log()
	f.appendRecord(e, rec, children)
	e.Msg(rec.Message)
	return buf.Bytes()
}

// appendRecord writes everything but the message, which zerolog puts last.
func (f Formatter) appendRecord(e *zerolog.Event, rec *Record, children bool) {
	if rec.Level != LevelNotSet {
		e.Str(KeyLevel, rec.Level.String())
	}
	e.Str(KeyEvent, rec.Name)
	if !rec.Time.IsZero() {
		e.Str(KeyTimestamp, rec.Time.Format(f.layout()))
	}
	if !rec.StartTime.IsZero() {
		e.Str(KeyStartTime, rec.StartTime.Format(f.layout()))
	}
	for _, field := range rec.Fields {
		f.appendField(e, fieldKey(field.Key), field.Value)
	}
	if rec.Error != nil {
		e.Dict(KeyException, exceptionDict(rec.Error))
	}
	if children && len(rec.Children) > 0 {
		arr := zerolog.Arr()
		for _, child := range rec.Children {
			d := zerolog.Dict()
			f.appendRecord(d, child, true)
			if child.Message != "" {
				d.Str(KeyMessage, child.Message)
			}
			arr.Dict(d)
		}
		e.Array(KeyChildren, arr)
	}
}

func fieldKey(key string) string {
	if reservedKeys[key] {
		return "_" + key
	}
	return key
}

func (f Formatter) appendField(e *zerolog.Event, key string, val any) {
	switch v := val.(type) {
	case nil:
		e.Interface(key, nil)
	case string:
		e.Str(key, v)
	case int:
		e.Int(key, v)
	case int64:
		e.Int64(key, v)
	case int32:
		e.Int32(key, v)
	case uint:
		e.Uint(key, v)
	case uint64:
		e.Uint64(key, v)
	case float64:
		e.Float64(key, v)
	case float32:
		e.Float32(key, v)
	case bool:
		e.Bool(key, v)
	case time.Duration:
		e.Str(key, v.String())
	case time.Time:
		e.Str(key, v.Format(f.layout()))
	case error:
		e.Str(key, v.Error())
	case fmt.Stringer:
		e.Stringer(key, v)
	default:
		e.Interface(key, v)
	}
}

func exceptionDict(info *ErrorInfo) *zerolog.Event {
	d := zerolog.Dict().
		Str("type", info.Type).
		Str("value", info.Message)
	if len(info.Chain) > 1 {
		d.Strs("chain", info.Chain)
		d.Strs("ops", info.Ops)
	}
	if info.Root != "" {
		d.Str("root", info.Root)
	}
	if info.RootOp != "" {
		d.Str("root_op", info.RootOp)
	}
	if len(info.Stack) > 0 {
		d.Strs("traceback", info.Stack)
	}
	return d
}

// consoleWriter renders the structured line of rec as
// "<timestamp> [LEVEL] <event>: <message> k=v", followed by the exception
// and the "Child logs:" heading.
func (f Formatter) consoleWriter(out io.Writer, rec *Record) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:              out,
		NoColor:          !f.Color,
		PartsOrder:       []string{KeyTimestamp, KeyLevel, KeyMessage},
		FieldsExclude:    []string{KeyTimestamp, KeyEvent, KeyStartTime, KeyException, KeyChildren},
		FormatLevel:      f.formatLevel,
		FormatFieldValue: formatFieldValue,
		FormatPrepare: func(evt map[string]any) error {
			for k, v := range evt {
				if v == nil {
					evt[k] = "null"
				}
			}
			name, _ := evt[KeyEvent].(string)
			msg, _ := evt[KeyMessage].(string)
			if msg != "" {
				evt[KeyMessage] = name + ": " + msg
			} else {
				evt[KeyMessage] = name
			}
			return nil
		},
		FormatExtra: func(_ map[string]any, buf *bytes.Buffer) error {
			return f.writeExtra(buf, rec)
		},
	}
}

func (f Formatter) formatLevel(i any) string {
	s, ok := i.(string)
	if !ok || s == "" {
		return ""
	}
	label := "[" + strings.ToUpper(s) + "]"
	if !f.Color {
		return label
	}
	lvl, err := ParseLevel(s)
	if err != nil {
		return label
	}
	return levelColor(lvl) + label + colorReset
}

func levelColor(l Level) string {
	switch {
	case l >= LevelCritical:
		return colorBoldRed
	case l >= LevelError:
		return colorRed
	case l >= LevelWarning:
		return colorYellow
	case l >= LevelInfo:
		return colorGreen
	default:
		return colorCyan
	}
}

// formatFieldValue prints strings bare and everything else as JSON. Missing
// parts arrive as nil and print nothing.
func formatFieldValue(i any) string {
	switch v := i.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		// already JSON: ConsoleWriter hands over InterfaceMarshalFunc output
		return string(v)
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func (f Formatter) writeExtra(buf *bytes.Buffer, rec *Record) error {
	if info := rec.Error; info != nil {
		buf.WriteString("\nException: ")
		buf.WriteString(info.Type)
		buf.WriteString(": ")
		buf.WriteString(info.Message)
		if len(info.Chain) > 1 {
			for _, cause := range info.Chain[1:] {
				buf.WriteString("\n  caused by: ")
				buf.WriteString(cause)
			}
		}
		if len(info.Stack) > 0 {
			buf.WriteString("\nTraceback:")
			for _, frame := range info.Stack {
				fn, loc, _ := strings.Cut(frame, "\n\t")
				buf.WriteString("\n  ")
				buf.WriteString(fn)
				if loc != "" {
					buf.WriteString("\n      ")
					buf.WriteString(loc)
				}
			}
		}
	}

	// the children follow as their own blocks, see human
	if len(rec.Children) > 0 {
		buf.WriteString("\nChild logs:")
	}
	return nil
}
