package ctxlog

// Handler is a destination for records. The dispatcher only calls Write for
// records at or above the handler's threshold. Implementations must be safe
// for concurrent use and Close must be idempotent.
type Handler interface {
	// Level returns the threshold, or LevelNotSet to use the dispatcher's.
	Level() Level
	Write(rec *Record) error
	Close() error
}

// HandlerOptions are the settings shared by the builtin handlers.
type HandlerOptions struct {
	Level Level
	// Serialize writes one JSON object per record instead of the human form.
	Serialize bool
	// TimeFormat is a Go time layout or TimeFormatISO.
	TimeFormat string
}

// errorReporter is implemented by handlers that fail outside of Write, such
// as a rotation that could not complete. The dispatcher installs its error
// handler on registration.
type errorReporter interface {
	setErrorReporter(fn func(error))
}
