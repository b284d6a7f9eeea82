package ctxlog

import "errors"

const (
	errMsgNilConfig     = "Logging config is nil."
	errMsgConfigInvalid = "Logging configuration is invalid."
	errMsgEmptyPath     = "Log file path is empty."
	errMsgCreateDir     = "Failed to create the log directory."
	errMsgOpenFile      = "Failed to open the log file."
	errMsgLoadConfig    = "Failed to load the logging configuration."
	errMsgBuildHandler  = "Failed to build a log handler."
)

var errNilDispatcher = errors.New("ctxlog: nil dispatcher")
