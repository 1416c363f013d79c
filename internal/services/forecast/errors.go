package forecast

import "errors"

var (
	// ErrInvalidArgument marks a request the engine refuses to run (non-positive horizon or steps).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrParse marks a malformed period label.
	ErrParse = errors.New("parse error")
)
