package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrConfiguration = fmt.Errorf("invalid configuration")

	// Search errors
	ErrTransport = fmt.Errorf("transport failure")
	ErrProtocol  = fmt.Errorf("protocol failure")
	ErrParse     = fmt.Errorf("parse failure")
	ErrCanceled  = fmt.Errorf("canceled")
	ErrNotFound  = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
