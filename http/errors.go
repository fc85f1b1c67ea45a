package http

import "errors"

var (
	// ErrAssertion marks a contract failure during parsing or
	// parameter validation. The dispatcher maps it to 400.
	ErrAssertion = errors.New("http: assertion failed")

	// ErrNotFound names the case of a resource with no registered
	// handler, which the dispatcher answers with 404. The dispatcher
	// detects that case from Registry.Lookup and does not return this
	// error.
	ErrNotFound = errors.New("http: no handler for resource")
)
