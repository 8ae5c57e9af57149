package oews

import "errors"

// Error classes. Concrete error types in the parser, validator, API client and
// config packages report one of these through errors.Is.
var (
	// ErrStructural marks a line that cannot be decomposed into its declared fields.
	ErrStructural = errors.New("structural parse error")
	// ErrValidation marks a batch that failed its declared shape.
	ErrValidation = errors.New("validation error")
	// ErrTransport marks a network or HTTP failure talking to the timeseries API.
	ErrTransport = errors.New("transport error")
	// ErrConfiguration marks a missing credential or an invalid tunable.
	ErrConfiguration = errors.New("configuration error")
)
