package reflux

import "errors"

// Errors returned by feeds and their decoders. Compare with errors.Is.
var (
	// ErrUnknownKind is returned when a message names a kind that was never
	// registered.
	ErrUnknownKind = errors.New("unknown action kind")

	// ErrMissingKind is returned when a message carries no kind.
	ErrMissingKind = errors.New("message has no kind")

	// ErrAlreadyStarted is returned by a second call to Feed.Start.
	ErrAlreadyStarted = errors.New("feed already started")

	// ErrUnknownFormat is returned when a codec is requested by a name other
	// than "json" or "yaml".
	ErrUnknownFormat = errors.New("unknown message format")
)
