package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrInvalidNumber is reported by the number validator.
	ErrInvalidNumber = errors.New("prompt: value must be a number")
)
