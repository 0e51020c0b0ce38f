package services

import (
	"errors"
	"fmt"
)

// ErrSetup marks a failure that stops a run before any object is processed:
// configuration, secret access, storage authentication or listing.
var ErrSetup = errors.New("transcriber setup failed")

// ErrEmptyTranscription is reported when the model returned no text for an object.
var ErrEmptyTranscription = errors.New("empty transcription")

func setupError(message string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSetup, message, err)
}

// Stages at which a single object can fail.
const (
	StageTranscribe = "transcribe"
	StageWrite      = "write"
)

// ItemError is a contained failure for one source object. The run continues past it.
type ItemError struct {
	Object string
	Stage  string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Object, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
