package core

import (
	"errors"
	"fmt"
)

// Error taxonomy for the forge boundary. Transport errors are surfaced to the
// caller and never retried at this layer; signature and validation errors
// reject the request before any state is created.
var (
	ErrTransport      = errors.New("forge transport error")
	ErrSignature      = errors.New("webhook signature mismatch")
	ErrValidation     = errors.New("malformed webhook payload")
	ErrNotImplemented = errors.New("provider not implemented")
)

// PartialSubmitError reports a review submission that failed after some line
// comments had already been posted to the forge.
type PartialSubmitError struct {
	Submitted int
	Total     int
	Err       error
}

func (e *PartialSubmitError) Error() string {
	return fmt.Sprintf("review submission failed after %d/%d comments were posted: %v",
		e.Submitted, e.Total, e.Err)
}

func (e *PartialSubmitError) Unwrap() error { return e.Err }
