package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a chat session does not exist for the user.
	ErrSessionNotFound = errors.New("chat session not found")

	// ErrProfileNotFound is returned when the user has no profile yet.
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrCompactionFailed wraps summarization failures. The prior summary is
	// kept when it occurs.
	ErrCompactionFailed = errors.New("context compaction failed")

	// ErrMalformedReply is wrapped when the model's first reply carried
	// neither text nor a tool request.
	ErrMalformedReply = errors.New("malformed model reply")
)

// ModelError reports a failure talking to the model at one stage of a turn.
type ModelError struct {
	Stage State
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model communication failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the session or profile is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrProfileNotFound)
}
