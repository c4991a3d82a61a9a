package registry

import "errors"

// Sentinel errors for the join path. Each maps to a distinct HTTP status in
// the handlers so clients can render precise feedback.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("maximum number of users already joined")
	ErrNameTaken       = errors.New("username already taken")
	ErrInvalidPassword = errors.New("invalid password")
)

// ValidationError reports malformed client input: missing username, short
// password, out-of-range capacity. Never fatal to the process.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
