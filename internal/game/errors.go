// internal/game/errors.go
package game

// SetupError means the session cannot start: teams not ready, a
// malformed board, or a round already in progress. Surfaced to the
// initiating client only; never fatal.
type SetupError struct {
	Reason string
}

func (e SetupError) Error() string { return "setup: " + e.Reason }

// TurnError means a command arrived outside its required play state.
// The session is left untouched.
type TurnError struct {
	Expected string
	State    PlayState
}

func (e TurnError) Error() string {
	return "wrong turn: expected " + e.Expected + ", state is " + e.State.String()
}

// ActionError means a command violated a role or board guard while in
// the correct state. The session is left untouched.
type ActionError struct {
	Reason string
}

func (e ActionError) Error() string { return "illegal action: " + e.Reason }
