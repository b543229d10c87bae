package engine

import "errors"

var (
	// ErrInvalidState is returned when a command is not allowed in the current phase.
	ErrInvalidState = errors.New("invalid state")
	// ErrCorruptState is returned when an update would leave the game state
	// outside its bounds. The update is discarded.
	ErrCorruptState = errors.New("corrupt state")
	// ErrStopped is returned for commands sent after the engine loop exited.
	ErrStopped = errors.New("engine stopped")
)
