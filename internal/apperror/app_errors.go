package apperror

import (
	"errors"
	"fmt"
)

// ErrInvalidMove is the single error kind the engine reports. The reason-specific errors below wrap
// it, so errors.Is(err, ErrInvalidMove) holds for all of them.
var ErrInvalidMove = errors.New("invalid move")

var (
	ErrOutOfRange   = fmt.Errorf("%w: cell is out of range", ErrInvalidMove)
	ErrCellOccupied = fmt.Errorf("%w: cell is already occupied", ErrInvalidMove)
	ErrGameFinished = fmt.Errorf("%w: game is already finished", ErrInvalidMove)
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidBoard    = errors.New("invalid board")
)
