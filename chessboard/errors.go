package chessboard

import "errors"

var (
	ErrInvalidFEN         = errors.New("invalid FEN placement")
	ErrInvalidColor       = errors.New("invalid color")
	ErrInvalidSquare      = errors.New("invalid square")
	ErrInvalidSquareSize  = errors.New("square size must be positive")
	ErrInvalidAnimation   = errors.New("invalid animation policy")
	ErrInvalidDragPolicy  = errors.New("invalid draggable policy")
	ErrInvalidMovableSide = errors.New("invalid movable color")
)
