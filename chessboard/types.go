package chessboard

import (
	"log/slog"
	"regexp"
)

var log = slog.Default().With("package", "chessboard")

// Color is a side of the board.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opposite returns the other side.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// Valid reports whether c is white or black.
func (c Color) Valid() bool {
	return c == White || c == Black
}

// Role is the kind of a piece.
type Role string

const (
	Pawn   Role = "pawn"
	Knight Role = "knight"
	Bishop Role = "bishop"
	Rook   Role = "rook"
	Queen  Role = "queen"
	King   Role = "king"
)

// Roles lists every role in FEN letter order of importance.
var Roles = []Role{Pawn, Knight, Bishop, Rook, Queen, King}

// Valid reports whether r is one of the six chess roles.
func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Piece is an immutable color and role pair. Identity is tracked separately by index.
type Piece struct {
	Color Color `json:"color"`
	Role  Role  `json:"role"`
}

// Square is an algebraic square name such as "e4". The zero value is the empty square,
// which every operation treats as "no square".
type Square string

var squarePattern = regexp.MustCompile(`^[a-h][1-8]$`)

// ParseSquare returns s as a Square, or "" when it is not a valid square name.
func ParseSquare(s string) Square {
	if squarePattern.MatchString(s) {
		return Square(s)
	}
	return ""
}

// Valid reports whether sq names a square on the board.
func (sq Square) Valid() bool {
	return squarePattern.MatchString(string(sq))
}

// File returns the 0-based file (a=0).
func (sq Square) File() int {
	return int(sq[0] - 'a')
}

// Rank returns the 0-based rank (1=0).
func (sq Square) Rank() int {
	return int(sq[1] - '1')
}

func squareAt(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return ""
	}
	return Square([]byte{byte('a' + file), byte('1' + rank)})
}

// AllSquares lists a1..h8, file-major.
func AllSquares() []Square {
	squares := make([]Square, 0, 64)
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			squares = append(squares, squareAt(file, rank))
		}
	}
	return squares
}

// Move is a logical move from one square to another.
type Move struct {
	From Square `json:"from"`
	To   Square `json:"to"`
	// Slot tags the move for last-move highlight 1, 2 or 3 in a batch. Zero means untagged.
	Slot int `json:"lastMove,omitempty"`
	// Skip records the highlight of a batch entry without moving any piece.
	Skip bool `json:"skip,omitempty"`
}

// IsZero reports whether m is the empty move.
func (m Move) IsZero() bool {
	return m.From == "" && m.To == ""
}

// Dests maps an origin square to its legal destination squares.
type Dests map[Square][]Square

// Has reports whether to is a destination of from.
func (d Dests) Has(from, to Square) bool {
	for _, sq := range d[from] {
		if sq == to {
			return true
		}
	}
	return false
}

func containsSquare(squares []Square, sq Square) bool {
	for _, s := range squares {
		if s == sq {
			return true
		}
	}
	return false
}
