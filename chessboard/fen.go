package chessboard

import (
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var roleByLetter = map[byte]Role{
	'p': Pawn,
	'n': Knight,
	'b': Bishop,
	'r': Rook,
	'q': Queen,
	'k': King,
}

var letterByRole = map[Role]byte{
	Pawn:   'p',
	Knight: 'n',
	Bishop: 'b',
	Rook:   'r',
	Queen:  'q',
	King:   'k',
}

// placementField returns the first space-delimited field of a FEN string.
func placementField(fen string) string {
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		return fen[:i]
	}
	return fen
}

// walkPlacement calls fn for every piece letter of a placement field, top rank first.
func walkPlacement(fen string, fn func(sq Square, c byte)) {
	field := placementField(fen)
	row, col := 0, 0
	for i := 0; i < len(field); i++ {
		c := field[i]
		switch {
		case c == '/':
			row++
			col = 0
		case c >= '0' && c <= '9':
			col += int(c - '0')
		default:
			if sq := CoordsToNotation(Coords{col, row}); sq != "" {
				fn(sq, c)
			}
			col++
		}
	}
}

func pieceFromLetter(c byte) (Piece, bool) {
	lower := c | 0x20
	role, ok := roleByLetter[lower]
	if !ok {
		return Piece{}, false
	}
	color := Black
	if c != lower {
		color = White
	}
	return Piece{Color: color, Role: role}, true
}

// Letter returns the FEN letter of p: uppercase for white, lowercase for black.
func (p Piece) Letter() byte {
	c, ok := letterByRole[p.Role]
	if !ok {
		return '?'
	}
	if p.Color == White {
		return c &^ 0x20
	}
	return c
}

// ParseFEN reads the placement field of fen and assigns identity indices in encounter
// order. It returns both views of the position and the number of pieces read.
// Unknown letters consume a file and place nothing.
func ParseFEN(fen string) (BoardMap, IndexMap, int) {
	squares := make(BoardMap)
	indexes := make(IndexMap)
	next := 0
	walkPlacement(fen, func(sq Square, c byte) {
		piece, ok := pieceFromLetter(c)
		if !ok {
			return
		}
		squares[sq] = IndexedPiece{Piece: piece, Index: next}
		indexes[next] = PlacedPiece{Piece: piece, Square: sq}
		next++
	})
	return squares, indexes, next
}

// ParsePlacement reads the placement field of fen without identity indices.
func ParsePlacement(fen string) map[Square]Piece {
	pieces := make(map[Square]Piece)
	walkPlacement(fen, func(sq Square, c byte) {
		if piece, ok := pieceFromLetter(c); ok {
			pieces[sq] = piece
		}
	})
	return pieces
}

// EncodeFEN writes the placement field for pieces, rank 8 first, run-length encoding
// empty squares.
func EncodeFEN(pieces map[Square]Piece) string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece, ok := pieces[squareAt(file, rank)]
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(piece.Letter())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// KingSquare returns the square of color's king in fen, or "" when there is none.
func KingSquare(fen string, color Color) Square {
	want := Piece{Color: color, Role: King}.Letter()
	var found Square
	walkPlacement(fen, func(sq Square, c byte) {
		if found == "" && c == want {
			found = sq
		}
	})
	return found
}
