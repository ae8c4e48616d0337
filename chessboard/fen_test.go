package chessboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFEN(t *testing.T) {
	t.Run("Start position", func(t *testing.T) {
		squares, indexes, count := ParseFEN(StartFEN)
		require.Equal(t, 32, count)
		assert.Len(t, squares, 32)
		assert.Len(t, indexes, 32)

		// encounter order starts at a8
		assert.Equal(t, IndexedPiece{Piece: Piece{Black, Rook}, Index: 0}, squares["a8"])
		assert.Equal(t, IndexedPiece{Piece: Piece{Black, Knight}, Index: 1}, squares["b8"])
		assert.Equal(t, IndexedPiece{Piece: Piece{White, Rook}, Index: 31}, squares["h1"])
		assert.Equal(t, Square("e1"), indexes[28].Square)

		for sq, p := range squares {
			assert.Equal(t, sq, indexes[p.Index].Square)
			assert.Equal(t, p.Piece, indexes[p.Index].Piece)
		}
	})

	t.Run("Unknown letters consume a file", func(t *testing.T) {
		squares, _, count := ParseFEN("x6k/8/8/8/8/8/8/K7")
		assert.Equal(t, 2, count)
		assert.Equal(t, Piece{Black, King}, squares["h8"].Piece)
		_, ok := squares["a8"]
		assert.False(t, ok)
	})

	t.Run("Empty", func(t *testing.T) {
		squares, indexes, count := ParseFEN("8/8/8/8/8/8/8/8")
		assert.Zero(t, count)
		assert.Empty(t, squares)
		assert.Empty(t, indexes)
	})
}

func TestEncodeFEN(t *testing.T) {
	for _, fen := range []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR",
		"8/8/8/8/8/8/8/8",
		"r3k2r/8/8/3pP3/8/8/8/R3K2R",
		"7k/8/8/8/8/8/8/K7",
	} {
		assert.Equal(t, fen, EncodeFEN(ParsePlacement(fen)))
	}
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", EncodeFEN(ParsePlacement(StartFEN)))
}

func TestKingSquare(t *testing.T) {
	assert.Equal(t, Square("e1"), KingSquare(StartFEN, White))
	assert.Equal(t, Square("e8"), KingSquare(StartFEN, Black))
	assert.Equal(t, Square(""), KingSquare("8/8/8/8/8/8/8/K7", Black))
}

func TestValidatePlacement(t *testing.T) {
	assert.NoError(t, validatePlacement(StartFEN))
	assert.NoError(t, validatePlacement("8/8/8/8/8/8/8/8"))
	assert.ErrorIs(t, validatePlacement("8/8/8"), ErrInvalidFEN)
	assert.ErrorIs(t, validatePlacement("9/8/8/8/8/8/8/8"), ErrInvalidFEN)
	assert.ErrorIs(t, validatePlacement("ppppppppp/8/8/8/8/8/8/8"), ErrInvalidFEN)
}
