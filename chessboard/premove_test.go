package chessboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPremoves(t *testing.T) {
	t.Run("Pawn", func(t *testing.T) {
		board, _, _ := ParseFEN(StartFEN)
		assert.ElementsMatch(t, []Square{"d3", "e3", "f3", "e4"}, Premoves(board, "e2"))
		assert.ElementsMatch(t, []Square{"d6", "e6", "f6", "e5"}, Premoves(board, "e7"))
		assert.ElementsMatch(t, []Square{"a3", "b3", "a4"}, Premoves(board, "a2"))
	})

	t.Run("Pawn off its start rank", func(t *testing.T) {
		board, _, _ := ParseFEN("4k3/8/8/8/4P3/8/8/4K3")
		assert.ElementsMatch(t, []Square{"d5", "e5", "f5"}, Premoves(board, "e4"))
	})

	t.Run("Knight", func(t *testing.T) {
		board, _, _ := ParseFEN(StartFEN)
		assert.ElementsMatch(t, []Square{"a3", "c3", "d2"}, Premoves(board, "b1"))
	})

	t.Run("Sliders ignore blockers", func(t *testing.T) {
		board, _, _ := ParseFEN(StartFEN)
		rook := Premoves(board, "a1")
		assert.Len(t, rook, 14)
		assert.Contains(t, rook, Square("a8"))
		assert.Contains(t, rook, Square("h1"))

		bishop := Premoves(board, "c1")
		assert.ElementsMatch(t, []Square{"b2", "a3", "d2", "e3", "f4", "g5", "h6"}, bishop)

		assert.Len(t, Premoves(board, "d1"), 21)
	})

	t.Run("King with castling rooks", func(t *testing.T) {
		board, _, _ := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R")
		assert.ElementsMatch(t,
			[]Square{"d1", "d2", "e2", "f2", "f1", "c1", "g1", "a1", "h1"},
			Premoves(board, "e1"))
	})

	t.Run("King without rooks", func(t *testing.T) {
		board, _, _ := ParseFEN("4k3/8/8/8/8/8/8/4K3")
		assert.ElementsMatch(t, []Square{"d1", "d2", "e2", "f2", "f1"}, Premoves(board, "e1"))
	})

	t.Run("Empty square", func(t *testing.T) {
		board, _, _ := ParseFEN(StartFEN)
		assert.Nil(t, Premoves(board, "e4"))
	})
}
