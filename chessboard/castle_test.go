package chessboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCastle(t *testing.T) {
	board, _, _ := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R")

	tests := []struct {
		name     string
		from, to Square
		want     CastleResult
	}{
		{"Short by king target", "e1", "g1", CastleResult{King: Move{From: "e1", To: "g1"}, Rook: Move{From: "h1", To: "f1"}, Castle: true}},
		{"Long by king target", "e1", "c1", CastleResult{King: Move{From: "e1", To: "c1"}, Rook: Move{From: "a1", To: "d1"}, Castle: true}},
		{"Short onto the rook", "e1", "h1", CastleResult{King: Move{From: "e1", To: "g1"}, Rook: Move{From: "h1", To: "f1"}, Castle: true}},
		{"Long onto the rook", "e8", "a8", CastleResult{King: Move{From: "e8", To: "c8"}, Rook: Move{From: "a8", To: "d8"}, Castle: true}},
		{"Ordinary king step", "e1", "f1", CastleResult{King: Move{From: "e1", To: "f1"}}},
		{"Off the back rank", "e1", "g2", CastleResult{King: Move{From: "e1", To: "g2"}}},
		{"Not a king", "a1", "c1", CastleResult{King: Move{From: "a1", To: "c1"}}},
		{"Empty square", "d4", "g4", CastleResult{King: Move{From: "d4", To: "g4"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveCastle(tt.from, tt.to, board))
		})
	}

	t.Run("Blocked path", func(t *testing.T) {
		blocked, _, _ := ParseFEN("4k3/8/8/8/8/8/8/R3KB1R")
		got := ResolveCastle("e1", "g1", blocked)
		assert.False(t, got.Castle)
		assert.Equal(t, []Move{{From: "e1", To: "g1"}}, got.Moves())
	})

	t.Run("No rook", func(t *testing.T) {
		bare, _, _ := ParseFEN("4k3/8/8/8/8/8/8/4K3")
		assert.False(t, ResolveCastle("e1", "g1", bare).Castle)
		assert.False(t, ResolveCastle("e1", "h1", bare).Castle)
	})

	t.Run("Enemy rook", func(t *testing.T) {
		enemy, _, _ := ParseFEN("4k3/8/8/8/8/8/8/4K2r")
		assert.False(t, ResolveCastle("e1", "h1", enemy).Castle)
	})

	t.Run("Moves lists king first", func(t *testing.T) {
		got := ResolveCastle("e1", "h1", board).Moves()
		assert.Equal(t, []Move{{From: "e1", To: "g1"}, {From: "h1", To: "f1"}}, got)
	})
}
