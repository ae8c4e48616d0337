package chessboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAnimation = AnimationConfig{Enabled: true, Duration: 200 * time.Millisecond, Type: AnimationNormal}

func startAnimation(t *testing.T, fen string, cfg AnimationConfig, moves ...Move) (*Animation, *[]Move) {
	t.Helper()
	current, _, _ := ParseFEN(fen)
	var committed []Move
	a := newAnimation(moves, current, 60, White, cfg, func(m Move) { committed = append(committed, m) })
	return a, &committed
}

func TestAnimation(t *testing.T) {
	t.Run("Single move interpolates", func(t *testing.T) {
		a, committed := startAnimation(t, StartFEN, testAnimation, Move{From: "e2", To: "e4"})
		idx := 20

		start := a.Overlay().Pieces[idx]
		assert.Equal(t, Point{240, 360}, start.Position)

		p := a.Advance(100 * time.Millisecond)
		assert.False(t, p.Done)
		assert.InDelta(t, 0.5, p.Fraction, 1e-9)
		mid := a.Overlay().Pieces[idx].Position
		assert.Equal(t, 240.0, mid.X)
		assert.InDelta(t, 300, mid.Y, 1e-9)
		assert.Empty(t, *committed)

		p = a.Advance(100 * time.Millisecond)
		assert.True(t, p.Done)
		assert.False(t, a.Running())
		assert.Equal(t, []Move{{From: "e2", To: "e4"}}, *committed)
		assert.Empty(t, a.Overlay().Pieces)

		a.Advance(time.Second)
		a.Cancel()
		assert.Len(t, *committed, 1)
	})

	t.Run("Cancel commits once", func(t *testing.T) {
		a, committed := startAnimation(t, StartFEN, testAnimation, Move{From: "e2", To: "e4"}, Move{From: "g1", To: "f3"})
		a.Advance(50 * time.Millisecond)
		p := a.Cancel()
		assert.True(t, p.Done)
		assert.Len(t, *committed, 2)
		a.Cancel()
		assert.Len(t, *committed, 2)
	})

	t.Run("Captured piece fades at the target", func(t *testing.T) {
		a, _ := startAnimation(t, "4k3/8/8/3p4/4P3/8/8/4K3", testAnimation, Move{From: "e4", To: "d5"})
		victim := a.Overlay().Pieces[1]
		assert.Equal(t, "fade", victim.Class)
		assert.Equal(t, NotationToPixels("d5", 60, White), victim.Position)
	})

	t.Run("Ghosts", func(t *testing.T) {
		cfg := testAnimation
		cfg.Type = AnimationGhosts
		a, _ := startAnimation(t, StartFEN, cfg, Move{From: "e2", To: "e4"})
		a.Advance(50 * time.Millisecond)
		trails := a.Overlay().Trails
		require.Len(t, trails, 3)
		assert.Equal(t, 0.8, trails[0].Opacity)
		assert.Equal(t, 0.4, trails[2].Opacity)
	})

	t.Run("Warp", func(t *testing.T) {
		cfg := testAnimation
		cfg.Type = AnimationWarp
		a, _ := startAnimation(t, StartFEN, cfg, Move{From: "e2", To: "e4"})
		a.Advance(100 * time.Millisecond)
		warp := a.Overlay().Warp
		require.NotNil(t, warp)
		assert.Equal(t, NotationToPixels("e4", 60, White), warp.Position)
		assert.InDelta(t, 0.25, warp.Opacity, 1e-9)
		assert.InDelta(t, 0.25, a.Overlay().Pieces[20].Opacity, 1e-9)
	})

	t.Run("Batches have no effects", func(t *testing.T) {
		cfg := testAnimation
		cfg.Type = AnimationWarp
		a, _ := startAnimation(t, "r3k2r/8/8/8/8/8/8/R3K2R", cfg, Move{From: "e1", To: "g1"}, Move{From: "h1", To: "f1"})
		a.Advance(100 * time.Millisecond)
		assert.Nil(t, a.Overlay().Warp)
		assert.Empty(t, a.Overlay().Trails)
		assert.Len(t, a.Overlay().Pieces, 2)
	})

	t.Run("Short durations do not animate", func(t *testing.T) {
		assert.True(t, testAnimation.animates())
		assert.False(t, AnimationConfig{Enabled: true, Duration: 70 * time.Millisecond}.animates())
		assert.False(t, AnimationConfig{Enabled: false, Duration: time.Second}.animates())
	})
}

func TestScheduler(t *testing.T) {
	type ended struct {
		moves     []Move
		cancelled bool
	}

	t.Run("Runs one job at a time", func(t *testing.T) {
		var ends []ended
		s := NewScheduler(func(job Job, cancelled bool) { ends = append(ends, ended{job.Moves(), cancelled}) })
		assert.False(t, s.Tick(time.Millisecond))

		first, firstCommitted := startAnimation(t, StartFEN, testAnimation, Move{From: "e2", To: "e4"})
		second, _ := startAnimation(t, StartFEN, testAnimation, Move{From: "d2", To: "d4"})
		s.Start(first)
		s.Start(second)
		assert.Same(t, second, s.Active())
		require.Len(t, ends, 1)
		assert.True(t, ends[0].cancelled)
		assert.Len(t, *firstCommitted, 1)

		assert.True(t, s.Tick(250*time.Millisecond))
		assert.Nil(t, s.Active())
		require.Len(t, ends, 2)
		assert.False(t, ends[1].cancelled)
		assert.Equal(t, []Move{{From: "d2", To: "d4"}}, ends[1].moves)
	})

	t.Run("Cancel touching", func(t *testing.T) {
		s := NewScheduler(nil)
		job, _ := startAnimation(t, StartFEN, testAnimation, Move{From: "e2", To: "e4"})
		s.Start(job)
		s.CancelTouching("d4")
		assert.NotNil(t, s.Active())
		s.CancelTouching("e4")
		assert.Nil(t, s.Active())
		assert.False(t, job.Running())
	})
}
