package rules

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// fakeEngine writes a shell script speaking just enough UCI for the tests. onGo and
// onStop are the script lines run for "go" and "stop".
func fakeEngine(t *testing.T, onGo, onStop string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	script := `#!/bin/sh
while read -r line; do
  case "$line" in
    uci) echo "id name fake"; echo "uciok" ;;
    isready) echo "readyok" ;;
    go*) ` + onGo + ` ;;
    stop) ` + onStop + ` ;;
    quit) exit 0 ;;
  esac
done
`
	path := filepath.Join(t.TempDir(), "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestStockfishEngine(t *testing.T) {
	t.Run("Best move", func(t *testing.T) {
		engine, err := NewStockfishEngine(WithBinary(fakeEngine(t, `echo "info depth 1 score cp 20"; echo "bestmove e2e4 ponder e7e5"`, ":")), WithDepth(3))
		require.NoError(t, err)
		defer engine.Close()

		uci, err := engine.BestMove(context.Background(), startFEN)
		require.NoError(t, err)
		assert.Equal(t, "e2e4", uci)

		uci, err = engine.BestMove(context.Background(), startFEN)
		require.NoError(t, err)
		assert.Equal(t, "e2e4", uci)
	})

	t.Run("No legal moves", func(t *testing.T) {
		engine, err := NewStockfishEngine(WithBinary(fakeEngine(t, `echo "bestmove (none)"`, ":")))
		require.NoError(t, err)
		defer engine.Close()

		_, err = engine.BestMove(context.Background(), "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
		assert.ErrorIs(t, err, ErrNoMoves)
	})

	t.Run("Cancelled search is stopped", func(t *testing.T) {
		engine, err := NewStockfishEngine(WithBinary(fakeEngine(t, ":", `echo "bestmove d2d4"`)))
		require.NoError(t, err)
		defer engine.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = engine.BestMove(ctx, startFEN)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Engine exits mid search", func(t *testing.T) {
		engine, err := NewStockfishEngine(WithBinary(fakeEngine(t, "exit 0", ":")))
		require.NoError(t, err)
		defer engine.Close()

		_, err = engine.BestMove(context.Background(), startFEN)
		assert.ErrorIs(t, err, ErrEngineNotReady)
	})

	t.Run("Missing binary", func(t *testing.T) {
		_, err := NewStockfishEngine(WithBinary(filepath.Join(t.TempDir(), "missing")))
		assert.Error(t, err)
	})
}
