package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walterschell/chessboard/chessboard"
	"github.com/walterschell/chessboard/rules"
	"golang.org/x/exp/maps"
)

const testSquare = 60

func randomEngine() (rules.Engine, error) {
	return rules.NewRandomEngine(7), nil
}

type frame struct {
	Type   string                 `json:"type"`
	Event  string                 `json:"event"`
	Data   json.RawMessage        `json:"data"`
	Render chessboard.RenderState `json:"render"`
	Status gameStatus             `json:"status"`
	From   chessboard.Square      `json:"from"`
	To     chessboard.Square      `json:"to"`
}

// scriptedEngine replies with a fixed list of moves, whatever the position.
type scriptedEngine struct {
	mu    sync.Mutex
	moves []string
}

func scripted(moves ...string) EngineFactory {
	return func() (rules.Engine, error) {
		return &scriptedEngine{moves: moves}, nil
	}
}

func (e *scriptedEngine) BestMove(ctx context.Context, fen string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.moves) == 0 {
		return "", errors.New("out of moves")
	}
	uci := e.moves[0]
	e.moves = e.moves[1:]
	return uci, nil
}

func (e *scriptedEngine) Close() error { return nil }

func dial(t *testing.T) (*websocket.Conn, func()) {
	t.Helper()
	return dialWith(t, randomEngine, 0)
}

func dialWith(t *testing.T, newEngine EngineFactory, delay time.Duration, opts ...ApplicationOption) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(NewApplication(newEngine, delay, testSquare, opts...))
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

// center returns the pixel center of sq for a white-oriented board.
func center(sq chessboard.Square) (float64, float64) {
	return (float64(sq.File()) + 0.5) * testSquare, (float64(7-sq.Rank()) + 0.5) * testSquare
}

func click(t *testing.T, conn *websocket.Conn, sq chessboard.Square) {
	t.Helper()
	x, y := center(sq)
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "down", X: x, Y: y}))
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "up"}))
}

// readUntil reads frames until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

// drag presses on from, drags the piece to (x, y) and releases it there.
func drag(t *testing.T, conn *websocket.Conn, from chessboard.Square, x, y float64) {
	t.Helper()
	fx, fy := center(from)
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "down", X: fx, Y: fy}))
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "move", X: x, Y: y}))
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "up"}))
}

func isEvent(name string) func(frame) bool {
	return func(f frame) bool { return f.Type == "event" && f.Event == name }
}

// settled reports whether f is a render frame whose resting pieces are exactly the
// game's position.
func settled(f frame) bool {
	if f.Type != "render" || f.Render.Animating {
		return false
	}
	shown := make(map[chessboard.Square]chessboard.Piece, len(f.Render.Pieces))
	for _, p := range f.Render.Pieces {
		shown[p.Square] = p.Piece
	}
	return maps.Equal(shown, chessboard.ParsePlacement(f.Status.FEN))
}

func pieceAt(rs chessboard.RenderState, sq chessboard.Square) (chessboard.Piece, bool) {
	for _, p := range rs.Pieces {
		if p.Square == sq {
			return p.Piece, true
		}
	}
	return chessboard.Piece{}, false
}

func hasClass(rs chessboard.RenderState, class string) bool {
	for _, sq := range rs.Squares {
		for _, c := range strings.Fields(sq.Classes) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func TestIndex(t *testing.T) {
	app := NewApplication(randomEngine, 0, testSquare)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "--square: 60px")

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/board.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSession(t *testing.T) {
	t.Run("Initial render", func(t *testing.T) {
		conn, done := dial(t)
		defer done()

		f := readUntil(t, conn, func(f frame) bool { return f.Type == "render" })
		assert.Len(t, f.Render.Pieces, 32)
		assert.Equal(t, chessboard.White, f.Status.Turn)
		assert.False(t, f.Status.Over)
	})

	t.Run("Click move gets a reply", func(t *testing.T) {
		conn, done := dial(t)
		defer done()
		readUntil(t, conn, func(f frame) bool { return f.Type == "render" })

		click(t, conn, "e2")
		f := readUntil(t, conn, func(f frame) bool { return f.Type == "event" && f.Event == "select" })
		assert.JSONEq(t, `{"square":"e2"}`, string(f.Data))

		click(t, conn, "e4")
		f = readUntil(t, conn, func(f frame) bool { return f.Type == "event" && f.Event == "move" })
		assert.JSONEq(t, `{"from":"e2","to":"e4","captured":null}`, string(f.Data))

		readUntil(t, conn, func(f frame) bool { return f.Type == "event" && f.Event == "after" })

		var reply chessboard.MoveEvent
		readUntil(t, conn, func(f frame) bool {
			if f.Type != "event" || f.Event != "move" {
				return false
			}
			require.NoError(t, json.Unmarshal(f.Data, &reply))
			return true
		})
		assert.True(t, reply.From.Valid())
		assert.True(t, reply.To.Valid())
		assert.NotEqual(t, chessboard.Square("e2"), reply.From)

		f = readUntil(t, conn, func(f frame) bool { return f.Type == "render" && len(f.Status.History) == 2 })
		assert.Equal(t, "e2e4", f.Status.History[0])
		assert.Equal(t, chessboard.White, f.Status.Turn)
		assert.Equal(t, chessboard.White, f.Render.TurnColor)
	})

	t.Run("Illegal click leaves the position", func(t *testing.T) {
		conn, done := dial(t)
		defer done()
		readUntil(t, conn, func(f frame) bool { return f.Type == "render" })

		click(t, conn, "e2")
		readUntil(t, conn, func(f frame) bool { return f.Type == "event" && f.Event == "select" })
		click(t, conn, "e5")
		f := readUntil(t, conn, func(f frame) bool { return f.Type == "render" && !hasClass(f.Render, "select") })
		assert.Len(t, f.Render.Pieces, 32)
		assert.Empty(t, f.Status.History)
		assert.Equal(t, chessboard.White, f.Render.TurnColor)
	})

	t.Run("Flip", func(t *testing.T) {
		conn, done := dial(t)
		defer done()
		readUntil(t, conn, func(f frame) bool { return f.Type == "render" })

		require.NoError(t, conn.WriteJSON(clientMessage{Type: "flip"}))
		f := readUntil(t, conn, func(f frame) bool { return f.Type == "render" && f.Render.Orientation == chessboard.Black })
		assert.Equal(t, []string{"h", "g", "f", "e", "d", "c", "b", "a"}, f.Render.Files)
	})

	t.Run("Config patch cannot change the game", func(t *testing.T) {
		conn, done := dial(t)
		defer done()
		readUntil(t, conn, func(f frame) bool { return f.Type == "render" })

		coords := false
		require.NoError(t, conn.WriteJSON(clientMessage{Type: "config", Patch: &chessboard.Patch{
			FEN:         "8/8/8/8/8/8/8/8",
			Coordinates: &coords,
		}}))
		f := readUntil(t, conn, func(f frame) bool { return f.Type == "render" && len(f.Render.Files) == 0 })
		assert.Len(t, f.Render.Pieces, 32)
	})
}

func TestHostFlows(t *testing.T) {
	t.Run("Promotion can be cancelled and then chosen", func(t *testing.T) {
		conn, done := dialWith(t, randomEngine, 0, WithStartFEN("1n2k3/P7/8/8/8/8/8/4K3 w - - 0 1"))
		defer done()
		readUntil(t, conn, settled)

		click(t, conn, "a7")
		click(t, conn, "b8")
		f := readUntil(t, conn, func(f frame) bool { return f.Type == "promotion" })
		assert.Equal(t, chessboard.Square("a7"), f.From)
		assert.Equal(t, chessboard.Square("b8"), f.To)

		require.NoError(t, conn.WriteJSON(clientMessage{Type: "cancelPromotion"}))
		f = readUntil(t, conn, func(f frame) bool { return settled(f) && !hasClass(f.Render, chessboard.ClassLastMove) })
		assert.Empty(t, f.Status.History)
		assert.Equal(t, chessboard.White, f.Render.TurnColor)
		knight, ok := pieceAt(f.Render, "b8")
		require.True(t, ok)
		assert.Equal(t, chessboard.Knight, knight.Role)

		click(t, conn, "a7")
		click(t, conn, "b8")
		readUntil(t, conn, func(f frame) bool { return f.Type == "promotion" })
		require.NoError(t, conn.WriteJSON(clientMessage{Type: "promote", Role: chessboard.Queen}))
		f = readUntil(t, conn, func(f frame) bool { return settled(f) && len(f.Status.History) > 0 })
		assert.Equal(t, "a7b8q", f.Status.History[0])
	})

	t.Run("En passant removes the passed pawn", func(t *testing.T) {
		conn, done := dialWith(t, randomEngine, 0, WithStartFEN("4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1"))
		defer done()
		readUntil(t, conn, settled)

		click(t, conn, "e5")
		click(t, conn, "d6")
		f := readUntil(t, conn, func(f frame) bool { return settled(f) && len(f.Status.History) > 0 })
		assert.Equal(t, "e5d6", f.Status.History[0])
		_, ok := pieceAt(f.Render, "d5")
		assert.False(t, ok)
	})

	t.Run("Premove is replayed after the reply", func(t *testing.T) {
		conn, done := dialWith(t, scripted("g8f6", "b8c6"), 300*time.Millisecond)
		defer done()
		readUntil(t, conn, settled)

		click(t, conn, "d2")
		click(t, conn, "d4")
		readUntil(t, conn, isEvent("after"))
		click(t, conn, "e2")
		click(t, conn, "e4")
		f := readUntil(t, conn, isEvent("premoveSet"))
		assert.JSONEq(t, `{"from":"e2","to":"e4"}`, string(f.Data))

		readUntil(t, conn, isEvent("premoveUnset"))
		f = readUntil(t, conn, func(f frame) bool { return settled(f) && len(f.Status.History) >= 3 })
		assert.Equal(t, []string{"d2d4", "g8f6", "e2e4"}, f.Status.History[:3])
	})

	t.Run("Premove blocked by the reply is discarded", func(t *testing.T) {
		conn, done := dialWith(t, scripted("e7e5"), 300*time.Millisecond)
		defer done()
		readUntil(t, conn, settled)

		click(t, conn, "e2")
		click(t, conn, "e4")
		readUntil(t, conn, isEvent("after"))
		click(t, conn, "e4")
		click(t, conn, "e5")
		readUntil(t, conn, isEvent("premoveSet"))

		readUntil(t, conn, isEvent("premoveUnset"))
		f := readUntil(t, conn, func(f frame) bool { return settled(f) && len(f.Status.History) == 2 })
		assert.Equal(t, []string{"e2e4", "e7e5"}, f.Status.History)
		assert.Equal(t, chessboard.White, f.Render.TurnColor)
		assert.False(t, hasClass(f.Render, chessboard.ClassCurrentPremove))
	})

	t.Run("Client patch cannot desync castling or drops", func(t *testing.T) {
		conn, done := dialWith(t, scripted("a7a6"), 0, WithStartFEN("r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1"))
		defer done()
		readUntil(t, conn, settled)

		off, on := false, true
		require.NoError(t, conn.WriteJSON(clientMessage{Type: "config", Patch: &chessboard.Patch{
			AutoCastle: &off,
			Draggable:  &chessboard.DraggablePatch{DeleteOnDropOff: &on},
		}}))

		click(t, conn, "e1")
		click(t, conn, "h1")
		f := readUntil(t, conn, func(f frame) bool { return settled(f) && len(f.Status.History) == 2 })
		assert.Equal(t, []string{"e1g1", "a7a6"}, f.Status.History)
		king, ok := pieceAt(f.Render, "g1")
		require.True(t, ok)
		assert.Equal(t, chessboard.King, king.Role)

		drag(t, conn, "a2", -300, -300)
		require.NoError(t, conn.WriteJSON(clientMessage{Type: "flip"}))
		f = readUntil(t, conn, func(f frame) bool { return settled(f) && f.Render.Orientation == chessboard.Black })
		assert.Len(t, f.Render.Pieces, 22)
	})
}

func TestDisplayOnly(t *testing.T) {
	free, show := true, false
	check := chessboard.CheckFlag{InCheck: true}
	p := displayOnly(chessboard.Patch{
		FEN:       "8/8/8/8/8/8/8/8",
		TurnColor: chessboard.Black,
		Check:     &check,
		LastMove:  &[2]chessboard.Square{"e2", "e4"},
		Movable:   &chessboard.MovablePatch{Free: &free, ShowDests: &show, Color: chessboard.MovableBoth},
	})
	assert.Empty(t, p.FEN)
	assert.Empty(t, p.TurnColor)
	assert.Nil(t, p.Check)
	assert.Nil(t, p.LastMove)
	require.NotNil(t, p.Movable)
	assert.Nil(t, p.Movable.Free)
	assert.Empty(t, p.Movable.Color)
	assert.Equal(t, &show, p.Movable.ShowDests)

	off, on := false, true
	in := chessboard.Patch{
		AutoCastle: &off,
		Draggable:  &chessboard.DraggablePatch{Enabled: &on, DeleteOnDropOff: &on},
	}
	p = displayOnly(in)
	assert.Nil(t, p.AutoCastle)
	require.NotNil(t, p.Draggable)
	assert.Nil(t, p.Draggable.DeleteOnDropOff)
	assert.Equal(t, &on, p.Draggable.Enabled)
	assert.Equal(t, &on, in.Draggable.DeleteOnDropOff)
}
