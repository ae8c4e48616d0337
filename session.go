package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/walterschell/chessboard/chessboard"
	"github.com/walterschell/chessboard/rules"
)

const (
	frameInterval = 16 * time.Millisecond
	writeWait     = 5 * time.Second
)

// Human plays this side; the engine plays the other.
const humanColor = chessboard.White

// clientMessage is a message from the browser.
type clientMessage struct {
	Type  string            `json:"type"`
	X     float64           `json:"x"`
	Y     float64           `json:"y"`
	Touch bool              `json:"touch"`
	Role  chessboard.Role   `json:"role"`
	Patch *chessboard.Patch `json:"patch"`
}

type gameStatus struct {
	Turn    chessboard.Color `json:"turn"`
	FEN     string           `json:"fen"`
	Check   bool             `json:"check"`
	Over    bool             `json:"over"`
	Result  string           `json:"result,omitempty"`
	Method  string           `json:"method,omitempty"`
	History []string         `json:"history"`
	Error   string           `json:"error,omitempty"`
}

type renderFrame struct {
	Type   string                 `json:"type"`
	Render chessboard.RenderState `json:"render"`
	Status gameStatus             `json:"status"`
}

type eventFrame struct {
	Type  string           `json:"type"`
	Event string           `json:"event"`
	Data  chessboard.Event `json:"data"`
}

type promotionFrame struct {
	Type string            `json:"type"`
	From chessboard.Square `json:"from"`
	To   chessboard.Square `json:"to"`
}

type engineReply struct {
	generation int
	uci        string
	err        error
}

// pendingPromotion is a pawn move shown on the board but not yet played on the game.
type pendingPromotion struct {
	from, to chessboard.Square
	color    chessboard.Color
	captured *chessboard.Piece
}

// Session is one browser game. Run owns the board and the game; everything else talks to
// it over channels.
type Session struct {
	id         uuid.UUID
	conn       *websocket.Conn
	board      *chessboard.Board
	game       *rules.Game
	engine     rules.Engine
	delay      time.Duration
	squareSize float64
	startFEN   string
	events     chessboard.Queue

	promotion  *pendingPromotion
	generation int
	lastError  string

	inbox   chan clientMessage
	replies chan engineReply
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewSession(conn *websocket.Conn, engine rules.Engine, delay time.Duration, squareSize float64, startFEN string) (*Session, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         uuid.New(),
		conn:       conn,
		engine:     engine,
		delay:      delay,
		squareSize: squareSize,
		startFEN:   startFEN,
		inbox:      make(chan clientMessage, 16),
		replies:    make(chan engineReply, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
	if err := s.newGame(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Session) newGame() error {
	game, err := rules.NewGame(s.startFEN)
	if err != nil {
		return err
	}
	board, err := chessboard.New(
		chessboard.WithFEN(game.FEN()),
		chessboard.WithTurnColor(game.Turn()),
		chessboard.WithSquareSize(s.squareSize),
		chessboard.WithMovable(chessboard.MovableConfig{
			Color:     chessboard.MovableColor(humanColor),
			Dests:     game.Dests(),
			ShowDests: true,
		}),
		chessboard.WithObserver(&s.events),
	)
	if err != nil {
		return errors.Wrap(err, "creating board")
	}
	s.events.Drain()
	s.game, s.board = game, board
	s.promotion = nil
	s.lastError = ""
	s.generation++
	if game.Turn() != humanColor && !game.Over() {
		s.scheduleOpponent()
	}
	return nil
}

// Run serves the session until the connection closes.
func (s *Session) Run() {
	defer s.close()
	go s.readLoop()

	if err := s.flush(); err != nil {
		log.Debug("Error writing initial frame", "session", s.id, "error", err)
		return
	}
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case msg, ok := <-s.inbox:
			if !ok {
				return
			}
			s.handle(msg)
		case reply := <-s.replies:
			s.playOpponent(reply)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if !s.board.Tick(dt) {
				continue
			}
		}
		if err := s.flush(); err != nil {
			log.Debug("Error writing frame", "session", s.id, "error", err)
			return
		}
	}
}

func (s *Session) close() {
	s.cancel()
	if err := s.engine.Close(); err != nil {
		log.Debug("Error closing engine", "session", s.id, "error", err)
	}
	s.conn.Close()
}

func (s *Session) readLoop() {
	defer close(s.inbox)
	for {
		_, messageJson, err := s.conn.ReadMessage()
		if err != nil {
			log.Debug("Error reading message", "session", s.id, "error", err)
			return
		}
		var message clientMessage
		if err := json.Unmarshal(messageJson, &message); err != nil {
			log.Debug("Error parsing message", "session", s.id, "error", err)
			continue
		}
		select {
		case s.inbox <- message:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) handle(msg clientMessage) {
	switch msg.Type {
	case "down":
		if s.promotion != nil {
			return
		}
		kind := chessboard.Mouse
		if msg.Touch {
			kind = chessboard.Touch
		}
		s.board.PointerDown(chessboard.Point{X: msg.X, Y: msg.Y}, kind)
	case "move":
		s.board.PointerMove(chessboard.Point{X: msg.X, Y: msg.Y})
	case "up":
		s.board.PointerUp()
	case "flip":
		s.board.ToggleOrientation()
	case "promote":
		s.promote(msg.Role)
	case "cancelPromotion":
		s.cancelPromotion()
	case "reset":
		if err := s.newGame(); err != nil {
			log.Error("Error resetting game", "session", s.id, "error", err)
		}
	case "config":
		if msg.Patch != nil {
			s.board.ApplyPatch(displayOnly(*msg.Patch))
		}
	default:
		log.Debug("Unknown message", "session", s.id, "type", msg.Type)
	}
}

// displayOnly strips the parts of a client patch that belong to the game.
func displayOnly(p chessboard.Patch) chessboard.Patch {
	p.FEN = ""
	p.TurnColor = ""
	p.Check = nil
	p.Selected = nil
	p.LastMove, p.LastMove2, p.LastMove3 = nil, nil, nil
	// The game castles by rook square and never loses a piece off the board.
	p.AutoCastle = nil
	if m := p.Movable; m != nil {
		p.Movable = &chessboard.MovablePatch{ShowDests: m.ShowDests}
	}
	if d := p.Draggable; d != nil {
		draggable := *d
		draggable.DeleteOnDropOff = nil
		p.Draggable = &draggable
	}
	return p
}

// handleUserMove plays a move the user made on the board on the game.
func (s *Session) handleUserMove(from, to chessboard.Square) {
	if s.game.NeedsPromotion(from, to) {
		pawn, _ := s.game.PieceAt(from)
		pending := &pendingPromotion{from: from, to: to, color: pawn.Color}
		if victim, ok := s.game.PieceAt(to); ok {
			pending.captured = &victim
		}
		s.promotion = pending
		if err := s.send(promotionFrame{Type: "promotion", From: from, To: to}); err != nil {
			log.Debug("Error sending promotion prompt", "session", s.id, "error", err)
		}
		return
	}
	result, err := s.game.Play(from, to, "")
	if err != nil {
		log.Error("Board and game disagree", "session", s.id, "from", from, "to", to, "error", err)
		s.resync()
		return
	}
	if result.EnPassant != "" {
		s.board.DeletePiece(result.EnPassant)
	}
	s.board.Apply(chessboard.SetCheck{InCheck: result.Check})
	s.afterPlay()
}

func (s *Session) promote(role chessboard.Role) {
	p := s.promotion
	if p == nil {
		return
	}
	switch role {
	case chessboard.Queen, chessboard.Rook, chessboard.Bishop, chessboard.Knight:
	default:
		log.Debug("Ignoring promotion role", "session", s.id, "role", role)
		return
	}
	s.promotion = nil
	result, err := s.game.Play(p.from, p.to, role)
	if err != nil {
		log.Error("Error promoting", "session", s.id, "error", err)
		s.resync()
		return
	}
	s.board.NewPiece(chessboard.Piece{Color: p.color, Role: role}, p.to)
	s.board.Apply(
		chessboard.SetHighlights{Slot: 1, From: p.from, To: p.to},
		chessboard.SetCheck{InCheck: result.Check},
	)
	s.afterPlay()
}

// cancelPromotion takes back the pawn move shown on the board.
func (s *Session) cancelPromotion() {
	p := s.promotion
	if p == nil {
		return
	}
	s.promotion = nil
	pawn := chessboard.Piece{Color: p.color, Role: chessboard.Pawn}
	s.board.SetPieces(map[chessboard.Square]*chessboard.Piece{p.from: &pawn, p.to: p.captured})
	s.board.Apply(
		chessboard.SetTurn{Color: s.game.Turn()},
		chessboard.SetHighlights{Slot: 1},
		chessboard.SetCheck{InCheck: s.game.InCheck()},
		chessboard.SetMovable{Dests: s.game.Dests()},
	)
}

// resync puts the board back on the game's position.
func (s *Session) resync() {
	s.promotion = nil
	s.board.Apply(
		chessboard.ReplacePosition{FEN: s.game.FEN()},
		chessboard.SetTurn{Color: s.game.Turn()},
		chessboard.SetCheck{InCheck: s.game.InCheck()},
		chessboard.SetMovable{Dests: s.game.Dests()},
	)
	if s.game.Turn() != humanColor && !s.game.Over() {
		s.scheduleOpponent()
	}
}

func (s *Session) afterPlay() {
	if s.game.Over() {
		result, method := s.game.Outcome()
		log.Info("Game over", "session", s.id, "result", result, "method", method)
		s.board.Stop()
		return
	}
	s.scheduleOpponent()
}

func (s *Session) scheduleOpponent() {
	generation, fen := s.generation, s.game.FEN()
	go func() {
		select {
		case <-time.After(s.delay):
		case <-s.ctx.Done():
			return
		}
		uci, err := s.engine.BestMove(s.ctx, fen)
		select {
		case s.replies <- engineReply{generation: generation, uci: uci, err: err}:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Session) playOpponent(reply engineReply) {
	if reply.generation != s.generation {
		return
	}
	if reply.err != nil {
		log.Error("Engine failed", "session", s.id, "error", reply.err)
		s.lastError = reply.err.Error()
		return
	}
	result, err := s.game.PlayUCI(reply.uci)
	if err != nil {
		log.Error("Engine played an illegal move", "session", s.id, "uci", reply.uci, "error", err)
		s.lastError = err.Error()
		return
	}
	s.board.Move(result.From, result.To)
	if result.Promotion != "" {
		s.board.NewPiece(chessboard.Piece{Color: humanColor.Opposite(), Role: result.Promotion}, result.To)
		s.board.Apply(chessboard.SetHighlights{Slot: 1, From: result.From, To: result.To})
	}
	if result.EnPassant != "" {
		s.board.DeletePiece(result.EnPassant)
	}
	s.board.Apply(
		chessboard.SetCheck{InCheck: result.Check},
		chessboard.SetMovable{Dests: s.game.Dests()},
	)
	if s.game.Over() {
		s.afterPlay()
		return
	}
	if pm, ok := s.board.Premove(); ok {
		if _, played := s.board.PlayPremove(); played {
			s.handleUserMove(pm.From, pm.To)
		}
	}
}

// flush forwards queued board events, reacting to user moves, then sends a render frame.
func (s *Session) flush() error {
	for s.events.Len() > 0 {
		for _, e := range s.events.Drain() {
			if err := s.send(eventFrame{Type: "event", Event: e.Name(), Data: e}); err != nil {
				return err
			}
			if after, ok := e.(chessboard.AfterMoveEvent); ok {
				s.handleUserMove(after.From, after.To)
			}
		}
	}
	return s.send(renderFrame{Type: "render", Render: s.board.Render(), Status: s.status()})
}

func (s *Session) status() gameStatus {
	st := gameStatus{
		Turn:    s.game.Turn(),
		FEN:     s.game.FEN(),
		Check:   s.game.InCheck(),
		Over:    s.game.Over(),
		History: s.game.History(),
		Error:   s.lastError,
	}
	if st.Over {
		st.Result, st.Method = s.game.Outcome()
	}
	return st
}

func (s *Session) send(v any) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}
