package chessboard

import (
	"time"
)

type moveSource int

const (
	sourceAPI moveSource = iota
	sourceClick
	sourceDrag
	sourcePremove
)

// Board is an interactive chessboard: the board state, its configuration, the pointer
// controller and the animation scheduler behind one owner. A Board is not safe for
// concurrent use.
//
// Events raised during a call are queued and delivered once the call has left the board
// consistent, so observers may call back into the Board.
type Board struct {
	cfg     Config
	state   *State
	sched   *Scheduler
	ptr     pointer
	enabled bool

	observers []Observer
	pending   []Event
	depth     int
	flushing  bool
}

// New creates a board from options. Invalid options are all reported in one error.
func New(opts ...Option) (*Board, error) {
	o := &options{fen: StartFEN, config: DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	b := &Board{
		cfg:       o.config,
		state:     NewState(o.fen),
		enabled:   true,
		observers: o.observers,
		ptr:       newPointer(),
	}
	b.sched = NewScheduler(b.animationEnded)
	b.cfg.Selected = ""
	if o.config.Selected != "" {
		SetSelected{Square: o.config.Selected}.apply(b)
	}
	if o.check != nil {
		o.check.apply(b)
	}
	log.Debug("board created", "fen", b.FEN(), "orientation", b.cfg.Orientation)
	return b, nil
}

// Subscribe adds an observer of board events.
func (b *Board) Subscribe(obs Observer) {
	b.observers = append(b.observers, obs)
}

func (b *Board) begin() func() {
	b.depth++
	return func() {
		b.depth--
		if b.depth == 0 {
			b.flush()
		}
	}
}

func (b *Board) emit(e Event) {
	b.pending = append(b.pending, e)
}

// flush delivers pending events in order. Events raised by observers are appended and
// delivered by the same loop.
func (b *Board) flush() {
	if b.flushing {
		return
	}
	b.flushing = true
	defer func() { b.flushing = false }()
	for len(b.pending) > 0 {
		e := b.pending[0]
		b.pending = b.pending[1:]
		for _, obs := range b.observers {
			obs.Notify(e)
		}
	}
}

func (b *Board) animationEnded(job Job, cancelled bool) {
	b.emit(AnimationEndEvent{Moves: job.Moves(), Cancelled: cancelled})
}

// Apply runs configuration commands in order.
func (b *Board) Apply(cmds ...Command) {
	defer b.begin()()
	for _, cmd := range cmds {
		if cmd != nil {
			cmd.apply(b)
		}
	}
}

// ApplyPatch applies a partial configuration.
func (b *Board) ApplyPatch(p Patch) {
	b.Apply(p.Commands()...)
}

// replace settles the board on next, keeping identity indices where possible. The
// selection survives only if the same piece still stands on the selected square.
func (b *Board) replace(next map[Square]Piece) {
	b.sched.Cancel()
	squares := b.state.Reconcile(next)
	keep := false
	if sel := b.ptr.selected; sel != nil {
		p, ok := squares[sel.Square]
		keep = ok && p.Index == sel.Index && p.Piece == sel.Piece
	}
	b.state.Replace(squares)
	if !keep {
		b.resetPointer()
	}
}

// SetPieces patches the position: a nil piece empties its square.
func (b *Board) SetPieces(patch map[Square]*Piece) {
	defer b.begin()()
	next := b.state.future.squares.Pieces()
	for sq, p := range patch {
		if !sq.Valid() {
			continue
		}
		if p == nil {
			delete(next, sq)
		} else {
			next[sq] = *p
		}
	}
	b.replace(next)
}

// NewPiece puts piece on sq, replacing whatever stands there.
func (b *Board) NewPiece(piece Piece, sq Square) {
	defer b.begin()()
	sq = ParseSquare(string(sq))
	if sq == "" || !piece.Color.Valid() || !piece.Role.Valid() {
		return
	}
	b.sched.CancelTouching(sq)
	b.state.Put(piece, sq)
	b.cfg.LastMoves = [3]Move{{From: sq}}
	b.emit(AfterNewPieceEvent{Piece: piece, Square: sq})
}

// DeletePiece removes the piece on sq. It does nothing while the piece is in flight.
func (b *Board) DeletePiece(sq Square) bool {
	defer b.begin()()
	sq = ParseSquare(string(sq))
	if sq == "" {
		return false
	}
	removed := b.state.Remove(sq)
	if b.cfg.Selected == sq {
		b.resetPointer()
	}
	return removed
}

// Move plays from→to, expanding castles when auto-castle is on. It returns false without
// touching the board when either square is invalid or from is empty.
func (b *Board) Move(from, to Square) bool {
	defer b.begin()()
	from, to = ParseSquare(string(from)), ParseSquare(string(to))
	if from == "" || to == "" {
		return false
	}
	_, ok := b.commitMove(from, to, sourceAPI)
	return ok
}

// expand resolves a requested move on board into the moves actually played.
func (b *Board) expand(from, to Square, board BoardMap) CastleResult {
	if !b.cfg.AutoCastle {
		return CastleResult{King: Move{From: from, To: to}}
	}
	return ResolveCastle(from, to, board)
}

func (b *Board) touchesSelection(moves []Move) bool {
	sel := b.ptr.selected
	if sel == nil {
		return false
	}
	for _, m := range moves {
		if m.From == sel.Square || m.To == sel.Square {
			return true
		}
	}
	return false
}

// commitMove plays one logical move on the settled layer, reports it and animates it.
// It returns the primary move after castle expansion.
func (b *Board) commitMove(from, to Square, src moveSource) (Move, bool) {
	future := b.state.future.squares
	if _, ok := future[from]; !ok || from == to {
		return Move{}, false
	}
	resolved := b.expand(from, to, future)
	moves := resolved.Moves()
	var captured *Piece
	if victim, ok := future[to]; ok && !resolved.Castle {
		p := victim.Piece
		captured = &p
	}

	b.sched.Cancel()
	if b.touchesSelection(moves) {
		b.resetPointer()
	}
	for _, m := range moves {
		b.state.MoveFuture(m.From, m.To)
	}
	b.emit(MoveEvent{From: from, To: to, Captured: captured})
	b.emit(ChangeEvent{})
	if src == sourceClick || src == sourceDrag {
		b.emit(AfterMoveEvent{From: from, To: to})
	}

	animated := moves
	if src == sourceDrag {
		// the dragged piece is already on its target
		b.state.MoveCurrent(moves[0].From, moves[0].To)
		animated = moves[1:]
	}
	b.animate(animated)

	b.settleTurn()
	b.cfg.LastMoves = [3]Move{{From: resolved.King.From, To: resolved.King.To}}
	return moves[0], true
}

// settleTurn hands the move to the other side after a committed move.
func (b *Board) settleTurn() {
	b.cfg.TurnColor = b.cfg.TurnColor.Opposite()
	b.cfg.Check = ""
	b.cfg.Movable.Dests = nil
	b.refreshPremoveDests()
}

// refreshPremoveDests recomputes premove destinations of the selected piece.
func (b *Board) refreshPremoveDests() {
	b.cfg.Premovable.Dests = nil
	sel := b.ptr.selected
	if sel == nil {
		return
	}
	pm := b.cfg.Premovable
	if pm.Enabled && pm.ShowDests && b.cfg.Movable.Color.is(sel.Color) && b.cfg.TurnColor != sel.Color {
		b.cfg.Premovable.Dests = Premoves(b.state.future.squares, sel.Square)
	}
}

func (b *Board) animate(moves []Move) {
	if len(moves) == 0 {
		return
	}
	if !b.cfg.Animation.animates() {
		for _, m := range moves {
			b.state.MoveCurrent(m.From, m.To)
		}
		return
	}
	commit := func(m Move) { b.state.MoveCurrent(m.From, m.To) }
	b.sched.Start(newAnimation(moves, b.state.current.squares, b.cfg.SquareSize, b.cfg.Orientation, b.cfg.Animation, commit))
}

// Moves plays a batch of moves as one change. Entries are validated in order against the
// position left by the entries before them; if any entry fails nothing is applied. Zero
// entries are ignored, Skip entries only record their highlight slot.
func (b *Board) Moves(moves []Move) bool {
	defer b.begin()()
	scratch := b.state.future.squares.Clone()
	for _, m := range moves {
		if m.IsZero() {
			continue
		}
		if !m.From.Valid() || !m.To.Valid() || m.From == m.To {
			return false
		}
		if m.Skip {
			continue
		}
		if _, ok := scratch[m.From]; !ok {
			return false
		}
		for _, mv := range b.expand(m.From, m.To, scratch).Moves() {
			scratch[mv.To] = scratch[mv.From]
			delete(scratch, mv.From)
		}
	}

	b.sched.Cancel()
	b.cfg.LastMoves = [3]Move{}
	var played []Move
	for _, m := range moves {
		if m.IsZero() {
			continue
		}
		resolved := b.expand(m.From, m.To, b.state.future.squares)
		if m.Slot >= 1 && m.Slot <= 3 {
			b.cfg.LastMoves[m.Slot-1] = Move{From: resolved.King.From, To: resolved.King.To}
		}
		if m.Skip {
			continue
		}
		var captured *Piece
		if victim, ok := b.state.future.squares[m.To]; ok && !resolved.Castle {
			p := victim.Piece
			captured = &p
		}
		for _, mv := range resolved.Moves() {
			b.state.MoveFuture(mv.From, mv.To)
			played = append(played, mv)
		}
		b.emit(MoveEvent{From: m.From, To: m.To, Captured: captured})
	}
	if len(played) == 0 {
		return true
	}
	if b.touchesSelection(played) {
		b.resetPointer()
	}
	b.emit(ChangeEvent{})
	b.animate(played)
	b.settleTurn()
	return true
}

// PlayPremove plays the armed premove if it is still the right side's turn and the move
// is among the legal destinations. Otherwise the premove is discarded. Either way the
// premove is unset.
func (b *Board) PlayPremove() (Move, bool) {
	defer b.begin()()
	pm := b.cfg.Premovable.Current
	if pm == nil {
		return Move{}, false
	}
	b.cfg.Premovable.Current = nil
	correctTurn := b.cfg.Movable.Color == MovableBoth || b.cfg.Movable.Color.is(b.cfg.TurnColor)
	legal := b.cfg.Movable.Dests.Has(pm.From, pm.To)
	var played Move
	ok := correctTurn && legal
	if ok {
		played, ok = b.commitMove(pm.From, pm.To, sourcePremove)
	}
	if !ok {
		log.Debug("premove discarded", "from", pm.From, "to", pm.To, "turn", b.cfg.TurnColor)
	}
	b.emit(PremoveUnsetEvent{})
	return played, ok
}

// CancelPremove discards the armed premove.
func (b *Board) CancelPremove() {
	defer b.begin()()
	b.cfg.Premovable.Current = nil
	b.emit(PremoveUnsetEvent{})
}

func (b *Board) armPremove(from, to Square) {
	b.cfg.Premovable.Current = &Move{From: from, To: to}
	b.emit(PremoveSetEvent{From: from, To: to})
}

// SelectSquare selects the piece on sq, or moves the selected piece to sq. The empty
// square clears the selection.
func (b *Board) SelectSquare(sq Square) {
	defer b.begin()()
	sq = ParseSquare(string(sq))
	if sq == "" {
		b.resetPointer()
		return
	}
	if sel := b.ptr.selected; sel != nil && sel.Square != sq {
		from := sel.Square
		b.resetPointer()
		b.commitMove(from, sq, sourceAPI)
		return
	}
	p, ok := b.state.future.squares[sq]
	if !ok {
		return
	}
	b.ptr.selected = &selection{Square: sq, Piece: p.Piece, Index: p.Index}
	b.ptr.isSelect = true
	b.cfg.Selected = sq
	b.emit(SelectEvent{Square: sq})
}

// CancelMove drops the selection and puts a dragged piece back.
func (b *Board) CancelMove() {
	defer b.begin()()
	b.resetPointer()
}

// Stop ends all interaction: the running animation is finished and pointer input is
// ignored from now on.
func (b *Board) Stop() {
	defer b.begin()()
	b.sched.Cancel()
	b.enabled = false
	b.resetPointer()
}

// ToggleOrientation flips the board.
func (b *Board) ToggleOrientation() {
	defer b.begin()()
	b.sched.Cancel()
	b.resetPointer()
	b.cfg.Orientation = b.cfg.Orientation.Opposite()
}

// Tick advances the running animation by dt and reports whether one was running.
func (b *Board) Tick(dt time.Duration) bool {
	defer b.begin()()
	return b.sched.Tick(dt)
}

// Config returns a copy of the configuration.
func (b *Board) Config() Config { return b.cfg }

// Enabled reports whether the board still accepts pointer input.
func (b *Board) Enabled() bool { return b.enabled }

// Orientation returns the side facing the bottom of the board.
func (b *Board) Orientation() Color { return b.cfg.Orientation }

// TurnColor returns the side to move.
func (b *Board) TurnColor() Color { return b.cfg.TurnColor }

// Selected returns the selected square, or "".
func (b *Board) Selected() Square { return b.cfg.Selected }

// Check returns the square of the king in check, or "".
func (b *Board) Check() Square { return b.cfg.Check }

// LastMoves returns the three last-move highlight slots.
func (b *Board) LastMoves() [3]Move { return b.cfg.LastMoves }

// Premove returns the armed premove.
func (b *Board) Premove() (Move, bool) {
	if pm := b.cfg.Premovable.Current; pm != nil {
		return *pm, true
	}
	return Move{}, false
}

// Animating reports whether an animation is running.
func (b *Board) Animating() bool { return b.sched.Active() != nil }

// Pieces returns the settled position.
func (b *Board) Pieces() map[Square]Piece { return b.state.future.squares.Pieces() }

// Indexes returns the settled position keyed by identity index.
func (b *Board) Indexes() IndexMap { return b.state.FutureIndexes() }

// FEN returns the placement field of the settled position.
func (b *Board) FEN() string { return EncodeFEN(b.Pieces()) }

// Material counts pieces per role for each side.
type Material map[Color]map[Role]int

// MaterialDiff counts the settled position's pieces per side and role.
func (b *Board) MaterialDiff() Material {
	material := Material{White: {}, Black: {}}
	for _, p := range b.state.future.squares {
		material[p.Color][p.Role]++
	}
	return material
}
