package chessboard

import (
	"math"
)

// PointerKind tells mouse input from touch input.
type PointerKind int

const (
	Mouse PointerKind = iota
	Touch
)

type selection struct {
	Square Square
	Piece
	Index int
}

// pointer is the gesture controller state. Positions are top-left pixels of the dragged
// piece relative to the board.
type pointer struct {
	selected        *selection
	isSelect        bool
	pressed         bool
	dragPos         *Point
	origin          Point
	distancePassed  bool
	lastMoveWasDrag bool
	touchStarted    bool
}

func newPointer() pointer {
	return pointer{lastMoveWasDrag: true}
}

// resetPointer drops the selection and any drag in progress.
func (b *Board) resetPointer() {
	b.ptr = pointer{
		lastMoveWasDrag: b.ptr.lastMoveWasDrag,
		touchStarted:    b.ptr.touchStarted,
	}
	b.cfg.Selected = ""
}

// canMove reports whether the selected piece may go to to under the movable policy.
func (b *Board) canMove(sel *selection, to Square) bool {
	if sel == nil {
		return false
	}
	mv := b.cfg.Movable
	if mv.Free {
		return true
	}
	sideToMove := mv.Color == MovableBoth || (mv.Color.is(sel.Color) && b.cfg.TurnColor == sel.Color)
	return sideToMove && mv.Dests.Has(sel.Square, to)
}

// PointerDown handles a press at p. A mouse press right after a touch is the browser's
// emulated mouse event and is ignored.
func (b *Board) PointerDown(p Point, kind PointerKind) {
	defer b.begin()()
	if !b.enabled {
		return
	}
	emulated := kind == Mouse && b.ptr.touchStarted
	b.ptr.touchStarted = kind == Touch
	if emulated {
		return
	}
	sq := PixelsToNotation(p, b.cfg.SquareSize, b.cfg.Orientation)
	if sq == "" {
		return
	}

	sel := b.ptr.selected
	canMove := b.canMove(sel, sq)
	if (sel != nil && sel.Square == sq && b.ptr.isSelect) || (sel == nil && !b.ptr.isSelect) || !canMove {
		b.pressSquare(p, sq, sel, canMove)
		return
	}

	from := sel.Square
	b.resetPointer()
	if _, ok := b.commitMove(from, sq, sourceClick); ok {
		b.ptr.lastMoveWasDrag = false
	}
}

// pressSquare handles a press that does not complete a click move: it arms or clears
// premoves and picks up the piece under the pointer.
func (b *Board) pressSquare(p Point, sq Square, sel *selection, canMove bool) {
	cur, hasCur := b.state.current.squares[sq]
	fut, hasFut := b.state.future.squares[sq]
	pm := &b.cfg.Premovable

	prevDests := pm.Dests
	onPremoveDest := containsSquare(prevDests, sq)
	if !onPremoveDest && pm.Enabled && pm.ShowDests && hasFut &&
		b.cfg.Movable.Color.is(fut.Color) && b.cfg.TurnColor != fut.Color {
		pm.Dests = Premoves(b.state.future.squares, sq)
	} else {
		pm.Dests = nil
	}

	switch {
	case onPremoveDest:
		if sel != nil {
			b.armPremove(sel.Square, sq)
		}
	case !hasFut || b.cfg.TurnColor == fut.Color || (pm.Current != nil && pm.Current.From == sq):
		if pm.Current != nil {
			pm.Current = nil
			b.emit(PremoveUnsetEvent{})
		}
	}

	prevIsSelect := b.ptr.isSelect
	b.resetPointer()
	if !hasFut || onPremoveDest || !b.cfg.Movable.Color.allows(fut.Color) {
		return
	}

	inFlight := !hasCur || cur.Index != fut.Index
	if inFlight {
		b.sched.Cancel()
	}
	b.ptr.selected = &selection{Square: sq, Piece: fut.Piece, Index: fut.Index}
	b.ptr.isSelect = inFlight || sel == nil || sel.Square != sq
	b.ptr.pressed = true
	b.cfg.Selected = sq
	if inFlight || !prevIsSelect || !canMove {
		b.emit(SelectEvent{Square: sq})
	}

	d := b.cfg.Draggable
	if !d.Enabled {
		return
	}
	half := b.cfg.SquareSize / 2
	b.ptr.origin = Point{X: p.X - half, Y: p.Y - half}
	if d.Distance == 0 || (d.AutoDistance && b.ptr.lastMoveWasDrag) {
		pos := b.ptr.origin
		b.ptr.dragPos = &pos
		b.ptr.distancePassed = true
	}
}

// PointerMove drags the picked-up piece once the pointer has travelled past the drag
// distance.
func (b *Board) PointerMove(p Point) {
	d := b.cfg.Draggable
	if !d.Enabled || !b.ptr.pressed || b.ptr.selected == nil {
		return
	}
	half := b.cfg.SquareSize / 2
	pos := Point{X: p.X - half, Y: p.Y - half}
	if !b.ptr.distancePassed {
		moved := math.Hypot(b.ptr.origin.X-pos.X, b.ptr.origin.Y-pos.Y)
		if moved <= d.Distance && !(d.AutoDistance && b.ptr.lastMoveWasDrag) {
			return
		}
		b.ptr.distancePassed = true
	}
	b.ptr.dragPos = &pos
}

// PointerUp drops the dragged piece: off the board it snaps back or is deleted, on its own
// square it stays selected, elsewhere it arms a premove or moves.
func (b *Board) PointerUp() {
	defer b.begin()()
	if !b.ptr.pressed {
		return
	}
	b.ptr.pressed = false
	sel := b.ptr.selected
	if sel == nil {
		return
	}
	size, orientation := b.cfg.SquareSize, b.cfg.Orientation
	pos := NotationToPixels(sel.Square, size, orientation)
	if b.ptr.dragPos != nil {
		pos = *b.ptr.dragPos
	}
	b.ptr.dragPos = nil
	b.ptr.distancePassed = false

	if offBoard(pos, size) {
		if b.cfg.Draggable.DeleteOnDropOff {
			b.state.Drop(sel.Square)
			log.Debug("piece dropped off board", "square", sel.Square, "index", sel.Index)
		}
		b.resetPointer()
		return
	}

	center := Point{X: pos.X + size/2, Y: pos.Y + size/2}
	to := PixelsToNotation(NormalizePixels(center, size), size, orientation)
	if to == "" {
		b.resetPointer()
		return
	}
	if to == sel.Square {
		if !b.ptr.isSelect {
			b.resetPointer()
			b.cfg.Premovable.Dests = nil
		}
		return
	}

	if containsSquare(b.cfg.Premovable.Dests, to) {
		b.armPremove(sel.Square, to)
		b.cfg.Premovable.Dests = nil
	}
	if !b.canMove(sel, to) {
		b.resetPointer()
		return
	}
	from := sel.Square
	b.resetPointer()
	if _, ok := b.commitMove(from, to, sourceDrag); ok {
		b.ptr.lastMoveWasDrag = true
	}
}

// Dragging returns the dragged piece's square and its current top-left pixel position.
func (b *Board) Dragging() (Square, Point, bool) {
	if !b.ptr.pressed || b.ptr.selected == nil || b.ptr.dragPos == nil {
		return "", Point{}, false
	}
	return b.ptr.selected.Square, *b.ptr.dragPos, true
}
