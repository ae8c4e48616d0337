package chessboard

import (
	"cmp"
	"slices"

	"golang.org/x/exp/maps"
)

func sortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// IndexedPiece is a piece together with its identity index.
type IndexedPiece struct {
	Piece
	Index int `json:"index"`
}

// PlacedPiece is a piece together with the square it stands on.
type PlacedPiece struct {
	Piece
	Square Square `json:"square"`
}

// BoardMap maps squares to the identified pieces standing on them.
type BoardMap map[Square]IndexedPiece

// IndexMap is the inverse view of a BoardMap, keyed by identity index.
type IndexMap map[int]PlacedPiece

// Pieces strips identity indices from m.
func (m BoardMap) Pieces() map[Square]Piece {
	pieces := make(map[Square]Piece, len(m))
	for sq, p := range m {
		pieces[sq] = p.Piece
	}
	return pieces
}

// Indexes builds the inverse view of m.
func (m BoardMap) Indexes() IndexMap {
	indexes := make(IndexMap, len(m))
	for sq, p := range m {
		indexes[p.Index] = PlacedPiece{Piece: p.Piece, Square: sq}
	}
	return indexes
}

// Clone returns a shallow copy of m.
func (m BoardMap) Clone() BoardMap {
	return maps.Clone(m)
}

// Equal reports whether both maps hold the same identified pieces on the same squares.
func (m BoardMap) Equal(other BoardMap) bool {
	return maps.Equal(m, other)
}

// layer is one time phase of the board: its square view and its index view.
type layer struct {
	squares BoardMap
	indexes IndexMap
}

func newLayer(squares BoardMap) layer {
	return layer{squares: squares.Clone(), indexes: squares.Indexes()}
}

// State owns both board layers and the identity index registry. The future layer is the
// settled position, the current layer is what is rendered and catches up with the future
// as animations finish.
type State struct {
	current layer
	future  layer
	free    map[int]struct{}
	next    int
}

// NewState builds a settled state from the placement field of fen.
func NewState(fen string) *State {
	squares, _, count := ParseFEN(fen)
	return &State{
		current: newLayer(squares),
		future:  newLayer(squares),
		free:    make(map[int]struct{}),
		next:    count,
	}
}

// Current returns a copy of the rendered layer.
func (s *State) Current() BoardMap { return s.current.squares.Clone() }

// Future returns a copy of the settled layer.
func (s *State) Future() BoardMap { return s.future.squares.Clone() }

// CurrentIndexes returns a copy of the rendered layer keyed by identity index.
func (s *State) CurrentIndexes() IndexMap { return maps.Clone(s.current.indexes) }

// FutureIndexes returns a copy of the settled layer keyed by identity index.
func (s *State) FutureIndexes() IndexMap { return maps.Clone(s.future.indexes) }

// FreeIndexes returns the reclaimed identity indices in ascending order.
func (s *State) FreeIndexes() []int {
	return sortedKeys(s.free)
}

// Converged reports whether the rendered layer has caught up with the settled one.
func (s *State) Converged() bool {
	return s.current.squares.Equal(s.future.squares)
}

// release returns idx to the free pool.
func (s *State) release(idx int) {
	s.free[idx] = struct{}{}
}

// live reports whether idx is still used by either layer.
func (s *State) live(idx int) bool {
	_, cur := s.current.indexes[idx]
	_, fut := s.future.indexes[idx]
	return cur || fut
}

// allocate hands out the lowest reclaimed index that no layer still uses, else the next
// never-used index.
func (s *State) allocate() int {
	for _, idx := range s.FreeIndexes() {
		if s.live(idx) {
			continue
		}
		delete(s.free, idx)
		return idx
	}
	idx := s.next
	s.next++
	return idx
}

// movePiece moves whatever stands on from to to within l, reclaiming a captured index.
func (s *State) movePiece(l *layer, from, to Square) {
	moving, ok := l.squares[from]
	if !ok {
		return
	}
	if captured, ok := l.squares[to]; ok && captured.Index != moving.Index {
		delete(l.indexes, captured.Index)
		s.release(captured.Index)
	}
	l.indexes[moving.Index] = PlacedPiece{Piece: moving.Piece, Square: to}
	l.squares[to] = moving
	delete(l.squares, from)
}

// MoveFuture applies a move to the settled layer.
func (s *State) MoveFuture(from, to Square) { s.movePiece(&s.future, from, to) }

// MoveCurrent applies a move to the rendered layer.
func (s *State) MoveCurrent(from, to Square) { s.movePiece(&s.current, from, to) }

// SyncCurrent snaps the rendered layer to the settled one.
func (s *State) SyncCurrent() {
	s.current = newLayer(s.future.squares)
}

// Reconcile maps next onto identified pieces, keeping identity indices of s's current
// layer wherever a piece of the same color and role can stay or be transplanted. Pieces
// that find no home are returned to the free pool.
func (s *State) Reconcile(next map[Square]Piece) BoardMap {
	pool := s.current.squares.Clone()
	result := make(BoardMap, len(next))
	targets := sortedKeys(next)

	for _, sq := range targets {
		if old, ok := pool[sq]; ok && old.Piece == next[sq] {
			result[sq] = old
			delete(pool, sq)
		}
	}

	for _, sq := range targets {
		if _, done := result[sq]; done {
			continue
		}
		want := next[sq]
		reused := false
		for _, from := range sortedKeys(pool) {
			if old := pool[from]; old.Piece == want {
				result[sq] = old
				delete(pool, from)
				reused = true
				break
			}
		}
		if reused {
			continue
		}
		result[sq] = IndexedPiece{Piece: want, Index: s.allocateExcept(result)}
	}

	for _, leftover := range pool {
		s.release(leftover.Index)
	}
	return result
}

// allocateExcept allocates an index that is also unused by the partially built map.
func (s *State) allocateExcept(partial BoardMap) int {
	taken := make(map[int]bool, len(partial))
	for _, p := range partial {
		taken[p.Index] = true
	}
	for _, idx := range s.FreeIndexes() {
		if taken[idx] {
			continue
		}
		delete(s.free, idx)
		return idx
	}
	idx := s.next
	s.next++
	return idx
}

// Replace settles both layers on squares.
func (s *State) Replace(squares BoardMap) {
	s.future = newLayer(squares)
	s.current = newLayer(squares)
	for _, p := range squares {
		delete(s.free, p.Index)
	}
}

// Put places piece on sq in both layers. An identity index already on sq in the settled
// layer is reused, otherwise one is allocated.
func (s *State) Put(piece Piece, sq Square) int {
	var idx int
	if existing, ok := s.future.squares[sq]; ok {
		idx = existing.Index
	} else {
		idx = s.allocate()
	}
	if old, ok := s.current.squares[sq]; ok && old.Index != idx {
		delete(s.current.indexes, old.Index)
		if _, inFuture := s.future.indexes[old.Index]; !inFuture {
			s.release(old.Index)
		}
	}
	for _, l := range []*layer{&s.current, &s.future} {
		if placed, ok := l.indexes[idx]; ok && placed.Square != sq {
			delete(l.squares, placed.Square)
		}
		l.squares[sq] = IndexedPiece{Piece: piece, Index: idx}
		l.indexes[idx] = PlacedPiece{Piece: piece, Square: sq}
	}
	return idx
}

// Remove deletes the piece on sq from both layers and reclaims its index. It does nothing
// unless both layers agree on the identity index standing there.
func (s *State) Remove(sq Square) bool {
	cur, okCur := s.current.squares[sq]
	fut, okFut := s.future.squares[sq]
	if !okCur || !okFut || cur.Index != fut.Index {
		return false
	}
	for _, l := range []*layer{&s.current, &s.future} {
		delete(l.squares, sq)
		delete(l.indexes, cur.Index)
	}
	s.release(cur.Index)
	return true
}

// Drop removes the piece on sq from both layers regardless of index agreement,
// reclaiming whichever indices it held.
func (s *State) Drop(sq Square) {
	for _, l := range []*layer{&s.current, &s.future} {
		if p, ok := l.squares[sq]; ok {
			delete(l.squares, sq)
			delete(l.indexes, p.Index)
			if !s.live(p.Index) {
				s.release(p.Index)
			}
		}
	}
}
