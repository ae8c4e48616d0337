package chessboard

// Event is something the board reports to its observers.
type Event interface {
	// Name is the wire name of the event.
	Name() string
}

// MoveEvent reports a committed move as it was requested, before castle expansion.
type MoveEvent struct {
	From     Square `json:"from"`
	To       Square `json:"to"`
	Captured *Piece `json:"captured"`
}

// ChangeEvent reports that a move or batch of moves changed the position.
type ChangeEvent struct{}

// SelectEvent reports a square becoming the active selection.
type SelectEvent struct {
	Square Square `json:"square"`
}

// AfterMoveEvent reports a move committed by the user through the pointer.
type AfterMoveEvent struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

// AfterNewPieceEvent reports a piece inserted with NewPiece.
type AfterNewPieceEvent struct {
	Piece  Piece  `json:"piece"`
	Square Square `json:"square"`
}

// PremoveSetEvent reports an armed premove.
type PremoveSetEvent struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

// PremoveUnsetEvent reports that the armed premove was played or discarded.
type PremoveUnsetEvent struct{}

// AnimationEndEvent reports the end of an animation.
type AnimationEndEvent struct {
	Moves     []Move `json:"moves"`
	Cancelled bool   `json:"cancelled"`
}

func (MoveEvent) Name() string          { return "move" }
func (ChangeEvent) Name() string        { return "change" }
func (SelectEvent) Name() string        { return "select" }
func (AfterMoveEvent) Name() string     { return "after" }
func (AfterNewPieceEvent) Name() string { return "afterNewPiece" }
func (PremoveSetEvent) Name() string    { return "premoveSet" }
func (PremoveUnsetEvent) Name() string  { return "premoveUnset" }
func (AnimationEndEvent) Name() string  { return "animationEnd" }

// Observer receives board events.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Notify calls f(e).
func (f ObserverFunc) Notify(e Event) { f(e) }

// Queue is an Observer that buffers events until drained.
type Queue struct {
	events []Event
}

// Notify appends e to the queue.
func (q *Queue) Notify(e Event) {
	q.events = append(q.events, e)
}

// Drain returns the buffered events and empties the queue.
func (q *Queue) Drain() []Event {
	events := q.events
	q.events = nil
	return events
}

// Len returns the number of buffered events.
func (q *Queue) Len() int { return len(q.events) }
