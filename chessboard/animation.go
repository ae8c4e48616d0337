package chessboard

import (
	"time"
)

// AnimationType selects the visual effect of a single-move animation.
type AnimationType string

const (
	AnimationNormal AnimationType = "normal"
	AnimationGhosts AnimationType = "ghosts"
	AnimationWarp   AnimationType = "warp"
)

// Animations at or below this duration are skipped and moves commit immediately.
const minAnimatedDuration = 70 * time.Millisecond

// AnimationConfig is the animation policy.
type AnimationConfig struct {
	Enabled  bool          `json:"enabled"`
	Duration time.Duration `json:"duration"`
	Type     AnimationType `json:"type"`
}

func (c AnimationConfig) animates() bool {
	return c.Enabled && c.Duration > minAnimatedDuration
}

func easeMain(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

func ghostLag(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - t
}

// trailing copies of a ghosts animation: lag factor and opacity
var ghostTrails = []struct {
	lag     float64
	opacity float64
}{
	{0.3, 0.8},
	{0.6, 0.6},
	{0.9, 0.4},
}

func lerp(a, b Point, t float64) Point {
	return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// Sprite is a transient visual element produced by an animation or a drag.
type Sprite struct {
	Index    int     `json:"index"`
	Piece    Piece   `json:"piece"`
	Position Point   `json:"position"`
	Opacity  float64 `json:"opacity"`
	Class    string  `json:"class,omitempty"`
}

// Overlay is everything an animation frame draws on top of the current layer.
// Pieces overrides the sprites of identified pieces, Trails and Warp are extra copies.
type Overlay struct {
	Pieces map[int]Sprite `json:"pieces,omitempty"`
	Trails []Sprite       `json:"trails,omitempty"`
	Warp   *Sprite        `json:"warp,omitempty"`
}

// Progress is the state of an animation after advancing it.
type Progress struct {
	Fraction float64
	Done     bool
}

// Job is an animation driven by an external clock.
type Job interface {
	Moves() []Move
	Advance(dt time.Duration) Progress
	Cancel() Progress
	Overlay() Overlay
}

type animationStatus int

const (
	animationRunning animationStatus = iota
	animationCompleted
	animationCancelled
)

type track struct {
	move     Move
	index    int
	piece    Piece
	start    Point
	end      Point
	captured int
}

// Animation interpolates one or more moves from the current layer towards the future
// layer. Finishing or cancelling it commits every move through commit exactly once.
type Animation struct {
	moves    []Move
	tracks   []track
	kind     AnimationType
	duration time.Duration
	elapsed  time.Duration
	status   animationStatus
	commit   func(Move)
	overlay  Overlay
}

func newAnimation(moves []Move, current BoardMap, size float64, orientation Color, cfg AnimationConfig, commit func(Move)) *Animation {
	a := &Animation{
		kind:     cfg.Type,
		duration: cfg.Duration,
		commit:   commit,
	}
	scratch := current.Clone()
	for _, m := range moves {
		if m.IsZero() {
			continue
		}
		a.moves = append(a.moves, m)
		moving, ok := scratch[m.From]
		if !ok {
			continue
		}
		captured := -1
		if victim, ok := scratch[m.To]; ok {
			captured = victim.Index
		}
		a.tracks = append(a.tracks, track{
			move:     m,
			index:    moving.Index,
			piece:    moving.Piece,
			start:    NotationToPixels(m.From, size, orientation),
			end:      NotationToPixels(m.To, size, orientation),
			captured: captured,
		})
		scratch[m.To] = moving
		delete(scratch, m.From)
	}
	a.render(0)
	return a
}

// Moves returns the moves the animation commits.
func (a *Animation) Moves() []Move { return a.moves }

// Running reports whether the animation has neither finished nor been cancelled.
func (a *Animation) Running() bool { return a.status == animationRunning }

// Overlay returns the sprites of the latest frame.
func (a *Animation) Overlay() Overlay { return a.overlay }

func (a *Animation) single() bool { return len(a.moves) == 1 }

// Advance moves the clock forward by dt and finishes the animation once the duration
// has elapsed.
func (a *Animation) Advance(dt time.Duration) Progress {
	if a.status != animationRunning {
		return Progress{Fraction: 1, Done: true}
	}
	a.elapsed += dt
	progress := 1.0
	if a.duration > 0 {
		progress = float64(a.elapsed) / float64(a.duration)
	}
	if progress >= 1 {
		a.finish(animationCompleted)
		return Progress{Fraction: 1, Done: true}
	}
	a.render(progress)
	return Progress{Fraction: progress}
}

// Cancel commits every move at once and drops all transient sprites.
func (a *Animation) Cancel() Progress {
	if a.status == animationRunning {
		a.finish(animationCancelled)
	}
	return Progress{Fraction: 1, Done: true}
}

func (a *Animation) finish(status animationStatus) {
	for _, m := range a.moves {
		a.commit(m)
	}
	a.overlay = Overlay{}
	a.status = status
}

func (a *Animation) render(progress float64) {
	overlay := Overlay{Pieces: make(map[int]Sprite)}
	eased := easeMain(progress)
	for _, t := range a.tracks {
		if t.captured >= 0 {
			overlay.Pieces[t.captured] = Sprite{Index: t.captured, Position: t.end, Opacity: 1, Class: "fade"}
		}
		overlay.Pieces[t.index] = Sprite{
			Index:    t.index,
			Piece:    t.piece,
			Position: lerp(t.start, t.end, eased),
			Opacity:  1,
			Class:    "animate",
		}
	}
	if a.single() && len(a.tracks) == 1 {
		t := a.tracks[0]
		switch a.kind {
		case AnimationGhosts:
			for _, g := range ghostTrails {
				overlay.Trails = append(overlay.Trails, Sprite{
					Index:    -1,
					Piece:    t.piece,
					Position: lerp(t.start, t.end, eased-g.lag*ghostLag(progress)),
					Opacity:  g.opacity,
					Class:    "ghost-animate",
				})
			}
		case AnimationWarp:
			overlay.Warp = &Sprite{Index: -1, Piece: t.piece, Position: t.end, Opacity: progress * progress, Class: "warp-animate"}
			moving := overlay.Pieces[t.index]
			moving.Opacity = (progress - 1) * (progress - 1)
			overlay.Pieces[t.index] = moving
			if t.captured >= 0 {
				victim := overlay.Pieces[t.captured]
				victim.Opacity = (1 - progress) * 0.3
				overlay.Pieces[t.captured] = victim
			}
		}
	}
	a.overlay = overlay
}

// Scheduler keeps at most one animation running. Starting a new one cancels the
// previous one first so the current layer converges before it diverges again.
type Scheduler struct {
	active Job
	onEnd  func(job Job, cancelled bool)
}

// NewScheduler returns a scheduler reporting finished animations to onEnd.
func NewScheduler(onEnd func(job Job, cancelled bool)) *Scheduler {
	return &Scheduler{onEnd: onEnd}
}

// Active returns the running job, or nil.
func (s *Scheduler) Active() Job { return s.active }

// Start cancels any running job and makes job the active one.
func (s *Scheduler) Start(job Job) {
	s.Cancel()
	s.active = job
}

// Tick advances the active job by dt. It reports whether a job was running.
func (s *Scheduler) Tick(dt time.Duration) bool {
	job := s.active
	if job == nil {
		return false
	}
	if p := job.Advance(dt); p.Done {
		s.active = nil
		if s.onEnd != nil {
			s.onEnd(job, false)
		}
	}
	return true
}

// Cancel finishes the active job immediately.
func (s *Scheduler) Cancel() {
	job := s.active
	if job == nil {
		return
	}
	s.active = nil
	job.Cancel()
	if s.onEnd != nil {
		s.onEnd(job, true)
	}
}

// CancelTouching cancels the active job if it moves a piece from or to sq.
func (s *Scheduler) CancelTouching(sq Square) {
	if s.active == nil {
		return
	}
	for _, m := range s.active.Moves() {
		if m.From == sq || m.To == sq {
			s.Cancel()
			return
		}
	}
}
