package chessboard

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// MovableColor restricts which side the user may move.
type MovableColor string

const (
	MovableWhite MovableColor = "white"
	MovableBlack MovableColor = "black"
	MovableBoth  MovableColor = "both"
)

// allows reports whether pieces of c may be picked up.
func (m MovableColor) allows(c Color) bool {
	return m == MovableBoth || Color(m) == c
}

// is reports whether m restricts input to exactly c.
func (m MovableColor) is(c Color) bool {
	return c != "" && Color(m) == c
}

func (m MovableColor) valid() bool {
	return m == MovableWhite || m == MovableBlack || m == MovableBoth
}

// MovableConfig is the policy for moving pieces with the pointer.
type MovableConfig struct {
	Free      bool         `json:"free"`
	Color     MovableColor `json:"color"`
	Dests     Dests        `json:"dests"`
	ShowDests bool         `json:"showDests"`
}

// PremovableConfig is the policy for premoves and the armed premove itself.
type PremovableConfig struct {
	Enabled   bool     `json:"enabled"`
	ShowDests bool     `json:"showDests"`
	Current   *Move    `json:"current"`
	Dests     []Square `json:"dests"`
}

// DraggableConfig is the drag-and-drop policy.
type DraggableConfig struct {
	Enabled         bool    `json:"enabled"`
	Distance        float64 `json:"distance"`
	AutoDistance    bool    `json:"autoDistance"`
	ShowGhost       bool    `json:"showGhost"`
	DeleteOnDropOff bool    `json:"deleteOnDropOff"`
}

// Config is the full board configuration.
type Config struct {
	Orientation Color            `json:"orientation"`
	TurnColor   Color            `json:"turnColor"`
	Check       Square           `json:"check"`
	LastMoves   [3]Move          `json:"lastMoves"`
	Selected    Square           `json:"selected"`
	Coordinates bool             `json:"coordinates"`
	AutoCastle  bool             `json:"autoCastle"`
	SquareSize  float64          `json:"squareSize"`
	Animation   AnimationConfig  `json:"animation"`
	Movable     MovableConfig    `json:"movable"`
	Premovable  PremovableConfig `json:"premovable"`
	Draggable   DraggableConfig  `json:"draggable"`
}

// DefaultConfig returns the configuration of a fresh board.
func DefaultConfig() Config {
	return Config{
		Orientation: White,
		TurnColor:   White,
		Coordinates: true,
		AutoCastle:  true,
		SquareSize:  60,
		Animation: AnimationConfig{
			Enabled:  true,
			Duration: 200 * time.Millisecond,
			Type:     AnimationNormal,
		},
		Movable: MovableConfig{
			Free:      true,
			Color:     MovableBoth,
			ShowDests: true,
		},
		Premovable: PremovableConfig{
			Enabled:   true,
			ShowDests: true,
		},
		Draggable: DraggableConfig{
			Enabled:      true,
			Distance:     3,
			AutoDistance: true,
			ShowGhost:    true,
		},
	}
}

type options struct {
	fen       string
	check     *SetCheck
	config    Config
	observers []Observer
}

// Option configures a new Board.
type Option func(*options)

// WithFEN sets the initial position.
func WithFEN(fen string) Option {
	return func(o *options) { o.fen = fen }
}

// WithOrientation sets which side faces the bottom of the board.
func WithOrientation(c Color) Option {
	return func(o *options) { o.config.Orientation = c }
}

// WithTurnColor sets the side to move.
func WithTurnColor(c Color) Option {
	return func(o *options) { o.config.TurnColor = c }
}

// WithCheck flags a king in check, see SetCheck.
func WithCheck(check SetCheck) Option {
	return func(o *options) { o.check = &check }
}

// WithLastMove highlights a move in slot 1.
func WithLastMove(from, to Square) Option {
	return func(o *options) { o.config.LastMoves[0] = Move{From: from, To: to} }
}

// WithSelected preselects a square.
func WithSelected(sq Square) Option {
	return func(o *options) { o.config.Selected = sq }
}

// WithCoordinates toggles rank and file labels.
func WithCoordinates(enabled bool) Option {
	return func(o *options) { o.config.Coordinates = enabled }
}

// WithAutoCastle toggles castle expansion of king moves.
func WithAutoCastle(enabled bool) Option {
	return func(o *options) { o.config.AutoCastle = enabled }
}

// WithSquareSize sets the square size in pixels.
func WithSquareSize(size float64) Option {
	return func(o *options) { o.config.SquareSize = size }
}

// WithAnimation sets the animation policy.
func WithAnimation(a AnimationConfig) Option {
	return func(o *options) { o.config.Animation = a }
}

// WithMovable sets the movable policy.
func WithMovable(m MovableConfig) Option {
	return func(o *options) { o.config.Movable = m }
}

// WithPremovable sets the premove policy.
func WithPremovable(p PremovableConfig) Option {
	return func(o *options) { o.config.Premovable = p }
}

// WithDraggable sets the drag policy.
func WithDraggable(d DraggableConfig) Option {
	return func(o *options) { o.config.Draggable = d }
}

// WithObserver subscribes obs to board events.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

func (o *options) validate() error {
	var result *multierror.Error
	if err := validatePlacement(o.fen); err != nil {
		result = multierror.Append(result, err)
	}
	c := o.config
	if !c.Orientation.Valid() {
		result = multierror.Append(result, fmt.Errorf("orientation %q: %w", c.Orientation, ErrInvalidColor))
	}
	if !c.TurnColor.Valid() {
		result = multierror.Append(result, fmt.Errorf("turn color %q: %w", c.TurnColor, ErrInvalidColor))
	}
	if c.Selected != "" && !c.Selected.Valid() {
		result = multierror.Append(result, fmt.Errorf("selected %q: %w", c.Selected, ErrInvalidSquare))
	}
	if c.SquareSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("%v: %w", c.SquareSize, ErrInvalidSquareSize))
	}
	switch c.Animation.Type {
	case AnimationNormal, AnimationGhosts, AnimationWarp:
	default:
		result = multierror.Append(result, fmt.Errorf("type %q: %w", c.Animation.Type, ErrInvalidAnimation))
	}
	if c.Animation.Duration < 0 {
		result = multierror.Append(result, fmt.Errorf("duration %v: %w", c.Animation.Duration, ErrInvalidAnimation))
	}
	if !c.Movable.Color.valid() {
		result = multierror.Append(result, fmt.Errorf("%q: %w", c.Movable.Color, ErrInvalidMovableSide))
	}
	if c.Draggable.Distance < 0 {
		result = multierror.Append(result, fmt.Errorf("distance %v: %w", c.Draggable.Distance, ErrInvalidDragPolicy))
	}
	return result.ErrorOrNil()
}

// validatePlacement checks that fen's placement field describes eight full ranks.
func validatePlacement(fen string) error {
	ranks := strings.Split(placementField(fen), "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%q has %d ranks: %w", fen, len(ranks), ErrInvalidFEN)
	}
	for i, rank := range ranks {
		files := 0
		for j := 0; j < len(rank); j++ {
			if c := rank[j]; c >= '0' && c <= '9' {
				files += int(c - '0')
			} else {
				files++
			}
		}
		if files != 8 {
			return fmt.Errorf("%q rank %d has %d files: %w", fen, 8-i, files, ErrInvalidFEN)
		}
	}
	return nil
}

// Command is one narrow configuration change applied with Board.Apply.
type Command interface {
	apply(b *Board)
}

// ReplacePosition replaces the whole position, keeping identity indices of pieces that
// can stay or move to a matching square.
type ReplacePosition struct{ FEN string }

// SetOrientation sets which side faces the bottom of the board.
type SetOrientation struct{ Orientation Color }

// SetTurn sets the side to move.
type SetTurn struct{ Color Color }

// SetCheck flags the king in check. Color names the king explicitly; otherwise InCheck
// flags the king of the side to move. The zero value clears the flag.
type SetCheck struct {
	InCheck bool
	Color   Color
}

// SetHighlights sets last-move highlight slot 1, 2 or 3.
type SetHighlights struct {
	Slot     int
	From, To Square
}

// SetSelected selects the piece on Square, or clears the selection when it is empty.
type SetSelected struct{ Square Square }

// SetSquareSize sets the square size in pixels.
type SetSquareSize struct{ Size float64 }

// SetCoordinates toggles rank and file labels.
type SetCoordinates struct{ Enabled bool }

// SetAutoCastle toggles castle expansion.
type SetAutoCastle struct{ Enabled bool }

// SetAnimation updates the fields of the animation policy that are set.
type SetAnimation struct {
	Enabled  *bool
	Duration *time.Duration
	Type     AnimationType
}

// SetMovable updates the fields of the movable policy that are set. A non-nil Dests,
// even empty, replaces the destination map.
type SetMovable struct {
	Free      *bool
	Color     MovableColor
	Dests     Dests
	ShowDests *bool
}

// SetPremovable updates the fields of the premove policy that are set.
type SetPremovable struct {
	Enabled   *bool
	ShowDests *bool
}

// SetDraggable updates the fields of the drag policy that are set.
type SetDraggable struct {
	Enabled         *bool
	Distance        *float64
	AutoDistance    *bool
	ShowGhost       *bool
	DeleteOnDropOff *bool
}

func (c ReplacePosition) apply(b *Board) {
	if validatePlacement(c.FEN) != nil {
		log.Debug("ignoring invalid position", "fen", c.FEN)
		return
	}
	b.replace(ParsePlacement(c.FEN))
}

func (c SetOrientation) apply(b *Board) {
	if !c.Orientation.Valid() || c.Orientation == b.cfg.Orientation {
		return
	}
	b.cfg.Orientation = c.Orientation
	b.resetPointer()
}

func (c SetTurn) apply(b *Board) {
	if c.Color.Valid() {
		b.cfg.TurnColor = c.Color
	}
}

func (c SetCheck) apply(b *Board) {
	color := c.Color
	if !color.Valid() {
		color = ""
		if c.InCheck {
			color = b.cfg.TurnColor
		}
	}
	b.cfg.Check = ""
	if color != "" {
		b.cfg.Check = KingSquare(b.FEN(), color)
	}
}

func (c SetHighlights) apply(b *Board) {
	if c.Slot < 1 || c.Slot > 3 {
		return
	}
	b.cfg.LastMoves[c.Slot-1] = Move{From: ParseSquare(string(c.From)), To: ParseSquare(string(c.To))}
}

func (c SetSelected) apply(b *Board) {
	sq := ParseSquare(string(c.Square))
	if sq == "" {
		b.resetPointer()
		return
	}
	p, ok := b.state.current.squares[sq]
	if !ok {
		b.resetPointer()
		return
	}
	b.ptr.selected = &selection{Square: sq, Piece: p.Piece, Index: p.Index}
	b.ptr.isSelect = true
	b.cfg.Selected = sq
}

func (c SetSquareSize) apply(b *Board) {
	if c.Size > 0 {
		b.cfg.SquareSize = c.Size
	}
}

func (c SetCoordinates) apply(b *Board) { b.cfg.Coordinates = c.Enabled }

func (c SetAutoCastle) apply(b *Board) { b.cfg.AutoCastle = c.Enabled }

func (c SetAnimation) apply(b *Board) {
	if c.Enabled != nil {
		b.cfg.Animation.Enabled = *c.Enabled
	}
	if c.Duration != nil && *c.Duration >= 0 {
		b.cfg.Animation.Duration = *c.Duration
	}
	switch c.Type {
	case AnimationNormal, AnimationGhosts, AnimationWarp:
		b.cfg.Animation.Type = c.Type
	}
}

func (c SetMovable) apply(b *Board) {
	if c.Free != nil {
		b.cfg.Movable.Free = *c.Free
	}
	if c.Color.valid() {
		b.cfg.Movable.Color = c.Color
	}
	if c.Dests != nil {
		b.cfg.Movable.Dests = c.Dests
	}
	if c.ShowDests != nil {
		b.cfg.Movable.ShowDests = *c.ShowDests
	}
}

func (c SetPremovable) apply(b *Board) {
	if c.Enabled != nil {
		b.cfg.Premovable.Enabled = *c.Enabled
	}
	if c.ShowDests != nil {
		b.cfg.Premovable.ShowDests = *c.ShowDests
	}
}

func (c SetDraggable) apply(b *Board) {
	if c.Enabled != nil {
		b.cfg.Draggable.Enabled = *c.Enabled
	}
	if c.Distance != nil && *c.Distance >= 0 {
		b.cfg.Draggable.Distance = *c.Distance
	}
	if c.AutoDistance != nil {
		b.cfg.Draggable.AutoDistance = *c.AutoDistance
	}
	if c.ShowGhost != nil {
		b.cfg.Draggable.ShowGhost = *c.ShowGhost
	}
	if c.DeleteOnDropOff != nil {
		b.cfg.Draggable.DeleteOnDropOff = *c.DeleteOnDropOff
	}
}

// CheckFlag is the JSON form of the check option: a boolean or a color name.
type CheckFlag SetCheck

// UnmarshalJSON accepts true, false, "white" or "black".
func (f *CheckFlag) UnmarshalJSON(data []byte) error {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		*f = CheckFlag{InCheck: flag}
		return nil
	}
	var color Color
	if err := json.Unmarshal(data, &color); err != nil {
		return err
	}
	*f = CheckFlag{InCheck: color.Valid(), Color: color}
	return nil
}

// AnimationPatch is the JSON form of SetAnimation. Duration is in milliseconds.
type AnimationPatch struct {
	Enabled  *bool         `json:"enabled"`
	Duration *int          `json:"duration"`
	Type     AnimationType `json:"type"`
}

// MovablePatch is the JSON form of SetMovable.
type MovablePatch struct {
	Free      *bool        `json:"free"`
	Color     MovableColor `json:"color"`
	Dests     Dests        `json:"dests"`
	ShowDests *bool        `json:"showDests"`
}

// PremovablePatch is the JSON form of SetPremovable.
type PremovablePatch struct {
	Enabled   *bool `json:"enabled"`
	ShowDests *bool `json:"showDests"`
}

// DraggablePatch is the JSON form of SetDraggable.
type DraggablePatch struct {
	Enabled         *bool    `json:"enabled"`
	Distance        *float64 `json:"distance"`
	AutoDistance    *bool    `json:"autoDistance"`
	ShowGhost       *bool    `json:"showGhost"`
	DeleteOnDropOff *bool    `json:"deleteOnDropOff"`
}

// Patch is a partial configuration. Only the fields present are applied; unknown JSON
// keys are ignored.
type Patch struct {
	FEN         string           `json:"fen,omitempty"`
	Orientation Color            `json:"orientation,omitempty"`
	TurnColor   Color            `json:"turnColor,omitempty"`
	Check       *CheckFlag       `json:"check,omitempty"`
	LastMove    *[2]Square       `json:"lastMove,omitempty"`
	LastMove2   *[2]Square       `json:"lastMove2,omitempty"`
	LastMove3   *[2]Square       `json:"lastMove3,omitempty"`
	Selected    *Square          `json:"selected,omitempty"`
	Coordinates *bool            `json:"coordinates,omitempty"`
	AutoCastle  *bool            `json:"autoCastle,omitempty"`
	SquareSize  float64          `json:"squareSize,omitempty"`
	Animation   *AnimationPatch  `json:"animation,omitempty"`
	Movable     *MovablePatch    `json:"movable,omitempty"`
	Premovable  *PremovablePatch `json:"premovable,omitempty"`
	Draggable   *DraggablePatch  `json:"draggable,omitempty"`
}

// Commands converts p into commands, position first so later commands see it.
func (p Patch) Commands() []Command {
	var cmds []Command
	if p.FEN != "" {
		cmds = append(cmds, ReplacePosition{FEN: p.FEN})
	}
	if p.Orientation != "" {
		cmds = append(cmds, SetOrientation{Orientation: p.Orientation})
	}
	if p.TurnColor != "" {
		cmds = append(cmds, SetTurn{Color: p.TurnColor})
	}
	if p.Check != nil {
		cmds = append(cmds, SetCheck(*p.Check))
	}
	for slot, lm := range []*[2]Square{p.LastMove, p.LastMove2, p.LastMove3} {
		if lm != nil {
			cmds = append(cmds, SetHighlights{Slot: slot + 1, From: lm[0], To: lm[1]})
		}
	}
	if p.Selected != nil {
		cmds = append(cmds, SetSelected{Square: *p.Selected})
	}
	if p.Coordinates != nil {
		cmds = append(cmds, SetCoordinates{Enabled: *p.Coordinates})
	}
	if p.AutoCastle != nil {
		cmds = append(cmds, SetAutoCastle{Enabled: *p.AutoCastle})
	}
	if p.SquareSize > 0 {
		cmds = append(cmds, SetSquareSize{Size: p.SquareSize})
	}
	if a := p.Animation; a != nil {
		cmd := SetAnimation{Enabled: a.Enabled, Type: a.Type}
		if a.Duration != nil {
			d := time.Duration(*a.Duration) * time.Millisecond
			cmd.Duration = &d
		}
		cmds = append(cmds, cmd)
	}
	if m := p.Movable; m != nil {
		cmds = append(cmds, SetMovable{Free: m.Free, Color: m.Color, Dests: m.Dests, ShowDests: m.ShowDests})
	}
	if pm := p.Premovable; pm != nil {
		cmds = append(cmds, SetPremovable{Enabled: pm.Enabled, ShowDests: pm.ShowDests})
	}
	if d := p.Draggable; d != nil {
		cmds = append(cmds, SetDraggable{
			Enabled:         d.Enabled,
			Distance:        d.Distance,
			AutoDistance:    d.AutoDistance,
			ShowGhost:       d.ShowGhost,
			DeleteOnDropOff: d.DeleteOnDropOff,
		})
	}
	return cmds
}
