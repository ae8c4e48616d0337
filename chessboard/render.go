package chessboard

import (
	"sort"
	"strconv"
)

// SquareView is a tagged square of the render snapshot.
type SquareView struct {
	Square    Square `json:"square"`
	Position  Point  `json:"position"`
	Transform string `json:"transform"`
	Classes   string `json:"classes"`
}

// PieceView is one rendered piece element, keyed by its identity index.
type PieceView struct {
	Index     int     `json:"index"`
	Piece     Piece   `json:"piece"`
	Square    Square  `json:"square"`
	Position  Point   `json:"position"`
	Transform string  `json:"transform"`
	Opacity   float64 `json:"opacity"`
	Class     string  `json:"class,omitempty"`
}

// RenderState is everything a rendering layer needs to draw one frame.
type RenderState struct {
	SquareSize  float64      `json:"squareSize"`
	Size        float64      `json:"size"`
	Orientation Color        `json:"orientation"`
	TurnColor   Color        `json:"turnColor"`
	Squares     []SquareView `json:"squares"`
	Pieces      []PieceView  `json:"pieces"`
	Ghost       *PieceView   `json:"ghost,omitempty"`
	Trails      []Sprite     `json:"trails,omitempty"`
	Warp        *Sprite      `json:"warp,omitempty"`
	// Files and Ranks are coordinate labels in display order, left to right and top to
	// bottom. Both are empty when coordinates are off.
	Files     []string `json:"files,omitempty"`
	Ranks     []string `json:"ranks,omitempty"`
	Animating bool     `json:"animating"`
	Enabled   bool     `json:"enabled"`
}

// Render snapshots the board: current-layer pieces with the running animation frame and
// the drag applied, square classes and coordinate labels.
func (b *Board) Render() RenderState {
	size, orientation := b.cfg.SquareSize, b.cfg.Orientation
	rs := RenderState{
		SquareSize:  size,
		Size:        size * 8,
		Orientation: orientation,
		TurnColor:   b.cfg.TurnColor,
		Animating:   b.Animating(),
		Enabled:     b.enabled,
	}

	classes := b.SquareClasses()
	for _, sq := range AllSquares() {
		c, ok := classes[sq]
		if !ok {
			continue
		}
		pos := NotationToPixels(sq, size, orientation)
		rs.Squares = append(rs.Squares, SquareView{Square: sq, Position: pos, Transform: PixelsToTranslate(pos), Classes: c})
	}

	var overlay Overlay
	if job := b.sched.Active(); job != nil {
		overlay = job.Overlay()
	}
	dragSquare, dragPos, dragging := b.Dragging()

	for sq, p := range b.state.current.squares {
		view := PieceView{
			Index:    p.Index,
			Piece:    p.Piece,
			Square:   sq,
			Position: NotationToPixels(sq, size, orientation),
			Opacity:  1,
		}
		if sprite, ok := overlay.Pieces[p.Index]; ok {
			view.Position, view.Opacity, view.Class = sprite.Position, sprite.Opacity, sprite.Class
		}
		if dragging && sq == dragSquare {
			view.Position, view.Class = dragPos, "drag"
		}
		view.Transform = PixelsToTranslate(view.Position)
		rs.Pieces = append(rs.Pieces, view)
	}
	sort.Slice(rs.Pieces, func(i, j int) bool { return rs.Pieces[i].Index < rs.Pieces[j].Index })

	if dragging && b.cfg.Draggable.ShowGhost {
		if p, ok := b.state.current.squares[dragSquare]; ok {
			pos := NotationToPixels(dragSquare, size, orientation)
			rs.Ghost = &PieceView{
				Index:     -1,
				Piece:     p.Piece,
				Square:    dragSquare,
				Position:  pos,
				Transform: PixelsToTranslate(pos),
				Opacity:   1,
				Class:     "ghost",
			}
		}
	}
	rs.Trails = overlay.Trails
	rs.Warp = overlay.Warp

	if b.cfg.Coordinates {
		rs.Files, rs.Ranks = coordinateLabels(orientation)
	}
	return rs
}

func coordinateLabels(orientation Color) (files, ranks []string) {
	for i := 0; i < 8; i++ {
		file, rank := i, 8-i
		if orientation == Black {
			file, rank = 7-i, i+1
		}
		files = append(files, string(rune('a'+file)))
		ranks = append(ranks, strconv.Itoa(rank))
	}
	return files, ranks
}
