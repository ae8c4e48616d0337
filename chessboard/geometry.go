package chessboard

import (
	"math"
	"regexp"
	"strconv"
)

// Coords is a grid position: column 0..7 from the a-file and row 0..7 from the eighth rank.
type Coords [2]int

// Point is a pixel offset from the board's top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NotationToCoords converts a square to grid coordinates.
func NotationToCoords(sq Square) Coords {
	return Coords{sq.File(), 7 - sq.Rank()}
}

// CoordsToNotation converts grid coordinates to a square. Out of range coordinates give "".
func CoordsToNotation(c Coords) Square {
	return squareAt(c[0], 7-c[1])
}

// CoordsToPixels returns the top-left pixel of a grid cell as seen from orientation.
func CoordsToPixels(c Coords, size float64, orientation Color) Point {
	col, row := c[0], c[1]
	if orientation == Black {
		col, row = 7-col, 7-row
	}
	return Point{X: float64(col) * size, Y: float64(row) * size}
}

// PixelsToCoords returns the grid cell containing p as seen from orientation.
func PixelsToCoords(p Point, size float64, orientation Color) Coords {
	col := int(math.Floor(p.X / size))
	row := int(math.Floor(p.Y / size))
	if orientation == Black {
		col, row = 7-col, 7-row
	}
	return Coords{col, row}
}

// NotationToPixels returns the top-left pixel of sq.
func NotationToPixels(sq Square, size float64, orientation Color) Point {
	return CoordsToPixels(NotationToCoords(sq), size, orientation)
}

// PixelsToNotation returns the square under p, or "" when p is off the board.
func PixelsToNotation(p Point, size float64, orientation Color) Square {
	return CoordsToNotation(PixelsToCoords(p, size, orientation))
}

// PixelsToTranslate renders p as a CSS translate transform.
func PixelsToTranslate(p Point) string {
	return "translate(" + formatPx(p.X) + "px, " + formatPx(p.Y) + "px)"
}

var translatePattern = regexp.MustCompile(`translate\(([-\d.]+)px,\s*([-\d.]+)px\)`)

// TranslateToPixels parses a CSS translate transform. Unparseable input gives the origin.
func TranslateToPixels(translate string) Point {
	m := translatePattern.FindStringSubmatch(translate)
	if m == nil {
		return Point{}
	}
	x, errX := strconv.ParseFloat(m[1], 64)
	y, errY := strconv.ParseFloat(m[2], 64)
	if errX != nil || errY != nil {
		return Point{}
	}
	return Point{X: x, Y: y}
}

// NotationToTranslate renders the transform that places a piece on sq.
func NotationToTranslate(sq Square, size float64, orientation Color) string {
	return PixelsToTranslate(NotationToPixels(sq, size, orientation))
}

// NormalizePixels snaps a pixel position to the top-left corner of its cell.
func NormalizePixels(p Point, size float64) Point {
	return Point{
		X: math.Floor(p.X/size) * size,
		Y: math.Floor(p.Y/size) * size,
	}
}

// offBoard reports whether a dragged piece's top-left position lies more than half a
// square outside the board.
func offBoard(p Point, size float64) bool {
	half := size / 2
	limit := size*7 + half
	return p.X < -half || p.Y < -half || p.X > limit || p.Y > limit
}

func formatPx(v float64) string {
	if v == 0 {
		v = 0 // normalise -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
