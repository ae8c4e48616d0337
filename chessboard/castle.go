package chessboard

// CastleResult is the expansion of a king move.
type CastleResult struct {
	King   Move
	Rook   Move
	Castle bool
}

// Moves returns the non-empty moves of r, king first.
func (r CastleResult) Moves() []Move {
	if r.Rook.IsZero() {
		return []Move{r.King}
	}
	return []Move{r.King, r.Rook}
}

// ResolveCastle recognises castling intent in a king move on board. A king moving to the
// c or g file of its own rank castles when the squares it crosses are empty and a rook of
// its color stands on the matching corner. A king moving onto a rook of its color on the
// a or h file of its own rank castles towards that rook.
func ResolveCastle(from, to Square, board BoardMap) CastleResult {
	plain := CastleResult{King: Move{From: from, To: to}}
	if !from.Valid() || !to.Valid() {
		return plain
	}
	king, ok := board[from]
	if !ok || king.Role != King || from.Rank() != to.Rank() {
		return plain
	}
	rank := from.Rank()
	friendlyRook := func(file int) bool {
		p, ok := board[squareAt(file, rank)]
		return ok && p.Role == Rook && p.Color == king.Color
	}

	if to.File() == 2 || to.File() == 6 {
		long := to.File() == 2
		crossed, rookFile, rookTarget := []int{5, 6}, 7, 5
		if long {
			crossed, rookFile, rookTarget = []int{3, 2}, 0, 3
		}
		empty := true
		for _, file := range crossed {
			if _, occupied := board[squareAt(file, rank)]; occupied {
				empty = false
			}
		}
		if empty && friendlyRook(rookFile) {
			return CastleResult{
				King:   Move{From: from, To: to},
				Rook:   Move{From: squareAt(rookFile, rank), To: squareAt(rookTarget, rank)},
				Castle: true,
			}
		}
	}

	if (to.File() == 0 || to.File() == 7) && friendlyRook(to.File()) {
		long := to.File() < from.File()
		kingTarget, rookTarget := 6, 5
		if long {
			kingTarget, rookTarget = 2, 3
		}
		return CastleResult{
			King:   Move{From: from, To: squareAt(kingTarget, rank)},
			Rook:   Move{From: to, To: squareAt(rookTarget, rank)},
			Castle: true,
		}
	}
	return plain
}
