package chessboard

type mobility func(x1, y1, x2, y2 int) bool

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func pawnMobility(color Color) mobility {
	return func(x1, y1, x2, y2 int) bool {
		if absDiff(x1, x2) >= 2 {
			return false
		}
		if color == White {
			return y2 == y1+1 || (y1 <= 1 && y2 == y1+2 && x1 == x2)
		}
		return y2 == y1-1 || (y1 >= 6 && y2 == y1-2 && x1 == x2)
	}
}

func knightMobility(x1, y1, x2, y2 int) bool {
	xd, yd := absDiff(x1, x2), absDiff(y1, y2)
	return (xd == 1 && yd == 2) || (xd == 2 && yd == 1)
}

func bishopMobility(x1, y1, x2, y2 int) bool {
	return absDiff(x1, x2) == absDiff(y1, y2)
}

func rookMobility(x1, y1, x2, y2 int) bool {
	return x1 == x2 || y1 == y2
}

func queenMobility(x1, y1, x2, y2 int) bool {
	return bishopMobility(x1, y1, x2, y2) || rookMobility(x1, y1, x2, y2)
}

func kingMobility(color Color, rookFiles []int) mobility {
	backRank := 0
	if color == Black {
		backRank = 7
	}
	hasRook := func(file int) bool {
		for _, f := range rookFiles {
			if f == file {
				return true
			}
		}
		return false
	}
	return func(x1, y1, x2, y2 int) bool {
		if absDiff(x1, x2) < 2 && absDiff(y1, y2) < 2 {
			return true
		}
		if y1 != y2 || y1 != backRank {
			return false
		}
		return (x1 == 4 && ((x2 == 2 && hasRook(0)) || (x2 == 6 && hasRook(7)))) || hasRook(x2)
	}
}

// rookFilesOf lists the files of color's rooks on its back rank.
func rookFilesOf(board BoardMap, color Color) []int {
	backRank := 0
	if color == Black {
		backRank = 7
	}
	var files []int
	for _, sq := range AllSquares() {
		p, ok := board[sq]
		if ok && sq.Rank() == backRank && p.Color == color && p.Role == Rook {
			files = append(files, sq.File())
		}
	}
	return files
}

// Premoves lists the squares the piece on sq could reach by its movement pattern alone.
// Sliding pieces are not blocked by anything on their path, pawns may step diagonally
// without a capture, and kings may target their back-rank rooks. The result is advisory:
// an armed premove is checked against the legal destinations when it is played.
func Premoves(board BoardMap, sq Square) []Square {
	piece, ok := board[sq]
	if !ok {
		return nil
	}
	var mob mobility
	switch piece.Role {
	case Pawn:
		mob = pawnMobility(piece.Color)
	case Knight:
		mob = knightMobility
	case Bishop:
		mob = bishopMobility
	case Rook:
		mob = rookMobility
	case Queen:
		mob = queenMobility
	default:
		mob = kingMobility(piece.Color, rookFilesOf(board, piece.Color))
	}
	x1, y1 := sq.File(), sq.Rank()
	var dests []Square
	for _, target := range AllSquares() {
		x2, y2 := target.File(), target.Rank()
		if (x1 != x2 || y1 != y2) && mob(x1, y1, x2, y2) {
			dests = append(dests, target)
		}
	}
	return dests
}
