package chessboard

import "strings"

// Square class tags consumed by a rendering layer.
const (
	ClassMoveDest       = "move-dest"
	ClassPremoveDest    = "premove-dest"
	ClassOccupied       = "oc"
	ClassCurrentPremove = "current-premove"
	ClassCheck          = "ljdr-check"
	ClassSelect         = "select"
	ClassLastMove       = "ljdr-last-move"
	ClassLastMove2      = "ljdr-last-move2"
	ClassLastMove3      = "ljdr-last-move3"
)

type classSet map[Square][]string

func (s classSet) add(sq Square, class string) {
	if sq == "" {
		return
	}
	for _, c := range s[sq] {
		if c == class {
			return
		}
	}
	s[sq] = append(s[sq], class)
}

// SquareClasses returns the space-separated class list of every tagged square.
// The selection tag goes last when the selected square is also a last-move endpoint, so
// it renders on top.
func (b *Board) SquareClasses() map[Square]string {
	cfg := b.cfg
	future := b.state.future.squares
	classes := make(classSet)

	if cfg.Selected != "" && cfg.Movable.ShowDests {
		for _, sq := range cfg.Movable.Dests[cfg.Selected] {
			classes.add(sq, ClassMoveDest)
			if _, ok := future[sq]; ok {
				classes.add(sq, ClassOccupied)
			}
		}
	}
	for _, sq := range cfg.Premovable.Dests {
		classes.add(sq, ClassPremoveDest)
		if _, ok := future[sq]; ok {
			classes.add(sq, ClassOccupied)
		}
	}
	if pm := cfg.Premovable.Current; pm != nil {
		classes.add(pm.From, ClassCurrentPremove)
		classes.add(pm.To, ClassCurrentPremove)
	}
	classes.add(cfg.Check, ClassCheck)

	onLastMove := false
	for _, m := range cfg.LastMoves {
		if cfg.Selected != "" && (m.From == cfg.Selected || m.To == cfg.Selected) {
			onLastMove = true
		}
	}
	if !onLastMove {
		classes.add(cfg.Selected, ClassSelect)
	}
	for i, class := range []string{ClassLastMove, ClassLastMove2, ClassLastMove3} {
		classes.add(cfg.LastMoves[i].From, class)
		classes.add(cfg.LastMoves[i].To, class)
	}
	if onLastMove {
		classes.add(cfg.Selected, ClassSelect)
	}

	result := make(map[Square]string, len(classes))
	for sq, list := range classes {
		result[sq] = strings.Join(list, " ")
	}
	return result
}
