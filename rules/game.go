package rules

import (
	"fmt"
	"log/slog"

	chess "github.com/corentings/chess/v2"
	"github.com/pkg/errors"
	"github.com/walterschell/chessboard/chessboard"
)

var log = slog.Default().With("package", "rules")

// Candidate is a legal move in board terms.
type Candidate struct {
	From      chessboard.Square `json:"from"`
	To        chessboard.Square `json:"to"`
	Promotion chessboard.Role   `json:"promotion,omitempty"`
	Capture   bool              `json:"capture"`
	UCI       string            `json:"uci"`
}

// MoveResult describes a move played on the game.
type MoveResult struct {
	From chessboard.Square `json:"from"`
	// To is the king's target for castling moves entered on the rook square.
	To        chessboard.Square `json:"to"`
	SAN       string            `json:"san"`
	UCI       string            `json:"uci"`
	Castle    bool              `json:"castle"`
	Capture   bool              `json:"capture"`
	Promotion chessboard.Role   `json:"promotion,omitempty"`
	// EnPassant is the square of the pawn taken en passant.
	EnPassant chessboard.Square `json:"enPassant,omitempty"`
	Check     bool              `json:"check"`
	Mate      bool              `json:"mate"`
}

// Game is the rules engine behind a board: legal destinations, move application and
// game status.
type Game struct {
	game  *chess.Game
	check bool
}

// NewGame starts a game from fen, or from the initial position when fen is empty.
func NewGame(fen string) (*Game, error) {
	if fen == "" {
		return &Game{game: chess.NewGame()}, nil
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing FEN %q", fen)
	}
	return &Game{game: chess.NewGame(opt)}, nil
}

func moveToSan(startingPosition *chess.Position, move *chess.Move) string {
	return chess.AlgebraicNotation{}.Encode(startingPosition, move)
}

func moveToUci(startingPosition *chess.Position, move *chess.Move) string {
	return chess.UCINotation{}.Encode(startingPosition, move)
}

func boardSquare(sq chess.Square) chessboard.Square {
	return chessboard.Square(sq.String())
}

func engineSquare(sq chessboard.Square) chess.Square {
	return chess.Square(sq.File() + sq.Rank()*8)
}

var roleByType = map[chess.PieceType]chessboard.Role{
	chess.Pawn:   chessboard.Pawn,
	chess.Knight: chessboard.Knight,
	chess.Bishop: chessboard.Bishop,
	chess.Rook:   chessboard.Rook,
	chess.Queen:  chessboard.Queen,
	chess.King:   chessboard.King,
}

var typeByRole = map[chessboard.Role]chess.PieceType{
	chessboard.Pawn:   chess.Pawn,
	chessboard.Knight: chess.Knight,
	chessboard.Bishop: chess.Bishop,
	chessboard.Rook:   chess.Rook,
	chessboard.Queen:  chess.Queen,
	chessboard.King:   chess.King,
}

func boardColor(c chess.Color) chessboard.Color {
	if c == chess.Black {
		return chessboard.Black
	}
	return chessboard.White
}

// rookSquare returns the rook's corner for a castling move, or "" for other moves.
func rookSquare(m *chess.Move) chessboard.Square {
	from := boardSquare(m.S1())
	rank := string(from[1])
	switch {
	case m.HasTag(chess.KingSideCastle):
		return chessboard.Square("h" + rank)
	case m.HasTag(chess.QueenSideCastle):
		return chessboard.Square("a" + rank)
	}
	return ""
}

// Turn returns the side to move.
func (g *Game) Turn() chessboard.Color {
	return boardColor(g.game.Position().Turn())
}

// FEN returns the full FEN of the current position.
func (g *Game) FEN() string { return g.game.FEN() }

// PieceAt returns the piece on sq.
func (g *Game) PieceAt(sq chessboard.Square) (chessboard.Piece, bool) {
	if !sq.Valid() {
		return chessboard.Piece{}, false
	}
	p := g.game.Position().Board().Piece(engineSquare(sq))
	if p == chess.NoPiece {
		return chessboard.Piece{}, false
	}
	return chessboard.Piece{Color: boardColor(p.Color()), Role: roleByType[p.Type()]}, true
}

// InCheck reports whether the last move gave check.
func (g *Game) InCheck() bool { return g.check }

// Over reports whether the game has ended.
func (g *Game) Over() bool { return g.game.Outcome() != chess.NoOutcome }

// Outcome returns the PGN result and how it came about.
func (g *Game) Outcome() (string, string) {
	return g.game.Outcome().String(), fmt.Sprint(g.game.Method())
}

// History returns the moves played so far in UCI notation.
func (g *Game) History() []string {
	var history []string
	for _, m := range g.game.Moves() {
		history = append(history, moveToUci(nil, m))
	}
	return history
}

// Dests maps every movable piece to its legal targets. A king that can castle may also
// target its rook's square.
func (g *Game) Dests() chessboard.Dests {
	dests := make(chessboard.Dests)
	add := func(from, to chessboard.Square) {
		if !dests.Has(from, to) {
			dests[from] = append(dests[from], to)
		}
	}
	moves := g.game.ValidMoves()
	for i := range moves {
		m := &moves[i]
		add(boardSquare(m.S1()), boardSquare(m.S2()))
	}
	for i := range moves {
		m := &moves[i]
		if rook := rookSquare(m); rook != "" {
			add(boardSquare(m.S1()), rook)
		}
	}
	return dests
}

// Candidates lists the legal moves, one per promotion choice.
func (g *Game) Candidates() []Candidate {
	pos := g.game.Position()
	moves := g.game.ValidMoves()
	candidates := make([]Candidate, 0, len(moves))
	for i := range moves {
		m := &moves[i]
		candidates = append(candidates, Candidate{
			From:      boardSquare(m.S1()),
			To:        boardSquare(m.S2()),
			Promotion: roleByType[m.Promo()],
			Capture:   m.HasTag(chess.Capture) || m.HasTag(chess.EnPassant),
			UCI:       moveToUci(pos, m),
		})
	}
	return candidates
}

// NeedsPromotion reports whether from→to is a pawn move that must choose a piece.
func (g *Game) NeedsPromotion(from, to chessboard.Square) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	moves := g.game.ValidMoves()
	for i := range moves {
		m := &moves[i]
		if boardSquare(m.S1()) == from && boardSquare(m.S2()) == to && m.Promo() != chess.NoPieceType {
			return true
		}
	}
	return false
}

// find returns the legal move from→to, accepting the rook's square as a castling target.
func (g *Game) find(from, to chessboard.Square, promo chessboard.Role) (*chess.Move, error) {
	if !from.Valid() || !to.Valid() {
		return nil, errors.Wrapf(ErrIllegalMove, "%s%s", from, to)
	}
	moves := g.game.ValidMoves()
	promotion := false
	for i := range moves {
		m := &moves[i]
		if boardSquare(m.S1()) != from {
			continue
		}
		if boardSquare(m.S2()) != to && rookSquare(m) != to {
			continue
		}
		if m.Promo() != chess.NoPieceType {
			promotion = true
			if m.Promo() != typeByRole[promo] {
				continue
			}
		}
		return m, nil
	}
	if promotion && promo == "" {
		return nil, errors.Wrapf(ErrPromotionRequired, "%s%s", from, to)
	}
	return nil, errors.Wrapf(ErrIllegalMove, "%s%s", from, to)
}

// Play applies from→to. Promotions need a role.
func (g *Game) Play(from, to chessboard.Square, promo chessboard.Role) (MoveResult, error) {
	move, err := g.find(from, to, promo)
	if err != nil {
		return MoveResult{}, err
	}
	pos := g.game.Position()
	san := moveToSan(pos, move)
	result := MoveResult{
		From:      boardSquare(move.S1()),
		To:        boardSquare(move.S2()),
		SAN:       san,
		UCI:       moveToUci(pos, move),
		Castle:    move.HasTag(chess.KingSideCastle) || move.HasTag(chess.QueenSideCastle),
		Capture:   move.HasTag(chess.Capture) || move.HasTag(chess.EnPassant),
		Promotion: roleByType[move.Promo()],
		Check:     move.HasTag(chess.Check),
	}
	if move.HasTag(chess.EnPassant) {
		result.EnPassant = chessboard.Square(string(result.To[0]) + string(result.From[1]))
	}

	err = g.game.PushMove(san, &chess.PushMoveOptions{
		ForceMainline: true,
	})
	if err != nil {
		log.Error("Error pushing move", "error", err, "san", san, "position", pos.String())
		return MoveResult{}, errors.Wrapf(err, "pushing %s", san)
	}
	g.check = result.Check
	result.Mate = g.game.Method() == chess.Checkmate
	log.Debug("move played", "san", san, "fen", g.FEN())
	return result, nil
}

// PlayUCI applies a move in UCI notation, as produced by an Engine.
func (g *Game) PlayUCI(uci string) (MoveResult, error) {
	move, err := chess.UCINotation{}.Decode(g.game.Position(), uci)
	if err != nil {
		return MoveResult{}, errors.Wrapf(err, "decoding %q", uci)
	}
	return g.Play(boardSquare(move.S1()), boardSquare(move.S2()), roleByType[move.Promo()])
}
