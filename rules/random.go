package rules

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
)

// ChooseRandomMoves picks count (1 or 2) distinct moves for random chess. The second move
// shares no square with the first and captures nothing; when no such move exists only
// the first is returned.
func ChooseRandomMoves(rng *rand.Rand, moves []Candidate, count int) []Candidate {
	if len(moves) == 0 {
		return nil
	}
	first := moves[rng.Intn(len(moves))]
	if count < 2 {
		return []Candidate{first}
	}
	var candidates []Candidate
	for _, m := range moves {
		if m != first && m.From != first.From && m.To != first.To && !m.Capture {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return []Candidate{first}
	}
	return []Candidate{first, candidates[rng.Intn(len(candidates))]}
}

// RandomEngine plays a uniformly random legal move.
type RandomEngine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomEngine(seed int64) *RandomEngine {
	return &RandomEngine{rng: rand.New(rand.NewSource(seed))}
}

func (e *RandomEngine) BestMove(ctx context.Context, fen string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	game, err := NewGame(fen)
	if err != nil {
		return "", errors.Wrap(err, "random engine")
	}
	e.mu.Lock()
	picked := ChooseRandomMoves(e.rng, game.Candidates(), 1)
	e.mu.Unlock()
	if len(picked) == 0 {
		return "", ErrNoMoves
	}
	return picked[0].UCI, nil
}

func (e *RandomEngine) Close() error { return nil }
