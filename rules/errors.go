package rules

import "github.com/pkg/errors"

var (
	ErrIllegalMove       = errors.New("illegal move")
	ErrPromotionRequired = errors.New("promotion piece required")
	ErrNoMoves           = errors.New("no legal moves")
	ErrEngineNotReady    = errors.New("engine not ready")
)
