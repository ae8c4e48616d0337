package rules

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Engine picks a move for the side to move in a position.
type Engine interface {
	// BestMove returns a move in UCI notation for fen.
	BestMove(ctx context.Context, fen string) (string, error)
	Close() error
}

type StockfishEngine struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Scanner
	ready     bool
	mutex     sync.Mutex
	search    sync.Mutex
	responses chan string
	depth     int
}

type StockfishOptions struct {
	Binary string
	Depth  int
}

var defaultStockfishOptions = StockfishOptions{
	Binary: "stockfish",
	Depth:  8,
}

type StockfishOption func(*StockfishOptions)

func WithBinary(path string) StockfishOption {
	return func(opts *StockfishOptions) {
		opts.Binary = path
	}
}

func WithDepth(depth int) StockfishOption {
	return func(opts *StockfishOptions) {
		opts.Depth = depth
	}
}

// NewStockfishEngine starts a UCI engine process and waits until it is ready.
func NewStockfishEngine(opts ...StockfishOption) (*StockfishEngine, error) {
	options := defaultStockfishOptions
	for _, opt := range opts {
		opt(&options)
	}

	cmd := exec.Command(options.Binary)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stdin pipe")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stdout pipe")
	}

	engine := &StockfishEngine{
		cmd:       cmd,
		stdin:     stdin,
		stdout:    bufio.NewScanner(stdout),
		responses: make(chan string, 100),
		depth:     options.Depth,
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", options.Binary)
	}

	go engine.readOutput()
	if err := engine.initialize(); err != nil {
		engine.Close()
		return nil, err
	}

	return engine, nil
}

// initialize sets up the engine with the UCI protocol
func (e *StockfishEngine) initialize() error {
	e.sendCommand("uci")
	e.sendCommand("setoption name Hash value 64")
	e.sendCommand("setoption name Threads value 2")
	e.sendCommand("setoption name Ponder value false")
	e.sendCommand("isready")

	for response := range e.responses {
		if strings.Contains(response, "readyok") {
			e.ready = true
			return nil
		}
	}
	return errors.Wrap(ErrEngineNotReady, "engine exited during initialization")
}

func (e *StockfishEngine) sendCommand(cmd string) error {
	log.Debug("sending command", "command", cmd)
	e.mutex.Lock()
	defer e.mutex.Unlock()
	_, err := fmt.Fprintln(e.stdin, cmd)
	return err
}

// readOutput continuously reads engine output
func (e *StockfishEngine) readOutput() {
	for e.stdout.Scan() {
		response := e.stdout.Text()
		log.Debug("received response", "response", response)
		e.responses <- response
	}
	close(e.responses)
}

// BestMove searches fen to the configured depth. Cancelling ctx stops the search.
func (e *StockfishEngine) BestMove(ctx context.Context, fen string) (string, error) {
	if !e.ready {
		return "", ErrEngineNotReady
	}
	e.search.Lock()
	defer e.search.Unlock()

	if err := e.sendCommand("position fen " + fen); err != nil {
		return "", errors.Wrap(err, "sending position")
	}
	if err := e.sendCommand(fmt.Sprintf("go depth %d", e.depth)); err != nil {
		return "", errors.Wrap(err, "starting search")
	}

	stopped := false
	done := ctx.Done()
	for {
		select {
		case <-done:
			// stop is still answered with a bestmove line, which must be consumed here
			e.sendCommand("stop")
			stopped = true
			done = nil
		case response, ok := <-e.responses:
			if !ok {
				return "", errors.Wrap(ErrEngineNotReady, "engine exited")
			}
			if !strings.HasPrefix(response, "bestmove") {
				continue
			}
			if stopped {
				return "", ctx.Err()
			}
			parts := strings.Fields(response)
			if len(parts) < 2 || parts[1] == "(none)" {
				return "", ErrNoMoves
			}
			return parts[1], nil
		}
	}
}

// Close shuts down the engine
func (e *StockfishEngine) Close() error {
	e.sendCommand("quit")
	return e.cmd.Wait()
}
