package main

import (
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/walterschell/chessboard/chessboard"
	"github.com/walterschell/chessboard/rules"
)

var log = slog.Default().With("package", "tui")

// Each square is cellsX by cellsY terminal cells. The board works in pixels, one cell
// being pxPerCellX by pxPerCellY of them.
const (
	cellsX      = 4
	cellsY      = 2
	pxPerCellX  = 2
	pxPerCellY  = 4
	squareSize  = cellsX * pxPerCellX
	boardLeft   = 3
	boardTop    = 1
	frameLength = 16 * time.Millisecond
)

var glyphs = map[chessboard.Color]map[chessboard.Role]rune{
	chessboard.White: {
		chessboard.King: '♔', chessboard.Queen: '♕', chessboard.Rook: '♖',
		chessboard.Bishop: '♗', chessboard.Knight: '♘', chessboard.Pawn: '♙',
	},
	chessboard.Black: {
		chessboard.King: '♚', chessboard.Queen: '♛', chessboard.Rook: '♜',
		chessboard.Bishop: '♝', chessboard.Knight: '♞', chessboard.Pawn: '♟',
	},
}

var (
	lightSquare = tcell.NewRGBColor(240, 217, 181)
	darkSquare  = tcell.NewRGBColor(181, 136, 99)
	classColors = map[string]tcell.Color{
		chessboard.ClassSelect:         tcell.NewRGBColor(130, 170, 90),
		chessboard.ClassLastMove:       tcell.NewRGBColor(205, 210, 106),
		chessboard.ClassLastMove2:      tcell.NewRGBColor(106, 190, 210),
		chessboard.ClassLastMove3:      tcell.NewRGBColor(210, 106, 190),
		chessboard.ClassCheck:          tcell.NewRGBColor(220, 60, 60),
		chessboard.ClassCurrentPremove: tcell.NewRGBColor(90, 110, 170),
	}
)

type app struct {
	screen tcell.Screen
	board  *chessboard.Board
	game   *rules.Game
	events chessboard.Queue
	status string
	button bool
}

func newApp(screen tcell.Screen, fen string) (*app, error) {
	a := &app{screen: screen}
	game, err := rules.NewGame(fen)
	if err != nil {
		return nil, err
	}
	board, err := chessboard.New(
		chessboard.WithFEN(game.FEN()),
		chessboard.WithTurnColor(game.Turn()),
		chessboard.WithSquareSize(squareSize),
		chessboard.WithAnimation(chessboard.AnimationConfig{Enabled: true, Duration: 250 * time.Millisecond, Type: chessboard.AnimationNormal}),
		chessboard.WithMovable(chessboard.MovableConfig{Color: chessboard.MovableBoth, Dests: game.Dests(), ShowDests: true}),
		chessboard.WithPremovable(chessboard.PremovableConfig{}),
		chessboard.WithObserver(&a.events),
	)
	if err != nil {
		return nil, err
	}
	a.game, a.board = game, board
	a.status = fmt.Sprintf("%s to move", game.Turn())
	return a, nil
}

// handleEvents plays the user's board moves on the game.
func (a *app) handleEvents() {
	for a.events.Len() > 0 {
		for _, e := range a.events.Drain() {
			after, ok := e.(chessboard.AfterMoveEvent)
			if !ok {
				continue
			}
			a.play(after.From, after.To)
		}
	}
}

func (a *app) play(from, to chessboard.Square) {
	var promotion chessboard.Role
	if a.game.NeedsPromotion(from, to) {
		promotion = chessboard.Queen
	}
	result, err := a.game.Play(from, to, promotion)
	if err != nil {
		log.Error("Board and game disagree", "from", from, "to", to, "error", err)
		a.board.Apply(
			chessboard.ReplacePosition{FEN: a.game.FEN()},
			chessboard.SetTurn{Color: a.game.Turn()},
			chessboard.SetMovable{Dests: a.game.Dests()},
		)
		return
	}
	if result.Promotion != "" {
		a.board.NewPiece(chessboard.Piece{Color: a.game.Turn().Opposite(), Role: result.Promotion}, result.To)
		a.board.Apply(chessboard.SetHighlights{Slot: 1, From: result.From, To: result.To})
	}
	if result.EnPassant != "" {
		a.board.DeletePiece(result.EnPassant)
	}
	a.board.Apply(
		chessboard.SetCheck{InCheck: a.game.InCheck()},
		chessboard.SetMovable{Dests: a.game.Dests()},
	)
	a.status = fmt.Sprintf("%s: %s to move", result.SAN, a.game.Turn())
	if a.game.Over() {
		outcome, method := a.game.Outcome()
		a.status = fmt.Sprintf("%s: %s by %s", result.SAN, outcome, method)
		a.board.Stop()
	}
}

// pixel maps a terminal cell to the board pixel at its center.
func pixel(x, y int) chessboard.Point {
	return chessboard.Point{
		X: float64((x-boardLeft)*pxPerCellX) + pxPerCellX/2.0,
		Y: float64((y-boardTop)*pxPerCellY) + pxPerCellY/2.0,
	}
}

// cell maps a board pixel to the terminal cell holding the top-left of a square.
func cell(p chessboard.Point) (int, int) {
	return boardLeft + int(p.X)/pxPerCellX, boardTop + int(p.Y)/pxPerCellY
}

func (a *app) mouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	pressed := ev.Buttons()&tcell.Button1 != 0
	p := pixel(x, y)
	switch {
	case pressed && !a.button:
		a.board.PointerDown(p, chessboard.Mouse)
	case pressed:
		a.board.PointerMove(p)
	case a.button:
		a.board.PointerUp()
	}
	a.button = pressed
}

func (a *app) draw() {
	s := a.screen
	s.Clear()
	rs := a.board.Render()
	classes := map[chessboard.Square]string{}
	for _, sq := range rs.Squares {
		classes[sq.Square] = sq.Classes
	}

	for _, sq := range chessboard.AllSquares() {
		bg := lightSquare
		if (sq.File()+sq.Rank())%2 == 0 {
			bg = darkSquare
		}
		dest := false
		for _, class := range strings.Fields(classes[sq]) {
			if c, ok := classColors[class]; ok {
				bg = c
			}
			dest = dest || class == chessboard.ClassMoveDest || class == chessboard.ClassPremoveDest
		}
		x, y := cell(chessboard.NotationToPixels(sq, rs.SquareSize, rs.Orientation))
		style := tcell.StyleDefault.Background(bg).Foreground(tcell.ColorBlack)
		for dy := 0; dy < cellsY; dy++ {
			for dx := 0; dx < cellsX; dx++ {
				s.SetContent(x+dx, y+dy, ' ', nil, style)
			}
		}
		if dest {
			s.SetContent(x+cellsX-1, y+cellsY-1, '•', nil, style)
		}
	}

	drawPiece := func(view chessboard.PieceView) {
		if view.Opacity < 0.5 {
			return
		}
		x, y := cell(view.Position)
		_, _, under, _ := s.GetContent(x+1, y)
		_, bg, _ := under.Decompose()
		style := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(bg)
		if view.Class == "ghost" {
			style = style.Dim(true)
		}
		s.SetContent(x+1, y, glyphs[view.Piece.Color][view.Piece.Role], nil, style)
	}
	if rs.Ghost != nil {
		drawPiece(*rs.Ghost)
	}
	var dragged *chessboard.PieceView
	for i, view := range rs.Pieces {
		if view.Class == "drag" {
			dragged = &rs.Pieces[i]
			continue
		}
		drawPiece(view)
	}
	if dragged != nil {
		drawPiece(*dragged)
	}

	label := tcell.StyleDefault
	for i, f := range rs.Files {
		s.SetContent(boardLeft+i*cellsX+1, boardTop+8*cellsY, rune(f[0]), nil, label)
	}
	for i, r := range rs.Ranks {
		s.SetContent(boardLeft-2, boardTop+i*cellsY, rune(r[0]), nil, label)
	}
	for i, r := range a.status + "   [f] flip  [q] quit" {
		s.SetContent(boardLeft+i, boardTop+8*cellsY+2, r, nil, label)
	}
	s.Show()
}

func (a *app) run() {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go a.screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(frameLength)
	defer ticker.Stop()
	last := time.Now()
	a.draw()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return
				}
				if ev.Rune() == 'f' {
					a.board.ToggleOrientation()
				}
			case *tcell.EventMouse:
				a.mouse(ev)
			case *tcell.EventResize:
				a.screen.Sync()
			}
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if !a.board.Tick(dt) {
				continue
			}
		}
		a.handleEvents()
		a.draw()
	}
}

func main() {
	fen := flag.String("fen", "", "starting position, the initial position when empty")
	logFile := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	stdlog.SetOutput(out)

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	screen.EnableMouse(tcell.MouseMotionEvents)
	defer screen.Fini()

	a, err := newApp(screen, *fen)
	if err != nil {
		screen.Fini()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	a.run()
}
