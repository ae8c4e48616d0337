package main

import (
	"embed"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/walterschell/chessboard/rules"
)

const DefaultPort = 8080

var log = slog.Default().With("package", "main")

//go:embed assets
var assets embed.FS
var static fs.FS
var templates fs.FS

func init() {
	static, _ = fs.Sub(assets, "assets/static")
	templates, _ = fs.Sub(assets, "assets/templates")
}

func stdoutLogger(next http.Handler) http.Handler {
	return handlers.LoggingHandler(os.Stdout, next)
}

// EngineFactory starts the opponent engine of one session.
type EngineFactory func() (rules.Engine, error)

type Application struct {
	router       *mux.Router
	templates    *template.Template
	sessions     map[uuid.UUID]*Session
	sessionsLock sync.RWMutex
	upgrader     websocket.Upgrader
	newEngine    EngineFactory
	delay        time.Duration
	squareSize   float64
	startFEN     string
}

type ApplicationOption func(*Application)

// WithStartFEN starts every session from fen instead of the initial position.
func WithStartFEN(fen string) ApplicationOption {
	return func(app *Application) {
		app.startFEN = fen
	}
}

func NewApplication(newEngine EngineFactory, delay time.Duration, squareSize float64, opts ...ApplicationOption) *Application {
	templateParser := template.New("")
	templateParser.Delims("[[", "]]")
	result := Application{
		router:     mux.NewRouter(),
		templates:  template.Must(templateParser.ParseFS(templates, "*.html.gotmpl")),
		sessions:   make(map[uuid.UUID]*Session),
		newEngine:  newEngine,
		delay:      delay,
		squareSize: squareSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(&result)
	}
	result.router.NotFoundHandler = stdoutLogger(http.HandlerFunc(notFoundHandler))
	result.router.Use(stdoutLogger)

	result.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	result.router.HandleFunc("/", result.indexHandler)
	result.router.HandleFunc("/ws", result.wsHandler)
	result.router.HandleFunc("/sessions", result.sessionsHandler).Methods(http.MethodGet)
	return &result
}

func (app *Application) indexHandler(w http.ResponseWriter, r *http.Request) {
	templateVars := struct {
		Title      string
		SquareSize float64
	}{
		Title:      "Chessboard",
		SquareSize: app.squareSize,
	}

	err := app.templates.ExecuteTemplate(w, "index.html.gotmpl", templateVars)
	if err != nil {
		log.Error("Error rendering template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (app *Application) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	app.sessionsLock.RLock()
	ids := make([]string, 0, len(app.sessions))
	for id := range app.sessions {
		ids = append(ids, id.String())
	}
	app.sessionsLock.RUnlock()
	sort.Strings(ids)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ids); err != nil {
		log.Error("Error encoding sessions", "error", err)
	}
}

func (app *Application) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		log.Debug("Upgrade failed", "error", err)
		return
	}
	engine, err := app.newEngine()
	if err != nil {
		log.Error("Error starting engine", "error", err)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "engine unavailable"))
		conn.Close()
		return
	}
	session, err := NewSession(conn, engine, app.delay, app.squareSize, app.startFEN)
	if err != nil {
		log.Error("Error creating session", "error", err)
		engine.Close()
		conn.Close()
		return
	}
	log.Info("New websocket connection", "remote", conn.RemoteAddr(), "session", session.id)

	app.sessionsLock.Lock()
	app.sessions[session.id] = session
	app.sessionsLock.Unlock()

	go func() {
		session.Run()
		app.sessionsLock.Lock()
		delete(app.sessions, session.id)
		app.sessionsLock.Unlock()
		log.Info("Session closed", "session", session.id)
	}()
}

func (app *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app.router.ServeHTTP(w, r)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "File Not Found", http.StatusNotFound)
}

func engineFactory(kind, binary string, depth int) (EngineFactory, error) {
	switch kind {
	case "random":
		return func() (rules.Engine, error) {
			return rules.NewRandomEngine(time.Now().UnixNano()), nil
		}, nil
	case "stockfish":
		return func() (rules.Engine, error) {
			return rules.NewStockfishEngine(rules.WithBinary(binary), rules.WithDepth(depth))
		}, nil
	}
	return nil, fmt.Errorf("unknown engine %q (want random or stockfish)", kind)
}

func main() {
	var port uint
	flag.UintVar(&port, "port", getenvUint("CHESSBOARD_PORT", DefaultPort), "Port to listen on")
	engine := flag.String("engine", getenv("CHESSBOARD_ENGINE", "random"), "opponent engine: random or stockfish")
	binary := flag.String("stockfish", getenv("CHESSBOARD_STOCKFISH", "stockfish"), "path to the stockfish binary")
	depth := flag.Int("depth", int(getenvUint("CHESSBOARD_DEPTH", 8)), "stockfish search depth")
	delay := flag.Duration("delay", getenvDuration("CHESSBOARD_DELAY", 500*time.Millisecond), "delay before the opponent replies")
	square := flag.Float64("square", 60, "square size in pixels")
	fen := flag.String("fen", getenv("CHESSBOARD_FEN", ""), "starting position, empty for the initial position")
	debug := flag.Bool("debug", getenvBool("CHESSBOARD_DEBUG", false), "enable debug logging")
	flag.Parse()

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	if port == 0 || port > 65535 {
		fmt.Println("Invalid port number")
		os.Exit(1)
	}
	if _, err := rules.NewGame(*fen); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	factory, err := engineFactory(*engine, *binary, *depth)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Printf("Starting server on :%d\n", port)
	app := NewApplication(factory, *delay, *square, WithStartFEN(*fen))
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), app); err != nil {
		log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvUint(key string, def uint) uint {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32); err == nil {
			return uint(n)
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}
