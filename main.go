// Command ludo-engine starts the Ludo rules engine server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from the environment (optionally a .env file) and can be
// overridden by flags. Sessions are stored as JSON files or in SQLite.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/ludo-engine/api"
	"github.com/wricardo/ludo-engine/game/config"
	"github.com/wricardo/ludo-engine/game/service"
	"github.com/wricardo/ludo-engine/game/session"
	"github.com/wricardo/ludo-engine/transport/mcp"
	"github.com/wricardo/ludo-engine/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Ludo Engine Server"
)

// Session store backends
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// ServerConfig holds startup settings. Environment values become the flag
// defaults, so flags always win.
type ServerConfig struct {
	Port         int           `env:"PORT" envDefault:"8080"`
	Host         string        `env:"HOST" envDefault:"localhost"`
	ConfigDir    string        `env:"CONFIG_DIR" envDefault:"configs"`
	SessionStore string        `env:"SESSION_STORE" envDefault:"file"`
	SessionsDir  string        `env:"SESSIONS_DIR" envDefault:"sessions"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"sessions.db"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	Debug        bool          `env:"DEBUG"`
	NgrokEnabled bool          `env:"NGROK_ENABLED"`
	NgrokAuth    string        `env:"NGROK_AUTHTOKEN"`
	NgrokDomain  string        `env:"NGROK_DOMAIN"`
	ShowVersion  bool
}

// loadServerConfig reads ServerConfig from the environment
func loadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.NgrokAuth == "" {
		cfg.NgrokAuth = os.Getenv("NGROK_AUTH_TOKEN")
	}
	return cfg, nil
}

// registerFlags binds command line flags onto cfg using its current values as defaults
func registerFlags(fs *flag.FlagSet, cfg *ServerConfig) {
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "HTTP server host")
	fs.StringVar(&cfg.ConfigDir, "config-dir", cfg.ConfigDir, "Directory containing game configurations")
	fs.StringVar(&cfg.SessionStore, "store", cfg.SessionStore, "Session store: file or sqlite")
	fs.StringVar(&cfg.SessionsDir, "sessions-dir", cfg.SessionsDir, "Directory for file session storage")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "Database path for sqlite session storage")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Remove sessions not accessed within this window")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.NgrokEnabled, "ngrok", cfg.NgrokEnabled, "Enable ngrok tunnel")
	fs.StringVar(&cfg.NgrokAuth, "ngrok-auth", cfg.NgrokAuth, "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	fs.StringVar(&cfg.NgrokDomain, "ngrok-domain", cfg.NgrokDomain, "Custom ngrok domain (optional)")
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
	fmt.Fprintf(os.Stderr, "Available modes:\n")
	fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
	fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
	fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
	fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s                      # Run HTTP server on default port 8080\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -store sqlite        # Keep sessions in sessions.db\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s stdio-mcp            # Run MCP stdio server\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s mcp -port 9090       # Run MCP stdio server with internal HTTP on port 9090\n", os.Args[0])
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	cfg, err := loadServerConfig()
	if err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	registerFlags(flag.CommandLine, &cfg)
	flag.Usage = usage
	flag.Parse()

	if cfg.ShowVersion {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	mode, err := resolveMode(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	log.Printf("Starting %s v%s (mode: %s, store: %s)", AppName, Version, mode, cfg.SessionStore)

	svcs, err := initializeServices(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	svcs.startBackground(cfg)

	if mode == modeStdio {
		err = runStdioMCPWithInternalServer(cfg, svcs.game)
	} else {
		err = runHTTPServer(cfg, svcs.game)
	}

	// Sessions are flushed before any non-zero exit
	svcs.Close()
	if err != nil {
		log.Fatalf("%s mode failed: %v", mode, err)
	}
}

const (
	modeServer = "server"
	modeStdio  = "stdio-mcp"
)

// resolveMode maps the optional positional argument to a run mode
func resolveMode(args []string) (string, error) {
	if len(args) == 0 {
		return modeServer, nil
	}
	switch args[0] {
	case "server", "http":
		return modeServer, nil
	case "stdio-mcp", "mcp-stdio", "mcp":
		return modeStdio, nil
	default:
		return "", fmt.Errorf("unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", args[0])
	}
}

// services bundles what initializeServices wires together
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	closer      io.Closer
}

// Close flushes every live session and releases the store
func (s *services) Close() {
	if err := s.sessions.SaveAllSessions(); err != nil {
		log.Printf("Warning: Failed to save sessions on shutdown: %v", err)
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			log.Printf("Warning: Failed to close session store: %v", err)
		}
	}
}

func (s *services) startBackground(cfg ServerConfig) {
	go sessionCleanupRoutine(s.sessions, cfg.SessionTTL)
	go storeSyncRoutine(s.sessions, s.persistence)
}

// initializeServices wires the config manager, the session store picked by
// cfg.SessionStore, and the game service.
func initializeServices(cfg ServerConfig) (*services, error) {
	configManager, err := config.NewManager(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	svcs := &services{}
	switch cfg.SessionStore {
	case StoreFile, "":
		fp, err := session.NewFilePersistence(cfg.SessionsDir, configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		svcs.persistence = fp
	case StoreSQLite:
		sp, err := session.NewSQLitePersistence(cfg.SQLitePath, configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite session store: %w", err)
		}
		svcs.persistence = sp
		svcs.closer = sp
	default:
		return nil, fmt.Errorf("unknown session store %q (want %s or %s)", cfg.SessionStore, StoreFile, StoreSQLite)
	}

	svcs.sessions = session.NewManagerWithPersistence(svcs.persistence)
	if err := svcs.sessions.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}
	log.Printf("Loaded %d sessions from %s store", svcs.sessions.Count(), storeName(cfg.SessionStore))

	svcs.game = service.NewGameService(svcs.sessions, configManager)
	return svcs, nil
}

func storeName(store string) string {
	if store == "" {
		return StoreFile
	}
	return store
}

// newRouter mounts the REST API and WebSocket at the root and the MCP proxy at /mcp
func newRouter(gameService service.GameService, hub *websocket.Hub, baseURL string) http.Handler {
	apiServer := api.NewServer(gameService, hub)
	mcpClient := mcp.NewClient(baseURL)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mux
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(cfg ServerConfig, gameService service.GameService) error {
	hub := websocket.NewHub()
	go hub.Run()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mainRouter := newRouter(gameService, hub, fmt.Sprintf("http://%s", addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg, mainRouter)
		}()
	}

	var runErr error
	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case runErr = <-serveErr:
		log.Printf("Shutting down: %v", runErr)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return runErr
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx is cancelled
func runNgrokTunnel(ctx context.Context, cfg ServerConfig, handler http.Handler) {
	if cfg.NgrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Printf("Using custom ngrok domain: %s", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within ttl.
func sessionCleanupRoutine(manager *session.Manager, ttl time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
			log.Printf("Cleaned up %d expired sessions", removed)
		}
	}
}

// storeSyncRoutine drops sessions from memory once they disappear from the
// store, e.g. a session file deleted by hand.
func storeSyncRoutine(manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		pruneMissing(manager, persistence)
	}
}

// pruneMissing removes in-memory sessions the store no longer has and
// returns how many were dropped
func pruneMissing(manager *session.Manager, persistence session.SessionPersistence) int {
	if persistence == nil {
		return 0
	}

	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.Printf("Pruned session %s from memory (removed from store)", s.ID)
		}
	}

	if pruned > 0 {
		log.Printf("Store sync: pruned %d orphaned sessions from memory", pruned)
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:<port>; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(cfg ServerConfig, gameService service.GameService) error {
	externalURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	} else {
		if resp != nil {
			resp.Body.Close()
		}
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("listen for internal API: %w", err)
		}
		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		hub := websocket.NewHub()
		go hub.Run()

		httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	if baseURL == externalURL {
		log.Println("MCP stdio server ready (using external HTTP server)")
	} else {
		log.Println("MCP stdio server ready (using internal HTTP server)")
	}

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}
