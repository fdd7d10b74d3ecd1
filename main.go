// Command ambulance-fleet starts the ambulance dispatch simulation server.
//
// It supports two modes:
//  1. "serve" (default): runs the HTTP server exposing the REST API, the WebSocket display feed, and an /mcp HTTP endpoint
//  2. "mcp": runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from defaults, an optional ambulance.json, AMBULANCE_*
// environment variables (a .env file is loaded first) and finally flags.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/ambulance-fleet/api"
	"github.com/wricardo/ambulance-fleet/game/config"
	"github.com/wricardo/ambulance-fleet/game/runner"
	"github.com/wricardo/ambulance-fleet/game/service"
	"github.com/wricardo/ambulance-fleet/game/session"
	"github.com/wricardo/ambulance-fleet/logging"
	"github.com/wricardo/ambulance-fleet/transport/mcp"
	"github.com/wricardo/ambulance-fleet/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Ambulance Fleet Dispatch Server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Missing .env is fine
	envErr := godotenv.Load()

	if err := newCommand(envErr).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func commandFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
		&cli.StringFlag{Name: "config-dir", Usage: "Directory containing scenario files", Sources: cli.EnvVars("CONFIG_DIR")},
		&cli.StringFlag{Name: "scenario", Usage: "Default scenario name"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level (trace, debug, info, warn, error)"},
		&cli.BoolFlag{Name: "debug", Usage: "Shorthand for --log-level debug"},
		&cli.BoolFlag{Name: "pretty", Usage: "Human readable console logs"},
		&cli.BoolFlag{Name: "auto-run", Usage: "Tick running simulations from the wall clock"},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or NGROK_AUTHTOKEN)"},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
		&cli.StringFlag{Name: "api-url", Usage: "API server probed by the mcp command before starting its own"},
	}
}

func newCommand(envErr error) *cli.Command {
	serve := func(ctx context.Context, cmd *cli.Command) error {
		settings, logger, err := setup(cmd, os.Stdout, envErr)
		if err != nil {
			return err
		}
		return runHTTPServer(ctx, settings, logger)
	}

	return &cli.Command{
		Name:    "ambulance-fleet",
		Usage:   AppName,
		Version: Version,
		Flags:   commandFlags(),
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serve,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					// stdout belongs to the MCP protocol
					settings, logger, err := setup(cmd, os.Stderr, envErr)
					if err != nil {
						return err
					}
					return runStdioMCP(ctx, settings, logger)
				},
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// setup loads settings, applies flag overrides and builds the logger
func setup(cmd *cli.Command, out io.Writer, envErr error) (*config.Settings, zerolog.Logger, error) {
	settings, err := config.LoadSettings(cmd.String("config-dir"))
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	applyFlags(cmd, settings)
	if err := settings.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}

	logger := logging.New(logging.Options{
		Level:  settings.LogLevel,
		Pretty: settings.PrettyLogs,
		Out:    out,
	})

	if envErr == nil {
		logger.Debug().Msg("Loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		logger.Warn().Err(envErr).Msg("Error loading .env file")
	}

	logger.Info().
		Str("version", Version).
		Str("command", cmd.Name).
		Str("config_dir", settings.ConfigDir).
		Msgf("Starting %s", AppName)
	return settings, logger, nil
}

// applyFlags copies explicitly set flags over the loaded settings
func applyFlags(cmd *cli.Command, s *config.Settings) {
	if cmd.IsSet("host") {
		s.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		s.Port = cmd.Int("port")
	}
	if cmd.IsSet("config-dir") {
		s.ConfigDir = cmd.String("config-dir")
	}
	if cmd.IsSet("scenario") {
		s.DefaultScenario = cmd.String("scenario")
	}
	if cmd.IsSet("log-level") {
		s.LogLevel = cmd.String("log-level")
	}
	if cmd.Bool("debug") {
		s.LogLevel = "debug"
	}
	if cmd.IsSet("pretty") {
		s.PrettyLogs = cmd.Bool("pretty")
	}
	if cmd.IsSet("auto-run") {
		s.AutoRun = cmd.Bool("auto-run")
	}
	if cmd.IsSet("ngrok") {
		s.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		s.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		s.Ngrok.Domain = cmd.String("ngrok-domain")
	}
	if cmd.IsSet("api-url") {
		s.APIURL = cmd.String("api-url")
	}
}

// services holds everything a server process needs
type services struct {
	dispatch  service.DispatchService
	sessions  *session.Manager
	scenarios *config.Manager
}

// initializeServices wires the scenario store, the simulation manager and the dispatch service
func initializeServices(settings *config.Settings, logger zerolog.Logger) (*services, error) {
	scenarios, err := config.NewManager(settings.ConfigDir, settings.DefaultScenario)
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario manager: %w", err)
	}

	sessions := session.NewManager()
	return &services{
		dispatch:  service.NewDispatchService(sessions, scenarios, logger),
		sessions:  sessions,
		scenarios: scenarios,
	}, nil
}

// newHandler combines the REST API, the WebSocket feed and the /mcp endpoint
func newHandler(svc service.DispatchService, hub *websocket.Hub, baseURL string, logger zerolog.Logger) http.Handler {
	apiServer := api.NewServer(svc, hub, logger)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
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

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
	return mainRouter
}

func newRunner(settings *config.Settings, svc service.DispatchService, hub *websocket.Hub, logger zerolog.Logger) *runner.Runner {
	return runner.New(svc, hub, runner.Options{
		FrameInterval:  settings.FrameInterval(),
		BroadcastEvery: settings.BroadcastEvery,
		MaxStep:        settings.MaxFrameStep,
	}, logger)
}

// runHTTPServer serves the API until SIGINT/SIGTERM, together with the
// websocket hub, the frame clock, the session janitor and the optional tunnel.
func runHTTPServer(ctx context.Context, settings *config.Settings, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := initializeServices(settings, logger)
	if err != nil {
		return err
	}

	addr := settings.Addr()
	hub := websocket.NewHub(logger)
	handler := newHandler(svcs.dispatch, hub, "http://"+addr, logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(ctx) })

	if settings.AutoRun {
		frameClock := newRunner(settings, svcs.dispatch, hub, logger)
		g.Go(func() error { return frameClock.Run(ctx) })
	}

	g.Go(func() error {
		return cleanupLoop(ctx, svcs.sessions, settings.CleanupInterval, settings.SessionTTL, logger)
	})

	g.Go(func() error {
		logger.Info().
			Str("addr", addr).
			Str("api", fmt.Sprintf("http://%s/api", addr)).
			Str("websocket", fmt.Sprintf("ws://%s/ws?simulation=<simulation_id>", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		return nil
	})

	if settings.Ngrok.Enabled {
		g.Go(func() error { return runTunnel(ctx, settings.Ngrok, handler, logger) })
	}

	err = g.Wait()
	logger.Info().Msg("Server stopped")
	return err
}

// cleanupLoop periodically removes simulations idle for longer than ttl
func cleanupLoop(ctx context.Context, sessions *session.Manager, interval, ttl time.Duration, logger zerolog.Logger) error {
	if interval <= 0 || ttl <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := sessions.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info().Int("removed", removed).Msg("Cleaned up expired simulations")
			}
		}
	}
}

// runTunnel exposes handler through ngrok until ctx is cancelled. Tunnel
// failures are logged and never take the local server down.
func runTunnel(ctx context.Context, s config.NgrokSettings, handler http.Handler, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "ngrok").Logger()

	if s.AuthToken == "" {
		logger.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if s.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(s.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(s.AuthToken))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return nil
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	logger.Info().
		Str("url", tun.URL()).
		Str("domain", s.Domain).
		Msg("Ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Ngrok server error")
	}
	logger.Info().Msg("Ngrok tunnel closed")
	return nil
}

// probeAPI reports whether an API server answers at baseURL
func probeAPI(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses the API at settings.APIURL
// when one answers; otherwise it starts an internal API on a random loopback port.
func runStdioMCP(ctx context.Context, settings *config.Settings, logger zerolog.Logger) error {
	baseURL := settings.APIURL
	logger.Info().Str("url", baseURL).Msg("Checking for external API server")

	if probeAPI(baseURL) {
		logger.Info().Str("url", baseURL).Msg("External API server found, using it for MCP")
	} else {
		logger.Info().Msg("No external API server found, starting internal HTTP server")

		internalURL, shutdown, err := startInternalServer(ctx, settings, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		baseURL = internalURL
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info().Str("api", baseURL).Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// startInternalServer serves the API on 127.0.0.1:0 and returns its base URL
// and a shutdown function.
func startInternalServer(ctx context.Context, settings *config.Settings, logger zerolog.Logger) (string, func(), error) {
	svcs, err := initializeServices(settings, logger)
	if err != nil {
		return "", nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL := "http://" + listener.Addr().String()

	ctx, cancel := context.WithCancel(ctx)
	hub := websocket.NewHub(logger)
	httpServer := &http.Server{Handler: newHandler(svcs.dispatch, hub, baseURL, logger)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	if settings.AutoRun {
		frameClock := newRunner(settings, svcs.dispatch, hub, logger)
		g.Go(func() error { return frameClock.Run(gctx) })
	}
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal HTTP server: %w", err)
		}
		return nil
	})

	logger.Info().Str("url", baseURL).Msg("Internal HTTP server started for MCP stdio")

	shutdown := func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		httpServer.Shutdown(shutdownCtx)
		cancel()
		if err := g.Wait(); err != nil {
			logger.Error().Err(err).Msg("Internal HTTP server stopped with error")
		}
	}
	return baseURL, shutdown, nil
}
