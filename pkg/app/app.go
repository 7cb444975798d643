package app

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"teahouse/pkg/hello"
	"teahouse/pkg/httpapi"
	"teahouse/pkg/logging"
	"teahouse/pkg/storage/memorydriver"
	"teahouse/pkg/tea"
	"teahouse/pkg/version"
)

// Bind address and fallback ports; PORT from the environment wins over the port.
const (
	DefaultHost      = "127.0.0.1"
	DefaultTeaPort   = 3000
	DefaultHelloPort = 3001
)

const shutdownTimeout = 5 * time.Second

// Config captures CLI flags so each service can run with a single call.
type Config struct {
	showVersion bool
	host        string
	port        int
	envFile     string
	logFormat   string
}

// Run composes the in-memory store, the tea service and the HTTP API, then serves until ctx is done.
func Run(ctx context.Context, args []string, logger *zap.Logger) error {
	cfg, err := parseFlags("teahouse", DefaultTeaPort, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	logger, err = cfg.logger("teahouse", logger)
	if err != nil {
		return err
	}

	if cfg.showVersion {
		logger.Info("teahouse version", zap.String("version", version.Version()))
		return nil
	}
	if err := loadEnv(cfg.envFile); err != nil {
		return err
	}

	db := sql.OpenDB(memorydriver.NewConnector())
	defer db.Close()

	if err := memorydriver.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("unable to ensure schema: %w", err)
	}

	teaService := tea.NewService(tea.NewRepository(db))
	defer teaService.Close()

	srv := httpapi.New(teaService, logger)
	return serve(ctx, cfg.address(), srv.Handler(), logger)
}

// RunHello serves the static greeting dispatcher.
func RunHello(ctx context.Context, args []string, logger *zap.Logger) error {
	cfg, err := parseFlags("hello", DefaultHelloPort, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	logger, err = cfg.logger("hello", logger)
	if err != nil {
		return err
	}

	if cfg.showVersion {
		logger.Info("hello version", zap.String("version", version.Version()))
		return nil
	}
	if err := loadEnv(cfg.envFile); err != nil {
		return err
	}
	return serve(ctx, cfg.address(), hello.Handler(hello.DefaultRoutes()), logger)
}

// address joins the fixed host with PORT, or with the flag port when PORT is unset.
func (c Config) address() string {
	port := strconv.Itoa(c.port)
	if env := os.Getenv("PORT"); env != "" {
		port = env
	}
	return net.JoinHostPort(c.host, port)
}

// logger rebuilds the process logger when -log-format was given.
func (c Config) logger(service string, fallback *zap.Logger) (*zap.Logger, error) {
	if c.logFormat == "" {
		if fallback == nil {
			return zap.NewNop(), nil
		}
		return fallback, nil
	}
	return logging.New(service, logging.Format(c.logFormat))
}

// parseFlags uses a dedicated FlagSet so Run can be called from multiple entry points.
func parseFlags(name string, defaultPort int, args []string) (Config, error) {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	set.SetOutput(io.Discard)

	cfg := Config{host: DefaultHost}
	set.BoolVar(&cfg.showVersion, "version", false, "Show the application version")
	set.IntVar(&cfg.port, "port", defaultPort, "Port for the HTTP server when PORT is not set.")
	set.StringVar(&cfg.envFile, "env-file", ".env", "Dotenv file loaded before PORT is read; ignored when missing.")
	set.StringVar(&cfg.logFormat, "log-format", "", "Log encoding: console or json. Empty keeps the caller's logger.")

	if err := set.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadEnv imports variables from a dotenv file without overriding the real environment.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("unable to load %s: %w", path, err)
	}
	return nil
}

// serve listens on addr and shuts the server down gracefully once ctx is done.
func serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	errorLog, err := zap.NewStdLogAt(logger, zap.WarnLevel)
	if err != nil {
		return fmt.Errorf("unable to build server error log: %w", err)
	}
	server := &http.Server{
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          errorLog,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", addr, err)
	}
	logger.Info("server is running", zap.String("addr", ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped unexpectedly: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped", zap.String("addr", ln.Addr().String()))
	return nil
}
