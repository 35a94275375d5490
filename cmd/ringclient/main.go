// ringclient - Softphone client core
//
// This is the main entry point for the ringclient core process. It owns the
// contact collections, the collection tree model and the video renderer
// registry, talks to the telephony daemon over MQTT and serves the local
// REST/WebSocket API used by user interfaces.
//
// Usage:
//
//	ringclient                   run until SIGINT/SIGTERM
//	ringclient hash-passphrase   read a passphrase on stdin, print its hash
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/nerrad567/ringclient-core/migrations"

	"github.com/nerrad567/ringclient-core/internal/api"
	"github.com/nerrad567/ringclient-core/internal/app"
	"github.com/nerrad567/ringclient-core/internal/auth"
	"github.com/nerrad567/ringclient-core/internal/infrastructure/config"
	"github.com/nerrad567/ringclient-core/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-passphrase" {
		if err := hashPassphrase(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ringclient",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("building application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			log.Error("error during shutdown", "error", closeErr)
		}
	}()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("starting application: %w", err)
	}

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log.Component("api"),
			App:     a,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	// Verify all connections are healthy
	if err := a.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"people", a.People.RowCount(),
		"collections", a.Contacts.Len(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	// Deferred Close() calls run in reverse order: API server, then the app.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RINGCLIENT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RINGCLIENT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// hashPassphrase reads one line from in and writes its Argon2id hash to out,
// for use as api.auth.passphrase_hash.
func hashPassphrase(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading passphrase: %w", err)
	}
	hash, err := auth.HashPassphrase(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
