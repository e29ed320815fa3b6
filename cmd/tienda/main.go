package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dmarquina/tienda-cli/internal/api"
	"github.com/dmarquina/tienda-cli/internal/chat"
	"github.com/dmarquina/tienda-cli/internal/config"
	"github.com/dmarquina/tienda-cli/internal/logger"
	"github.com/dmarquina/tienda-cli/internal/session"
	"github.com/dmarquina/tienda-cli/internal/stubserver"
	"github.com/dmarquina/tienda-cli/internal/tui"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		serverURL   = flag.String("server", "", "storefront server URL (overrides config)")
		stubMode    = flag.Bool("stub", false, "run the in-memory stub backend instead of the client")
		stubAddr    = flag.String("addr", ":8000", "listen address for -stub")
		logLevel    = flag.String("log-level", "", "log level: debug, info, warn, error, none")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("tienda %s\n", version)
		return nil
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	applyEnvOverrides(cfg)
	if *serverURL != "" {
		cfg.ServerURL = strings.TrimRight(*serverURL, "/")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if cfg.LogPath == "" {
		cfg.LogPath = config.DefaultLogPath()
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return err
	}
	defer logger.Global().Close()

	if *stubMode {
		return runStub(*stubAddr)
	}
	return runClient(cfg)
}

// applyEnvOverrides lets the environment win over the config file. Flags
// still win over both.
func applyEnvOverrides(cfg *config.Config) {
	if v := strings.TrimSpace(os.Getenv("TIENDA_SERVER_URL")); v != "" {
		cfg.ServerURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("TIENDA_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
}

func runStub(addr string) error {
	srv := stubserver.New()
	srv.Seed(
		api.CreateProductRequest{Name: "Yerba mate 1kg", Description: "Traditional blend", Price: 8.5, Stock: 40},
		api.CreateProductRequest{Name: "Bombilla", Description: "Stainless steel", Price: 4.0, Stock: 25},
		api.CreateProductRequest{Name: "Gourd", Description: "Hand carved", Price: 12.0, Stock: 10},
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down stub server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func runClient(cfg *config.Config) error {
	logger.Info("tienda %s connecting to %s", version, cfg.ServerURL)

	client := api.NewClient(cfg.ServerURL,
		api.WithTimeout(time.Duration(cfg.RequestTimeoutSeconds)*time.Second))

	store := session.NewStore(config.Dir())
	sess := session.NewManager(client, store)
	conn := chat.NewConnection(client, sess)
	defer conn.Disconnect()

	app := tui.New(client, sess, conn)
	return tui.Run(app)
}
