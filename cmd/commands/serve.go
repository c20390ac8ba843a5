package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/codeloom/codeloom/internal/auth"
	"github.com/codeloom/codeloom/internal/config"
	"github.com/codeloom/codeloom/internal/gateway"
	"github.com/codeloom/codeloom/internal/generation"
	"github.com/codeloom/codeloom/internal/preview"
	"github.com/codeloom/codeloom/internal/store"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the codeloom gateway server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runServe,
	}
}

func runServe(_ context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	tasks := generation.NewRegistry()
	tasks.StartJanitor(ctx, cfg.Generation.TaskTTL.Duration())
	runner := generation.NewRunner(tasks, cfg.Generation.Pace.Duration())

	conns := preview.NewRegistry()
	broadcaster := preview.NewBroadcaster(conns)
	broadcaster.Coalesce = cfg.Preview.Coalesce

	server := gateway.NewServer(gateway.ServerConfig{
		Verifier:    auth.NewJWTVerifier(cfg.Auth.Secret),
		AuthSecret:  cfg.Auth.Secret,
		TokenTTL:    cfg.Auth.TokenTTL.Duration(),
		Tasks:       tasks,
		Runner:      runner,
		Conns:       conns,
		Broadcaster: broadcaster,
		Static:      preview.NewStatic(db),
		Store:       db,
		Host:        cfg.Gateway.Host,
		Port:        cfg.Gateway.Port,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// loadConfig reads the config file named by the --config flag, falling back
// to defaults when no file is given or the file is missing.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("config not found, using defaults", "path", path)
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}
