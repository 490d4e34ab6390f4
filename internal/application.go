package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/rocketscienceinc/tictactoe-local/internal/config"
	"github.com/rocketscienceinc/tictactoe-local/internal/console"
	"github.com/rocketscienceinc/tictactoe-local/internal/repository"
	"github.com/rocketscienceinc/tictactoe-local/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-local/internal/telemetry"
	"github.com/rocketscienceinc/tictactoe-local/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-local/transport/rest"
	"github.com/rocketscienceinc/tictactoe-local/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application in the configured mode until it finishes or a signal arrives.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	shutdownTelemetry, err := telemetry.Init(ctx, conf.Telemetry)
	if err != nil {
		return fmt.Errorf("could not init telemetry: %w", err)
	}

	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Error("could not shutdown telemetry", "error", err)
		}
	}()

	sessionRepo, closeRepo, err := newSessionRepository(ctx, log, conf)
	if err != nil {
		return err
	}
	defer closeRepo()

	gameUseCase := usecase.NewGameManager(logger, sessionRepo)

	switch conf.Mode {
	case config.ModeConsole:
		return runConsole(ctx, logger, gameUseCase)
	default:
		return runHTTP(ctx, logger, conf, gameUseCase)
	}
}

func newSessionRepository(ctx context.Context, log *slog.Logger, conf *config.Config) (repository.SessionRepository, func(), error) {
	if conf.Storage.Driver != config.StorageRedis {
		return repository.NewMemorySessionRepository(), func() {}, nil
	}

	redisAddrString := conf.Storage.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString, conf.Storage.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	log.Info("Using redis session storage", "addr", redisAddrString)

	closeFn := func() {
		if err := redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}

	return repository.NewSessionRepository(redisStorage.Connection, conf.SessionTTL), closeFn, nil
}

func runHTTP(ctx context.Context, logger *slog.Logger, conf *config.Config, gameUseCase *usecase.GameManager) error {
	log := logger.With("component", "app")

	router := rest.NewRouter(logger, gameUseCase, rest.Options{
		CookieTTL: conf.SessionTTL,
		WebSocket: websocket.New(logger, gameUseCase, conf.SessionTTL),
	})

	log.Info("Starting HTTP server", "port", conf.HTTPPort)
	if err := rest.Start(ctx, conf.HTTPPort, router); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

func runConsole(ctx context.Context, logger *slog.Logger, gameUseCase *usecase.GameManager) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("could not create terminal screen: %w", err)
	}

	if err = screen.Init(); err != nil {
		return fmt.Errorf("could not init terminal screen: %w", err)
	}
	defer screen.Fini()

	return console.New(logger, gameUseCase, screen).Run(ctx)
}
