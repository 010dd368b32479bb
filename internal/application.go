package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/publisher"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/service"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/rest"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

type eventPublisher interface {
	room.EventPublisher
	Close() error
}

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString, conf.Redis.Password, conf.Redis.DB)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	matchRepo := repository.NewMatchRepository(redisStorage)
	moveRepo := repository.NewMoveRepository(redisStorage)

	recorder := service.NewHistoryRecorder(logger, matchRepo, moveRepo, conf.History.QueueSize, conf.History.WriteTimeout)
	defer recorder.Close()

	events, err := newPublisher(logger, conf.NATS)
	if err != nil {
		return err
	}

	defer func() {
		if err = events.Close(); err != nil {
			log.Error("could not close event publisher", "error", err)
		}
	}()

	registry := room.NewRegistry(logger, matchRepo, recorder, events, conf.Room.IdleTimeout)
	defer registry.Close()

	go registry.Run(ctx, conf.Room.SweepInterval)

	authService := service.NewAuthService(conf.JWTSecretKey)
	roomService := service.NewRoomService(matchRepo, moveRepo, registry)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.New(logger, authService, roomService, conf.PublicWSURL).Start(groupCtx, conf.HTTPPort); httpErr != nil {
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}
		return nil
	})

	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := websocket.New(logger, authService, registry, conf.WebSocket).Start(groupCtx, conf.SocketPort); wsErr != nil {
			return fmt.Errorf("WebSocket server error: %w", wsErr)
		}
		return nil
	})

	// a failing server cancels groupCtx, which stops the other one
	if err = group.Wait(); err != nil {
		return err
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

// newPublisher - NATS when configured, otherwise events stay in process.
func newPublisher(logger *slog.Logger, conf config.NATS) (eventPublisher, error) {
	if conf.URL == "" {
		return publisher.Noop{}, nil
	}

	natsPublisher, err := publisher.NewNATSPublisher(logger, conf.URL, conf.SubjectPrefix)
	if err != nil {
		return nil, fmt.Errorf("could not connect to nats: %w", err)
	}

	return natsPublisher, nil
}
