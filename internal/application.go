package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/chain"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/config"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/devenv"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/metrics"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/repository"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/repository/storage"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/usecase"
	"github.com/rocketscienceinc/onchain-tictactoe/transport/rest"
	"github.com/rocketscienceinc/onchain-tictactoe/transport/websocket"
)

var (
	ErrAddrNotFound       = errors.New("redis address string is empty")
	ErrProgramIDNotFound  = errors.New("program id is not configured")
	ErrDevEnvNotAvailable = errors.New("development environment is disabled in config")
)

// RunApp - runs the application until SIGINT or SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx := context.Background()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	programID, err := parseProgramID(conf)
	if err != nil {
		return err
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	chainClient := chain.New(logger, conf.Chain.RPCURL, programID, conf.Chain.ConfirmTimeout, appMetrics)

	sockets := websocket.New(logger)
	sessions := repository.NewSessionRepository(redisStorage.Connection, conf.Session.TTL)

	var (
		page    *usecase.Page
		presets []string
	)

	if conf.DevEnv.Enabled {
		gameTools, closeTools, err := newGameTools(conf, chainClient, programID, appMetrics)
		if err != nil {
			return err
		}
		defer closeTools()

		page = usecase.NewPage(logger, sessions, chainClient, gameTools, sockets, appMetrics)
		presets = devenv.PresetNames()
		log.Info("Development environment enabled", "addr", conf.DevEnv.Addr)
	} else {
		page = usecase.NewPage(logger, sessions, chainClient, nil, sockets, appMetrics)
	}

	ping := rest.NewPingHandler(logger,
		rest.Check{Name: "redis", Ping: redisStorage.Ping},
		rest.Check{Name: "validator", Ping: func(ctx context.Context) error {
			_, err := chainClient.Version(ctx)
			return err
		}},
	)

	server := rest.New(logger, conf.HTTPPort, rest.Options{
		Page:     page,
		Sockets:  sockets,
		Ping:     ping,
		Gatherer: registry,
		Links: rest.Links{
			RPCURL:      conf.Chain.RPCURL,
			ExplorerURL: conf.Chain.ExplorerURL,
		},
		Presets: presets,
	})

	if err = serve(ctx, log, server, sigs); err != nil {
		return err
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

type starter interface {
	Start(ctx context.Context) error
}

// serve - runs the server until it stops or a signal arrives. Either one ends the other.
func serve(ctx context.Context, log *slog.Logger, server starter, sigs <-chan os.Signal) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			stop()
		case <-groupCtx.Done():
		}

		return nil
	})

	group.Go(func() error {
		defer stop()

		if err := server.Start(groupCtx); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}

		return nil
	})

	return group.Wait()
}

// NewDevTools - game tools for one-off dev environment commands. The returned func closes the connection.
func NewDevTools(logger *slog.Logger, conf *config.Config) (*devenv.GameTools, func(), error) {
	if !conf.DevEnv.Enabled {
		return nil, nil, ErrDevEnvNotAvailable
	}

	programID, err := parseProgramID(conf)
	if err != nil {
		return nil, nil, err
	}

	chainClient := chain.New(logger, conf.Chain.RPCURL, programID, conf.Chain.ConfirmTimeout, nil)

	return newGameTools(conf, chainClient, programID, nil)
}

func newGameTools(conf *config.Config, chainClient *chain.Client, programID solana.PublicKey, m *metrics.Metrics) (*devenv.GameTools, func(), error) {
	sdk, err := devenv.New(conf.DevEnv.Addr, m)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create development environment client: %w", err)
	}

	closeFn := func() {
		_ = sdk.Close()
	}

	return devenv.NewGameTools(sdk, chainClient, programID, conf.DevEnv.SnapshotGroup), closeFn, nil
}

func parseProgramID(conf *config.Config) (solana.PublicKey, error) {
	if conf.Chain.ProgramID == "" {
		return solana.PublicKey{}, ErrProgramIDNotFound
	}

	programID, err := solana.PublicKeyFromBase58(conf.Chain.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id: %w", err)
	}

	return programID, nil
}
