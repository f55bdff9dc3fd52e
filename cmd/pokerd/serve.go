package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jdstemmler/poker/internal/registry"
	"github.com/jdstemmler/poker/internal/server"
	"github.com/jdstemmler/poker/internal/session"
	"github.com/jdstemmler/poker/internal/store"
)

// ServeCmd runs the daemon: HTTP surface, timer driver, sweeper and
// connection heartbeat under one errgroup.
type ServeCmd struct {
	Config  string `kong:"default='pokerd.hcl',help='Path to the HCL configuration file'"`
	Addr    string `kong:"help='Listen address override (host:port)'"`
	Redis   string `kong:"help='Redis address override; forces the Redis store'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
	LogJSON bool   `kong:"name='log-json',help='Structured JSON logs'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := c.applyOverrides(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	ctx := signalContext(logger)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing store")
		}
	}()

	reg := registry.New(logger, nil,
		registry.WithHeartbeat(time.Duration(cfg.Timers.HeartbeatSeconds)*time.Second))
	manager := session.NewManager(session.Options{
		Store:         st,
		Registry:      reg,
		Logger:        logger,
		TickInterval:  time.Duration(cfg.Timers.TickSeconds) * time.Second,
		SweepInterval: time.Duration(cfg.Timers.SweepMinutes) * time.Minute,
	})
	if err := manager.RecoverActive(ctx); err != nil {
		return fmt.Errorf("recovering active games: %w", err)
	}

	srv := server.New(cfg, manager, reg, logger)
	logger.Info().
		Str("addr", cfg.ListenAddress()).
		Bool("redis", cfg.Redis != nil).
		Msg("starting poker daemon")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return ignoreCanceled(manager.RunTimers(gctx)) })
	g.Go(func() error { return ignoreCanceled(manager.RunSweeper(gctx)) })
	g.Go(func() error { return ignoreCanceled(reg.Run(gctx)) })
	return g.Wait()
}

func (c *ServeCmd) applyOverrides(cfg *server.Config) error {
	if c.Addr != "" {
		host, portStr, err := net.SplitHostPort(c.Addr)
		if err != nil {
			return fmt.Errorf("parsing --addr: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("parsing --addr port: %w", err)
		}
		cfg.Server.Address = host
		cfg.Server.Port = port
	}
	if c.Redis != "" {
		cfg.Redis = &server.RedisSettings{Address: c.Redis}
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if c.LogJSON {
		cfg.Server.LogJSON = true
	}
	return nil
}

func openStore(ctx context.Context, cfg *server.Config, logger zerolog.Logger) (store.Store, error) {
	if cfg.Redis == nil {
		logger.Info().Msg("using in-memory store")
		return store.NewMemory(), nil
	}
	st, err := store.NewRedis(ctx, store.RedisOptions{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Address, err)
	}
	logger.Info().Str("addr", cfg.Redis.Address).Msg("using redis store")
	return st, nil
}

func setupLogger(cfg *server.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parsing log level: %w", err)
	}
	if cfg.Server.LogJSON {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(logger zerolog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()
	return ctx
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
