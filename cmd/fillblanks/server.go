package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/fillblanks/cmd/fillblanks/shared"
	"github.com/lox/fillblanks/internal/deck"
	"github.com/lox/fillblanks/internal/randutil"
	"github.com/lox/fillblanks/internal/server"
)

// ServerCmd runs the game server. Flags override values from the config file.
type ServerCmd struct {
	Config   string `kong:"default='${config_file}',help='HCL config file (missing file uses defaults)'"`
	Addr     string `kong:"help='Listen address, e.g. :2137'"`
	LogLevel string `kong:"help='Log level (debug|info|warn|error)'"`
	DeckDir  string `kong:"help='Directory holding deck files'"`
	Seed     *int64 `kong:"help='Deterministic RNG seed (optional)'"`
}

func (c *ServerCmd) Run() error {
	config, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		config.Server.Address = c.Addr
	}
	if c.LogLevel != "" {
		config.Server.LogLevel = c.LogLevel
	}
	if c.DeckDir != "" {
		config.Server.DeckDir = c.DeckDir
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := shared.SetupLogger(config.Server.LogLevel)
	if err != nil {
		return err
	}

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	} else {
		seed = randutil.Seed()
		logger.Info("Using random seed", "seed", seed)
	}

	decks := deck.NewLoader(config.Server.DeckDir, logger)
	names, err := decks.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		logger.Warn("No decks found", "dir", decks.Dir())
	}

	dir := server.NewDirectory(server.DirectoryConfig{
		Config: config,
		Decks:  decks,
		Seed:   seed,
		Logger: logger,
	})
	srv := server.NewServer(config.Server.Address, dir, logger)

	l, err := srv.Listen()
	if err != nil {
		return err
	}

	logger.Info("Starting fillblanks server",
		"address", l.Addr().String(),
		"deck_dir", decks.Dir(),
		"decks", names,
		"default_timeout", time.Duration(config.Defaults.Timeout)*time.Second,
		"sounds", len(config.Sounds))

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(l)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
