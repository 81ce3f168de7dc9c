package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/fillblanks/cmd/fillblanks/shared"
	"github.com/lox/fillblanks/internal/bot"
	"github.com/lox/fillblanks/internal/randutil"
	"github.com/lox/fillblanks/internal/server"
)

// BotCmd runs a swarm of random players.
type BotCmd struct {
	Server   string        `kong:"default='ws://localhost:2137/ws',help='Server WebSocket URL'"`
	Count    int           `kong:"default='1',help='Number of bots to run'"`
	Name     string        `kong:"default='bot',help='Nickname prefix'"`
	Room     string        `kong:"help='Only join this room'"`
	Create   bool          `kong:"help='Create --room when it does not exist'"`
	StartAt  int           `kong:"default='0',help='Start the game once this many players are seated (0 never starts)'"`
	WinScore int           `kong:"default='0',help='Win score for a created room (0 uses the server default)'"`
	Games    int           `kong:"default='0',help='Exit after this many finished games (0 plays forever)'"`
	Think    time.Duration `kong:"default='500ms',help='Delay before each move'"`
	Poll     time.Duration `kong:"default='2s',help='Room list poll interval'"`
	Seed     *int64        `kong:"help='Deterministic RNG seed (optional)'"`
	Wait     time.Duration `kong:"default='10s',help='How long to wait for the server to become healthy'"`
	LogLevel string        `kong:"default='info',help='Log level (debug|info|warn|error)'"`
}

func (c *BotCmd) Run() error {
	if c.Count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	logger, err := shared.SetupLogger(c.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	waitCtx, waitCancel := context.WithTimeout(ctx, c.Wait)
	err = server.WaitForHealthy(waitCtx, c.Server, 100*time.Millisecond)
	waitCancel()
	if err != nil {
		return err
	}

	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
	}
	rng := randutil.New(seed)

	var settings server.RoomSettings
	if c.WinScore > 0 {
		settings.WinScore = server.OptInt{Set: true, Value: c.WinScore}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range c.Count {
		b := bot.New(bot.Config{
			URL:          c.Server,
			Nickname:     fmt.Sprintf("%s-%d", c.Name, i+1),
			Room:         c.Room,
			Create:       c.Create && i == 0,
			Settings:     settings,
			StartAt:      c.StartAt,
			Games:        c.Games,
			ThinkTime:    c.Think,
			PollInterval: c.Poll,
			Rand:         randutil.Child(rng),
		}, logger)
		g.Go(func() error { return b.Run(gctx) })
	}

	logger.Info("Bots running", "count", c.Count, "server", c.Server, "seed", seed)
	return g.Wait()
}
