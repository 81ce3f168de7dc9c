package bot

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lox/fillblanks/internal/deck"
	"github.com/lox/fillblanks/internal/randutil"
	"github.com/lox/fillblanks/internal/server"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func startServer(t *testing.T) string {
	t.Helper()
	deckDir := t.TempDir()
	var white, black strings.Builder
	for i := range 80 {
		fmt.Fprintf(&white, "answer %d\n", i)
	}
	for range 20 {
		fmt.Fprintln(&black, "The bots are powered by <M>.")
	}
	require.NoError(t, os.WriteFile(filepath.Join(deckDir, "bots"+deck.ExtAnswer), []byte(white.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(deckDir, "bots"+deck.ExtPrompt), []byte(black.String()), 0o644))

	config := server.DefaultConfig()
	config.Server.DeckDir = deckDir
	dir := server.NewDirectory(server.DirectoryConfig{
		Config: config,
		Seed:   11,
		Logger: testLogger(),
	})
	srv := server.NewServer("127.0.0.1:0", dir, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestBotsPlayFullGame(t *testing.T) {
	url := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	bots := make([]*Bot, 3)
	for i := range bots {
		bots[i] = New(Config{
			URL:      url,
			Nickname: fmt.Sprintf("bot-%d", i),
			Room:     "arena",
			Create:   i == 0,
			Settings: server.RoomSettings{
				WinScore: server.OptInt{Set: true, Value: 2},
				Timeout:  server.OptTimeout{Set: true, Disabled: true},
			},
			StartAt:      3,
			Games:        1,
			PollInterval: 20 * time.Millisecond,
			Rand:         randutil.New(int64(i + 1)),
		}, testLogger())
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range bots {
		g.Go(func() error { return b.Run(gctx) })
	}
	require.NoError(t, g.Wait())
	require.NoError(t, ctx.Err(), "bots did not finish a game in time")

	for _, b := range bots {
		assert.Equal(t, 1, b.Games())
	}
}

func TestBotNicknameTaken(t *testing.T) {
	url := startServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(Action{Type: server.MessageTypeSetNick, Nickname: "twin"}))
	var ok server.NickOKMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ok))
	require.Equal(t, server.MessageTypeNickOK, ok.Type)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b := New(Config{URL: url, Nickname: "TWIN", PollInterval: 20 * time.Millisecond}, testLogger())
	require.ErrorIs(t, b.Run(ctx), ErrNicknameTaken)
}

func TestBotDialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/ws", Nickname: "lost"}, testLogger())
	err := b.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}
