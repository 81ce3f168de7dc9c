package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/fillblanks/internal/deck"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// fakePeer records every message sent to it.
type fakePeer struct {
	id   string
	mu   sync.Mutex
	msgs [][]byte
	fail bool
}

func newPeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) SendMessage(msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broken pipe")
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	p.msgs = append(p.msgs, b)
	return nil
}

func (p *fakePeer) types() []MessageType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]MessageType, 0, len(p.msgs))
	for _, b := range p.msgs {
		var env Envelope
		_ = json.Unmarshal(b, &env)
		out = append(out, env.Type)
	}
	return out
}

func (p *fakePeer) count(t MessageType) int {
	n := 0
	for _, got := range p.types() {
		if got == t {
			n++
		}
	}
	return n
}

func (p *fakePeer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = nil
}

// last decodes the most recent message of type t.
func last[T any](t *testing.T, p *fakePeer, mt MessageType) T {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.msgs) - 1; i >= 0; i-- {
		var env Envelope
		require.NoError(t, json.Unmarshal(p.msgs[i], &env))
		if env.Type == mt {
			var v T
			require.NoError(t, json.Unmarshal(p.msgs[i], &v))
			return v
		}
	}
	require.Failf(t, "message not received", "%s has no %s message", p.id, mt)
	var zero T
	return zero
}

// writeDeck writes a line-format deck with the given number of answers and
// prompts.
func writeDeck(t *testing.T, dir, name string, answers, prompts int, template string) {
	t.Helper()
	var white, black strings.Builder
	for i := range answers {
		fmt.Fprintf(&white, "%s card %d\n", name, i)
	}
	for range prompts {
		fmt.Fprintln(&black, template)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+deck.ExtAnswer), []byte(white.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+deck.ExtPrompt), []byte(black.String()), 0o644))
}

type testEnv struct {
	dir    *Directory
	clock  *quartz.Mock
	config *Config
}

func newTestEnv(t *testing.T, sounds ...SoundConfig) *testEnv {
	t.Helper()
	deckDir := t.TempDir()
	writeDeck(t, deckDir, "base", 60, 10, "I never leave home without <M>.")

	config := DefaultConfig()
	config.Server.DeckDir = deckDir
	config.Sounds = sounds
	require.NoError(t, config.Validate())

	clock := quartz.NewMock(t)
	env := &testEnv{
		clock:  clock,
		config: config,
		dir: NewDirectory(DirectoryConfig{
			Config: config,
			Decks:  deck.NewLoader(deckDir, testLogger()),
			Clock:  clock,
			Seed:   7,
			Logger: testLogger(),
		}),
	}
	t.Cleanup(env.dir.Reset)
	return env
}

// connect registers a peer and names it.
func (e *testEnv) connect(t *testing.T, nick string) *fakePeer {
	t.Helper()
	p := newPeer("conn-" + nick)
	e.dir.Connect(p)
	require.NoError(t, e.dir.SetNickname(p, nick))
	return p
}

// room creates a room owned by the first peer and seats the rest.
func (e *testEnv) room(t *testing.T, name string, settings RoomSettings, peers ...*fakePeer) {
	t.Helper()
	require.NoError(t, e.dir.CreateRoom(peers[0], CreateRoomData{Name: name, Settings: settings}))
	for _, p := range peers[1:] {
		require.NoError(t, e.dir.JoinRoom(p, name, ""))
	}
}

// czarOf returns the peer whose latest snapshot marks it as czar.
func czarOf(t *testing.T, peers ...*fakePeer) (*fakePeer, []*fakePeer) {
	t.Helper()
	var czar *fakePeer
	var rest []*fakePeer
	for _, p := range peers {
		if last[GameUpdateMessage](t, p, MessageTypeGameUpdate).IsCzar {
			czar = p
		} else {
			rest = append(rest, p)
		}
	}
	require.NotNil(t, czar, "no czar found")
	return czar, rest
}
