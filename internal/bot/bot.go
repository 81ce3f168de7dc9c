package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/fillblanks/internal/game"
	"github.com/lox/fillblanks/internal/randutil"
	"github.com/lox/fillblanks/internal/server"
)

// ErrNicknameTaken is returned by Run when the server refuses the nickname.
var ErrNicknameTaken = errors.New("nickname taken")

// Config describes one automated player.
type Config struct {
	URL      string
	Nickname string

	// Room restricts the bot to one room name. With Create set the bot
	// creates it, using Settings, when it is not listed.
	Room     string
	Create   bool
	Settings server.RoomSettings

	// StartAt is the seat count at which a bot allowed to start the game
	// does so. Zero never starts.
	StartAt int

	// Games is the number of finished games after which Run returns. Zero
	// plays forever.
	Games int

	ThinkTime    time.Duration
	PollInterval time.Duration
	Clock        quartz.Clock
	Rand         *rand.Rand
}

type actionKey struct {
	game  int
	room  string
	round uint64
	phase game.Phase
	seats int
}

// Bot plays random legal moves over the public WebSocket protocol.
type Bot struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand

	writeMu sync.Mutex
	conn    *websocket.Conn

	inRoom atomic.Bool
	last   actionKey
	games  int
}

// New creates a bot. Nothing is dialled until Run.
func New(cfg Config, logger *log.Logger) *Bot {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = randutil.New(randutil.Seed())
	}
	return &Bot{
		cfg:    cfg,
		logger: logger.WithPrefix("bot").With("nickname", cfg.Nickname),
		clock:  clock,
		rng:    rng,
	}
}

// Games returns how many games the bot has seen finish.
func (b *Bot) Games() int { return b.games }

// Run connects and plays until ctx is cancelled, the configured number of
// games is finished, or the connection fails.
func (b *Bot) Run(ctx context.Context) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, b.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", b.cfg.URL, err)
	}
	b.conn = conn
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	b.logger.Info("Connected", "url", b.cfg.URL)
	if err := b.send(Action{Type: server.MessageTypeSetNick, Nickname: b.cfg.Nickname}); err != nil {
		return err
	}

	go b.poll(ctx)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		done, err := b.handle(ctx, data)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if done {
			b.logger.Info("Finished", "games", b.games)
			return nil
		}
	}
}

// poll asks for the room list while the bot is in the lobby.
func (b *Bot) poll(ctx context.Context) {
	ticker := b.clock.NewTicker(b.cfg.PollInterval, "bot", "poll")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if b.inRoom.Load() {
				continue
			}
			if err := b.send(Action{Type: server.MessageTypeGetRooms}); err != nil {
				b.logger.Debug("Failed to poll rooms", "error", err)
			}
		}
	}
}

func (b *Bot) handle(ctx context.Context, data []byte) (bool, error) {
	var env server.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		b.logger.Debug("Ignoring malformed message", "error", err)
		return false, nil
	}

	switch env.Type {
	case server.MessageTypeNickOK:
		b.logger.Debug("Nickname accepted")

	case server.MessageTypeRoomList:
		if b.inRoom.Load() {
			return false, nil
		}
		var list server.RoomListMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return false, fmt.Errorf("decode room list: %w", err)
		}
		return false, b.chooseRoom(list.Rooms)

	case server.MessageTypeJoinRoomOK:
		var ok server.JoinRoomOKMessage
		if err := json.Unmarshal(data, &ok); err != nil {
			return false, fmt.Errorf("decode join: %w", err)
		}
		b.inRoom.Store(true)
		b.logger.Info("Joined room", "room", ok.Room)

	case server.MessageTypeLeftRoom:
		b.inRoom.Store(false)

	case server.MessageTypeGameUpdate:
		var u server.GameUpdateMessage
		if err := json.Unmarshal(data, &u); err != nil {
			return false, fmt.Errorf("decode game update: %w", err)
		}
		return b.onUpdate(ctx, u)

	case server.MessageTypeError:
		var e server.ErrorMessage
		if err := json.Unmarshal(data, &e); err != nil {
			return false, fmt.Errorf("decode error: %w", err)
		}
		if e.Code == "nickname_taken" {
			return false, fmt.Errorf("%w: %s", ErrNicknameTaken, b.cfg.Nickname)
		}
		b.logger.Debug("Server rejected move", "code", e.Code, "message", e.Message)
	}
	return false, nil
}

func (b *Bot) chooseRoom(rooms []server.RoomInfo) error {
	if name, ok := pickRoom(rooms, b.cfg.Room); ok {
		return b.send(Action{Type: server.MessageTypeJoinRoom, Name: name})
	}
	if !b.cfg.Create || b.cfg.Room == "" {
		return nil
	}
	for _, r := range rooms {
		if r.Name == b.cfg.Room {
			return nil
		}
	}
	settings := b.cfg.Settings
	return b.send(Action{Type: server.MessageTypeCreateRoom, Name: b.cfg.Room, Settings: &settings})
}

func (b *Bot) onUpdate(ctx context.Context, u server.GameUpdateMessage) (bool, error) {
	key := actionKey{game: b.games, room: u.RoomName, round: u.Round, phase: u.Phase}

	if u.Phase == game.PhaseGameOver {
		if key == b.last {
			return false, nil
		}
		b.games++
		key.game = b.games
		b.last = key
		b.logger.Info("Game over", "room", u.RoomName, "winner", u.Winner, "rounds", u.Round)
		if err := b.send(Action{Type: server.MessageTypeLeaveRoom}); err != nil {
			return false, err
		}
		b.inRoom.Store(false)
		return b.cfg.Games > 0 && b.games >= b.cfg.Games, nil
	}

	act, ok := Decide(u, b.rng, b.cfg.StartAt)
	if !ok {
		return false, nil
	}
	if u.Phase == game.PhaseLobby {
		key.seats = len(u.PlayersList)
	}
	if key == b.last {
		return false, nil
	}
	b.last = key

	if err := b.think(ctx); err != nil {
		return false, nil
	}
	b.logger.Debug("Playing", "action", act.Type, "round", u.Round)
	return false, b.send(act)
}

func (b *Bot) think(ctx context.Context) error {
	if b.cfg.ThinkTime <= 0 {
		return nil
	}
	t := b.clock.NewTimer(b.cfg.ThinkTime, "bot", "think")
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (b *Bot) send(act Action) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteJSON(act); err != nil {
		return fmt.Errorf("send %s: %w", act.Type, err)
	}
	return nil
}
