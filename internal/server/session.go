package server

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/fillblanks/internal/deck"
	"github.com/lox/fillblanks/internal/game"
)

// systemAuthor signs chat lines generated by the server.
const systemAuthor = "SYSTEM"

// roomSession serialises every mutation of one room, including timer
// expiry, and fans room events out to the seated peers.
//
// Lock order is Directory.mu before roomSession.mu. The timer path takes
// only roomSession.mu.
type roomSession struct {
	mu      sync.Mutex
	name    string
	room    *game.Room
	members map[game.PlayerID]Peer
	sounds  map[string]string
	logger  *log.Logger
	closed  bool
}

type sessionConfig struct {
	Name     string
	Owner    string
	Settings game.Settings
	Pools    deck.Pools
	Clock    quartz.Clock
	Rand     *rand.Rand
	Sounds   map[string]string
	Logger   *log.Logger
}

func newRoomSession(cfg sessionConfig) *roomSession {
	s := &roomSession{
		name:    cfg.Name,
		members: make(map[game.PlayerID]Peer),
		sounds:  cfg.Sounds,
		logger:  cfg.Logger.WithPrefix("session").With("room", cfg.Name),
	}
	s.room = game.NewRoom(game.Config{
		Name:      cfg.Name,
		Owner:     cfg.Owner,
		Settings:  cfg.Settings,
		Pools:     cfg.Pools,
		Clock:     cfg.Clock,
		Rand:      cfg.Rand,
		Logger:    cfg.Logger,
		OnTimeout: s.onExpire,
	})
	return s
}

// join seats peer in the room and welcomes it with JOIN_ROOM_OK before the
// first snapshot.
func (s *roomSession) join(peer Peer, nickname, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNoSuchRoom
	}
	if !s.room.CheckPassword(password) {
		return ErrWrongPassword
	}
	if s.room.Full() {
		return ErrRoomFull
	}

	id := game.PlayerID(peer.ID())
	round, phase := s.room.Round(), s.room.Phase()
	if err := s.room.AddPlayer(id, nickname); err != nil {
		return err
	}
	s.members[id] = peer
	s.logger.Info("Player joined", "player", nickname, "players", s.room.PlayerCount())

	if err := peer.SendMessage(JoinRoomOKMessage{Type: MessageTypeJoinRoomOK, Room: s.name}); err != nil {
		s.logger.Debug("Failed to send join confirmation", "error", err)
	}

	s.room.Settle()
	s.afterChange(round, phase)
	return nil
}

// leave unseats the peer and reports whether the room is now empty.
// Remaining players get a fresh snapshot.
func (s *roomSession) leave(peer Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := game.PlayerID(peer.ID())
	delete(s.members, id)
	if s.closed {
		return true
	}

	round, phase := s.room.Round(), s.room.Phase()
	if s.room.RemovePlayer(id) {
		return true
	}
	s.logger.Info("Player left", "players", s.room.PlayerCount())

	s.room.Settle()
	s.afterChange(round, phase)
	return false
}

// do runs fn against the room and publishes the outcome. Nothing is
// published when fn fails.
func (s *roomSession) do(fn func(r *game.Room) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNoSuchRoom
	}

	round, phase := s.room.Round(), s.room.Phase()
	if err := fn(s.room); err != nil {
		return err
	}
	s.afterChange(round, phase)
	return nil
}

// onExpire is the round timer callback.
func (s *roomSession) onExpire(round uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	prevRound, phase := s.room.Round(), s.room.Phase()
	forced, ok := s.room.Expire(round)
	if !ok {
		s.logger.Debug("Ignoring stale round timeout", "round", round, "current", prevRound)
		return
	}

	s.systemChat(fmt.Sprintf("Time's up! %d cards submitted automatically.", forced))
	s.playSound(SoundTimeout)
	s.afterChange(prevRound, phase)
}

func (s *roomSession) chat(author, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.logSendErr(s.broadcast(ChatMessage{Type: MessageTypeChat, Author: author, Message: message}))
	}
}

func (s *roomSession) info() RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RoomInfo{
		Name:        s.name,
		Players:     s.room.PlayerCount(),
		Max:         s.room.Settings().MaxPlayers,
		HasPassword: s.room.HasPassword(),
		Phase:       s.room.Phase(),
	}
}

func (s *roomSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.room.Close()
	clear(s.members)
}

// afterChange announces phase milestones reached since (round, phase) and
// pushes a snapshot to every member. Callers hold s.mu.
func (s *roomSession) afterChange(round uint64, phase game.Phase) {
	s.broadcastState()

	switch {
	case s.room.Phase() == game.PhaseGameOver && phase != game.PhaseGameOver:
		s.playSound(SoundGameOver)
	case s.room.Round() != round && s.room.Phase() == game.PhaseSelecting:
		s.playSound(SoundRoundStart)
	}
}

// broadcastState sends each member its own view. Callers hold s.mu.
func (s *roomSession) broadcastState() {
	var errs []error
	for _, id := range s.room.Players() {
		peer, ok := s.members[id]
		if !ok {
			continue
		}
		if err := peer.SendMessage(GameUpdateFromView(s.room.View(id))); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", id, err))
		}
	}
	s.logSendErr(errors.Join(errs...))
}

// broadcast sends msg to every member. Callers hold s.mu.
func (s *roomSession) broadcast(msg any) error {
	peers := make([]Peer, 0, len(s.members))
	for _, id := range s.room.Players() {
		if peer, ok := s.members[id]; ok {
			peers = append(peers, peer)
		}
	}
	return broadcast(peers, msg)
}

func (s *roomSession) systemChat(message string) {
	s.logSendErr(s.broadcast(ChatMessage{Type: MessageTypeChat, Author: systemAuthor, Message: message}))
}

func (s *roomSession) playSound(event string) {
	src, ok := s.sounds[event]
	if !ok {
		return
	}
	s.logSendErr(s.broadcast(PlaySoundMessage{Type: MessageTypePlaySound, Src: src}))
}

func (s *roomSession) logSendErr(err error) {
	if err != nil {
		s.logger.Debug("Broadcast incomplete", "error", err)
	}
}

// broadcast sends msg to every peer. A failing peer never stops delivery
// to the rest; all failures are returned joined.
func broadcast(peers []Peer, msg any) error {
	var errs []error
	for _, p := range peers {
		if err := p.SendMessage(msg); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", p.ID(), err))
		}
	}
	return errors.Join(errs...)
}
