package server

import (
	"cmp"
	rand "math/rand/v2"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/fillblanks/internal/deck"
	"github.com/lox/fillblanks/internal/game"
	"github.com/lox/fillblanks/internal/randutil"
)

const (
	maxNicknameLength = 24
	maxRoomNameLength = 32
	maxChatLength     = 500
)

// Peer is a connected client as the directory sees it.
type Peer interface {
	ID() string
	SendMessage(msg any) error
}

// client is the directory's record of one connection.
type client struct {
	peer     Peer
	nickname string
	session  *roomSession // nil while in the lobby
}

// Stats is the /stats payload.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	Players     int `json:"players"`
}

// DeckSource lists and loads decks by name. *deck.Loader is the file-backed
// implementation.
type DeckSource interface {
	List() ([]string, error)
	Load(names ...string) deck.Pools
}

// DirectoryConfig carries the directory's dependencies.
type DirectoryConfig struct {
	Config *Config
	Decks  DeckSource
	Clock  quartz.Clock
	Seed   int64 // zero seeds from crypto/rand
	Logger *log.Logger
}

// Directory is the registry of connections and rooms. One Directory is
// owned by the server; tests build their own and call Reset between cases.
type Directory struct {
	mu      sync.Mutex
	config  *Config
	decks   DeckSource
	clock   quartz.Clock
	rng     *rand.Rand
	sounds  map[string]string
	base    *log.Logger
	logger  *log.Logger
	clients map[string]*client
	rooms   map[string]*roomSession
}

// NewDirectory creates an empty directory.
func NewDirectory(cfg DirectoryConfig) *Directory {
	config := cfg.Config
	if config == nil {
		config = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = randutil.Seed()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	decks := cfg.Decks
	if decks == nil {
		decks = deck.NewLoader(config.Server.DeckDir, logger)
	}

	return &Directory{
		config:  config,
		decks:   decks,
		clock:   clock,
		rng:     randutil.New(seed),
		sounds:  config.SoundMap(),
		base:    logger,
		logger:  logger.WithPrefix("directory"),
		clients: make(map[string]*client),
		rooms:   make(map[string]*roomSession),
	}
}

// Connect registers a new connection in the lobby.
func (d *Directory) Connect(p Peer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clients[p.ID()] = &client{peer: p}
	d.logger.Info("Client connected", "conn", p.ID(), "total", len(d.clients))
}

// Disconnect removes the connection entirely, leaving any room first. It
// reports whether that deleted the room.
func (d *Directory) Disconnect(p Peer) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.clients[p.ID()]
	if !ok {
		return false
	}
	delete(d.clients, p.ID())

	deleted := false
	if c.session != nil {
		deleted = d.leaveLocked(c)
	}
	d.logger.Info("Client disconnected", "conn", p.ID(), "nickname", c.nickname, "total", len(d.clients))
	d.broadcastLobbyPlayersLocked()
	return deleted
}

// SetNickname names the connection. Nicknames are unique ignoring case.
func (d *Directory) SetNickname(p Peer, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return ErrNoNickname
	}
	if utf8.RuneCountInString(nickname) > maxNicknameLength {
		return ErrNicknameTooLong
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.clientLocked(p)
	if err != nil {
		return err
	}
	if c.session != nil {
		return ErrAlreadyInRoom
	}
	for id, other := range d.clients {
		if id != p.ID() && strings.EqualFold(other.nickname, nickname) {
			return ErrNicknameTaken
		}
	}

	c.nickname = nickname
	d.logger.Info("Nickname set", "conn", p.ID(), "nickname", nickname)

	d.send(p, NickOKMessage{Type: MessageTypeNickOK, Nickname: nickname})
	d.send(p, d.roomListLocked())
	d.broadcastLobbyPlayersLocked()
	return nil
}

// SendRoomList sends the full room list to p.
func (d *Directory) SendRoomList(p Peer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.send(p, d.roomListLocked())
}

// SendDeckList sends the available deck names to p.
func (d *Directory) SendDeckList(p Peer) error {
	names, err := d.decks.List()
	if err != nil {
		return err
	}
	d.send(p, DeckListMessage{Type: MessageTypeDeckList, Decks: names})
	return nil
}

// CreateRoom creates a room owned by p and seats p in it. The name and
// password may be given at the top level or inside the settings.
func (d *Directory) CreateRoom(p Peer, req CreateRoomData) error {
	name := strings.TrimSpace(cmp.Or(req.Name, req.Settings.Name))
	password := cmp.Or(req.Password, req.Settings.Password)
	if name == "" || utf8.RuneCountInString(name) > maxRoomNameLength {
		return ErrInvalidRoomName
	}

	settings := d.config.RoomSettings(req.Settings, password)
	if len(settings.Decks) == 0 {
		names, err := d.decks.List()
		if err != nil {
			return err
		}
		settings.Decks = names
	}
	for _, n := range settings.Decks {
		if err := deck.ValidateName(n); err != nil {
			return err
		}
	}

	// Deck files are read before taking the directory lock.
	pools := d.decks.Load(settings.Decks...)

	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.clientLocked(p)
	if err != nil {
		return err
	}
	if c.nickname == "" {
		return ErrNoNickname
	}
	if c.session != nil {
		return ErrAlreadyInRoom
	}
	if _, exists := d.rooms[name]; exists {
		return ErrRoomExists
	}

	s := newRoomSession(sessionConfig{
		Name:     name,
		Owner:    c.nickname,
		Settings: settings,
		Pools:    pools,
		Clock:    d.clock,
		Rand:     randutil.Child(d.rng),
		Sounds:   d.sounds,
		Logger:   d.base,
	})
	d.rooms[name] = s
	d.logger.Info("Room created", "room", name, "owner", c.nickname,
		"decks", settings.Decks, "max_players", settings.MaxPlayers, "timeout", settings.Timeout)

	d.broadcastRoomListLocked()
	return d.joinLocked(c, s, password)
}

// JoinRoom seats p in the named room.
func (d *Directory) JoinRoom(p Peer, name, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.clientLocked(p)
	if err != nil {
		return err
	}
	if c.nickname == "" {
		return ErrNoNickname
	}
	if c.session != nil {
		return ErrAlreadyInRoom
	}
	s, ok := d.rooms[name]
	if !ok {
		return ErrNoSuchRoom
	}
	return d.joinLocked(c, s, password)
}

// LeaveRoom moves p back to the lobby and reports whether its room was
// deleted.
func (d *Directory) LeaveRoom(p Peer) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.clientLocked(p)
	if err != nil {
		return false, err
	}
	if c.session == nil {
		return false, ErrNotInRoom
	}

	d.send(p, LeftRoomMessage{Type: MessageTypeLeftRoom})
	deleted := d.leaveLocked(c)
	d.broadcastLobbyPlayersLocked()
	return deleted, nil
}

// Chat relays a message to p's room, or to the lobby when p is in none.
// Blank messages are dropped.
func (d *Directory) Chat(p Peer, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	if utf8.RuneCountInString(message) > maxChatLength {
		message = string([]rune(message)[:maxChatLength])
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.clientLocked(p)
	if err != nil {
		return err
	}
	if c.nickname == "" {
		return ErrNoNickname
	}
	if c.session != nil {
		c.session.chat(c.nickname, message)
		return nil
	}
	d.logSendErr(broadcast(d.lobbyPeersLocked(), ChatMessage{
		Type:    MessageTypeChat,
		Author:  c.nickname,
		Message: message,
		Scope:   "LOBBY",
	}))
	return nil
}

// StartGame starts p's room on p's behalf.
func (d *Directory) StartGame(p Peer) error {
	s, id, err := d.seat(p)
	if err != nil {
		return err
	}
	return s.do(func(r *game.Room) error { return r.Start(id) })
}

// SubmitCards plays the given answer cards for p.
func (d *Directory) SubmitCards(p Peer, cards []string) error {
	s, id, err := d.seat(p)
	if err != nil {
		return err
	}
	return s.do(func(r *game.Room) error { return r.Submit(id, cards) })
}

// PickWinner judges the round; only the czar may call it.
func (d *Directory) PickWinner(p Peer, index int) error {
	s, id, err := d.seat(p)
	if err != nil {
		return err
	}
	return s.do(func(r *game.Room) error {
		if !r.IsCzar(id) {
			return ErrNotCzar
		}
		name, err := r.PickWinner(index)
		if err != nil {
			return err
		}
		s.systemChat("Winner: " + name)
		s.playSound(SoundWinner)
		return nil
	})
}

// Ready acknowledges the round summary for p.
func (d *Directory) Ready(p Peer) error {
	s, id, err := d.seat(p)
	if err != nil {
		return err
	}
	return s.do(func(r *game.Room) error {
		_, err := r.MarkReady(id)
		return err
	})
}

// Stats returns current totals.
func (d *Directory) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Stats{Rooms: len(d.rooms), Connections: len(d.clients)}
	for _, s := range d.rooms {
		st.Players += s.info().Players
	}
	return st
}

// Reset stops every room timer and empties both tables.
func (d *Directory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.rooms {
		s.close()
	}
	clear(d.rooms)
	clear(d.clients)
}

// seat returns p's room session and player id. The directory lock is not
// held while the caller works on the session.
func (d *Directory) seat(p Peer) (*roomSession, game.PlayerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.clientLocked(p)
	if err != nil {
		return nil, "", err
	}
	if c.session == nil {
		return nil, "", ErrNotInRoom
	}
	return c.session, game.PlayerID(p.ID()), nil
}

func (d *Directory) clientLocked(p Peer) (*client, error) {
	c, ok := d.clients[p.ID()]
	if !ok {
		return nil, ErrConnectionClosed
	}
	return c, nil
}

func (d *Directory) joinLocked(c *client, s *roomSession, password string) error {
	if err := s.join(c.peer, c.nickname, password); err != nil {
		return err
	}
	c.session = s
	d.broadcastRoomUpdateLocked(s)
	d.broadcastLobbyPlayersLocked()
	return nil
}

// leaveLocked removes c from its room, deleting the room if that emptied
// it, and refreshes the lobby's room view.
func (d *Directory) leaveLocked(c *client) bool {
	s := c.session
	c.session = nil

	if !s.leave(c.peer) {
		d.broadcastRoomUpdateLocked(s)
		return false
	}

	if d.rooms[s.name] == s {
		delete(d.rooms, s.name)
	}
	s.close()
	d.logger.Info("Room deleted", "room", s.name)
	d.broadcastRoomListLocked()
	return true
}

func (d *Directory) roomListLocked() RoomListMessage {
	rooms := make([]RoomInfo, 0, len(d.rooms))
	for _, s := range d.rooms {
		rooms = append(rooms, s.info())
	}
	slices.SortFunc(rooms, func(a, b RoomInfo) int { return strings.Compare(a.Name, b.Name) })
	return RoomListMessage{Type: MessageTypeRoomList, Rooms: rooms, Players: d.lobbyPlayersLocked()}
}

func (d *Directory) lobbyPlayersLocked() []LobbyPlayer {
	players := make([]LobbyPlayer, 0, len(d.clients))
	for _, c := range d.clients {
		if c.nickname == "" {
			continue
		}
		lp := LobbyPlayer{Nick: c.nickname}
		if c.session != nil {
			lp.Room = c.session.name
		}
		players = append(players, lp)
	}
	slices.SortFunc(players, func(a, b LobbyPlayer) int { return strings.Compare(a.Nick, b.Nick) })
	return players
}

// lobbyPeersLocked returns the connections that are not in a room.
func (d *Directory) lobbyPeersLocked() []Peer {
	peers := make([]Peer, 0, len(d.clients))
	for _, c := range d.clients {
		if c.session == nil {
			peers = append(peers, c.peer)
		}
	}
	slices.SortFunc(peers, func(a, b Peer) int { return strings.Compare(a.ID(), b.ID()) })
	return peers
}

func (d *Directory) broadcastRoomListLocked() {
	d.logSendErr(broadcast(d.lobbyPeersLocked(), d.roomListLocked()))
}

func (d *Directory) broadcastRoomUpdateLocked(s *roomSession) {
	d.logSendErr(broadcast(d.lobbyPeersLocked(), RoomUpdateMessage{Type: MessageTypeRoomUpdate, Room: s.info()}))
}

func (d *Directory) broadcastLobbyPlayersLocked() {
	d.logSendErr(broadcast(d.lobbyPeersLocked(), LobbyPlayersMessage{
		Type:    MessageTypeLobbyPlayers,
		Players: d.lobbyPlayersLocked(),
	}))
}

func (d *Directory) send(p Peer, msg any) {
	if err := p.SendMessage(msg); err != nil {
		d.logger.Debug("Failed to send message", "conn", p.ID(), "error", err)
	}
}

func (d *Directory) logSendErr(err error) {
	if err != nil {
		d.logger.Debug("Broadcast incomplete", "error", err)
	}
}
