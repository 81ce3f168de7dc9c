package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/fillblanks/internal/game"
)

// DefaultConfigFile is read when no --config flag is given.
const DefaultConfigFile = "fillblanks.hcl"

// Config represents the complete server configuration
type Config struct {
	Server   ServerSettings  `hcl:"server,block"`
	Defaults *RoomParameters `hcl:"defaults,block"`
	Limits   *RoomParameters `hcl:"limits,block"`
	Sounds   []SoundConfig   `hcl:"sound,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	LogLevel string `hcl:"log_level,optional"`
	DeckDir  string `hcl:"deck_dir,optional"`
}

// RoomParameters are the numeric room settings. The defaults block fills
// values a CREATE_ROOM request leaves out and the limits block caps them.
// Timeout is in seconds; zero disables the round timer.
type RoomParameters struct {
	MaxPlayers int `hcl:"max_players,optional"`
	HandSize   int `hcl:"hand_size,optional"`
	WinScore   int `hcl:"win_score,optional"`
	Timeout    int `hcl:"timeout,optional"`
}

// SoundConfig maps a room event to the sound clients should play.
type SoundConfig struct {
	Event string `hcl:"event,label"`
	Src   string `hcl:"src"`
}

// Sound events
const (
	SoundRoundStart = "round_start"
	SoundWinner     = "winner"
	SoundTimeout    = "timeout"
	SoundGameOver   = "game_over"
)

var soundEvents = map[string]bool{
	SoundRoundStart: true,
	SoundWinner:     true,
	SoundTimeout:    true,
	SoundGameOver:   true,
}

func defaultRoomParameters() RoomParameters {
	return RoomParameters{MaxPlayers: 8, HandSize: 10, WinScore: 5, Timeout: 60}
}

func defaultRoomLimits() RoomParameters {
	return RoomParameters{MaxPlayers: 20, HandSize: 20, WinScore: 50, Timeout: 600}
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	defaults := defaultRoomParameters()
	limits := defaultRoomLimits()
	return &Config{
		Server: ServerSettings{
			Address:  ":2137",
			LogLevel: "info",
			DeckDir:  "decks",
		},
		Defaults: &defaults,
		Limits:   &limits,
	}
}

// LoadConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	base := DefaultConfig()
	if c.Server.Address == "" {
		c.Server.Address = base.Server.Address
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = base.Server.LogLevel
	}
	if c.Server.DeckDir == "" {
		c.Server.DeckDir = base.Server.DeckDir
	}
	if c.Defaults == nil {
		c.Defaults = base.Defaults
	} else {
		c.Defaults.fill(*base.Defaults, false)
	}
	if c.Limits == nil {
		c.Limits = base.Limits
	} else {
		c.Limits.fill(*base.Limits, true)
	}
}

// fill replaces unset values with those from base. A zero default timeout
// disables the timer, so timeout is only filled when asked.
func (p *RoomParameters) fill(base RoomParameters, timeout bool) {
	if p.MaxPlayers == 0 {
		p.MaxPlayers = base.MaxPlayers
	}
	if p.HandSize == 0 {
		p.HandSize = base.HandSize
	}
	if p.WinScore == 0 {
		p.WinScore = base.WinScore
	}
	if timeout && p.Timeout == 0 {
		p.Timeout = base.Timeout
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	_, port, err := net.SplitHostPort(c.Server.Address)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", c.Server.Address, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port: %s", port)
	}

	d, l := c.Defaults, c.Limits
	if d == nil || l == nil {
		return fmt.Errorf("defaults and limits must be set")
	}
	if l.MaxPlayers < game.MinPlayers {
		return fmt.Errorf("limits: max_players must be at least %d", game.MinPlayers)
	}
	if l.HandSize < 1 || l.WinScore < 1 || l.Timeout < 1 {
		return fmt.Errorf("limits: hand_size, win_score and timeout must be positive")
	}
	if d.MaxPlayers < game.MinPlayers || d.MaxPlayers > l.MaxPlayers {
		return fmt.Errorf("defaults: max_players must be between %d and %d", game.MinPlayers, l.MaxPlayers)
	}
	if d.HandSize < 1 || d.HandSize > l.HandSize {
		return fmt.Errorf("defaults: hand_size must be between 1 and %d", l.HandSize)
	}
	if d.WinScore < 1 || d.WinScore > l.WinScore {
		return fmt.Errorf("defaults: win_score must be between 1 and %d", l.WinScore)
	}
	if d.Timeout < 0 || d.Timeout > l.Timeout {
		return fmt.Errorf("defaults: timeout must be between 0 and %d", l.Timeout)
	}

	for _, s := range c.Sounds {
		if !soundEvents[s.Event] {
			return fmt.Errorf("sound %q: unknown event", s.Event)
		}
		if s.Src == "" {
			return fmt.Errorf("sound %q: src must be set", s.Event)
		}
	}
	return nil
}

// SoundMap returns the configured event to src mapping.
func (c *Config) SoundMap() map[string]string {
	m := make(map[string]string, len(c.Sounds))
	for _, s := range c.Sounds {
		m[s.Event] = s.Src
	}
	return m
}

// RoomSettings normalizes a CREATE_ROOM request: missing values take the
// defaults, everything is clamped to the limits.
func (c *Config) RoomSettings(req RoomSettings, password string) game.Settings {
	d, l := *c.Defaults, *c.Limits

	pick := func(o OptInt, def, lo, hi int) int {
		v := def
		if o.Set && o.Value > 0 {
			v = o.Value
		}
		return min(max(v, lo), hi)
	}

	s := game.Settings{
		MaxPlayers:     pick(req.MaxPlayers, d.MaxPlayers, game.MinPlayers, l.MaxPlayers),
		HandSize:       pick(req.HandSize, d.HandSize, 1, l.HandSize),
		WinScore:       pick(req.WinScore, d.WinScore, 1, l.WinScore),
		Decks:          req.Decks,
		Password:       password,
		AnyoneCanStart: req.AnyoneCanStart,
	}

	seconds := d.Timeout
	switch {
	case req.Timeout.Disabled:
		seconds = 0
	case req.Timeout.Set:
		seconds = req.Timeout.Seconds
	}
	if seconds > 0 {
		s.Timeout = time.Duration(min(seconds, l.Timeout)) * time.Second
	}
	return s
}
