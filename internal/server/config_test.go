package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fillblanks/internal/game"
)

func TestLoadConfigMissingFile(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
	require.NoError(t, config.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fillblanks.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
server {
  address  = "127.0.0.1:9000"
  deck_dir = "/srv/decks"
}

defaults {
  hand_size = 8
  timeout   = 0
}

limits {
  max_players = 12
}

sound "winner" {
  src = "/sfx/fanfare.mp3"
}
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, "127.0.0.1:9000", config.Server.Address)
	assert.Equal(t, "info", config.Server.LogLevel)
	assert.Equal(t, "/srv/decks", config.Server.DeckDir)
	assert.Equal(t, RoomParameters{MaxPlayers: 8, HandSize: 8, WinScore: 5, Timeout: 0}, *config.Defaults)
	assert.Equal(t, RoomParameters{MaxPlayers: 12, HandSize: 20, WinScore: 50, Timeout: 600}, *config.Limits)
	assert.Equal(t, map[string]string{SoundWinner: "/sfx/fanfare.mp3"}, config.SoundMap())
}

func TestLoadConfigParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`server {`), 0o644))
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad address", func(c *Config) { c.Server.Address = "nowhere" }, "invalid address"},
		{"bad port", func(c *Config) { c.Server.Address = ":99999" }, "invalid port"},
		{"tiny room limit", func(c *Config) { c.Limits.MaxPlayers = 1 }, "limits: max_players"},
		{"default above limit", func(c *Config) { c.Defaults.HandSize = 30 }, "defaults: hand_size"},
		{"negative timeout", func(c *Config) { c.Defaults.Timeout = -1 }, "defaults: timeout"},
		{"unknown sound", func(c *Config) { c.Sounds = []SoundConfig{{Event: "applause", Src: "x"}} }, "unknown event"},
		{"sound without src", func(c *Config) { c.Sounds = []SoundConfig{{Event: SoundWinner}} }, "src must be set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRoomSettingsNormalization(t *testing.T) {
	config := DefaultConfig()

	t.Run("defaults", func(t *testing.T) {
		s := config.RoomSettings(RoomSettings{}, "")
		assert.Equal(t, game.Settings{MaxPlayers: 8, HandSize: 10, WinScore: 5, Timeout: time.Minute}, s)
	})

	t.Run("clamped", func(t *testing.T) {
		s := config.RoomSettings(RoomSettings{
			MaxPlayers: OptInt{Set: true, Value: 1},
			HandSize:   OptInt{Set: true, Value: 99},
			WinScore:   OptInt{Set: true, Value: -4},
			Timeout:    OptTimeout{Set: true, Seconds: 9000},
		}, "pw")
		assert.Equal(t, game.MinPlayers, s.MaxPlayers)
		assert.Equal(t, 20, s.HandSize)
		assert.Equal(t, 5, s.WinScore, "non-positive values take the default")
		assert.Equal(t, 10*time.Minute, s.Timeout)
		assert.Equal(t, "pw", s.Password)
	})

	t.Run("timer disabled", func(t *testing.T) {
		s := config.RoomSettings(RoomSettings{Timeout: OptTimeout{Set: true, Disabled: true}}, "")
		assert.Zero(t, s.Timeout)
	})

	t.Run("decks and start permission pass through", func(t *testing.T) {
		s := config.RoomSettings(RoomSettings{Decks: []string{"base", "extra"}, AnyoneCanStart: true}, "")
		assert.Equal(t, []string{"base", "extra"}, s.Decks)
		assert.True(t, s.AnyoneCanStart)
	})
}
