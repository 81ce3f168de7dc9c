package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fillblanks/internal/game"
	"github.com/lox/fillblanks/internal/randutil"
	"github.com/lox/fillblanks/internal/server"
)

func hand(ids ...string) []server.HandCard {
	out := make([]server.HandCard, len(ids))
	for i, id := range ids {
		out[i] = server.HandCard{ID: id, Text: "card " + id}
	}
	return out
}

func TestDecideSelecting(t *testing.T) {
	rng := randutil.New(1)
	u := server.GameUpdateMessage{
		Phase:     game.PhaseSelecting,
		BlackCard: &server.BlackCard{Text: "__ and __", Pick: 2},
		Hand:      hand("a", "b", "c", "d"),
	}

	act, ok := Decide(u, rng, 0)
	require.True(t, ok)
	assert.Equal(t, server.MessageTypeSubmitCards, act.Type)
	require.Len(t, act.Cards, 2)
	assert.NotEqual(t, act.Cards[0], act.Cards[1])
	for _, id := range act.Cards {
		assert.Contains(t, []string{"a", "b", "c", "d"}, id)
	}

	t.Run("czar waits", func(t *testing.T) {
		czar := u
		czar.IsCzar = true
		_, ok := Decide(czar, rng, 0)
		assert.False(t, ok)
	})

	t.Run("already submitted", func(t *testing.T) {
		done := u
		done.HasSubmitted = true
		_, ok := Decide(done, rng, 0)
		assert.False(t, ok)
	})

	t.Run("short hand", func(t *testing.T) {
		short := u
		short.Hand = hand("a")
		_, ok := Decide(short, rng, 0)
		assert.False(t, ok)
	})
}

func TestDecideJudging(t *testing.T) {
	rng := randutil.New(2)
	u := server.GameUpdateMessage{
		Phase:  game.PhaseJudging,
		IsCzar: true,
		Submissions: []server.SubmissionInfo{
			{ID: 0, FullText: "one"},
			{ID: 1, FullText: "two"},
		},
	}

	act, ok := Decide(u, rng, 0)
	require.True(t, ok)
	assert.Equal(t, server.MessageTypePickWinner, act.Type)
	require.NotNil(t, act.Index)
	assert.Contains(t, []int{0, 1}, *act.Index)

	u.IsCzar = false
	_, ok = Decide(u, rng, 0)
	assert.False(t, ok)
}

func TestDecideSummaryAndLobby(t *testing.T) {
	rng := randutil.New(3)

	act, ok := Decide(server.GameUpdateMessage{Phase: game.PhaseSummary}, rng, 0)
	require.True(t, ok)
	assert.Equal(t, server.MessageTypePlayerReady, act.Type)

	_, ok = Decide(server.GameUpdateMessage{Phase: game.PhaseSummary, AmIReady: true}, rng, 0)
	assert.False(t, ok)

	lobby := server.GameUpdateMessage{
		Phase:       game.PhaseLobby,
		CanStart:    true,
		PlayersList: make([]server.ScoreLine, 2),
	}
	_, ok = Decide(lobby, rng, 3)
	assert.False(t, ok, "waits for the third seat")
	_, ok = Decide(lobby, rng, 0)
	assert.False(t, ok, "zero never starts")

	lobby.PlayersList = make([]server.ScoreLine, 3)
	act, ok = Decide(lobby, rng, 3)
	require.True(t, ok)
	assert.Equal(t, server.MessageTypeStartGame, act.Type)
}

func TestPickRoom(t *testing.T) {
	rooms := []server.RoomInfo{
		{Name: "locked", Players: 1, Max: 8, HasPassword: true},
		{Name: "full", Players: 2, Max: 2},
		{Name: "done", Players: 3, Max: 8, Phase: game.PhaseGameOver},
		{Name: "open", Players: 3, Max: 8, Phase: game.PhaseSelecting},
		{Name: "other", Players: 0, Max: 8},
	}

	name, ok := pickRoom(rooms, "")
	require.True(t, ok)
	assert.Equal(t, "open", name)

	name, ok = pickRoom(rooms, "other")
	require.True(t, ok)
	assert.Equal(t, "other", name)

	_, ok = pickRoom(rooms, "locked")
	assert.False(t, ok)
	_, ok = pickRoom(nil, "")
	assert.False(t, ok)
}
