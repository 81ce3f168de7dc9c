package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		allowed  bool
	}{
		{PhaseLobby, PhaseSelecting, true},
		{PhaseLobby, PhaseGameOver, true},
		{PhaseLobby, PhaseJudging, false},
		{PhaseSelecting, PhaseSelecting, true},
		{PhaseSelecting, PhaseJudging, true},
		{PhaseSelecting, PhaseSummary, false},
		{PhaseJudging, PhaseSummary, true},
		{PhaseJudging, PhaseGameOver, true},
		{PhaseJudging, PhaseSelecting, true},
		{PhaseJudging, PhaseLobby, false},
		{PhaseSummary, PhaseSelecting, true},
		{PhaseSummary, PhaseJudging, false},
		{PhaseGameOver, PhaseSelecting, false},
		{PhaseGameOver, PhaseLobby, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestPhaseTerminal(t *testing.T) {
	for _, p := range []Phase{PhaseLobby, PhaseSelecting, PhaseJudging, PhaseSummary} {
		assert.False(t, p.Terminal(), p.String())
	}
	assert.True(t, PhaseGameOver.Terminal())
}

func TestPhaseJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Phase{"phase": PhaseGameOver})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"GAME_OVER"}`, string(b))
	assert.Equal(t, "Phase(9)", Phase(9).String())

	var decoded map[string]Phase
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, PhaseGameOver, decoded["phase"])
	require.Error(t, json.Unmarshal([]byte(`{"phase":"NAPPING"}`), &decoded))
}
