package game

import "fmt"

// Phase is the state of a room's round lifecycle.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseSelecting
	PhaseJudging
	PhaseSummary
	PhaseGameOver
)

var phaseNames = [...]string{
	PhaseLobby:     "LOBBY",
	PhaseSelecting: "SELECTING",
	PhaseJudging:   "JUDGING",
	PhaseSummary:   "SUMMARY",
	PhaseGameOver:  "GAME_OVER",
}

// transitions lists the phases reachable from each phase. GAME_OVER is
// terminal.
var transitions = map[Phase][]Phase{
	PhaseLobby:     {PhaseSelecting, PhaseGameOver},
	PhaseSelecting: {PhaseSelecting, PhaseJudging, PhaseGameOver},
	PhaseJudging:   {PhaseSummary, PhaseGameOver, PhaseSelecting},
	PhaseSummary:   {PhaseSelecting, PhaseGameOver},
	PhaseGameOver:  {},
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name as written by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// CanTransition reports whether the table allows moving from p to next.
func (p Phase) CanTransition(next Phase) bool {
	for _, to := range transitions[p] {
		if to == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves p.
func (p Phase) Terminal() bool {
	return len(transitions[p]) == 0
}
