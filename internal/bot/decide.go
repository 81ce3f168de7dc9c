package bot

import (
	rand "math/rand/v2"

	"github.com/lox/fillblanks/internal/game"
	"github.com/lox/fillblanks/internal/randutil"
	"github.com/lox/fillblanks/internal/server"
)

// Action is one outbound client message.
type Action struct {
	Type     server.MessageType   `json:"type"`
	Nickname string               `json:"nickname,omitempty"`
	Name     string               `json:"name,omitempty"`
	Settings *server.RoomSettings `json:"settings,omitempty"`
	Cards    []string             `json:"cards,omitempty"`
	Index    *int                 `json:"index,omitempty"`
}

// Decide returns the move a random player makes for the given snapshot, if
// any. startAt is the seat count at which a player allowed to start does so;
// zero never starts.
func Decide(u server.GameUpdateMessage, rng *rand.Rand, startAt int) (Action, bool) {
	switch u.Phase {
	case game.PhaseLobby:
		if u.CanStart && startAt > 0 && len(u.PlayersList) >= startAt {
			return Action{Type: server.MessageTypeStartGame}, true
		}

	case game.PhaseSelecting:
		if u.IsCzar || u.HasSubmitted || u.BlackCard == nil || len(u.Hand) < u.BlackCard.Pick {
			return Action{}, false
		}
		picked := randutil.Sample(rng, u.Hand, u.BlackCard.Pick)
		cards := make([]string, len(picked))
		for i, c := range picked {
			cards[i] = c.ID
		}
		return Action{Type: server.MessageTypeSubmitCards, Cards: cards}, true

	case game.PhaseJudging:
		if !u.IsCzar || len(u.Submissions) == 0 {
			return Action{}, false
		}
		idx := u.Submissions[rng.IntN(len(u.Submissions))].ID
		return Action{Type: server.MessageTypePickWinner, Index: &idx}, true

	case game.PhaseSummary:
		if !u.AmIReady {
			return Action{Type: server.MessageTypePlayerReady}, true
		}
	}
	return Action{}, false
}

// pickRoom chooses a room to join from the list: the preferred one when
// named, otherwise the first open room without a password.
func pickRoom(rooms []server.RoomInfo, preferred string) (string, bool) {
	for _, r := range rooms {
		if r.HasPassword || r.Players >= r.Max || r.Phase.Terminal() {
			continue
		}
		if preferred == "" || r.Name == preferred {
			return r.Name, true
		}
	}
	return "", false
}
