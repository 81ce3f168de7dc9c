package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/fillblanks/internal/game"
)

// Envelope is decoded first to find which message struct to decode into.
type Envelope struct {
	Type MessageType `json:"type"`
}

// Client → Server Messages

type SetNickData struct {
	Nickname string `json:"nickname"`
}

type CreateRoomData struct {
	Name     string       `json:"name"`
	Password string       `json:"password"`
	Settings RoomSettings `json:"settings"`
}

// RoomSettings are the optional room parameters of CREATE_ROOM. Missing
// values take the server defaults.
type RoomSettings struct {
	Name           string     `json:"name,omitempty"`
	Password       string     `json:"password,omitempty"`
	MaxPlayers     OptInt     `json:"max_players,omitzero"`
	HandSize       OptInt     `json:"hand_size,omitzero"`
	WinScore       OptInt     `json:"win_score,omitzero"`
	Timeout        OptTimeout `json:"timeout,omitzero"`
	Decks          []string   `json:"decks,omitempty"`
	AnyoneCanStart bool       `json:"anyone_can_start,omitempty"`
}

type JoinRoomData struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type SubmitCardsData struct {
	Cards []string `json:"cards"`
}

type PickWinnerData struct {
	Index int `json:"index"`
}

type ChatMsgData struct {
	Message string `json:"message"`
}

// OptInt is an integer setting that may be absent. Browsers often send form
// values as strings, so numeric strings are accepted too.
type OptInt struct {
	Set   bool
	Value int
}

func (o OptInt) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *OptInt) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*o = OptInt{}
		return nil
	}
	n, err := parseIntJSON(b)
	if err != nil {
		return err
	}
	*o = OptInt{Set: true, Value: n}
	return nil
}

// OptTimeout is the round timeout in seconds. An explicit null, zero or
// "inf" disables the timer; an absent value takes the default.
type OptTimeout struct {
	Set      bool
	Disabled bool
	Seconds  int
}

func (o OptTimeout) MarshalJSON() ([]byte, error) {
	switch {
	case !o.Set || o.Disabled:
		return []byte("null"), nil
	default:
		return json.Marshal(o.Seconds)
	}
}

func (o *OptTimeout) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*o = OptTimeout{Set: true, Disabled: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "inf", "infinite", "none", "off", "":
			*o = OptTimeout{Set: true, Disabled: true}
			return nil
		}
	}
	n, err := parseIntJSON(b)
	if err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	*o = OptTimeout{Set: true, Disabled: n <= 0, Seconds: n}
	return nil
}

func parseIntJSON(b []byte) (int, error) {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, fmt.Errorf("expected a number, got %s", b)
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %s", b)
	}
	return int(f), nil
}

// Server → Client Messages

type NickOKMessage struct {
	Type     MessageType `json:"type"`
	Nickname string      `json:"nickname"`
}

type RoomInfo struct {
	Name        string     `json:"name"`
	Players     int        `json:"players"`
	Max         int        `json:"max"`
	HasPassword bool       `json:"has_password"`
	Phase       game.Phase `json:"phase"`
}

type LobbyPlayer struct {
	Nick string `json:"nick"`
	Room string `json:"room,omitempty"`
}

type RoomListMessage struct {
	Type    MessageType   `json:"type"`
	Rooms   []RoomInfo    `json:"rooms"`
	Players []LobbyPlayer `json:"players"`
}

type RoomUpdateMessage struct {
	Type MessageType `json:"type"`
	Room RoomInfo    `json:"room"`
}

type LobbyPlayersMessage struct {
	Type    MessageType   `json:"type"`
	Players []LobbyPlayer `json:"players"`
}

type JoinRoomOKMessage struct {
	Type MessageType `json:"type"`
	Room string      `json:"room"`
}

type LeftRoomMessage struct {
	Type MessageType `json:"type"`
}

type DeckListMessage struct {
	Type  MessageType `json:"type"`
	Decks []string    `json:"decks"`
}

type ChatMessage struct {
	Type    MessageType `json:"type"`
	Author  string      `json:"author"`
	Message string      `json:"message"`
	Scope   string      `json:"scope,omitempty"`
}

type PlaySoundMessage struct {
	Type MessageType `json:"type"`
	Src  string      `json:"src"`
}

type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

type BlackCard struct {
	Text string `json:"text"`
	Pick int    `json:"pick"`
}

type HandCard struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type SubmissionInfo struct {
	ID       int    `json:"id"`
	FullText string `json:"full_text"`
	Author   string `json:"author,omitempty"`
	IsWinner *bool  `json:"is_winner,omitempty"`
}

type ReadyStatus struct {
	Ready int `json:"ready"`
	Total int `json:"total"`
}

type ScoreLine struct {
	Nick   string `json:"nick"`
	Score  int    `json:"score"`
	IsCzar bool   `json:"is_czar"`
}

// GameUpdateMessage is the full per-player room snapshot.
type GameUpdateMessage struct {
	Type         MessageType      `json:"type"`
	Phase        game.Phase       `json:"phase"`
	BlackCard    *BlackCard       `json:"black_card"`
	Hand         []HandCard       `json:"hand"`
	IsCzar       bool             `json:"is_czar"`
	Submissions  []SubmissionInfo `json:"submissions"`
	HasSubmitted bool             `json:"has_submitted"`
	ReadyStatus  ReadyStatus      `json:"ready_status"`
	AmIReady     bool             `json:"am_i_ready"`
	PlayersList  []ScoreLine      `json:"players_list"`
	Winner       string           `json:"winner"`
	RoomName     string           `json:"room_name"`
	CanStart     bool             `json:"can_start"`
	Round        uint64           `json:"round"`
}

// GameUpdateFromView converts a room view into its wire form. Authorship is
// only present when the view has revealed it.
func GameUpdateFromView(v game.View) GameUpdateMessage {
	msg := GameUpdateMessage{
		Type:         MessageTypeGameUpdate,
		Phase:        v.Phase,
		Hand:         make([]HandCard, 0, len(v.Hand)),
		IsCzar:       v.IsCzar,
		Submissions:  make([]SubmissionInfo, 0, len(v.Submissions)),
		HasSubmitted: v.HasSubmitted,
		ReadyStatus:  ReadyStatus{Ready: v.Ready, Total: v.ReadyTotal},
		AmIReady:     v.AmIReady,
		PlayersList:  make([]ScoreLine, 0, len(v.Players)),
		Winner:       v.Winner,
		RoomName:     v.Room,
		CanStart:     v.CanStart,
		Round:        v.Round,
	}
	if v.Prompt != nil {
		msg.BlackCard = &BlackCard{Text: v.Prompt.Text, Pick: v.Prompt.Pick}
	}
	for _, c := range v.Hand {
		msg.Hand = append(msg.Hand, HandCard{ID: c.ID, Text: c.Text})
	}
	for _, s := range v.Submissions {
		info := SubmissionInfo{ID: s.Index, FullText: s.Text}
		if s.Revealed {
			winner := s.Winner
			info.Author = s.Author
			info.IsWinner = &winner
		}
		msg.Submissions = append(msg.Submissions, info)
	}
	for _, p := range v.Players {
		msg.PlayersList = append(msg.PlayersList, ScoreLine{Nick: p.Nickname, Score: p.Score, IsCzar: p.IsCzar})
	}
	return msg
}
