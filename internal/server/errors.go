package server

import (
	"errors"

	"github.com/lox/fillblanks/internal/deck"
	"github.com/lox/fillblanks/internal/game"
)

var (
	ErrNoSuchRoom        = errors.New("no such room")
	ErrWrongPassword     = errors.New("wrong password")
	ErrRoomFull          = errors.New("room is full")
	ErrNoNickname        = errors.New("nickname required")
	ErrNicknameTooLong   = errors.New("nickname too long")
	ErrRoomExists        = errors.New("a room with that name already exists")
	ErrInvalidRoomName   = errors.New("invalid room name")
	ErrNicknameTaken     = errors.New("nickname already taken")
	ErrNotInRoom         = errors.New("not in a room")
	ErrAlreadyInRoom     = errors.New("already in a room")
	ErrNotCzar           = game.ErrNotCzar
	ErrNotAllowedToStart = game.ErrNotAllowedToStart
	ErrNotEnoughPlayers  = game.ErrNotEnoughPlayers
	ErrAlreadyStarted    = game.ErrAlreadyStarted
	ErrConnectionClosed  = errors.New("connection closed")
	ErrSendBufferFull    = errors.New("send buffer full")

	errInvalidMessage = errors.New("invalid message")
	errUnknownType    = errors.New("unknown message type")
)

// errorCodes maps sentinel errors to the stable machine codes sent in
// ERROR replies. Unknown errors become internal_error.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNoSuchRoom, "no_such_room"},
	{ErrWrongPassword, "wrong_password"},
	{ErrRoomFull, "room_full"},
	{ErrNoNickname, "no_nickname"},
	{ErrNicknameTooLong, "invalid_nickname"},
	{ErrRoomExists, "room_exists"},
	{ErrInvalidRoomName, "invalid_room_name"},
	{ErrNicknameTaken, "nickname_taken"},
	{ErrNotInRoom, "not_in_room"},
	{ErrAlreadyInRoom, "already_in_room"},
	{game.ErrNotAllowedToStart, "not_allowed_to_start"},
	{game.ErrNotEnoughPlayers, "not_enough_players"},
	{game.ErrAlreadyStarted, "already_started"},
	{game.ErrNotPlayer, "not_in_room"},
	{game.ErrAlreadyPlayer, "already_in_room"},
	{game.ErrIsCzar, "is_czar"},
	{game.ErrNotCzar, "not_czar"},
	{game.ErrWrongPhase, "wrong_phase"},
	{game.ErrAlreadySubmitted, "already_submitted"},
	{game.ErrBadSelection, "bad_selection"},
	{game.ErrIndexOutOfRange, "index_out_of_range"},
	{game.ErrGameOver, "game_over"},
	{deck.ErrInvalidName, "invalid_deck"},
	{errInvalidMessage, "invalid_message"},
	{errUnknownType, "unknown_message_type"},
}

// ErrorCode returns the protocol code for err.
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return "internal_error"
}

func errorMessage(code, message string) ErrorMessage {
	return ErrorMessage{Type: MessageTypeError, Code: code, Message: message}
}
