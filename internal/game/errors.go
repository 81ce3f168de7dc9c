package game

import "errors"

var (
	ErrNotPlayer         = errors.New("not a player in this room")
	ErrAlreadyPlayer     = errors.New("already a player in this room")
	ErrIsCzar            = errors.New("the czar cannot submit cards")
	ErrNotCzar           = errors.New("only the czar can pick a winner")
	ErrWrongPhase        = errors.New("action not allowed in the current phase")
	ErrAlreadySubmitted  = errors.New("cards already submitted this round")
	ErrBadSelection      = errors.New("selection does not match the prompt")
	ErrIndexOutOfRange   = errors.New("submission index out of range")
	ErrGameOver          = errors.New("game is over")
	ErrAlreadyStarted    = errors.New("game already started")
	ErrNotAllowedToStart = errors.New("not allowed to start the game")
	ErrNotEnoughPlayers  = errors.New("not enough players to start")
	ErrIllegalTransition = errors.New("illegal phase transition")
)
