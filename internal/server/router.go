package server

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
)

// Router decodes inbound messages and dispatches them to the directory.
// Every failure is answered with an ERROR message to the sender.
type Router struct {
	dir    *Directory
	logger *log.Logger
}

// NewRouter creates a router over dir.
func NewRouter(dir *Directory, logger *log.Logger) *Router {
	return &Router{dir: dir, logger: logger.WithPrefix("router")}
}

// Handle processes one raw message from p. A panic while handling is
// recovered and reported to p as internal_error so the read loop survives.
func (rt *Router) Handle(p Peer, raw []byte) {
	var msgType MessageType
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("Recovered panic in message handler", "conn", p.ID(), "type", msgType, "panic", r)
			rt.reply(p, errorMessage("internal_error", "internal server error"))
		}
	}()

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		rt.replyError(p, fmt.Errorf("%w: %v", errInvalidMessage, err))
		return
	}
	msgType = env.Type
	rt.logger.Debug("Received message", "conn", p.ID(), "type", msgType)

	if err := rt.dispatch(p, env.Type, raw); err != nil {
		rt.replyError(p, err)
	}
}

// Disconnect removes p from the directory.
func (rt *Router) Disconnect(p Peer) {
	rt.dir.Disconnect(p)
}

func (rt *Router) dispatch(p Peer, t MessageType, raw []byte) error {
	switch t {
	case MessageTypeSetNick:
		data, err := decode[SetNickData](raw)
		if err != nil {
			return err
		}
		return rt.dir.SetNickname(p, data.Nickname)

	case MessageTypeGetRooms:
		rt.dir.SendRoomList(p)
		return nil

	case MessageTypeGetDecks:
		return rt.dir.SendDeckList(p)

	case MessageTypeCreateRoom:
		data, err := decode[CreateRoomData](raw)
		if err != nil {
			return err
		}
		return rt.dir.CreateRoom(p, data)

	case MessageTypeJoinRoom:
		data, err := decode[JoinRoomData](raw)
		if err != nil {
			return err
		}
		return rt.dir.JoinRoom(p, data.Name, data.Password)

	case MessageTypeStartGame:
		return rt.dir.StartGame(p)

	case MessageTypeSubmitCards:
		data, err := decode[SubmitCardsData](raw)
		if err != nil {
			return err
		}
		return rt.dir.SubmitCards(p, data.Cards)

	case MessageTypePickWinner:
		data, err := decode[PickWinnerData](raw)
		if err != nil {
			return err
		}
		return rt.dir.PickWinner(p, data.Index)

	case MessageTypePlayerReady:
		return rt.dir.Ready(p)

	case MessageTypeLeaveRoom:
		_, err := rt.dir.LeaveRoom(p)
		return err

	case MessageTypeChatMsg:
		data, err := decode[ChatMsgData](raw)
		if err != nil {
			return err
		}
		return rt.dir.Chat(p, data.Message)

	default:
		return fmt.Errorf("%w: %q", errUnknownType, t)
	}
}

func decode[T any](raw []byte) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", errInvalidMessage, err)
	}
	return v, nil
}

func (rt *Router) replyError(p Peer, err error) {
	code := ErrorCode(err)
	if code == "internal_error" {
		rt.logger.Error("Message handling failed", "conn", p.ID(), "error", err)
	} else {
		rt.logger.Debug("Rejected message", "conn", p.ID(), "code", code, "error", err)
	}
	rt.reply(p, errorMessage(code, err.Error()))
}

func (rt *Router) reply(p Peer, msg any) {
	if err := p.SendMessage(msg); err != nil {
		rt.logger.Debug("Failed to send reply", "conn", p.ID(), "error", err)
	}
}
