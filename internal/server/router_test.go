package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fillblanks/internal/game"
)

// panicPeer blows up on the first NICK_OK it is sent.
type panicPeer struct {
	*fakePeer
}

func (p panicPeer) SendMessage(msg any) error {
	if _, ok := msg.(NickOKMessage); ok {
		panic("boom")
	}
	return p.fakePeer.SendMessage(msg)
}

func TestRouterErrors(t *testing.T) {
	env := newTestEnv(t)
	rt := NewRouter(env.dir, testLogger())
	p := newPeer("p1")
	env.dir.Connect(p)

	tests := []struct {
		name string
		raw  string
		code string
	}{
		{"malformed json", `{"type":`, "invalid_message"},
		{"unknown type", `{"type":"DANCE"}`, "unknown_message_type"},
		{"bad payload", `{"type":"PICK_WINNER","index":"first"}`, "invalid_message"},
		{"start outside room", `{"type":"START_GAME"}`, "not_in_room"},
		{"join without nickname", `{"type":"JOIN_ROOM","name":"x"}`, "no_nickname"},
		{"empty nickname", `{"type":"SET_NICK","nickname":""}`, "no_nickname"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.reset()
			rt.Handle(p, []byte(tt.raw))
			msg := last[ErrorMessage](t, p, MessageTypeError)
			assert.Equal(t, tt.code, msg.Code)
			assert.NotEmpty(t, msg.Message)
		})
	}
}

func TestRouterDispatch(t *testing.T) {
	env := newTestEnv(t)
	rt := NewRouter(env.dir, testLogger())
	alice, bob := newPeer("alice"), newPeer("bob")
	env.dir.Connect(alice)
	env.dir.Connect(bob)

	rt.Handle(alice, []byte(`{"type":"SET_NICK","nickname":"Alice"}`))
	rt.Handle(bob, []byte(`{"type":"SET_NICK","nickname":"Bob"}`))
	assert.Equal(t, "Alice", last[NickOKMessage](t, alice, MessageTypeNickOK).Nickname)

	rt.Handle(alice, []byte(`{"type":"GET_DECKS"}`))
	assert.Equal(t, []string{"base"}, last[DeckListMessage](t, alice, MessageTypeDeckList).Decks)

	rt.Handle(alice, []byte(`{"type":"CREATE_ROOM","settings":{"name":"den","hand_size":"3","timeout":"inf"}}`))
	assert.Equal(t, "den", last[JoinRoomOKMessage](t, alice, MessageTypeJoinRoomOK).Room)

	rt.Handle(bob, []byte(`{"type":"GET_ROOMS"}`))
	rooms := last[RoomListMessage](t, bob, MessageTypeRoomList).Rooms
	require.Len(t, rooms, 1)
	assert.Equal(t, "den", rooms[0].Name)

	rt.Handle(bob, []byte(`{"type":"JOIN_ROOM","name":"den"}`))
	rt.Handle(alice, []byte(`{"type":"START_GAME"}`))
	update := last[GameUpdateMessage](t, bob, MessageTypeGameUpdate)
	require.Equal(t, game.PhaseSelecting, update.Phase)
	assert.Len(t, update.Hand, 3)

	rt.Handle(bob, []byte(`{"type":"CHAT_MSG","message":"hi"}`))
	assert.Equal(t, "hi", last[ChatMessage](t, alice, MessageTypeChat).Message)

	rt.Handle(bob, []byte(`{"type":"LEAVE_ROOM"}`))
	assert.Contains(t, bob.types(), MessageTypeLeftRoom)
	assert.Zero(t, alice.count(MessageTypeError))
	assert.Zero(t, bob.count(MessageTypeError))

	rt.Disconnect(alice)
	assert.Equal(t, 0, env.dir.Stats().Rooms)
}

func TestRouterRecoversPanics(t *testing.T) {
	env := newTestEnv(t)
	rt := NewRouter(env.dir, testLogger())
	p := panicPeer{newPeer("p1")}
	env.dir.Connect(p)

	require.NotPanics(t, func() {
		rt.Handle(p, []byte(`{"type":"SET_NICK","nickname":"Alice"}`))
	})
	msg := last[ErrorMessage](t, p.fakePeer, MessageTypeError)
	assert.Equal(t, "internal_error", msg.Code)

	// The directory lock was released by the unwinding handler.
	rt.Handle(p, []byte(`{"type":"GET_ROOMS"}`))
	assert.Contains(t, p.types(), MessageTypeRoomList)
}
