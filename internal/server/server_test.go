package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fillblanks/internal/deck"
)

func startTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	deckDir := t.TempDir()
	writeDeck(t, deckDir, "base", 40, 5, "Nothing beats <M>.")

	config := DefaultConfig()
	config.Server.DeckDir = deckDir
	dir := NewDirectory(DirectoryConfig{
		Config: config,
		Decks:  deck.NewLoader(deckDir, testLogger()),
		Clock:  quartz.NewReal(),
		Seed:   3,
		Logger: testLogger(),
	})
	srv := NewServer("127.0.0.1:0", dir, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

// await reads until a message of type mt arrives.
func await(t *testing.T, conn *websocket.Conn, mt MessageType) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == mt {
			return data
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	_, ts := startTestServer(t)
	alice := dial(t, ts)
	bob := dial(t, ts)

	send(t, alice, `{"type":"SET_NICK","nickname":"Alice"}`)
	await(t, alice, MessageTypeNickOK)
	send(t, bob, `{"type":"SET_NICK","nickname":"Bob"}`)
	await(t, bob, MessageTypeNickOK)

	send(t, alice, `{"type":"CREATE_ROOM","name":"den","settings":{"timeout":null}}`)
	await(t, alice, MessageTypeJoinRoomOK)
	await(t, bob, MessageTypeRoomUpdate)

	send(t, bob, `{"type":"JOIN_ROOM","name":"den"}`)
	await(t, bob, MessageTypeJoinRoomOK)

	send(t, alice, `{"type":"START_GAME"}`)
	var update GameUpdateMessage
	for update.Round == 0 {
		require.NoError(t, json.Unmarshal(await(t, bob, MessageTypeGameUpdate), &update))
	}
	assert.Len(t, update.Hand, 10)
	require.NotNil(t, update.BlackCard)
	assert.Equal(t, "Nothing beats "+deck.Blank+".", update.BlackCard.Text)

	send(t, bob, `{"type":"PICK_WINNER","index":0}`)
	var errMsg ErrorMessage
	require.NoError(t, json.Unmarshal(await(t, bob, MessageTypeError), &errMsg))
	assert.Contains(t, []string{"not_czar", "wrong_phase"}, errMsg.Code)

	send(t, bob, `not json`)
	require.NoError(t, json.Unmarshal(await(t, bob, MessageTypeError), &errMsg))
	assert.Equal(t, "invalid_message", errMsg.Code)
}

func TestHealthAndStats(t *testing.T) {
	_, ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, WaitForHealthy(ctx, ts.URL, 10*time.Millisecond))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	conn := dial(t, ts)
	send(t, conn, `{"type":"GET_ROOMS"}`)
	await(t, conn, MessageTypeRoomList)

	resp, err = http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, Stats{Connections: 1}, stats)
}

func TestDisconnectLeavesRoom(t *testing.T) {
	srv, ts := startTestServer(t)
	alice := dial(t, ts)
	send(t, alice, `{"type":"SET_NICK","nickname":"Alice"}`)
	send(t, alice, `{"type":"CREATE_ROOM","name":"solo"}`)
	await(t, alice, MessageTypeJoinRoomOK)
	require.Equal(t, 1, srv.dir.Stats().Rooms)

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool {
		return srv.dir.Stats() == Stats{}
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHTTPBase(t *testing.T) {
	assert.Equal(t, "http://host:2137", HTTPBase("ws://host:2137/ws"))
	assert.Equal(t, "https://host", HTTPBase("wss://host/ws/"))
	assert.Equal(t, "http://host", HTTPBase("http://host"))
}

func TestListenAndServe(t *testing.T) {
	dir := NewDirectory(DirectoryConfig{Config: DefaultConfig(), Logger: testLogger()})
	srv := NewServer("127.0.0.1:0", dir, testLogger())
	l, err := srv.Listen()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, WaitForHealthy(ctx, "ws://"+l.Addr().String()+"/ws", 10*time.Millisecond))

	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)

	_, err = NewServer("127.0.0.1:bogus", dir, testLogger()).Listen()
	require.Error(t, err)
}
