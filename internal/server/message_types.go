package server

// MessageType is the "type" discriminator carried by every WebSocket message.
type MessageType string

// Client to server messages
const (
	MessageTypeSetNick     MessageType = "SET_NICK"
	MessageTypeGetRooms    MessageType = "GET_ROOMS"
	MessageTypeGetDecks    MessageType = "GET_DECKS"
	MessageTypeCreateRoom  MessageType = "CREATE_ROOM"
	MessageTypeJoinRoom    MessageType = "JOIN_ROOM"
	MessageTypeStartGame   MessageType = "START_GAME"
	MessageTypeSubmitCards MessageType = "SUBMIT_CARDS"
	MessageTypePickWinner  MessageType = "PICK_WINNER"
	MessageTypePlayerReady MessageType = "PLAYER_READY"
	MessageTypeLeaveRoom   MessageType = "LEAVE_ROOM"
	MessageTypeChatMsg     MessageType = "CHAT_MSG"
)

// Server to client messages
const (
	MessageTypeNickOK       MessageType = "NICK_OK"
	MessageTypeRoomList     MessageType = "ROOM_LIST"
	MessageTypeRoomUpdate   MessageType = "ROOM_UPDATE"
	MessageTypeLobbyPlayers MessageType = "LOBBY_PLAYERS"
	MessageTypeJoinRoomOK   MessageType = "JOIN_ROOM_OK"
	MessageTypeLeftRoom     MessageType = "LEFT_ROOM"
	MessageTypeDeckList     MessageType = "DECK_LIST"
	MessageTypeGameUpdate   MessageType = "GAME_UPDATE"
	MessageTypeChat         MessageType = "CHAT"
	MessageTypePlaySound    MessageType = "PLAY_SOUND"
	MessageTypeError        MessageType = "ERROR"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
