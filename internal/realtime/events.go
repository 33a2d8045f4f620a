// Package realtime implements the chat event channel: room registry, session
// coordination and the WebSocket transport. Durable truth lives in the
// message store; this layer is best-effort, low-latency notification on top.
package realtime

import (
	"encoding/json"
	"time"

	domainuser "idpsupport/internal/domain/user"
)

// Client -> server events.
const (
	EventJoinUser    = "joinUser"
	EventJoinChat    = "joinChat"
	EventSendMessage = "sendMessage"
	EventMarkAsRead  = "markAsRead"
)

// Server -> client events.
const (
	EventReceiveMessage = "receiveMessage"
	EventMessagesRead   = "messagesRead"
	EventError          = "error"
)

// Envelope frames every message on the wire in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinUserPayload struct {
	UserID string `json:"userId"`
}

type JoinChatPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type SendMessagePayload struct {
	ChatID   string `json:"chatId"`
	SenderID string `json:"senderId"`
	Text     string `json:"text"`
}

type MarkAsReadPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// MessagePayload mirrors the shape chat clients render directly.
type MessagePayload struct {
	ID        string             `json:"_id"`
	ChatID    string             `json:"chatId"`
	Sender    domainuser.Profile `json:"sender"`
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"createdAt"`
	ReadBy    []string           `json:"readBy"`
}

type MessagesReadPayload struct {
	ChatID   string `json:"chatId"`
	ReaderID string `json:"readerId"`
}
