// Package events publishes chat domain events to the broker for downstream
// consumers (analytics, mail digests). Delivery is fire-and-forget: a broker
// outage must never fail or delay a chat operation.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainchat "idpsupport/internal/domain/chat"
)

const (
	TypeMessageSent       = "chat.message.sent.v1"
	TypeModerationChanged = "chat.moderation.changed.v1"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

type Emitter struct {
	Producer Producer
	Topic    string
	Source   string
	Logger   *slog.Logger
}

// MessageSent reports a persisted message. Called after the store append so
// the event never precedes durable state.
func (e *Emitter) MessageSent(ctx context.Context, msg *domainchat.Message) {
	e.emit(ctx, TypeMessageSent, string(msg.ChatID), map[string]any{
		"messageId": msg.ID,
		"chatId":    string(msg.ChatID),
		"senderId":  string(msg.SenderID),
		"createdAt": msg.CreatedAt,
	})
}

// ModerationChanged reports a moderation-state transition.
func (e *Emitter) ModerationChanged(ctx context.Context, conv *domainchat.Conversation) {
	e.emit(ctx, TypeModerationChanged, string(conv.ID), map[string]any{
		"chatId":      string(conv.ID),
		"status":      string(conv.Status),
		"moderatorId": string(conv.ModeratorID),
	})
}

func (e *Emitter) emit(ctx context.Context, eventType, key string, data map[string]any) {
	if e == nil || e.Producer == nil {
		return
	}
	envelope := map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            eventType,
		"source":          e.source(),
		"time":            time.Now().UTC(),
		"datacontenttype": "application/json",
		"data":            data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		e.logError("event encode failed", err, eventType)
		return
	}
	if err := e.Producer.Publish(ctx, e.Topic, key, payload, map[string]string{"content-type": "application/json"}); err != nil {
		e.logError("event publish failed", err, eventType)
	}
}

func (e *Emitter) source() string {
	if e.Source != "" {
		return e.Source
	}
	return "idpsupport/chat"
}

func (e *Emitter) logError(msg string, err error, eventType string) {
	if e.Logger != nil {
		e.Logger.Warn(msg, "error", err, "type", eventType)
	}
}
