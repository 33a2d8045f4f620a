package chat

import (
	"context"
	"strings"
	"time"

	domainuser "idpsupport/internal/domain/user"
)

// Message is immutable once created; the only permitted mutation is
// append-only growth of the reader set.
type Message struct {
	ID        string
	ChatID    ID
	SenderID  domainuser.ID
	Content   string
	ReadBy    []domainuser.ID
	CreatedAt time.Time
}

// ReadBy reports whether the identity has acknowledged the message. The
// sender counts as a reader from the moment of sending.
func (m *Message) IsReadBy(id domainuser.ID) bool {
	for _, r := range m.ReadBy {
		if r == id {
			return true
		}
	}
	return false
}

type MessageParams struct {
	ID        string
	ChatID    ID
	SenderID  domainuser.ID
	Content   string
	CreatedAt time.Time
}

// NewMessage builds a message with the sender pre-seeded into the reader set.
func NewMessage(params MessageParams) (*Message, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, ErrIDRequired
	}
	if params.ChatID == "" {
		return nil, ErrIDRequired
	}
	if params.SenderID == "" {
		return nil, domainuser.ErrIDRequired
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, ErrEmptyMessage
	}
	created := params.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &Message{
		ID:        params.ID,
		ChatID:    params.ChatID,
		SenderID:  params.SenderID,
		Content:   params.Content,
		ReadBy:    []domainuser.ID{params.SenderID},
		CreatedAt: created.UTC(),
	}, nil
}

// MessageRepository is the durable message store. Append and AddReader are
// atomic per record, which is what makes interleaved sends and reads safe
// without coordinator-level locking.
type MessageRepository interface {
	Append(ctx context.Context, message *Message) error
	// ListByChat returns the full history in ascending creation order.
	ListByChat(ctx context.Context, chatID ID) ([]Message, error)
	// AddReader adds readerID to every message in the chat it has not sent
	// and not yet read. Idempotent; returns the number of updated messages.
	AddReader(ctx context.Context, chatID ID, readerID domainuser.ID) (int64, error)
	// CountUnread counts messages across the given chats where the viewer is
	// neither sender nor reader.
	CountUnread(ctx context.Context, chatIDs []ID, viewerID domainuser.ID) (int64, error)
	// LastByChat returns the latest message or ErrNotFound for an empty chat.
	LastByChat(ctx context.Context, chatID ID) (*Message, error)
}
