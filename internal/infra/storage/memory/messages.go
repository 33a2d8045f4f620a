package memory

import (
	"context"
	"sort"
	"sync"

	domainchat "idpsupport/internal/domain/chat"
	domainuser "idpsupport/internal/domain/user"
)

// MessageRepository stores messages in memory, grouped by chat.
type MessageRepository struct {
	mu     sync.RWMutex
	byChat map[domainchat.ID][]*domainchat.Message
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{byChat: make(map[domainchat.ID][]*domainchat.Message)}
}

func (r *MessageRepository) Append(ctx context.Context, message *domainchat.Message) error {
	if message == nil || message.ID == "" {
		return domainchat.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byChat[message.ChatID] = append(r.byChat[message.ChatID], cloneMessage(message))
	return nil
}

func (r *MessageRepository) ListByChat(ctx context.Context, chatID domainchat.ID) ([]domainchat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.byChat[chatID]
	out := make([]domainchat.Message, 0, len(stored))
	for _, msg := range stored {
		out = append(out, *cloneMessage(msg))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MessageRepository) AddReader(ctx context.Context, chatID domainchat.ID, readerID domainuser.ID) (int64, error) {
	if readerID == "" {
		return 0, domainuser.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for _, msg := range r.byChat[chatID] {
		if msg.SenderID == readerID || msg.IsReadBy(readerID) {
			continue
		}
		msg.ReadBy = append(msg.ReadBy, readerID)
		updated++
	}
	return updated, nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, chatIDs []domainchat.ID, viewerID domainuser.ID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, chatID := range chatIDs {
		for _, msg := range r.byChat[chatID] {
			if msg.SenderID != viewerID && !msg.IsReadBy(viewerID) {
				count++
			}
		}
	}
	return count, nil
}

func (r *MessageRepository) LastByChat(ctx context.Context, chatID domainchat.ID) (*domainchat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.byChat[chatID]
	if len(stored) == 0 {
		return nil, domainchat.ErrNotFound
	}
	latest := stored[0]
	for _, msg := range stored[1:] {
		if msg.CreatedAt.After(latest.CreatedAt) {
			latest = msg
		}
	}
	return cloneMessage(latest), nil
}

func cloneMessage(m *domainchat.Message) *domainchat.Message {
	if m == nil {
		return nil
	}
	copyMsg := *m
	copyMsg.ReadBy = append([]domainuser.ID(nil), m.ReadBy...)
	return &copyMsg
}

var _ domainchat.MessageRepository = (*MessageRepository)(nil)
