package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainchat "idpsupport/internal/domain/chat"
	domainuser "idpsupport/internal/domain/user"
)

// ConversationRepository stores conversations in memory. Used by tests and
// STORAGE_MODE=memory runs.
type ConversationRepository struct {
	mu   sync.RWMutex
	byID map[domainchat.ID]*domainchat.Conversation
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{byID: make(map[domainchat.ID]*domainchat.Conversation)}
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainchat.ID) (*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conv, ok := r.byID[id]; ok {
		return cloneConversation(conv), nil
	}
	return nil, domainchat.ErrNotFound
}

func (r *ConversationRepository) FindByListingAndIDP(ctx context.Context, listingID string, idpID domainuser.ID) (*domainchat.Conversation, error) {
	listingID = strings.TrimSpace(listingID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.byID {
		if conv.ListingID == listingID && conv.IDPID == idpID {
			return cloneConversation(conv), nil
		}
	}
	return nil, domainchat.ErrNotFound
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *domainchat.Conversation) error {
	if conversation == nil || conversation.ID == "" {
		return domainchat.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[conversation.ID] = cloneConversation(conversation)
	return nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, userID domainuser.ID) ([]domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainchat.Conversation, 0)
	for _, conv := range r.byID {
		if conv.HasParticipant(userID) {
			out = append(out, *cloneConversation(conv))
		}
	}
	sortByActivity(out)
	return out, nil
}

func (r *ConversationRepository) ListModerationQueue(ctx context.Context, moderatorID domainuser.ID) ([]domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainchat.Conversation, 0)
	for _, conv := range r.byID {
		if conv.Status == domainchat.StatusModeratorRequested || (moderatorID != "" && conv.ModeratorID == moderatorID) {
			out = append(out, *cloneConversation(conv))
		}
	}
	sortByActivity(out)
	return out, nil
}

func (r *ConversationRepository) Save(ctx context.Context, conversation *domainchat.Conversation) error {
	if conversation == nil || conversation.ID == "" {
		return domainchat.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[conversation.ID]; !ok {
		return domainchat.ErrNotFound
	}
	r.byID[conversation.ID] = cloneConversation(conversation)
	return nil
}

func (r *ConversationRepository) Touch(ctx context.Context, id domainchat.ID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[id]
	if !ok {
		return domainchat.ErrNotFound
	}
	conv.UpdatedAt = at.UTC()
	return nil
}

func sortByActivity(list []domainchat.Conversation) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}

func cloneConversation(c *domainchat.Conversation) *domainchat.Conversation {
	if c == nil {
		return nil
	}
	copyConv := *c
	return &copyConv
}

var _ domainchat.ConversationRepository = (*ConversationRepository)(nil)
