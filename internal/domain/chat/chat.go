package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	domainuser "idpsupport/internal/domain/user"
)

var (
	ErrNotFound        = errors.New("chat: conversation not found")
	ErrForbidden       = errors.New("chat: not a conversation participant")
	ErrIDRequired      = errors.New("chat: id is required")
	ErrEmptyMessage    = errors.New("chat: message text is required")
	ErrInvalidStatus   = errors.New("chat: invalid moderation status")
	ErrAlreadyClaimed  = errors.New("chat: conversation already in moderation")
	ErrNotModeratable  = errors.New("chat: conversation is not awaiting moderation")
	ErrSameParticipant = errors.New("chat: landlord and idp must differ")
)

type ID string

// Status is the moderation state of a conversation. Transitions are owned by
// the moderation workflow; the realtime layer only reads the participant set.
type Status string

const (
	StatusDefault            Status = "DEFAULT"
	StatusModeratorRequested Status = "MODERATOR_REQUESTED"
	StatusInModeration       Status = "IN_MODERATION"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusDefault:
		return StatusDefault, nil
	case StatusModeratorRequested:
		return StatusModeratorRequested, nil
	case StatusInModeration:
		return StatusInModeration, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Conversation is a landlord<->idp thread tied to a listing, optionally with
// an assigned moderator. Created on first contact, never hard-deleted.
type Conversation struct {
	ID          ID
	ListingID   string
	LandlordID  domainuser.ID
	IDPID       domainuser.ID
	ModeratorID domainuser.ID
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Participants returns every identity allowed inside the thread, including
// the moderator once one is assigned.
func (c *Conversation) Participants() []domainuser.ID {
	out := []domainuser.ID{c.LandlordID, c.IDPID}
	if c.ModeratorID != "" {
		out = append(out, c.ModeratorID)
	}
	return out
}

func (c *Conversation) HasParticipant(id domainuser.ID) bool {
	if id == "" {
		return false
	}
	for _, p := range c.Participants() {
		if p == id {
			return true
		}
	}
	return false
}

// Counterpart returns the participant a viewer talks to, used for list views.
func (c *Conversation) Counterpart(viewer domainuser.ID) domainuser.ID {
	switch viewer {
	case c.IDPID:
		return c.LandlordID
	case c.LandlordID:
		return c.IDPID
	default:
		return c.IDPID
	}
}

// Claim assigns a moderator to a thread awaiting moderation.
func (c *Conversation) Claim(moderator domainuser.ID, now time.Time) error {
	if moderator == "" {
		return domainuser.ErrIDRequired
	}
	if c.Status == StatusInModeration && c.ModeratorID != moderator {
		return ErrAlreadyClaimed
	}
	if c.Status == StatusDefault {
		return ErrNotModeratable
	}
	c.ModeratorID = moderator
	c.Status = StatusInModeration
	c.UpdatedAt = now.UTC()
	return nil
}

// Release resolves moderation: the moderator is cleared and the thread
// returns to its default state.
func (c *Conversation) Release(moderator domainuser.ID, now time.Time) error {
	if c.Status != StatusInModeration {
		return ErrNotModeratable
	}
	if c.ModeratorID != moderator {
		return ErrForbidden
	}
	c.ModeratorID = ""
	c.Status = StatusDefault
	c.UpdatedAt = now.UTC()
	return nil
}

type CreateParams struct {
	ID         ID
	ListingID  string
	LandlordID domainuser.ID
	IDPID      domainuser.ID
	CreatedAt  time.Time
}

func NewConversation(params CreateParams) (*Conversation, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if params.LandlordID == "" || params.IDPID == "" {
		return nil, domainuser.ErrIDRequired
	}
	if params.LandlordID == params.IDPID {
		return nil, ErrSameParticipant
	}
	created := params.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	created = created.UTC()
	return &Conversation{
		ID:         params.ID,
		ListingID:  strings.TrimSpace(params.ListingID),
		LandlordID: params.LandlordID,
		IDPID:      params.IDPID,
		Status:     StatusDefault,
		CreatedAt:  created,
		UpdatedAt:  created,
	}, nil
}

// ConversationRepository is the chat directory: participant lookup for
// authorization plus the thread CRUD the HTTP surface needs.
type ConversationRepository interface {
	ByID(ctx context.Context, id ID) (*Conversation, error)
	// FindByListingAndIDP locates an existing thread so first contact is
	// idempotent. Returns ErrNotFound when no thread exists yet.
	FindByListingAndIDP(ctx context.Context, listingID string, idpID domainuser.ID) (*Conversation, error)
	Create(ctx context.Context, conversation *Conversation) error
	// ListForUser returns threads the user participates in, most recently
	// updated first.
	ListForUser(ctx context.Context, userID domainuser.ID) ([]Conversation, error)
	// ListModerationQueue returns threads awaiting a moderator plus threads
	// already assigned to the given moderator.
	ListModerationQueue(ctx context.Context, moderatorID domainuser.ID) ([]Conversation, error)
	// Save persists moderation-state changes.
	Save(ctx context.Context, conversation *Conversation) error
	// Touch bumps the activity timestamp when a message lands.
	Touch(ctx context.Context, id ID, at time.Time) error
}
