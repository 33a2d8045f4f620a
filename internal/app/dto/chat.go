package dto

import "time"

// Conversation describes chat metadata.
type Conversation struct {
	ID          string    `json:"id"`
	ListingID   string    `json:"listingId,omitempty"`
	LandlordID  string    `json:"landlordId"`
	IDPID       string    `json:"idpId"`
	ModeratorID string    `json:"moderatorId,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ConversationSummary is the list-view shape: counterpart profile, unread
// count and last-message preview.
type ConversationSummary struct {
	ID          string    `json:"id"`
	ListingID   string    `json:"listingId,omitempty"`
	Status      string    `json:"status"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar,omitempty"`
	Unread      int64     `json:"unread"`
	LastMessage string    `json:"lastMessage,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// ChatMessage is a single history entry with the sender's public profile.
type ChatMessage struct {
	ID        string        `json:"_id"`
	ChatID    string        `json:"chatId"`
	Sender    SenderProfile `json:"sender"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	ReadBy    []string      `json:"readBy"`
}

type SenderProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar,omitempty"`
}

// UnreadCount is the bulk recount clients use on session establishment.
type UnreadCount struct {
	Total int64 `json:"total"`
}

type CreateChatRequest struct {
	ListingID  string `json:"listingId"`
	IDPID      string `json:"idpId"`
	LandlordID string `json:"landlordId"`
}

type ModerationRequest struct {
	Action string `json:"action"`
}
