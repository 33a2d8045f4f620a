package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"idpsupport/internal/app/dto"
	"idpsupport/internal/app/events"
	domainchat "idpsupport/internal/domain/chat"
	domainuser "idpsupport/internal/domain/user"
)

// ChatHTTP exposes chat endpoints.
type ChatHTTP interface {
	Create(c *gin.Context)
	ListMine(c *gin.Context)
	Get(c *gin.Context)
	ListMessages(c *gin.Context)
	ModerationQueue(c *gin.Context)
	UpdateModeration(c *gin.Context)
	UnreadCount(c *gin.Context)
}

// ChatHandler serves the conversation CRUD surface around the realtime core.
type ChatHandler struct {
	Chats    domainchat.ConversationRepository
	Messages domainchat.MessageRepository
	Users    domainuser.Repository
	Emitter  *events.Emitter
	Logger   *slog.Logger
}

// Create gets or creates the landlord/idp thread for a listing. Repeated
// first contact returns the existing thread.
func (h ChatHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req dto.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.ListingID = strings.TrimSpace(req.ListingID)
	req.IDPID = strings.TrimSpace(req.IDPID)
	req.LandlordID = strings.TrimSpace(req.LandlordID)
	if req.ListingID == "" || req.IDPID == "" || req.LandlordID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listingId, idpId and landlordId are required"})
		return
	}
	idpID := domainuser.ID(req.IDPID)
	landlordID := domainuser.ID(req.LandlordID)
	if p.ID != idpID && p.ID != landlordID && !p.is(domainuser.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
		return
	}

	existing, err := h.Chats.FindByListingAndIDP(c.Request.Context(), req.ListingID, idpID)
	if err == nil {
		c.JSON(http.StatusOK, toConversationDTO(existing))
		return
	}
	if !errors.Is(err, domainchat.ErrNotFound) {
		h.respondError(c, err, "lookup conversation")
		return
	}

	conv, err := domainchat.NewConversation(domainchat.CreateParams{
		ID:         domainchat.ID(uuid.NewString()),
		ListingID:  req.ListingID,
		LandlordID: landlordID,
		IDPID:      idpID,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Chats.Create(c.Request.Context(), conv); err != nil {
		h.respondError(c, err, "create conversation")
		return
	}
	if h.Logger != nil {
		h.Logger.Info("conversation created", "chat_id", string(conv.ID), "listing_id", conv.ListingID)
	}
	c.JSON(http.StatusCreated, toConversationDTO(conv))
}

// ListMine returns the caller's threads as list summaries with unread counts.
func (h ChatHandler) ListMine(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conversations, err := h.Chats.ListForUser(c.Request.Context(), p.ID)
	if err != nil {
		h.respondError(c, err, "list conversations")
		return
	}
	out := make([]dto.ConversationSummary, 0, len(conversations))
	for i := range conversations {
		summary, err := h.summarize(c, &conversations[i], p.ID)
		if err != nil {
			h.respondError(c, err, "summarize conversation")
			return
		}
		out = append(out, summary)
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a single conversation for a participant or admin.
func (h ChatHandler) Get(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conv, ok := h.loadAuthorized(c, p)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toConversationDTO(conv))
}

// ListMessages returns the full ascending history with sender profiles.
func (h ChatHandler) ListMessages(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conv, ok := h.loadAuthorized(c, p)
	if !ok {
		return
	}
	messages, err := h.Messages.ListByChat(c.Request.Context(), conv.ID)
	if err != nil {
		h.respondError(c, err, "list messages")
		return
	}

	profiles := make(map[domainuser.ID]dto.SenderProfile)
	out := make([]dto.ChatMessage, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		sender, found := profiles[msg.SenderID]
		if !found {
			sender = h.senderProfile(c, msg.SenderID)
			profiles[msg.SenderID] = sender
		}
		readBy := make([]string, 0, len(msg.ReadBy))
		for _, r := range msg.ReadBy {
			readBy = append(readBy, string(r))
		}
		out = append(out, dto.ChatMessage{
			ID:        msg.ID,
			ChatID:    string(msg.ChatID),
			Sender:    sender,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
			ReadBy:    readBy,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ModerationQueue lists threads awaiting moderation plus the caller's
// assigned ones.
func (h ChatHandler) ModerationQueue(c *gin.Context) {
	p, ok := requireRole(c, domainuser.RoleModerator)
	if !ok {
		return
	}
	conversations, err := h.Chats.ListModerationQueue(c.Request.Context(), p.ID)
	if err != nil {
		h.respondError(c, err, "list moderation queue")
		return
	}
	out := make([]dto.ConversationSummary, 0, len(conversations))
	for i := range conversations {
		summary, err := h.summarize(c, &conversations[i], p.ID)
		if err != nil {
			h.respondError(c, err, "summarize conversation")
			return
		}
		out = append(out, summary)
	}
	c.JSON(http.StatusOK, out)
}

// UpdateModeration claims or releases a thread. The realtime core only ever
// reads the result; the transition stays here in the moderation workflow.
func (h ChatHandler) UpdateModeration(c *gin.Context) {
	p, ok := requireRole(c, domainuser.RoleModerator)
	if !ok {
		return
	}
	chatID := strings.TrimSpace(c.Param("id"))
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat id is required"})
		return
	}
	var req dto.ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	conv, err := h.Chats.ByID(c.Request.Context(), domainchat.ID(chatID))
	if err != nil {
		h.respondError(c, err, "load conversation")
		return
	}
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "claim":
		err = conv.Claim(p.ID, time.Now())
	case "release":
		err = conv.Release(p.ID, time.Now())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be claim or release"})
		return
	}
	if err != nil {
		h.respondError(c, err, "update moderation")
		return
	}
	if err := h.Chats.Save(c.Request.Context(), conv); err != nil {
		h.respondError(c, err, "save conversation")
		return
	}
	h.Emitter.ModerationChanged(c.Request.Context(), conv)
	if h.Logger != nil {
		h.Logger.Info("moderation updated", "chat_id", chatID, "status", string(conv.Status), "moderator_id", string(p.ID))
	}
	c.JSON(http.StatusOK, toConversationDTO(conv))
}

// UnreadCount is the bulk recount for session establishment; live counters
// are reconciled against it after reconnects.
func (h ChatHandler) UnreadCount(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conversations, err := h.Chats.ListForUser(c.Request.Context(), p.ID)
	if err != nil {
		h.respondError(c, err, "list conversations")
		return
	}
	ids := make([]domainchat.ID, 0, len(conversations))
	for _, conv := range conversations {
		ids = append(ids, conv.ID)
	}
	total, err := h.Messages.CountUnread(c.Request.Context(), ids, p.ID)
	if err != nil {
		h.respondError(c, err, "count unread")
		return
	}
	c.JSON(http.StatusOK, dto.UnreadCount{Total: total})
}

func (h ChatHandler) loadAuthorized(c *gin.Context, p principal) (*domainchat.Conversation, bool) {
	chatID := strings.TrimSpace(c.Param("id"))
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat id is required"})
		return nil, false
	}
	conv, err := h.Chats.ByID(c.Request.Context(), domainchat.ID(chatID))
	if err != nil {
		h.respondError(c, err, "load conversation")
		return nil, false
	}
	if !conv.HasParticipant(p.ID) && !p.is(domainuser.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
		return nil, false
	}
	return conv, true
}

func (h ChatHandler) summarize(c *gin.Context, conv *domainchat.Conversation, viewer domainuser.ID) (dto.ConversationSummary, error) {
	summary := dto.ConversationSummary{
		ID:        string(conv.ID),
		ListingID: conv.ListingID,
		Status:    string(conv.Status),
	}
	counterpart := h.senderProfile(c, conv.Counterpart(viewer))
	summary.Name = strings.TrimSpace(counterpart.FirstName + " " + counterpart.LastName)
	summary.Avatar = counterpart.Avatar

	last, err := h.Messages.LastByChat(c.Request.Context(), conv.ID)
	if err == nil {
		summary.LastMessage = last.Content
		summary.Timestamp = last.CreatedAt
	} else if !errors.Is(err, domainchat.ErrNotFound) {
		return dto.ConversationSummary{}, err
	}

	unread, err := h.Messages.CountUnread(c.Request.Context(), []domainchat.ID{conv.ID}, viewer)
	if err != nil {
		return dto.ConversationSummary{}, err
	}
	summary.Unread = unread
	return summary, nil
}

func (h ChatHandler) senderProfile(c *gin.Context, id domainuser.ID) dto.SenderProfile {
	profile := dto.SenderProfile{ID: string(id)}
	if h.Users == nil {
		return profile
	}
	u, err := h.Users.ByID(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, domainuser.ErrNotFound) && h.Logger != nil {
			h.Logger.Warn("profile lookup failed", "error", err, "user_id", string(id))
		}
		return profile
	}
	return dto.SenderProfile{
		ID:        string(u.ID),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Avatar:    u.Avatar,
	}
}

func (h ChatHandler) respondError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, domainchat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainchat.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domainchat.ErrAlreadyClaimed), errors.Is(err, domainchat.ErrNotModeratable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("chat request failed", "action", action, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func toConversationDTO(conv *domainchat.Conversation) dto.Conversation {
	return dto.Conversation{
		ID:          string(conv.ID),
		ListingID:   conv.ListingID,
		LandlordID:  string(conv.LandlordID),
		IDPID:       string(conv.IDPID),
		ModeratorID: string(conv.ModeratorID),
		Status:      string(conv.Status),
		CreatedAt:   conv.CreatedAt,
		UpdatedAt:   conv.UpdatedAt,
	}
}

var _ ChatHTTP = (*ChatHandler)(nil)
