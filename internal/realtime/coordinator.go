package realtime

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"idpsupport/internal/app/events"
	domainchat "idpsupport/internal/domain/chat"
	domainuser "idpsupport/internal/domain/user"
)

// Error strings surfaced to the originating connection. Failures are
// reported, not recovered; the client decides whether to retry.
const (
	errChatNotFound  = "chat not found"
	errNoChatAccess  = "no access to this chat"
	errEmptyMessage  = "message text is required"
	errSendFailed    = "failed to send message"
	errMarkFailed    = "failed to update read status"
	errIdentity      = "identity mismatch"
	errJoinFailed    = "failed to join chat"
	errUserIDMissing = "userId is required"
)

// Coordinator validates join/send/read operations against the chat directory,
// persists through the message store and fans events out via the registry.
// Each operation is independent: a failure never touches the session's other
// rooms and never closes the connection.
type Coordinator struct {
	Registry *Registry
	Chats    domainchat.ConversationRepository
	Messages domainchat.MessageRepository
	Users    domainuser.Repository
	Emitter  *events.Emitter
	Logger   *slog.Logger

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

// JoinUser registers the session into its personal room so it hears about
// activity in conversations it has not opened. A session may only register
// as its own authenticated identity.
func (co *Coordinator) JoinUser(sess Session, requested string) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		sess.Emit(EventError, errUserIDMissing)
		return
	}
	if domainuser.ID(requested) != sess.UserID() {
		sess.Emit(EventError, errIdentity)
		return
	}
	co.Registry.Join(PersonalRoom(sess.UserID()), sess)
	co.log().Debug("session joined personal room", "user_id", requested, "session_id", sess.ID())
}

// JoinChat adds the session to a conversation room after authorization.
func (co *Coordinator) JoinChat(ctx context.Context, sess Session, chatID string) {
	conv, ok := co.authorize(ctx, sess, chatID)
	if !ok {
		return
	}
	co.Registry.Join(ChatRoom(conv.ID), sess)
	co.log().Debug("session joined chat room", "chat_id", chatID, "user_id", string(sess.UserID()))
}

// SendMessage persists a message and fans it out: once to the conversation
// room, and once to the personal room of every other participant so users
// browsing elsewhere still get a live notification.
func (co *Coordinator) SendMessage(ctx context.Context, sess Session, chatID, text string) {
	conv, ok := co.authorize(ctx, sess, chatID)
	if !ok {
		return
	}
	if strings.TrimSpace(text) == "" {
		sess.Emit(EventError, errEmptyMessage)
		return
	}

	senderID := sess.UserID()
	msg, err := domainchat.NewMessage(domainchat.MessageParams{
		ID:        uuid.NewString(),
		ChatID:    conv.ID,
		SenderID:  senderID,
		Content:   text,
		CreatedAt: co.now(),
	})
	if err != nil {
		sess.Emit(EventError, errSendFailed)
		co.log().Error("message build failed", "error", err, "chat_id", chatID)
		return
	}
	if err := co.Messages.Append(ctx, msg); err != nil {
		sess.Emit(EventError, errSendFailed)
		co.log().Error("message append failed", "error", err, "chat_id", chatID)
		return
	}
	if err := co.Chats.Touch(ctx, conv.ID, msg.CreatedAt); err != nil {
		co.log().Warn("conversation touch failed", "error", err, "chat_id", chatID)
	}

	payload := co.messagePayload(ctx, msg)
	co.Registry.Broadcast(ChatRoom(conv.ID), EventReceiveMessage, payload)
	for _, participant := range conv.Participants() {
		if participant == senderID {
			continue
		}
		co.Registry.Broadcast(PersonalRoom(participant), EventReceiveMessage, payload)
	}
	co.Emitter.MessageSent(ctx, msg)
}

// MarkRead adds the reader to every unread message in the conversation and
// notifies the room, excluding the reader's own connection. Idempotent.
func (co *Coordinator) MarkRead(ctx context.Context, sess Session, chatID string) {
	readerID := sess.UserID()
	updated, err := co.Messages.AddReader(ctx, domainchat.ID(chatID), readerID)
	if err != nil {
		sess.Emit(EventError, errMarkFailed)
		co.log().Error("mark read failed", "error", err, "chat_id", chatID, "user_id", string(readerID))
		return
	}
	co.Registry.BroadcastExcept(ChatRoom(domainchat.ID(chatID)), sess, EventMessagesRead, MessagesReadPayload{
		ChatID:   chatID,
		ReaderID: string(readerID),
	})
	co.log().Debug("messages marked read", "chat_id", chatID, "user_id", string(readerID), "updated", updated)
}

// Disconnect prunes the session from every room. No persisted-state effect.
func (co *Coordinator) Disconnect(sess Session) {
	co.Registry.Remove(sess)
}

// authorize resolves the conversation and checks the session's identity
// against its participant set, moderator included.
func (co *Coordinator) authorize(ctx context.Context, sess Session, chatID string) (*domainchat.Conversation, bool) {
	conv, err := co.Chats.ByID(ctx, domainchat.ID(strings.TrimSpace(chatID)))
	if err != nil {
		if errors.Is(err, domainchat.ErrNotFound) {
			sess.Emit(EventError, errChatNotFound)
		} else {
			sess.Emit(EventError, errJoinFailed)
			co.log().Error("conversation lookup failed", "error", err, "chat_id", chatID)
		}
		return nil, false
	}
	if !conv.HasParticipant(sess.UserID()) {
		sess.Emit(EventError, errNoChatAccess)
		return nil, false
	}
	return conv, true
}

// messagePayload enriches the stored message with the sender's public
// profile. A missing profile degrades to a bare id rather than failing the
// send.
func (co *Coordinator) messagePayload(ctx context.Context, msg *domainchat.Message) MessagePayload {
	sender := domainuser.Profile{ID: msg.SenderID}
	if co.Users != nil {
		if u, err := co.Users.ByID(ctx, msg.SenderID); err == nil {
			sender = u.Profile()
		} else if !errors.Is(err, domainuser.ErrNotFound) {
			co.log().Warn("sender profile lookup failed", "error", err, "user_id", string(msg.SenderID))
		}
	}
	readBy := make([]string, 0, len(msg.ReadBy))
	for _, r := range msg.ReadBy {
		readBy = append(readBy, string(r))
	}
	return MessagePayload{
		ID:        msg.ID,
		ChatID:    string(msg.ChatID),
		Sender:    sender,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		ReadBy:    readBy,
	}
}

func (co *Coordinator) now() time.Time {
	if co.Now != nil {
		return co.Now()
	}
	return time.Now()
}

func (co *Coordinator) log() *slog.Logger {
	if co.Logger != nil {
		return co.Logger
	}
	return slog.Default()
}
