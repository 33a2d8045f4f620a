package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idpsupport/internal/app/dto"
	domainchat "idpsupport/internal/domain/chat"
	domainuser "idpsupport/internal/domain/user"
)

func (f *wsFixture) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Config.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateChatIsIdempotentPerListingAndIDP(t *testing.T) {
	f := newWSFixture(t)
	token := f.token(t, "idp-1", "IDP")
	body := dto.CreateChatRequest{ListingID: "listing-1", IDPID: "idp-1", LandlordID: "landlord-1"}

	rec := f.request(t, http.MethodPost, "/api/v1/chats", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, string(domainchat.StatusDefault), created.Status)

	rec = f.request(t, http.MethodPost, "/api/v1/chats", token, body)
	require.Equal(t, http.StatusOK, rec.Code)
	var existing dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &existing))
	assert.Equal(t, created.ID, existing.ID)
}

func TestCreateChatRequiresMembershipOrAdmin(t *testing.T) {
	f := newWSFixture(t)
	body := dto.CreateChatRequest{ListingID: "listing-1", IDPID: "idp-1", LandlordID: "landlord-1"}

	rec := f.request(t, http.MethodPost, "/api/v1/chats", f.token(t, "stranger", "IDP"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.request(t, http.MethodPost, "/api/v1/chats", f.token(t, "root", "Admin"), body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateChatRejectsAnonymous(t *testing.T) {
	f := newWSFixture(t)
	rec := f.request(t, http.MethodPost, "/api/v1/chats", "", dto.CreateChatRequest{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetChatAuthorization(t *testing.T) {
	f := newWSFixture(t)
	f.seedChat(t, "c1", "landlord-1", "idp-1")

	rec := f.request(t, http.MethodGet, "/api/v1/chats/c1", f.token(t, "idp-1", "IDP"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodGet, "/api/v1/chats/c1", f.token(t, "stranger", "IDP"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.request(t, http.MethodGet, "/api/v1/chats/missing", f.token(t, "idp-1", "IDP"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMessagesReturnsAscendingHistoryWithProfiles(t *testing.T) {
	f := newWSFixture(t)
	f.seedChat(t, "c1", "landlord-1", "idp-1")
	require.NoError(t, f.users.Save(context.Background(), &domainuser.User{
		ID: "idp-1", FirstName: "Olena", LastName: "Shevchenko",
	}))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second"} {
		msg, err := domainchat.NewMessage(domainchat.MessageParams{
			ID: text, ChatID: "c1", SenderID: "idp-1", Content: text,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		require.NoError(t, f.messages.Append(context.Background(), msg))
	}

	rec := f.request(t, http.MethodGet, "/api/v1/chats/c1/messages", f.token(t, "landlord-1", "Landlord"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []dto.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
	assert.Equal(t, "Olena", history[0].Sender.FirstName)
	assert.Equal(t, []string{"idp-1"}, history[0].ReadBy)
}

func TestListMineSummaries(t *testing.T) {
	f := newWSFixture(t)
	f.seedChat(t, "c1", "landlord-1", "idp-1")
	require.NoError(t, f.users.Save(context.Background(), &domainuser.User{
		ID: "landlord-1", FirstName: "Petro", LastName: "Bondarenko",
	}))
	msg, err := domainchat.NewMessage(domainchat.MessageParams{
		ID: "m1", ChatID: "c1", SenderID: "landlord-1", Content: "still available",
	})
	require.NoError(t, err)
	require.NoError(t, f.messages.Append(context.Background(), msg))

	rec := f.request(t, http.MethodGet, "/api/v1/chats", f.token(t, "idp-1", "IDP"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []dto.ConversationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "c1", list[0].ID)
	assert.Equal(t, "Petro Bondarenko", list[0].Name)
	assert.Equal(t, "still available", list[0].LastMessage)
	assert.Equal(t, int64(1), list[0].Unread)

	// The other side has read its own message.
	rec = f.request(t, http.MethodGet, "/api/v1/chats", f.token(t, "landlord-1", "Landlord"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, int64(0), list[0].Unread)
}

func TestModerationClaimAndRelease(t *testing.T) {
	f := newWSFixture(t)
	f.seedChat(t, "c1", "landlord-1", "idp-1")
	conv, err := f.chats.ByID(context.Background(), "c1")
	require.NoError(t, err)
	conv.Status = domainchat.StatusModeratorRequested
	require.NoError(t, f.chats.Save(context.Background(), conv))

	modToken := f.token(t, "moderator-1", "Moderator")

	// The escalated thread shows up in the queue.
	rec := f.request(t, http.MethodGet, "/api/v1/chats/moderation", modToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var queue []dto.ConversationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Len(t, queue, 1)

	rec = f.request(t, http.MethodPatch, "/api/v1/chats/c1/moderation", modToken, dto.ModerationRequest{Action: "claim"})
	require.Equal(t, http.StatusOK, rec.Code)
	var claimed dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claimed))
	assert.Equal(t, string(domainchat.StatusInModeration), claimed.Status)
	assert.Equal(t, "moderator-1", claimed.ModeratorID)

	// Another moderator cannot steal or release the thread.
	otherToken := f.token(t, "moderator-2", "Moderator")
	rec = f.request(t, http.MethodPatch, "/api/v1/chats/c1/moderation", otherToken, dto.ModerationRequest{Action: "claim"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = f.request(t, http.MethodPatch, "/api/v1/chats/c1/moderation", otherToken, dto.ModerationRequest{Action: "release"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.request(t, http.MethodPatch, "/api/v1/chats/c1/moderation", modToken, dto.ModerationRequest{Action: "release"})
	require.Equal(t, http.StatusOK, rec.Code)
	var released dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &released))
	assert.Equal(t, string(domainchat.StatusDefault), released.Status)
	assert.Empty(t, released.ModeratorID)
}

func TestModerationEndpointsRequireModeratorRole(t *testing.T) {
	f := newWSFixture(t)
	f.seedChat(t, "c1", "landlord-1", "idp-1")
	token := f.token(t, "idp-1", "IDP")

	rec := f.request(t, http.MethodGet, "/api/v1/chats/moderation", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.request(t, http.MethodPatch, "/api/v1/chats/c1/moderation", token, dto.ModerationRequest{Action: "claim"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnreadCountEndpoint(t *testing.T) {
	f := newWSFixture(t)
	f.seedChat(t, "c1", "landlord-1", "idp-1")
	f.seedChat(t, "c2", "landlord-1", "idp-1")
	for _, id := range []string{"m1", "m2", "m3"} {
		chatID := domainchat.ID("c1")
		if id == "m3" {
			chatID = "c2"
		}
		msg, err := domainchat.NewMessage(domainchat.MessageParams{
			ID: id, ChatID: chatID, SenderID: "landlord-1", Content: id,
		})
		require.NoError(t, err)
		require.NoError(t, f.messages.Append(context.Background(), msg))
	}

	rec := f.request(t, http.MethodGet, "/api/v1/me/unread", f.token(t, "idp-1", "IDP"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var count dto.UnreadCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, int64(3), count.Total)

	rec = f.request(t, http.MethodGet, "/api/v1/me/unread", f.token(t, "landlord-1", "Landlord"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, int64(0), count.Total)
}
