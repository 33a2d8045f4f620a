package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainuser "idpsupport/internal/domain/user"
)

func validParams() CreateParams {
	return CreateParams{
		ID:         "chat-1",
		ListingID:  "listing-1",
		LandlordID: "landlord-1",
		IDPID:      "idp-1",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewConversation(t *testing.T) {
	conv, err := NewConversation(validParams())
	require.NoError(t, err)
	assert.Equal(t, StatusDefault, conv.Status)
	assert.Empty(t, conv.ModeratorID)
	assert.Equal(t, conv.CreatedAt, conv.UpdatedAt)
}

func TestNewConversationRejectsSameParticipant(t *testing.T) {
	params := validParams()
	params.IDPID = params.LandlordID
	_, err := NewConversation(params)
	assert.ErrorIs(t, err, ErrSameParticipant)
}

func TestNewConversationRequiresIDs(t *testing.T) {
	params := validParams()
	params.LandlordID = ""
	_, err := NewConversation(params)
	assert.ErrorIs(t, err, domainuser.ErrIDRequired)

	params = validParams()
	params.ID = " "
	_, err = NewConversation(params)
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestParticipantsIncludeModeratorOnlyWhenAssigned(t *testing.T) {
	conv, err := NewConversation(validParams())
	require.NoError(t, err)
	assert.Len(t, conv.Participants(), 2)
	assert.False(t, conv.HasParticipant("moderator-1"))

	conv.Status = StatusModeratorRequested
	require.NoError(t, conv.Claim("moderator-1", time.Now()))
	assert.Len(t, conv.Participants(), 3)
	assert.True(t, conv.HasParticipant("moderator-1"))
}

func TestClaimTransitions(t *testing.T) {
	conv, err := NewConversation(validParams())
	require.NoError(t, err)

	// DEFAULT threads cannot be claimed.
	assert.ErrorIs(t, conv.Claim("moderator-1", time.Now()), ErrNotModeratable)

	conv.Status = StatusModeratorRequested
	require.NoError(t, conv.Claim("moderator-1", time.Now()))
	assert.Equal(t, StatusInModeration, conv.Status)
	assert.Equal(t, domainuser.ID("moderator-1"), conv.ModeratorID)

	// Re-claiming by the same moderator is a no-op; another moderator is rejected.
	require.NoError(t, conv.Claim("moderator-1", time.Now()))
	assert.ErrorIs(t, conv.Claim("moderator-2", time.Now()), ErrAlreadyClaimed)
}

func TestReleaseTransitions(t *testing.T) {
	conv, err := NewConversation(validParams())
	require.NoError(t, err)
	conv.Status = StatusModeratorRequested
	require.NoError(t, conv.Claim("moderator-1", time.Now()))

	assert.ErrorIs(t, conv.Release("moderator-2", time.Now()), ErrForbidden)

	require.NoError(t, conv.Release("moderator-1", time.Now()))
	assert.Equal(t, StatusDefault, conv.Status)
	assert.Empty(t, conv.ModeratorID)
	assert.ErrorIs(t, conv.Release("moderator-1", time.Now()), ErrNotModeratable)
}

func TestCounterpart(t *testing.T) {
	conv, err := NewConversation(validParams())
	require.NoError(t, err)
	assert.Equal(t, conv.LandlordID, conv.Counterpart(conv.IDPID))
	assert.Equal(t, conv.IDPID, conv.Counterpart(conv.LandlordID))
	// A moderator sees the idp as counterpart.
	assert.Equal(t, conv.IDPID, conv.Counterpart("moderator-1"))
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" in_moderation ")
	require.NoError(t, err)
	assert.Equal(t, StatusInModeration, status)

	_, err = ParseStatus("bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestNewMessageSeedsSenderAsReader(t *testing.T) {
	msg, err := NewMessage(MessageParams{
		ID:       "msg-1",
		ChatID:   "chat-1",
		SenderID: "idp-1",
		Content:  "hello",
	})
	require.NoError(t, err)
	assert.True(t, msg.IsReadBy("idp-1"))
	assert.False(t, msg.IsReadBy("landlord-1"))
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestNewMessageRejectsBlankContent(t *testing.T) {
	_, err := NewMessage(MessageParams{
		ID:       "msg-1",
		ChatID:   "chat-1",
		SenderID: "idp-1",
		Content:  "   ",
	})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
