package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "idpsupport/internal/domain/chat"
	domainuser "idpsupport/internal/domain/user"
)

type ChatRepository struct {
	col *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{col: db.Collection("chats")}
}

func (r *ChatRepository) ByID(ctx context.Context, id domainchat.ID) (*domainchat.Conversation, error) {
	var doc chatDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ChatRepository) FindByListingAndIDP(ctx context.Context, listingID string, idpID domainuser.ID) (*domainchat.Conversation, error) {
	filter := bson.M{"listing_id": listingID, "idp_id": string(idpID)}
	var doc chatDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ChatRepository) Create(ctx context.Context, conversation *domainchat.Conversation) error {
	_, err := r.col.InsertOne(ctx, newChatDocument(conversation))
	return err
}

func (r *ChatRepository) ListForUser(ctx context.Context, userID domainuser.ID) ([]domainchat.Conversation, error) {
	id := string(userID)
	filter := bson.M{"$or": bson.A{
		bson.M{"landlord_id": id},
		bson.M{"idp_id": id},
		bson.M{"moderator_id": id},
	}}
	return r.list(ctx, filter)
}

func (r *ChatRepository) ListModerationQueue(ctx context.Context, moderatorID domainuser.ID) ([]domainchat.Conversation, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"status": string(domainchat.StatusModeratorRequested)},
		bson.M{"moderator_id": string(moderatorID)},
	}}
	return r.list(ctx, filter)
}

func (r *ChatRepository) list(ctx context.Context, filter bson.M) ([]domainchat.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]domainchat.Conversation, 0)
	for cur.Next(ctx) {
		var doc chatDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *ChatRepository) Save(ctx context.Context, conversation *domainchat.Conversation) error {
	doc := newChatDocument(conversation)
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainchat.ErrNotFound
	}
	return nil
}

func (r *ChatRepository) Touch(ctx context.Context, id domainchat.ID, at time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": string(id)},
		bson.M{"$set": bson.M{"updated_at": at.UTC().UnixMilli()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainchat.ErrNotFound
	}
	return nil
}

type chatDocument struct {
	ID          string `bson:"_id"`
	ListingID   string `bson:"listing_id"`
	LandlordID  string `bson:"landlord_id"`
	IDPID       string `bson:"idp_id"`
	ModeratorID string `bson:"moderator_id,omitempty"`
	Status      string `bson:"status"`
	CreatedAt   int64  `bson:"created_at"`
	UpdatedAt   int64  `bson:"updated_at"`
}

func newChatDocument(c *domainchat.Conversation) chatDocument {
	return chatDocument{
		ID:          string(c.ID),
		ListingID:   c.ListingID,
		LandlordID:  string(c.LandlordID),
		IDPID:       string(c.IDPID),
		ModeratorID: string(c.ModeratorID),
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt.UnixMilli(),
		UpdatedAt:   c.UpdatedAt.UnixMilli(),
	}
}

func (d chatDocument) toAggregate() *domainchat.Conversation {
	return &domainchat.Conversation{
		ID:          domainchat.ID(d.ID),
		ListingID:   d.ListingID,
		LandlordID:  domainuser.ID(d.LandlordID),
		IDPID:       domainuser.ID(d.IDPID),
		ModeratorID: domainuser.ID(d.ModeratorID),
		Status:      domainchat.Status(d.Status),
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainchat.ConversationRepository = (*ChatRepository)(nil)
