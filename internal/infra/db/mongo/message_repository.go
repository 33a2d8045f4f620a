package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "idpsupport/internal/domain/chat"
	domainuser "idpsupport/internal/domain/user"
)

type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{col: db.Collection("messages")}
}

func (r *MessageRepository) Append(ctx context.Context, message *domainchat.Message) error {
	_, err := r.col.InsertOne(ctx, newMessageDocument(message))
	return err
}

func (r *MessageRepository) ListByChat(ctx context.Context, chatID domainchat.ID) ([]domainchat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"chat_id": string(chatID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]domainchat.Message, 0)
	for cur.Next(ctx) {
		var doc messageDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cur.Err()
}

// AddReader grows the reader sets in one bulk update. $addToSet keeps the
// operation idempotent and the per-document growth atomic.
func (r *MessageRepository) AddReader(ctx context.Context, chatID domainchat.ID, readerID domainuser.ID) (int64, error) {
	filter := bson.M{
		"chat_id":   string(chatID),
		"sender_id": bson.M{"$ne": string(readerID)},
		"read_by":   bson.M{"$ne": string(readerID)},
	}
	update := bson.M{"$addToSet": bson.M{"read_by": string(readerID)}}
	res, err := r.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, chatIDs []domainchat.ID, viewerID domainuser.ID) (int64, error) {
	if len(chatIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(chatIDs))
	for _, id := range chatIDs {
		ids = append(ids, string(id))
	}
	filter := bson.M{
		"chat_id":   bson.M{"$in": ids},
		"sender_id": bson.M{"$ne": string(viewerID)},
		"read_by":   bson.M{"$ne": string(viewerID)},
	}
	return r.col.CountDocuments(ctx, filter)
}

func (r *MessageRepository) LastByChat(ctx context.Context, chatID domainchat.ID) (*domainchat.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"chat_id": string(chatID)}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

type messageDocument struct {
	ID        string   `bson:"_id"`
	ChatID    string   `bson:"chat_id"`
	SenderID  string   `bson:"sender_id"`
	Content   string   `bson:"content"`
	ReadBy    []string `bson:"read_by"`
	CreatedAt int64    `bson:"created_at"`
}

func newMessageDocument(m *domainchat.Message) messageDocument {
	readBy := make([]string, 0, len(m.ReadBy))
	for _, r := range m.ReadBy {
		readBy = append(readBy, string(r))
	}
	return messageDocument{
		ID:        m.ID,
		ChatID:    string(m.ChatID),
		SenderID:  string(m.SenderID),
		Content:   m.Content,
		ReadBy:    readBy,
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
}

func (d messageDocument) toAggregate() *domainchat.Message {
	readBy := make([]domainuser.ID, 0, len(d.ReadBy))
	for _, r := range d.ReadBy {
		readBy = append(readBy, domainuser.ID(r))
	}
	return &domainchat.Message{
		ID:        d.ID,
		ChatID:    domainchat.ID(d.ChatID),
		SenderID:  domainuser.ID(d.SenderID),
		Content:   d.Content,
		ReadBy:    readBy,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}

var _ domainchat.MessageRepository = (*MessageRepository)(nil)
