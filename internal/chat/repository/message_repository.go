package repository

import (
	"context"
	"fmt"

	"support_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition message store
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	// ListByConversation returns every message in display order.
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	// MarkRead flips unread messages authored by senderRole and returns how many changed.
	MarkRead(ctx context.Context, conversationID string, senderRole domain.SenderRole) (int64, error)
}

type mongoMessageRepository struct {
	coll     *mongo.Collection
	convColl *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository on mongo
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepository{
		coll:     db.Collection(messageCollection),
		convColl: db.Collection(conversationCollection),
	}
}

func (r *mongoMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	// mongo 沒有 foreign key, a delete that ran before the insert leaves the message behind
	n, err := r.convColl.CountDocuments(ctx, bson.M{"_id": msg.ConversationID})
	if err != nil {
		return fmt.Errorf("check conversation: %w", err)
	}
	if n == 0 {
		if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": msg.ID}); err != nil {
			return fmt.Errorf("remove orphan message: %w", err)
		}
		return fmt.Errorf("insert message: %w", domain.ErrConversationNotFound)
	}
	return nil
}

func (r *mongoMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	msgs := []domain.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return msgs, nil
}

func (r *mongoMessageRepository) MarkRead(ctx context.Context, conversationID string, senderRole domain.SenderRole) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"conversation_id": conversationID, "sender_role": senderRole, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return res.ModifiedCount, nil
}
