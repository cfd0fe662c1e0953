package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"support_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	conversationCollection = "support_conversations"
	messageCollection      = "support_messages"
)

// ConversationRepository definition conversation store
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	// FindByID returns nil, nil when the conversation does not exist.
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	// FindBySessionID returns the most recently created match, or nil, nil.
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Conversation, error)
	// UpdateStatus moves id from -> to and reports whether a row changed.
	UpdateStatus(ctx context.Context, id string, from, to domain.ConversationStatus) (bool, error)
	// TouchLastMessageAt raises lastMessageAt to at, never lowering it.
	TouchLastMessageAt(ctx context.Context, id string, at time.Time) error
	// Delete removes the conversation together with its messages.
	Delete(ctx context.Context, id string) (bool, error)
	// ListSummaries returns every conversation in inbox order with its unread visitor count.
	ListSummaries(ctx context.Context) ([]domain.ConversationSummary, error)
}

type mongoConversationRepository struct {
	convColl *mongo.Collection
	msgColl  *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository on mongo
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &mongoConversationRepository{
		convColl: db.Collection(conversationCollection),
		msgColl:  db.Collection(messageCollection),
	}
}

// EnsureMongoIndexes creates the lookup and ordering indexes of both collections.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(conversationCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "visitor_session_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "last_message_at", Value: -1}, {Key: "_id", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create conversation indexes: %w", err)
	}

	_, err = db.Collection(messageCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "sender_role", Value: 1}, {Key: "is_read", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	return nil
}

func (r *mongoConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	if _, err := r.convColl.InsertOne(ctx, conv); err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *mongoConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoConversationRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return r.findOne(ctx, bson.M{"visitor_session_id": sessionID}, opts)
}

func (r *mongoConversationRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.convColl.FindOne(ctx, filter, opts...).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &conv, nil
}

func (r *mongoConversationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ConversationStatus) (bool, error) {
	res, err := r.convColl.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return false, fmt.Errorf("update conversation status: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoConversationRepository) TouchLastMessageAt(ctx context.Context, id string, at time.Time) error {
	_, err := r.convColl.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$max": bson.M{"last_message_at": at}},
	)
	if err != nil {
		return fmt.Errorf("touch last_message_at: %w", err)
	}
	return nil
}

// Delete removes messages first so a failure never leaves orphans behind.
func (r *mongoConversationRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := r.msgColl.DeleteMany(ctx, bson.M{"conversation_id": id}); err != nil {
		return false, fmt.Errorf("delete conversation messages: %w", err)
	}
	res, err := r.convColl.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete conversation: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoConversationRepository) ListSummaries(ctx context.Context) ([]domain.ConversationSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.convColl.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}

	unread, err := r.countUnread(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summaries = append(summaries, domain.ConversationSummary{Conversation: c, UnreadCount: unread[c.ID]})
	}
	return summaries, nil
}

// countUnread groups unread visitor messages by conversation.
func (r *mongoConversationRepository) countUnread(ctx context.Context) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "sender_role", Value: domain.RoleVisitor},
			{Key: "is_read", Value: false},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$conversation_id"},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := r.msgColl.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate error: %w", err)
	}

	var results []struct {
		ConversationID string `bson:"_id"`
		UnreadCount    int    `bson:"unread_count"`
	}
	if err := cur.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}

	unread := make(map[string]int, len(results))
	for _, res := range results {
		unread[res.ConversationID] = res.UnreadCount
	}
	return unread, nil
}
