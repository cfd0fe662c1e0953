package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"support_chat_service/internal/chat/domain"

	"gorm.io/gorm"
)

type conversationRecord struct {
	ID               string    `gorm:"primaryKey;size:26"`
	VisitorSessionID string    `gorm:"size:64;index:idx_conversation_session,priority:1"`
	VisitorName      string    `gorm:"size:255;not null"`
	Status           string    `gorm:"size:16;not null"`
	LastMessageAt    time.Time `gorm:"index"`
	CreatedAt        time.Time `gorm:"index:idx_conversation_session,priority:2"`

	Messages []messageRecord `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (conversationRecord) TableName() string { return conversationCollection }

type messageRecord struct {
	ID             string    `gorm:"primaryKey;size:26"`
	ConversationID string    `gorm:"size:26;not null;index:idx_message_order,priority:1"`
	SenderRole     string    `gorm:"size:16;not null"`
	Body           string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"index:idx_message_order,priority:2"`
	IsRead         bool      `gorm:"not null"`
}

func (messageRecord) TableName() string { return messageCollection }

type summaryRow struct {
	ID               string
	VisitorSessionID string
	VisitorName      string
	Status           string
	LastMessageAt    time.Time
	CreatedAt        time.Time
	UnreadCount      int
}

// AutoMigrate creates or updates the conversation and message tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&conversationRecord{}, &messageRecord{})
}

type sqlConversationRepository struct {
	db *gorm.DB
}

// NewSQLConversationRepository create a ConversationRepository on gorm
func NewSQLConversationRepository(db *gorm.DB) ConversationRepository {
	return &sqlConversationRepository{db: db}
}

func (r *sqlConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	rec := toConversationRecord(conv)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *sqlConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *sqlConversationRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	return r.first(r.db.WithContext(ctx).
		Where("visitor_session_id = ?", sessionID).
		Order("created_at DESC").Order("id DESC"))
}

func (r *sqlConversationRepository) first(q *gorm.DB) (*domain.Conversation, error) {
	var rec conversationRecord
	err := q.First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	conv := rec.toDomain()
	return &conv, nil
}

func (r *sqlConversationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ConversationStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&conversationRecord{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return false, fmt.Errorf("update conversation status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *sqlConversationRepository) TouchLastMessageAt(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&conversationRecord{}).
		Where("id = ? AND last_message_at < ?", id, at).
		Update("last_message_at", at).Error
	if err != nil {
		return fmt.Errorf("touch last_message_at: %w", err)
	}
	return nil
}

func (r *sqlConversationRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&messageRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&conversationRecord{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete conversation: %w", err)
	}
	return deleted, nil
}

func (r *sqlConversationRepository) ListSummaries(ctx context.Context) ([]domain.ConversationSummary, error) {
	var rows []summaryRow
	err := r.db.WithContext(ctx).
		Table(conversationCollection+" AS c").
		Select("c.id, c.visitor_session_id, c.visitor_name, c.status, c.last_message_at, c.created_at, COUNT(m.id) AS unread_count").
		Joins("LEFT JOIN "+messageCollection+" AS m ON m.conversation_id = c.id AND m.sender_role = ? AND m.is_read = ?",
			string(domain.RoleVisitor), false).
		Group("c.id, c.visitor_session_id, c.visitor_name, c.status, c.last_message_at, c.created_at").
		Order("c.last_message_at DESC").Order("c.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]domain.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, domain.ConversationSummary{
			Conversation: conversationRecord{
				ID:               row.ID,
				VisitorSessionID: row.VisitorSessionID,
				VisitorName:      row.VisitorName,
				Status:           row.Status,
				LastMessageAt:    row.LastMessageAt,
				CreatedAt:        row.CreatedAt,
			}.toDomain(),
			UnreadCount: row.UnreadCount,
		})
	}
	return summaries, nil
}

type sqlMessageRepository struct {
	db *gorm.DB
}

// NewSQLMessageRepository create a MessageRepository on gorm
func NewSQLMessageRepository(db *gorm.DB) MessageRepository {
	return &sqlMessageRepository{db: db}
}

func (r *sqlMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	rec := toMessageRecord(msg)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		// 對話已被刪除
		if isForeignKeyViolation(err) {
			return fmt.Errorf("insert message: %w", domain.ErrConversationNotFound)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *sqlMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var recs []messageRecord
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	msgs := make([]domain.Message, 0, len(recs))
	for _, rec := range recs {
		msgs = append(msgs, rec.toDomain())
	}
	return msgs, nil
}

func (r *sqlMessageRepository) MarkRead(ctx context.Context, conversationID string, senderRole domain.SenderRole) (int64, error) {
	res := r.db.WithContext(ctx).Model(&messageRecord{}).
		Where("conversation_id = ? AND sender_role = ? AND is_read = ?", conversationID, string(senderRole), false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark messages read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// drivers without an error translator only report the violation as text
func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") || strings.Contains(msg, "violates foreign key constraint")
}

func toConversationRecord(c *domain.Conversation) conversationRecord {
	return conversationRecord{
		ID:               c.ID,
		VisitorSessionID: c.VisitorSessionID,
		VisitorName:      c.VisitorName,
		Status:           string(c.Status),
		LastMessageAt:    c.LastMessageAt.UTC(),
		CreatedAt:        c.CreatedAt.UTC(),
	}
}

func (rec conversationRecord) toDomain() domain.Conversation {
	return domain.Conversation{
		ID:               rec.ID,
		VisitorSessionID: rec.VisitorSessionID,
		VisitorName:      rec.VisitorName,
		Status:           domain.ConversationStatus(rec.Status),
		LastMessageAt:    rec.LastMessageAt.UTC(),
		CreatedAt:        rec.CreatedAt.UTC(),
	}
}

func toMessageRecord(m *domain.Message) messageRecord {
	return messageRecord{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderRole:     string(m.SenderRole),
		Body:           m.Body,
		CreatedAt:      m.CreatedAt.UTC(),
		IsRead:         m.IsRead,
	}
}

func (rec messageRecord) toDomain() domain.Message {
	return domain.Message{
		ID:             rec.ID,
		ConversationID: rec.ConversationID,
		SenderRole:     domain.SenderRole(rec.SenderRole),
		Body:           rec.Body,
		CreatedAt:      rec.CreatedAt.UTC(),
		IsRead:         rec.IsRead,
	}
}
