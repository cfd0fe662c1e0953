package app

import (
	"sort"

	"support_chat_service/internal/chat/domain"
)

// Timeline is the merged local message list of one conversation.
// It is not safe for concurrent use, controllers guard it with their own mutex.
type Timeline struct {
	msgs []domain.Message
	seen map[string]struct{}
}

// NewTimeline create an empty Timeline
func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[string]struct{})}
}

// Merge inserts msgs in display order, skipping ids already present.
// It returns the entries that were actually added.
func (t *Timeline) Merge(msgs ...domain.Message) []domain.Message {
	var added []domain.Message
	for _, m := range msgs {
		if _, dup := t.seen[m.ID]; dup {
			continue
		}
		t.seen[m.ID] = struct{}{}

		i := sort.Search(len(t.msgs), func(i int) bool {
			return domain.MessageLess(m, t.msgs[i])
		})
		t.msgs = append(t.msgs, domain.Message{})
		copy(t.msgs[i+1:], t.msgs[i:])
		t.msgs[i] = m
		added = append(added, m)
	}
	return added
}

// Reset replaces the state with a fresh fetch.
func (t *Timeline) Reset(msgs []domain.Message) {
	t.msgs = t.msgs[:0]
	t.seen = make(map[string]struct{}, len(msgs))
	t.Merge(msgs...)
}

// ApplyRead marks every message authored by role as read and returns how many changed.
func (t *Timeline) ApplyRead(role domain.SenderRole) int {
	n := 0
	for i := range t.msgs {
		if t.msgs[i].SenderRole == role && !t.msgs[i].IsRead {
			t.msgs[i].IsRead = true
			n++
		}
	}
	return n
}

// Messages returns a copy in display order.
func (t *Timeline) Messages() []domain.Message {
	out := make([]domain.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Len number of messages
func (t *Timeline) Len() int {
	return len(t.msgs)
}

// InboxList is the merged admin conversation list.
// Not safe for concurrent use.
type InboxList struct {
	rows    map[string]*domain.ConversationSummary
	counted map[string]struct{}
}

// NewInboxList create an empty InboxList
func NewInboxList() *InboxList {
	return &InboxList{
		rows:    make(map[string]*domain.ConversationSummary),
		counted: make(map[string]struct{}),
	}
}

// Reset replaces every row with a fresh fetch.
func (l *InboxList) Reset(list []domain.ConversationSummary) {
	l.rows = make(map[string]*domain.ConversationSummary, len(list))
	l.counted = make(map[string]struct{})
	for i := range list {
		row := list[i]
		l.rows[row.ID] = &row
	}
}

// Upsert merges conv into its row. lastMessageAt never goes back and closed stays closed.
func (l *InboxList) Upsert(conv domain.Conversation) domain.ConversationSummary {
	row, ok := l.rows[conv.ID]
	if !ok {
		row = &domain.ConversationSummary{Conversation: conv}
		l.rows[conv.ID] = row
		return *row
	}
	row.Conversation = row.Conversation.Supersede(conv)
	return *row
}

// Remove drops the row, reporting whether it existed.
func (l *InboxList) Remove(id string) bool {
	_, ok := l.rows[id]
	delete(l.rows, id)
	return ok
}

// CountMessage adds an unread visitor message to its row, once per message id.
func (l *InboxList) CountMessage(msg domain.Message) bool {
	if msg.SenderRole != domain.RoleVisitor || msg.IsRead {
		return false
	}
	row, ok := l.rows[msg.ConversationID]
	if !ok {
		return false
	}
	if _, dup := l.counted[msg.ID]; dup {
		return false
	}
	l.counted[msg.ID] = struct{}{}
	row.UnreadCount++
	if msg.CreatedAt.After(row.LastMessageAt) {
		row.LastMessageAt = msg.CreatedAt
	}
	return true
}

// ResetUnread zeroes the unread count of id.
func (l *InboxList) ResetUnread(id string) {
	if row, ok := l.rows[id]; ok {
		row.UnreadCount = 0
	}
}

// Get returns the row of id.
func (l *InboxList) Get(id string) (domain.ConversationSummary, bool) {
	row, ok := l.rows[id]
	if !ok {
		return domain.ConversationSummary{}, false
	}
	return *row, true
}

// Items returns the rows in inbox order.
func (l *InboxList) Items() []domain.ConversationSummary {
	out := make([]domain.ConversationSummary, 0, len(l.rows))
	for _, row := range l.rows {
		out = append(out, *row)
	}
	domain.SortInbox(out)
	return out
}
