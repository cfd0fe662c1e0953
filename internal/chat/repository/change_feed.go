package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"support_chat_service/internal/chat/domain"
)

// ChangeFeed is the store's change notification feed.
// Subscribe returns once the subscription is live; cancelling ctx ends it.
// Delivery is best effort and unordered across messages, there is no replay.
type ChangeFeed interface {
	Publish(ctx context.Context, channel string, event domain.ChangeEvent) error
	Subscribe(ctx context.Context, channel string, handler func(domain.ChangeEvent)) error
	Close() error
}

func encodeEvent(ev domain.ChangeEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode change event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("decode change event: %w", err)
	}
	return ev, nil
}

// dottedSubject maps "chat:conversation:<id>" to "chat.conversation.<id>" for brokers that route on dots.
func dottedSubject(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}
