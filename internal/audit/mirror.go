package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Publisher is the transport behind the kafka mirror; satisfied by
// internal/platform/kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// KafkaMirror forwards committed audit entries to a Kafka topic through a
// bounded inbox. Enqueue never blocks the request path: when the inbox is
// full the entry is dropped and counted, because the relational store
// already holds the authoritative record.
type KafkaMirror struct {
	publisher Publisher
	logger    *slog.Logger
	inbox     chan Entry
}

// NewKafkaMirror constructs a mirror with the given inbox capacity.
func NewKafkaMirror(publisher Publisher, logger *slog.Logger, capacity int) *KafkaMirror {
	if capacity <= 0 {
		capacity = 1024
	}
	return &KafkaMirror{
		publisher: publisher,
		logger:    logger,
		inbox:     make(chan Entry, capacity),
	}
}

// Enqueue hands an entry to the mirror worker without blocking.
func (m *KafkaMirror) Enqueue(entry Entry) {
	select {
	case m.inbox <- entry:
	default:
		if m.logger != nil {
			m.logger.Warn("audit mirror inbox full, entry dropped",
				"action_type", string(entry.ActionType))
		}
	}
}

// mirrorPayload is the JSON structure published to Kafka.
type mirrorPayload struct {
	EventID      string         `json:"event_id"`
	EntryID      int64          `json:"entry_id"`
	OfficerID    *int64         `json:"officer_id"`
	ActionType   string         `json:"action_type"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	CaseID       *int64         `json:"case_id,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	Timestamp    string         `json:"timestamp"`
}

// Run consumes the inbox and publishes until the context is cancelled.
func (m *KafkaMirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-m.inbox:
			m.publish(ctx, entry)
		}
	}
}

func (m *KafkaMirror) publish(ctx context.Context, entry Entry) {
	payload, err := json.Marshal(mirrorPayload{
		EventID:      uuid.NewString(),
		EntryID:      entry.ID,
		OfficerID:    entry.OfficerID,
		ActionType:   string(entry.ActionType),
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		CaseID:       entry.CaseID,
		Detail:       entry.Detail,
		Timestamp:    entry.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		if m.logger != nil {
			m.logger.Error("marshal mirror payload", "error", err)
		}
		return
	}
	key := strconv.FormatInt(entry.ID, 10)
	if entry.CaseID != nil {
		// Key by case so a consumer sees one case's trail in order.
		key = strconv.FormatInt(*entry.CaseID, 10)
	}
	if err := m.publisher.Publish(ctx, key, payload); err != nil && m.logger != nil {
		m.logger.Error("publish audit mirror entry", "error", err,
			"entry_id", entry.ID)
	}
}
