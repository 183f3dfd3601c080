package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/config"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/mirror"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

var (
	ErrUnknownTopic = errors.New("unknown topic")
	ErrMalformed    = errors.New("malformed change event")
)

// Indexer applies entity changes to the search index.
type Indexer interface {
	OnUpdate(ctx context.Context, e domain.Entity) mirror.Outcome
	OnDelete(ctx context.Context, cat domain.Category, id string) mirror.Outcome
}

// Dispatcher turns Debezium row changes into index writes.
type Dispatcher struct {
	topics  map[string]domain.Category
	indexer Indexer
}

func NewDispatcher(topics map[string]domain.Category, indexer Indexer) *Dispatcher {
	return &Dispatcher{topics: topics, indexer: indexer}
}

// TopicMap maps each configured change topic to its category.
func TopicMap(cfg config.KafkaConfig) map[string]domain.Category {
	topics := make(map[string]domain.Category)
	for topic, cat := range map[string]domain.Category{
		cfg.TopicUsers:     domain.CategoryUsers,
		cfg.TopicGroups:    domain.CategoryGroups,
		cfg.TopicEvents:    domain.CategoryEvents,
		cfg.TopicKnowledge: domain.CategoryKnowledge,
	} {
		if topic != "" {
			topics[topic] = cat
		}
	}
	return topics
}

// Topics returns the subscribed topics in a stable order.
func (d *Dispatcher) Topics() []string {
	out := make([]string, 0, len(d.topics))
	for t := range d.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (d *Dispatcher) HandleMessage(ctx context.Context, topic string, value []byte) error {
	_, err := d.Apply(ctx, topic, value)
	return err
}

// Apply decodes one message and writes it through the indexer. Tombstones
// are skipped. A row whose after image is soft-deleted is removed.
func (d *Dispatcher) Apply(ctx context.Context, topic string, value []byte) (mirror.Outcome, error) {
	cat, ok := d.topics[topic]
	if !ok {
		return mirror.Skipped, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	if isNull(value) {
		return mirror.Skipped, nil
	}

	var msg DebeziumMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return mirror.Skipped, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldTopic, topic).
		Str("op", msg.Payload.Op).
		Int64("ts_ms", msg.Payload.TsMs).
		Msg("received change event")

	switch msg.Payload.Op {
	case OpCreate, OpUpdate, OpSnapshot:
		row, err := decodeRow(cat, msg.Payload.After)
		if err != nil {
			return mirror.Skipped, err
		}
		e := row.ToEntity()
		if row.IsDeleted() {
			return d.indexer.OnDelete(ctx, cat, e.EntityID()), nil
		}
		return d.indexer.OnUpdate(ctx, e), nil

	case OpDelete:
		row, err := decodeRow(cat, msg.Payload.Before)
		if err != nil {
			return mirror.Skipped, err
		}
		return d.indexer.OnDelete(ctx, cat, row.ToEntity().EntityID()), nil

	default:
		return mirror.Skipped, fmt.Errorf("%w: op %q", ErrMalformed, msg.Payload.Op)
	}
}

func decodeRow(cat domain.Category, raw json.RawMessage) (domain.Model, error) {
	if isNull(raw) {
		return nil, fmt.Errorf("%w: missing row image", ErrMalformed)
	}
	row, err := domain.NewModel(cat)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, row); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if row.ToEntity().EntityID() == "" {
		return nil, fmt.Errorf("%w: row without id", ErrMalformed)
	}
	return row, nil
}

func isNull(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
