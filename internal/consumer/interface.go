package consumer

import (
	"context"
	"encoding/json"
)

// Debezium operation codes.
const (
	OpCreate   = "c"
	OpUpdate   = "u"
	OpDelete   = "d"
	OpSnapshot = "r"
)

// DebeziumSource identifies the table a change came from.
type DebeziumSource struct {
	Table string `json:"table"`
}

// DebeziumPayload is the payload field of a Debezium CDC message. Row
// images are kept raw and decoded against the table's model.
type DebeziumPayload struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
	Source DebeziumSource  `json:"source"`
	Op     string          `json:"op"` // "c"=create, "u"=update, "d"=delete, "r"=snapshot
	TsMs   int64           `json:"ts_ms"`
}

// DebeziumMessage is the top-level Debezium CDC message envelope.
type DebeziumMessage struct {
	Payload DebeziumPayload `json:"payload"`
}

// ChangeHandler processes one raw change message from a topic.
type ChangeHandler interface {
	HandleMessage(ctx context.Context, topic string, value []byte) error
}

// ChangeEventConsumer manages the Kafka consumer lifecycle.
type ChangeEventConsumer interface {
	Start(ctx context.Context) error
	Close() error
}
