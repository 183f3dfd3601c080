package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

func capture(t *testing.T, fn func(ctx context.Context)) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), zerolog.New(&buf))

	fn(ctx)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLog(t *testing.T) {
	entry := capture(t, func(ctx context.Context) {
		Log(ctx, ActionReindex, "admin-1", "rejected", "reindex rejected")
	})

	assert.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	assert.Equal(t, ActionReindex, entry[FieldAction])
	assert.Equal(t, "admin-1", entry[FieldActorID])
	assert.Equal(t, "rejected", entry[FieldOutcome])
	assert.Equal(t, "reindex rejected", entry["message"])
}

func TestLogWithDetail(t *testing.T) {
	entry := capture(t, func(ctx context.Context) {
		LogWithDetail(ctx, ActionReindex, "admin-1", "ok", map[string]int{"users": 3}, "reindex complete")
	})

	assert.Equal(t, map[string]any{"users": float64(3)}, entry[FieldDetail])
}
