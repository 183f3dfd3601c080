package audit

import (
	"context"

	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

// Audit actions for the search service.
const (
	ActionReindex = "search.reindex"
)

// Field constants for audit entries.
const (
	FieldAction  = "action"
	FieldActorID = "actor_id"
	FieldOutcome = "outcome"
	FieldDetail  = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, actorID, outcome, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(FieldActorID, actorID).
		Str(FieldOutcome, outcome).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action, actorID, outcome string, detail any, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(FieldActorID, actorID).
		Str(FieldOutcome, outcome).
		Interface(FieldDetail, detail).
		Msg(msg)
}
