package audit

import (
	"context"
	"log/slog"

	"kycgate/pkg/attrs"
	"kycgate/pkg/requestcontext"
)

// Publisher is what domain services depend on for audit delivery.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Log writes an audit log line (log_type=audit) and forwards the event to pub
// when one is configured. Attributes are slog key/value pairs; "subject",
// "decision", "reason", "actor_id" and "subject_id_hash" are lifted into the
// event.
func Log(ctx context.Context, logger *slog.Logger, pub Publisher, event AuditEvent, ev Event, attributes ...any) error {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if !ev.UserID.IsNil() {
		attributes = append(attributes, "user_id", ev.UserID.String())
	}
	if logger != nil {
		args := append(attributes, "event", string(event), "log_type", "audit")
		logger.InfoContext(ctx, string(event), args...)
	}
	if pub == nil {
		return nil
	}

	ev.Action = string(event)
	ev.Category = event.Category()
	ev.RequestID = requestID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = requestcontext.Now(ctx)
	}
	if ev.Subject == "" {
		ev.Subject = attrs.ExtractString(attributes, "subject")
	}
	if ev.Decision == "" {
		ev.Decision = attrs.ExtractString(attributes, "decision")
	}
	if ev.Reason == "" {
		ev.Reason = attrs.ExtractString(attributes, "reason")
	}
	if ev.ActorID == "" {
		ev.ActorID = attrs.ExtractString(attributes, "actor_id")
	}
	if ev.SubjectIDHash == "" {
		ev.SubjectIDHash = attrs.ExtractString(attributes, "subject_id_hash")
	}
	return pub.Emit(ctx, ev)
}
