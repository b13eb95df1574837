package services

import (
	"context"
	"encoding/json"
	"time"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/core/domain"
)

// auditChange describes one state change to be written to audit_logs
type auditChange struct {
	entityType string
	entityID   uint
	action     string
	from       string
	to         string
	oldValues  any
	newValues  any
}

// writeAudit persists the entry on the transaction's repositories and
// queues it for publishing after commit
func writeAudit(ctx context.Context, tx *repositories.Repos, box *outbox, actor domain.Actor, at time.Time, ch auditChange) error {
	entry := &models.AuditLog{
		EntityType: ch.entityType,
		EntityID:   ch.entityID,
		Action:     ch.action,
		FromStatus: ch.from,
		ToStatus:   ch.to,
		OldValues:  marshalAuditValues(ch.oldValues),
		NewValues:  marshalAuditValues(ch.newValues),
		ActorLabel: actor.Label,
		IPAddress:  actor.IP,
		CreatedAt:  at,
	}
	if !actor.IsAnonymous() {
		id := actor.UserID
		entry.ActorID = &id
	}

	if err := tx.Audit.Create(ctx, entry); err != nil {
		return err
	}
	box.audit(entry)
	return nil
}

func marshalAuditValues(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return ""
	}
	return string(b)
}
