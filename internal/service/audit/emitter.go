package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/ports"
	"github.com/benefitnav/benefitnav/internal/service/logger"
)

const appendTimeout = 5 * time.Second

// Emitter records who touched which sensitive field categories. Emission is
// fire-and-forget: sink failures are logged locally and never propagate to,
// or delay, the operation being audited.
type Emitter struct {
	sink   ports.AuditSink
	logger logger.Logger
}

func NewEmitter(sink ports.AuditSink, log logger.Logger) *Emitter {
	return &Emitter{sink: sink, logger: log}
}

// Record appends an access record asynchronously. The append runs on a
// detached context so it survives the request that triggered it.
func (e *Emitter) Record(ctx context.Context, record *domain.AuditRecord) {
	if e == nil || e.sink == nil {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error(detached, "audit append panicked", fmt.Errorf("%v", r), map[string]interface{}{
					"action": string(record.Action),
					"table":  record.TargetTable,
				})
			}
		}()

		appendCtx, cancel := context.WithTimeout(detached, appendTimeout)
		defer cancel()

		if err := e.sink.Append(appendCtx, record); err != nil {
			e.logger.Error(detached, "failed to append audit record", err, map[string]interface{}{
				"actor_id": record.ActorID,
				"action":   string(record.Action),
				"table":    record.TargetTable,
			})
		}
	}()
}

// RecordAccess classifies the payload's sensitive fields and appends one
// access record for the given action.
func (e *Emitter) RecordAccess(ctx context.Context, actorID string, action domain.AuditAction, targetTable, targetRecordID string, payload domain.Payload, meta domain.RequestMetadata) {
	fields := ClassifySensitiveFields(payload)
	e.Record(ctx, domain.NewAuditRecord(actorID, action, targetTable, targetRecordID, fields, meta))
}

// ClassifySensitiveFields walks the known payload schema and returns the
// paths considered protected information: identity fields, dates of birth,
// addresses, and medical/disability data. Paths name fields only; values are
// never included.
func ClassifySensitiveFields(payload domain.Payload) []string {
	if payload == nil {
		return nil
	}

	var fields []string

	if personal, ok := payload[domain.SectionPersonalInfo].(map[string]any); ok {
		for key := range personal {
			fields = append(fields, domain.SectionPersonalInfo+"."+key)
		}
	}

	if health, ok := payload[domain.SectionHealthDisability].(map[string]any); ok {
		for key := range health {
			fields = append(fields, domain.SectionHealthDisability+"."+key)
		}
	}

	if members, ok := payload[domain.SectionHouseholdMembers].([]any); ok && len(members) > 0 {
		fields = append(fields, domain.SectionHouseholdMembers)
	}

	sort.Strings(fields)
	return fields
}
