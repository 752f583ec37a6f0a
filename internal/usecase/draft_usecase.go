package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/metrics"
	"github.com/benefitnav/benefitnav/internal/ports"
	"github.com/benefitnav/benefitnav/internal/service/audit"
	"github.com/benefitnav/benefitnav/internal/service/logger"
	"github.com/benefitnav/benefitnav/pkg/apperror"
)

const draftsTable = "drafts"

// SaveDraftRequest carries one complete snapshot of wizard state. Saves are
// always whole-document: two overlapping saves are each self-consistent, so
// whichever lands last simply wins.
type SaveDraftRequest struct {
	OwnerID     string
	DraftID     string
	CurrentStep int
	Payload     domain.Payload
	Metadata    domain.RequestMetadata
}

// SaveDraftResult reports the id of the row now holding the draft.
type SaveDraftResult struct {
	DraftID string `json:"draft_id"`
}

// LoadDraftRequest loads by explicit draft id when given, otherwise the
// owner's most recently updated draft.
type LoadDraftRequest struct {
	OwnerID  string
	DraftID  string
	Metadata domain.RequestMetadata
}

// DraftView is the decrypted, schema-normalized draft handed to the wizard.
type DraftView struct {
	ID          string         `json:"id"`
	CurrentStep int            `json:"current_step"`
	Payload     domain.Payload `json:"payload"`
}

// ClearDraftRequest scopes draft deletion by id or benefit type. With neither
// scope the call is a no-op.
type ClearDraftRequest struct {
	OwnerID     string
	DraftID     string
	BenefitType domain.BenefitType
	Metadata    domain.RequestMetadata
}

// DraftSummary is draft metadata for the incomplete-applications listing; the
// payload stays encrypted and untouched.
type DraftSummary struct {
	ID          string             `json:"id"`
	BenefitType domain.BenefitType `json:"benefit_type"`
	CurrentStep int                `json:"current_step"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// DraftUseCase is the persistence gateway: the only component that talks to
// draft storage. All lower-level failures are converted into typed errors
// here; nothing below it propagates raw faults to the save coordinator.
type DraftUseCase struct {
	drafts ports.DraftRepository
	cipher ports.PayloadCipher
	audit  *audit.Emitter
	logger logger.Logger
}

// NewDraftUseCase creates the draft persistence gateway.
func NewDraftUseCase(drafts ports.DraftRepository, cipher ports.PayloadCipher, emitter *audit.Emitter, log logger.Logger) *DraftUseCase {
	return &DraftUseCase{
		drafts: drafts,
		cipher: cipher,
		audit:  emitter,
		logger: log,
	}
}

// SaveDraft encrypts the full payload and upserts the row keyed by
// (owner, benefit type). A save with no recognized benefit type is rejected
// before any write: a draft only exists once the first wizard step has
// chosen a program.
func (uc *DraftUseCase) SaveDraft(ctx context.Context, req SaveDraftRequest) (*SaveDraftResult, error) {
	if req.OwnerID == "" {
		return nil, apperror.ErrAuthRequired
	}

	benefitType := domain.BenefitTypeOf(req.Payload)
	if !benefitType.Valid() {
		return nil, apperror.NewValidation(domain.ErrInvalidBenefit.Error())
	}

	plaintext, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, apperror.NewValidation("application data could not be encoded")
	}

	ciphertext, err := uc.cipher.Encrypt(plaintext)
	if err != nil {
		uc.logger.Error(ctx, "failed to encrypt draft payload", err, map[string]interface{}{
			"owner_id": req.OwnerID,
		})
		return nil, apperror.NewPersistenceFailure("failed to protect application data")
	}

	draft := domain.NewDraft(req.OwnerID, benefitType, req.CurrentStep, ciphertext)
	if req.DraftID != "" {
		draft.ID = req.DraftID
	}

	id, err := uc.drafts.Upsert(ctx, draft)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("draft_upsert").Inc()
		uc.logger.Error(ctx, "failed to save draft", err, map[string]interface{}{
			"owner_id":     req.OwnerID,
			"benefit_type": string(benefitType),
			"current_step": req.CurrentStep,
		})
		return nil, apperror.NewPersistenceFailure("failed to save application progress")
	}

	action := domain.AuditActionCreate
	if req.DraftID != "" {
		action = domain.AuditActionUpdate
	}
	uc.audit.RecordAccess(ctx, req.OwnerID, action, draftsTable, id, req.Payload, req.Metadata)

	return &SaveDraftResult{DraftID: id}, nil
}

// LoadDraft fetches, decrypts, and normalizes a draft. A missing draft, an
// unknown storage format, or a decryption failure all surface as
// (nil, nil): the wizard starts fresh rather than crashing on unusable data.
func (uc *DraftUseCase) LoadDraft(ctx context.Context, req LoadDraftRequest) (*DraftView, error) {
	if req.OwnerID == "" {
		return nil, apperror.ErrAuthRequired
	}

	var draft *domain.Draft
	var err error
	if req.DraftID != "" {
		draft, err = uc.drafts.FindByID(ctx, req.OwnerID, req.DraftID)
	} else {
		draft, err = uc.drafts.FindLatest(ctx, req.OwnerID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrDraftNotFound) {
			return nil, nil
		}
		metrics.PersistenceFailures.WithLabelValues("draft_select").Inc()
		uc.logger.Error(ctx, "failed to load draft", err, map[string]interface{}{
			"owner_id": req.OwnerID,
			"draft_id": req.DraftID,
		})
		return nil, apperror.NewPersistenceFailure("failed to load saved progress")
	}

	payload, err := uc.decodePayload(draft)
	if err != nil {
		uc.logger.Warn(ctx, "stored draft is unusable, treating as no saved progress", map[string]interface{}{
			"owner_id": req.OwnerID,
			"draft_id": draft.ID,
			"format":   string(draft.Format),
			"reason":   err.Error(),
		})
		return nil, nil
	}

	normalized := domain.NormalizePayload(payload)

	uc.audit.RecordAccess(ctx, req.OwnerID, domain.AuditActionRead, draftsTable, draft.ID, normalized, req.Metadata)

	return &DraftView{
		ID:          draft.ID,
		CurrentStep: draft.CurrentStep,
		Payload:     normalized,
	}, nil
}

// decodePayload dispatches on the stored format tag: current rows carry
// ciphertext, legacy rows plaintext JSON.
func (uc *DraftUseCase) decodePayload(draft *domain.Draft) (domain.Payload, error) {
	var raw []byte
	switch draft.Format {
	case domain.PayloadFormatEncrypted:
		plaintext, err := uc.cipher.Decrypt(draft.Payload)
		if err != nil {
			return nil, domain.ErrUnusableDraft
		}
		raw = plaintext
	case domain.PayloadFormatPlaintext:
		raw = []byte(draft.Payload)
	default:
		return nil, domain.ErrUnknownFormat
	}

	var payload domain.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnusableDraft, err)
	}
	return payload, nil
}

// ClearDraft deletes drafts by id or benefit type. Called with neither scope
// it deletes nothing; the guard keeps a bad caller from wiping every draft
// the owner has.
func (uc *DraftUseCase) ClearDraft(ctx context.Context, req ClearDraftRequest) error {
	if req.OwnerID == "" {
		return apperror.ErrAuthRequired
	}

	filter := domain.DraftFilter{DraftID: req.DraftID, BenefitType: req.BenefitType}
	if filter.Empty() {
		uc.logger.Warn(ctx, "clear draft called without a scope, ignoring", map[string]interface{}{
			"owner_id": req.OwnerID,
		})
		return nil
	}

	if req.BenefitType != "" && !req.BenefitType.Valid() {
		return apperror.NewValidation(domain.ErrInvalidBenefit.Error())
	}

	if err := uc.drafts.Delete(ctx, req.OwnerID, filter); err != nil {
		metrics.PersistenceFailures.WithLabelValues("draft_delete").Inc()
		uc.logger.Error(ctx, "failed to clear draft", err, map[string]interface{}{
			"owner_id":     req.OwnerID,
			"draft_id":     req.DraftID,
			"benefit_type": string(req.BenefitType),
		})
		return apperror.NewPersistenceFailure("failed to clear saved progress")
	}

	uc.audit.Record(ctx, domain.NewAuditRecord(req.OwnerID, domain.AuditActionDelete, draftsTable, req.DraftID, nil, req.Metadata))

	return nil
}

// ListIncomplete returns draft metadata for the owner. Payloads stay
// encrypted; no sensitive data is touched.
func (uc *DraftUseCase) ListIncomplete(ctx context.Context, ownerID string) ([]DraftSummary, error) {
	if ownerID == "" {
		return nil, apperror.ErrAuthRequired
	}

	drafts, err := uc.drafts.ListByOwner(ctx, ownerID)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("draft_select").Inc()
		uc.logger.Error(ctx, "failed to list drafts", err, map[string]interface{}{
			"owner_id": ownerID,
		})
		return nil, apperror.NewPersistenceFailure("failed to load incomplete applications")
	}

	summaries := make([]DraftSummary, 0, len(drafts))
	for _, d := range drafts {
		summaries = append(summaries, DraftSummary{
			ID:          d.ID,
			BenefitType: d.BenefitType,
			CurrentStep: d.CurrentStep,
			UpdatedAt:   d.UpdatedAt,
		})
	}
	return summaries, nil
}
