package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/metrics"
	"github.com/benefitnav/benefitnav/internal/ports"
	"github.com/benefitnav/benefitnav/internal/service/audit"
	"github.com/benefitnav/benefitnav/internal/service/logger"
	"github.com/benefitnav/benefitnav/pkg/apperror"
)

const submissionsTable = "submitted_applications"

// SubmitRequest finalizes an application for one benefit type.
type SubmitRequest struct {
	OwnerID     string
	BenefitType domain.BenefitType
	Payload     domain.Payload
	Metadata    domain.RequestMetadata
}

// SubmissionView is what the wizard sees after a successful submission.
type SubmissionView struct {
	ID          string                  `json:"id"`
	BenefitType domain.BenefitType      `json:"benefit_type"`
	Status      domain.SubmissionStatus `json:"status"`
	SubmittedAt time.Time               `json:"submitted_at"`
}

// SubmissionSummary is submission metadata for listings.
type SubmissionSummary struct {
	ID          string                  `json:"id"`
	BenefitType domain.BenefitType      `json:"benefit_type"`
	Status      domain.SubmissionStatus `json:"status"`
	SubmittedAt time.Time               `json:"submitted_at"`
}

// SubmitUseCase promotes a draft into an immutable submitted application and
// retires the draft.
type SubmitUseCase struct {
	submissions ports.SubmissionRepository
	drafts      ports.DraftRepository
	cipher      ports.PayloadCipher
	audit       *audit.Emitter
	logger      logger.Logger
}

// NewSubmitUseCase creates the submission finalizer.
func NewSubmitUseCase(submissions ports.SubmissionRepository, drafts ports.DraftRepository, cipher ports.PayloadCipher, emitter *audit.Emitter, log logger.Logger) *SubmitUseCase {
	return &SubmitUseCase{
		submissions: submissions,
		drafts:      drafts,
		cipher:      cipher,
		audit:       emitter,
		logger:      log,
	}
}

// Submit runs the finalization steps in order, aborting on the first
// failure: duplicate check, independent encryption, insert, audit record,
// then best-effort draft cleanup. A cleanup failure is logged but never
// undoes the submission; the submission is authoritative once inserted.
func (uc *SubmitUseCase) Submit(ctx context.Context, req SubmitRequest) (*SubmissionView, error) {
	if req.OwnerID == "" {
		return nil, apperror.ErrAuthRequired
	}
	if req.Payload == nil {
		return nil, apperror.NewValidation("application data is required")
	}
	if !req.BenefitType.Valid() {
		return nil, apperror.NewValidation(domain.ErrInvalidBenefit.Error())
	}

	exists, err := uc.submissions.Exists(ctx, req.OwnerID, req.BenefitType)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("submission_select").Inc()
		uc.logger.Error(ctx, "failed to check for existing submission", err, map[string]interface{}{
			"owner_id":     req.OwnerID,
			"benefit_type": string(req.BenefitType),
		})
		return nil, apperror.NewPersistenceFailure("failed to submit application")
	}
	if exists {
		metrics.SubmissionsTotal.WithLabelValues(string(req.BenefitType), "duplicate").Inc()
		return nil, apperror.ErrDuplicateSubmission
	}

	// The snapshot is encrypted independently of any draft ciphertext.
	plaintext, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, apperror.NewValidation("application data could not be encoded")
	}
	ciphertext, err := uc.cipher.Encrypt(plaintext)
	if err != nil {
		uc.logger.Error(ctx, "failed to encrypt submission payload", err, map[string]interface{}{
			"owner_id": req.OwnerID,
		})
		return nil, apperror.NewPersistenceFailure("failed to protect application data")
	}

	submission := domain.NewSubmission(req.OwnerID, req.BenefitType, ciphertext)
	if err := uc.submissions.Create(ctx, submission); err != nil {
		// A concurrent submit can slip between the existence check and the
		// insert; the unique key catches it and it reports as a duplicate.
		if errors.Is(err, domain.ErrDuplicateSubmission) {
			metrics.SubmissionsTotal.WithLabelValues(string(req.BenefitType), "duplicate").Inc()
			return nil, apperror.ErrDuplicateSubmission
		}
		metrics.PersistenceFailures.WithLabelValues("submission_insert").Inc()
		metrics.SubmissionsTotal.WithLabelValues(string(req.BenefitType), "failure").Inc()
		uc.logger.Error(ctx, "failed to create submission", err, map[string]interface{}{
			"owner_id":     req.OwnerID,
			"benefit_type": string(req.BenefitType),
		})
		return nil, apperror.NewPersistenceFailure("failed to submit application")
	}

	uc.audit.RecordAccess(ctx, req.OwnerID, domain.AuditActionCreate, submissionsTable, submission.ID, req.Payload, req.Metadata)

	// Best-effort: retire the originating draft(s). The submission stands
	// even if this fails; the stale draft is a documented inconsistency.
	filter := domain.DraftFilter{BenefitType: req.BenefitType}
	if err := uc.drafts.Delete(ctx, req.OwnerID, filter); err != nil {
		uc.logger.Warn(ctx, "submitted successfully but failed to clear originating draft", map[string]interface{}{
			"owner_id":      req.OwnerID,
			"benefit_type":  string(req.BenefitType),
			"submission_id": submission.ID,
			"error":         err.Error(),
		})
	}

	metrics.SubmissionsTotal.WithLabelValues(string(req.BenefitType), "success").Inc()

	return &SubmissionView{
		ID:          submission.ID,
		BenefitType: submission.BenefitType,
		Status:      submission.Status,
		SubmittedAt: submission.SubmittedAt,
	}, nil
}

// ListSubmitted returns the owner's submitted applications, newest first.
func (uc *SubmitUseCase) ListSubmitted(ctx context.Context, ownerID string, meta domain.RequestMetadata) ([]SubmissionSummary, error) {
	if ownerID == "" {
		return nil, apperror.ErrAuthRequired
	}

	submissions, err := uc.submissions.ListByOwner(ctx, ownerID)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("submission_select").Inc()
		uc.logger.Error(ctx, "failed to list submissions", err, map[string]interface{}{
			"owner_id": ownerID,
		})
		return nil, apperror.NewPersistenceFailure("failed to load submitted applications")
	}

	summaries := make([]SubmissionSummary, 0, len(submissions))
	for _, s := range submissions {
		summaries = append(summaries, SubmissionSummary{
			ID:          s.ID,
			BenefitType: s.BenefitType,
			Status:      s.Status,
			SubmittedAt: s.SubmittedAt,
		})
	}

	uc.audit.Record(ctx, domain.NewAuditRecord(ownerID, domain.AuditActionRead, submissionsTable, "", nil, meta))

	return summaries, nil
}
