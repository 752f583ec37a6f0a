package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/service/audit"
	"github.com/benefitnav/benefitnav/internal/service/crypto"
	"github.com/benefitnav/benefitnav/internal/service/logger"
	"github.com/benefitnav/benefitnav/pkg/apperror"
)

type fakeSubmissionRepo struct {
	created   []*domain.Submission
	createErr error

	exists    bool
	existsErr error

	listed  []*domain.Submission
	listErr error
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, submission *domain.Submission) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, submission)
	return nil
}

func (r *fakeSubmissionRepo) Exists(ctx context.Context, ownerID string, benefitType domain.BenefitType) (bool, error) {
	return r.exists, r.existsErr
}

func (r *fakeSubmissionRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Submission, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.listed, nil
}

func newSubmitUseCase(t *testing.T, submissions *fakeSubmissionRepo, drafts *fakeDraftRepo) (*SubmitUseCase, *crypto.AESGCMCipher) {
	t.Helper()
	cipher, err := crypto.NewAESGCMCipher("test-secret")
	require.NoError(t, err)
	emitter := audit.NewEmitter(nil, logger.NewNop())
	return NewSubmitUseCase(submissions, drafts, cipher, emitter, logger.NewNop()), cipher
}

func TestSubmit_RequiresAuthentication(t *testing.T) {
	uc, _ := newSubmitUseCase(t, &fakeSubmissionRepo{}, &fakeDraftRepo{})

	_, err := uc.Submit(context.Background(), SubmitRequest{
		BenefitType: domain.BenefitTypeSNAP,
		Payload:     snapPayload(),
	})

	assert.True(t, apperror.Is(err, "AUTH_REQUIRED"))
}

func TestSubmit_RequiresPayloadAndBenefitType(t *testing.T) {
	uc, _ := newSubmitUseCase(t, &fakeSubmissionRepo{}, &fakeDraftRepo{})

	_, err := uc.Submit(context.Background(), SubmitRequest{
		OwnerID:     "user123",
		BenefitType: domain.BenefitTypeSNAP,
	})
	assert.True(t, apperror.Is(err, "VALIDATION_ERROR"))

	_, err = uc.Submit(context.Background(), SubmitRequest{
		OwnerID: "user123",
		Payload: snapPayload(),
	})
	assert.True(t, apperror.Is(err, "VALIDATION_ERROR"))
}

func TestSubmit_RejectsDuplicate(t *testing.T) {
	submissions := &fakeSubmissionRepo{exists: true}
	uc, _ := newSubmitUseCase(t, submissions, &fakeDraftRepo{})

	_, err := uc.Submit(context.Background(), SubmitRequest{
		OwnerID:     "user123",
		BenefitType: domain.BenefitTypeSNAP,
		Payload:     snapPayload(),
	})

	assert.True(t, apperror.Is(err, "DUPLICATE_SUBMISSION"))
	assert.Empty(t, submissions.created, "no second submission row may be written")
}

func TestSubmit_ConcurrentInsertReportsDuplicate(t *testing.T) {
	// A racing submit can pass the existence check and then lose to the
	// unique key on insert; that still reads as a duplicate, not a fault.
	submissions := &fakeSubmissionRepo{createErr: domain.ErrDuplicateSubmission}
	drafts := &fakeDraftRepo{}
	uc, _ := newSubmitUseCase(t, submissions, drafts)

	_, err := uc.Submit(context.Background(), SubmitRequest{
		OwnerID:     "user123",
		BenefitType: domain.BenefitTypeSNAP,
		Payload:     snapPayload(),
	})

	assert.True(t, apperror.Is(err, "DUPLICATE_SUBMISSION"))
	assert.Empty(t, drafts.deletedFilters, "a lost race must not delete the draft")
}

func TestSubmit_EncryptsInsertsAndRetiresDraft(t *testing.T) {
	submissions := &fakeSubmissionRepo{}
	drafts := &fakeDraftRepo{}
	uc, cipher := newSubmitUseCase(t, submissions, drafts)

	view, err := uc.Submit(context.Background(), SubmitRequest{
		OwnerID:     "user123",
		BenefitType: domain.BenefitTypeSNAP,
		Payload:     snapPayload(),
	})

	require.NoError(t, err)
	require.Len(t, submissions.created, 1)

	created := submissions.created[0]
	assert.Equal(t, view.ID, created.ID)
	assert.Equal(t, domain.SubmissionStatusSubmitted, created.Status)
	assert.NotContains(t, created.Payload, "Maria", "plaintext must never reach storage")

	plaintext, err := cipher.Decrypt(created.Payload)
	require.NoError(t, err)
	assert.Contains(t, string(plaintext), "Maria")

	require.Len(t, drafts.deletedFilters, 1)
	assert.Equal(t, domain.BenefitTypeSNAP, drafts.deletedFilters[0].BenefitType)
}

func TestSubmit_DraftCleanupFailureDoesNotUndoSubmission(t *testing.T) {
	submissions := &fakeSubmissionRepo{}
	drafts := &fakeDraftRepo{deleteErr: errors.New("delete failed")}
	uc, _ := newSubmitUseCase(t, submissions, drafts)

	view, err := uc.Submit(context.Background(), SubmitRequest{
		OwnerID:     "user123",
		BenefitType: domain.BenefitTypeSNAP,
		Payload:     snapPayload(),
	})

	require.NoError(t, err, "the submission is authoritative once inserted")
	assert.NotEmpty(t, view.ID)
	assert.Len(t, submissions.created, 1)
}

func TestSubmit_InsertFailureSurfacesAsPersistenceFailure(t *testing.T) {
	submissions := &fakeSubmissionRepo{createErr: errors.New("insert failed")}
	drafts := &fakeDraftRepo{}
	uc, _ := newSubmitUseCase(t, submissions, drafts)

	_, err := uc.Submit(context.Background(), SubmitRequest{
		OwnerID:     "user123",
		BenefitType: domain.BenefitTypeSNAP,
		Payload:     snapPayload(),
	})

	assert.True(t, apperror.Is(err, "PERSISTENCE_FAILURE"))
	assert.Empty(t, drafts.deletedFilters, "a failed submission must not delete the draft")
}

func TestSubmit_DuplicateCheckFailureSurfacesAsPersistenceFailure(t *testing.T) {
	submissions := &fakeSubmissionRepo{existsErr: errors.New("select failed")}
	uc, _ := newSubmitUseCase(t, submissions, &fakeDraftRepo{})

	_, err := uc.Submit(context.Background(), SubmitRequest{
		OwnerID:     "user123",
		BenefitType: domain.BenefitTypeSNAP,
		Payload:     snapPayload(),
	})

	assert.True(t, apperror.Is(err, "PERSISTENCE_FAILURE"))
}

func TestListSubmitted_ReturnsSummaries(t *testing.T) {
	submissions := &fakeSubmissionRepo{
		listed: []*domain.Submission{
			{ID: "sub-1", BenefitType: domain.BenefitTypeBoth, Status: domain.SubmissionStatusSubmitted},
		},
	}
	uc, _ := newSubmitUseCase(t, submissions, &fakeDraftRepo{})

	summaries, err := uc.ListSubmitted(context.Background(), "user123", domain.RequestMetadata{})

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "sub-1", summaries[0].ID)
	assert.Equal(t, domain.BenefitTypeBoth, summaries[0].BenefitType)
}
