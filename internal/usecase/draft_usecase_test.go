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

type fakeDraftRepo struct {
	upserted  []*domain.Draft
	upsertErr error

	byID    map[string]*domain.Draft
	latest  *domain.Draft
	findErr error

	listed  []*domain.Draft
	listErr error

	deletedFilters []domain.DraftFilter
	deleteErr      error
}

func (r *fakeDraftRepo) Upsert(ctx context.Context, draft *domain.Draft) (string, error) {
	if r.upsertErr != nil {
		return "", r.upsertErr
	}
	r.upserted = append(r.upserted, draft)
	return draft.ID, nil
}

func (r *fakeDraftRepo) FindByID(ctx context.Context, ownerID, draftID string) (*domain.Draft, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if draft, ok := r.byID[draftID]; ok && draft.OwnerID == ownerID {
		return draft, nil
	}
	return nil, domain.ErrDraftNotFound
}

func (r *fakeDraftRepo) FindLatest(ctx context.Context, ownerID string) (*domain.Draft, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.latest == nil {
		return nil, domain.ErrDraftNotFound
	}
	return r.latest, nil
}

func (r *fakeDraftRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Draft, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.listed, nil
}

func (r *fakeDraftRepo) Delete(ctx context.Context, ownerID string, filter domain.DraftFilter) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedFilters = append(r.deletedFilters, filter)
	return nil
}

func newDraftUseCase(t *testing.T, repo *fakeDraftRepo) (*DraftUseCase, *crypto.AESGCMCipher) {
	t.Helper()
	cipher, err := crypto.NewAESGCMCipher("test-secret")
	require.NoError(t, err)
	emitter := audit.NewEmitter(nil, logger.NewNop())
	return NewDraftUseCase(repo, cipher, emitter, logger.NewNop()), cipher
}

func snapPayload() domain.Payload {
	return domain.Payload{
		"benefitType": "snap",
		"personalInfo": map[string]any{
			"firstName": "Maria",
		},
	}
}

func TestSaveDraft_RequiresAuthentication(t *testing.T) {
	uc, _ := newDraftUseCase(t, &fakeDraftRepo{})

	_, err := uc.SaveDraft(context.Background(), SaveDraftRequest{Payload: snapPayload()})

	assert.True(t, apperror.Is(err, "AUTH_REQUIRED"))
}

func TestSaveDraft_RejectsMissingBenefitType(t *testing.T) {
	repo := &fakeDraftRepo{}
	uc, _ := newDraftUseCase(t, repo)

	_, err := uc.SaveDraft(context.Background(), SaveDraftRequest{
		OwnerID: "user123",
		Payload: domain.Payload{"personalInfo": map[string]any{}},
	})

	assert.True(t, apperror.Is(err, "VALIDATION_ERROR"))
	assert.Empty(t, repo.upserted, "nothing may be written for an invalid draft")
}

func TestSaveDraft_EncryptsBeforeWrite(t *testing.T) {
	repo := &fakeDraftRepo{}
	uc, cipher := newDraftUseCase(t, repo)

	result, err := uc.SaveDraft(context.Background(), SaveDraftRequest{
		OwnerID:     "user123",
		CurrentStep: 3,
		Payload:     snapPayload(),
	})

	require.NoError(t, err)
	require.Len(t, repo.upserted, 1)

	stored := repo.upserted[0]
	assert.Equal(t, result.DraftID, stored.ID)
	assert.Equal(t, domain.BenefitTypeSNAP, stored.BenefitType)
	assert.Equal(t, 3, stored.CurrentStep)
	assert.Equal(t, domain.PayloadFormatEncrypted, stored.Format)
	assert.NotContains(t, stored.Payload, "Maria", "plaintext must never reach storage")

	plaintext, err := cipher.Decrypt(stored.Payload)
	require.NoError(t, err)
	assert.Contains(t, string(plaintext), "Maria")
}

func TestSaveDraft_KeepsExplicitDraftID(t *testing.T) {
	repo := &fakeDraftRepo{}
	uc, _ := newDraftUseCase(t, repo)

	result, err := uc.SaveDraft(context.Background(), SaveDraftRequest{
		OwnerID: "user123",
		DraftID: "existing-draft",
		Payload: snapPayload(),
	})

	require.NoError(t, err)
	assert.Equal(t, "existing-draft", result.DraftID)
}

func TestSaveDraft_ConvertsStorageFault(t *testing.T) {
	repo := &fakeDraftRepo{upsertErr: errors.New("connection refused")}
	uc, _ := newDraftUseCase(t, repo)

	_, err := uc.SaveDraft(context.Background(), SaveDraftRequest{
		OwnerID: "user123",
		Payload: snapPayload(),
	})

	assert.True(t, apperror.Is(err, "PERSISTENCE_FAILURE"))
	assert.NotContains(t, err.Error(), "connection refused", "raw driver errors must not leak")
}

func TestLoadDraft_MissingDraftIsNotAnError(t *testing.T) {
	uc, _ := newDraftUseCase(t, &fakeDraftRepo{})

	view, err := uc.LoadDraft(context.Background(), LoadDraftRequest{OwnerID: "user123"})

	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestLoadDraft_DecryptsAndNormalizes(t *testing.T) {
	repo := &fakeDraftRepo{}
	uc, cipher := newDraftUseCase(t, repo)

	ciphertext, err := cipher.Encrypt([]byte(`{"benefitType":"snap","personalInfo":{"firstName":"Maria"}}`))
	require.NoError(t, err)
	repo.latest = &domain.Draft{
		ID:          "draft-1",
		OwnerID:     "user123",
		BenefitType: domain.BenefitTypeSNAP,
		CurrentStep: 2,
		Payload:     ciphertext,
		Format:      domain.PayloadFormatEncrypted,
	}

	view, err := uc.LoadDraft(context.Background(), LoadDraftRequest{OwnerID: "user123"})

	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "draft-1", view.ID)
	assert.Equal(t, 2, view.CurrentStep)

	personal := view.Payload[domain.SectionPersonalInfo].(map[string]any)
	assert.Equal(t, "Maria", personal["firstName"])

	// Sections the stored copy predates come back present and empty.
	income := view.Payload[domain.SectionIncomeEmployment].(map[string]any)
	assert.Contains(t, income, "housingExpenses")
}

func TestLoadDraft_ReadsLegacyPlaintextRow(t *testing.T) {
	repo := &fakeDraftRepo{
		latest: &domain.Draft{
			ID:      "draft-legacy",
			OwnerID: "user123",
			Payload: `{"benefitType":"medicaid"}`,
			Format:  domain.PayloadFormatPlaintext,
		},
	}
	uc, _ := newDraftUseCase(t, repo)

	view, err := uc.LoadDraft(context.Background(), LoadDraftRequest{OwnerID: "user123"})

	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "medicaid", view.Payload[domain.SectionBenefitType])
}

func TestLoadDraft_UndecryptableRowTreatedAsNoDraft(t *testing.T) {
	repo := &fakeDraftRepo{
		latest: &domain.Draft{
			ID:      "draft-bad",
			OwnerID: "user123",
			Payload: "garbage-that-will-not-decrypt",
			Format:  domain.PayloadFormatEncrypted,
		},
	}
	uc, _ := newDraftUseCase(t, repo)

	view, err := uc.LoadDraft(context.Background(), LoadDraftRequest{OwnerID: "user123"})

	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestLoadDraft_UnknownFormatTreatedAsNoDraft(t *testing.T) {
	repo := &fakeDraftRepo{
		latest: &domain.Draft{
			ID:      "draft-odd",
			OwnerID: "user123",
			Payload: "{}",
			Format:  domain.PayloadFormat("compressed"),
		},
	}
	uc, _ := newDraftUseCase(t, repo)

	view, err := uc.LoadDraft(context.Background(), LoadDraftRequest{OwnerID: "user123"})

	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestLoadDraft_ByIDScopedToOwner(t *testing.T) {
	repo := &fakeDraftRepo{
		byID: map[string]*domain.Draft{
			"draft-1": {
				ID:      "draft-1",
				OwnerID: "someone-else",
				Payload: `{"benefitType":"snap"}`,
				Format:  domain.PayloadFormatPlaintext,
			},
		},
	}
	uc, _ := newDraftUseCase(t, repo)

	view, err := uc.LoadDraft(context.Background(), LoadDraftRequest{OwnerID: "user123", DraftID: "draft-1"})

	require.NoError(t, err)
	assert.Nil(t, view, "another owner's draft must be invisible")
}

func TestClearDraft_UnscopedCallIsNoop(t *testing.T) {
	repo := &fakeDraftRepo{}
	uc, _ := newDraftUseCase(t, repo)

	err := uc.ClearDraft(context.Background(), ClearDraftRequest{OwnerID: "user123"})

	require.NoError(t, err)
	assert.Empty(t, repo.deletedFilters, "no delete may be issued without a scope")
}

func TestClearDraft_DeletesByBenefitType(t *testing.T) {
	repo := &fakeDraftRepo{}
	uc, _ := newDraftUseCase(t, repo)

	err := uc.ClearDraft(context.Background(), ClearDraftRequest{
		OwnerID:     "user123",
		BenefitType: domain.BenefitTypeSNAP,
	})

	require.NoError(t, err)
	require.Len(t, repo.deletedFilters, 1)
	assert.Equal(t, domain.BenefitTypeSNAP, repo.deletedFilters[0].BenefitType)
}

func TestClearDraft_RejectsUnknownBenefitType(t *testing.T) {
	uc, _ := newDraftUseCase(t, &fakeDraftRepo{})

	err := uc.ClearDraft(context.Background(), ClearDraftRequest{
		OwnerID:     "user123",
		BenefitType: domain.BenefitType("housing"),
	})

	assert.True(t, apperror.Is(err, "VALIDATION_ERROR"))
}

func TestListIncomplete_ReturnsMetadataOnly(t *testing.T) {
	repo := &fakeDraftRepo{
		listed: []*domain.Draft{
			{ID: "draft-1", BenefitType: domain.BenefitTypeSNAP, CurrentStep: 4, Payload: "ciphertext"},
		},
	}
	uc, _ := newDraftUseCase(t, repo)

	summaries, err := uc.ListIncomplete(context.Background(), "user123")

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "draft-1", summaries[0].ID)
	assert.Equal(t, 4, summaries[0].CurrentStep)
}
