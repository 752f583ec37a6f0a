package domain

import (
	"time"

	"github.com/google/uuid"
)

// BenefitType is the aid program category an application targets.
type BenefitType string

const (
	BenefitTypeMedicaid BenefitType = "medicaid"
	BenefitTypeSNAP     BenefitType = "snap"
	BenefitTypeBoth     BenefitType = "both"
)

// Valid reports whether the benefit type is one of the recognized programs.
// An empty benefit type is not valid: a draft only comes into existence once
// the first wizard step has selected a program.
func (b BenefitType) Valid() bool {
	switch b {
	case BenefitTypeMedicaid, BenefitTypeSNAP, BenefitTypeBoth:
		return true
	}
	return false
}

// PayloadFormat tags how a draft's payload column is stored. Legacy rows
// written before encryption was introduced carry plaintext JSON; the tag
// replaces sniffing the stored value's shape at read time.
type PayloadFormat string

const (
	PayloadFormatEncrypted PayloadFormat = "encrypted"
	PayloadFormatPlaintext PayloadFormat = "plaintext"
)

// Draft is an in-progress, unsubmitted application. At most one exists per
// (owner, benefit type) pair; the unique key lives on the drafts table.
type Draft struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"`
	BenefitType BenefitType   `json:"benefit_type"`
	CurrentStep int           `json:"current_step"`
	Payload     string        `json:"-"`
	Format      PayloadFormat `json:"-"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewDraft creates a draft for the given owner and program.
func NewDraft(ownerID string, benefitType BenefitType, currentStep int, payload string) *Draft {
	now := time.Now().UTC()
	return &Draft{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		BenefitType: benefitType,
		CurrentStep: currentStep,
		Payload:     payload,
		Format:      PayloadFormatEncrypted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DraftFilter scopes draft deletion. Deleting with neither scope set is
// refused by the repository so a bad call can never wipe an owner's drafts.
type DraftFilter struct {
	DraftID     string
	BenefitType BenefitType
}

// Empty reports whether the filter carries no scope at all.
func (f DraftFilter) Empty() bool {
	return f.DraftID == "" && f.BenefitType == ""
}

var (
	ErrDraftNotFound  = NewDomainError("draft not found")
	ErrInvalidBenefit = NewDomainError("benefit type must be medicaid, snap, or both")
	ErrUnscopedDelete = NewDomainError("draft deletion requires a draft id or benefit type scope")
	ErrUnusableDraft  = NewDomainError("stored draft could not be decrypted")
	ErrUnknownFormat  = NewDomainError("unknown payload storage format")
)

// DomainError is a domain-specific error value.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}
