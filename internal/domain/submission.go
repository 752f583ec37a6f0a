package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the lifecycle state of a submitted application. This
// engine only ever writes "submitted"; downstream case processing owns the
// rest.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
)

// Submission is an immutable submitted application. At most one exists per
// (owner, benefit type) pair, and this engine never mutates or deletes one.
type Submission struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	BenefitType BenefitType      `json:"benefit_type"`
	Payload     string           `json:"-"`
	Format      PayloadFormat    `json:"-"`
	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewSubmission snapshots a finished application. The payload ciphertext is
// produced independently of any draft row's ciphertext.
func NewSubmission(ownerID string, benefitType BenefitType, payload string) *Submission {
	now := time.Now().UTC()
	return &Submission{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		BenefitType: benefitType,
		Payload:     payload,
		Format:      PayloadFormatEncrypted,
		Status:      SubmissionStatusSubmitted,
		SubmittedAt: now,
		CreatedAt:   now,
	}
}

var ErrDuplicateSubmission = NewDomainError("an application for this benefit type has already been submitted")
