package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReplenishmentKind selects which tiers a replenishment moves cash between.
type ReplenishmentKind string

const (
	// ReplenishmentPrimary moves cash from the branch vault to a primary teller.
	ReplenishmentPrimary ReplenishmentKind = "primary"
	// ReplenishmentSub moves cash from a primary teller to one of its sub tellers.
	ReplenishmentSub ReplenishmentKind = "sub"
)

// Valid reports whether k is a known kind.
func (k ReplenishmentKind) Valid() bool {
	return k == ReplenishmentPrimary || k == ReplenishmentSub
}

// TellerKind is the tier the replenishment destination must belong to.
func (k ReplenishmentKind) TellerKind() TellerKind {
	if k == ReplenishmentSub {
		return TellerKindSub
	}
	return TellerKindPrimary
}

type ReplenishmentStatus string

const (
	ReplenishmentPending  ReplenishmentStatus = "pending"
	ReplenishmentApproved ReplenishmentStatus = "approved"
	ReplenishmentRejected ReplenishmentStatus = "rejected"
)

// ReplenishmentRequest moves cash down one tier once approved. It transitions
// exactly once: pending to approved, or pending to rejected.
type ReplenishmentRequest struct {
	ID                  string
	Kind                ReplenishmentKind
	BranchID            string
	RequestedBy         string
	TellerID            string
	DonorLedgerID       string
	DestinationLedgerID string
	RequestedAmount     decimal.Decimal
	ConfirmedAmount     decimal.Decimal
	Status              ReplenishmentStatus
	Denominations       DenominationSet // filled on approval
	ApprovedBy          string
	Reference           string
	RejectionReason     string
	InitiatedAt         time.Time
	ApprovedAt          *time.Time
	RejectedAt          *time.Time
	DeletedAt           *time.Time
}

// IsOpen reports whether the request still blocks a new one for the same teller.
func (r *ReplenishmentRequest) IsOpen() bool {
	return r.Status == ReplenishmentPending && r.DeletedAt == nil
}

// Approve finalizes the request with the confirmed breakdown.
func (r *ReplenishmentRequest) Approve(approver string, amount decimal.Decimal, set DenominationSet, now time.Time) error {
	if !r.IsOpen() {
		return ErrAlreadyFinalized
	}
	r.Status = ReplenishmentApproved
	r.ConfirmedAmount = amount
	r.Denominations = set.Clone()
	r.ApprovedBy = approver
	r.ApprovedAt = &now
	return nil
}

// Reject finalizes the request without moving cash. Rejected requests are
// soft deleted.
func (r *ReplenishmentRequest) Reject(reason string, now time.Time) error {
	if !r.IsOpen() {
		return ErrAlreadyFinalized
	}
	r.Status = ReplenishmentRejected
	r.RejectionReason = reason
	r.RejectedAt = &now
	r.DeletedAt = &now
	return nil
}

// Clone returns a deep copy.
func (r *ReplenishmentRequest) Clone() *ReplenishmentRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Denominations = r.Denominations.Clone()
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		c.ApprovedAt = &t
	}
	if r.RejectedAt != nil {
		t := *r.RejectedAt
		c.RejectedAt = &t
	}
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}
