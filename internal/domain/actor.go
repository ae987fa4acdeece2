package domain

import "strings"

// SystemActorID is recorded when the service itself performs an action.
const SystemActorID = "system"

// Actor is the user performing an operation and the branch they act for.
// It is passed explicitly to every mutating operation.
type Actor struct {
	ID       string
	BranchID string
}

// Validate requires both fields.
func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" || strings.TrimSpace(a.BranchID) == "" {
		return ErrActorRequired
	}
	return nil
}

// CanActOn reports whether the actor may touch a resource of branchID.
func (a Actor) CanActOn(branchID string) error {
	if a.BranchID != branchID {
		return ErrBranchMismatch
	}
	return nil
}
