package domain

import "github.com/shopspring/decimal"

// TellerKind is the tier a teller works in.
type TellerKind string

const (
	TellerKindPrimary TellerKind = "primary"
	TellerKindSub     TellerKind = "sub"
)

// Teller is a read-only directory entry.
type Teller struct {
	ID              string          `json:"id"`
	BranchID        string          `json:"branch_id"`
	Name            string          `json:"name"`
	Kind            TellerKind      `json:"kind"`
	Ceiling         decimal.Decimal `json:"ceiling"`
	PrimaryTellerID string          `json:"primary_teller_id,omitempty"` // sub tellers only
	Active          bool            `json:"active"`
}

// Branch is a read-only directory entry.
type Branch struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Customer is a read-only directory entry.
type Customer struct {
	ID       string `json:"id"`
	BranchID string `json:"branch_id"`
	Name     string `json:"name"`
}
