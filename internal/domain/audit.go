package domain

import (
	"encoding/json"
	"time"
)

// AuditEntry is a trail record handed to the audit sink after an operation.
type AuditEntry struct {
	ID         string
	ActorID    string
	BranchID   string
	Action     AuditAction
	Payload    JSON
	Detail     string
	Level      AuditLevel
	StatusCode int
	Reference  string
	CreatedAt  time.Time
}

// AuditFilter narrows an audit query. Zero fields match everything.
type AuditFilter struct {
	ActorID   string
	BranchID  string
	Action    AuditAction
	Reference string
	Limit     int
	Offset    int
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction names what was done.
type AuditAction string

const (
	AuditActionLedgerOpen           AuditAction = "ledger.open"
	AuditActionCashIn               AuditAction = "cash.in"
	AuditActionCashOut              AuditAction = "cash.out"
	AuditActionCashTransfer         AuditAction = "cash.transfer"
	AuditActionCashExchange         AuditAction = "cash.exchange"
	AuditActionReplenishmentRequest AuditAction = "replenishment.request"
	AuditActionReplenishmentApprove AuditAction = "replenishment.approve"
	AuditActionReplenishmentReject  AuditAction = "replenishment.reject"
)

// AuditLevel mirrors log severities.
type AuditLevel string

const (
	AuditLevelInfo    AuditLevel = "info"
	AuditLevelWarning AuditLevel = "warning"
	AuditLevelError   AuditLevel = "error"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}
