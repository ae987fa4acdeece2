package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
)

// ReplenishmentDeps extends Deps with the ports the workflow needs.
type ReplenishmentDeps struct {
	Deps
	Requests  ReplenishmentRepository
	Directory Directory
	Poster    AccountingPoster
}

// ReplenishmentUseCase runs the request/approve workflow that moves cash one
// tier down. The primary and sub variants differ only in which ledger donates.
type ReplenishmentUseCase struct {
	cashBook
	kind      domain.ReplenishmentKind
	requests  ReplenishmentRepository
	directory Directory
	poster    AccountingPoster
}

// NewPrimaryReplenishment builds the vault to primary teller workflow.
func NewPrimaryReplenishment(d ReplenishmentDeps) (*ReplenishmentUseCase, error) {
	return newReplenishment(domain.ReplenishmentPrimary, d)
}

// NewSubReplenishment builds the primary teller to sub teller workflow.
func NewSubReplenishment(d ReplenishmentDeps) (*ReplenishmentUseCase, error) {
	return newReplenishment(domain.ReplenishmentSub, d)
}

func newReplenishment(kind domain.ReplenishmentKind, d ReplenishmentDeps) (*ReplenishmentUseCase, error) {
	b, err := newCashBook(d.Deps)
	if err != nil {
		return nil, err
	}
	switch {
	case d.Requests == nil:
		return nil, fmt.Errorf("%w: Requests", ErrMissingDependency)
	case d.Directory == nil:
		return nil, fmt.Errorf("%w: Directory", ErrMissingDependency)
	case d.Poster == nil:
		return nil, fmt.Errorf("%w: Poster", ErrMissingDependency)
	}

	return &ReplenishmentUseCase{
		cashBook:  b,
		kind:      kind,
		requests:  d.Requests,
		directory: d.Directory,
		poster:    d.Poster,
	}, nil
}

// Kind returns which variant this workflow runs.
func (uc *ReplenishmentUseCase) Kind() domain.ReplenishmentKind {
	return uc.kind
}

// RequestInput asks for cash to be sent to a teller.
type RequestInput struct {
	TellerID string
	Amount   decimal.Decimal
}

// ApproveInput confirms the amount and breakdown that actually moves.
type ApproveInput struct {
	RequestID       string
	ConfirmedAmount decimal.Decimal
	Denominations   domain.DenominationSet
}

// RejectInput closes a request without moving cash.
type RejectInput struct {
	RequestID string
	Reason    string
}

// ApproveResult carries the approved request. PostingWarning is set when the
// cash moved but the accounting post failed.
type ApproveResult struct {
	Request        *domain.ReplenishmentRequest
	Operations     []*domain.LedgerOperation
	PostingWarning string
}

// Request opens a pending replenishment for a teller. At most one open
// request may exist per teller and branch.
func (uc *ReplenishmentUseCase) Request(ctx context.Context, actor domain.Actor, input RequestInput) (*domain.ReplenishmentRequest, error) {
	start := time.Now()
	req, err := uc.request(ctx, actor, input)
	uc.observe("replenishment_request", start, input.Amount, err)
	if err == nil {
		uc.Metrics.ReplenishmentsRequested.WithLabelValues(string(uc.kind)).Inc()
	}

	reference := ""
	if req != nil {
		reference = req.Reference
	}
	uc.audit(ctx, actor, domain.AuditActionReplenishmentRequest, reference, domain.JSON{
		"kind":      string(uc.kind),
		"teller_id": input.TellerID,
		"amount":    input.Amount.String(),
	}, err)

	return req, wrapInternal("request replenishment", err)
}

func (uc *ReplenishmentUseCase) request(ctx context.Context, actor domain.Actor, input RequestInput) (*domain.ReplenishmentRequest, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	teller, err := uc.resolveTeller(ctx, actor, input.TellerID)
	if err != nil {
		return nil, err
	}

	branch, err := uc.directory.GetBranch(ctx, teller.BranchID)
	if err != nil {
		return nil, err
	}
	if !branch.Active {
		return nil, fmt.Errorf("%w: branch %s is inactive", domain.ErrBranchNotFound, branch.ID)
	}

	destination, err := uc.Ledgers.GetByTeller(ctx, teller.ID)
	if err != nil {
		return nil, err
	}
	donor, err := uc.donorFor(ctx, teller)
	if err != nil {
		return nil, err
	}

	var req *domain.ReplenishmentRequest
	err = uc.inTx(ctx, func(ctx context.Context, tx Transaction) error {
		open, err := uc.requests.FindOpenForUpdate(ctx, tx, teller.ID, teller.BranchID)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicatePendingRequest, open.Reference)
		}

		now := time.Now().UTC()
		req = &domain.ReplenishmentRequest{
			ID:                  uc.IDGen.Generate(),
			Kind:                uc.kind,
			BranchID:            teller.BranchID,
			RequestedBy:         actor.ID,
			TellerID:            teller.ID,
			DonorLedgerID:       donor.ID,
			DestinationLedgerID: destination.ID,
			RequestedAmount:     input.Amount,
			Status:              domain.ReplenishmentPending,
			Reference:           fmt.Sprintf("%s-%s-%s", ReferencePrefixReplenishment, branch.Code, uc.IDGen.Generate()),
			InitiatedAt:         now,
		}
		if err := uc.requests.Create(ctx, tx, req); err != nil {
			return err
		}

		return uc.emit(ctx, tx, domain.AggregateTypeReplenishment, req.ID, domain.EventTypeReplenishmentRequested, requestPayload(req), now)
	})
	if err != nil {
		return nil, err
	}

	uc.Logger.Info().
		Str("request_id", req.ID).
		Str("reference", req.Reference).
		Str("kind", string(uc.kind)).
		Str("teller_id", teller.ID).
		Msg("replenishment requested")

	return req, nil
}

// Approve moves the confirmed breakdown from donor to destination and closes
// the request. The accounting post runs after commit; its failure is reported
// in PostingWarning and does not undo the movement.
func (uc *ReplenishmentUseCase) Approve(ctx context.Context, actor domain.Actor, input ApproveInput) (*ApproveResult, error) {
	start := time.Now()
	result, err := uc.approve(ctx, actor, input)
	uc.observe("replenishment_approve", start, input.ConfirmedAmount, err)

	reference := ""
	if result != nil {
		reference = result.Request.Reference
		uc.Metrics.ReplenishmentsApproved.WithLabelValues(string(uc.kind)).Inc()
	}
	uc.audit(ctx, actor, domain.AuditActionReplenishmentApprove, reference, domain.JSON{
		"kind":          string(uc.kind),
		"request_id":    input.RequestID,
		"amount":        input.ConfirmedAmount.String(),
		"denominations": domain.DenominationPayload(input.Denominations),
	}, err)

	return result, wrapInternal("approve replenishment", err)
}

func (uc *ReplenishmentUseCase) approve(ctx context.Context, actor domain.Actor, input ApproveInput) (*ApproveResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(input.ConfirmedAmount); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmountMatches(input.ConfirmedAmount, input.Denominations); err != nil {
		return nil, err
	}

	current, err := uc.get(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	teller, err := uc.directory.GetTeller(ctx, current.TellerID)
	if err != nil {
		return nil, err
	}

	result := &ApproveResult{}
	err = uc.inTx(ctx, func(ctx context.Context, tx Transaction) error {
		req, err := uc.requests.GetByIDForUpdate(ctx, tx, input.RequestID)
		if err != nil {
			return err
		}
		if req.Kind != uc.kind {
			return domain.ErrReplenishmentNotFound
		}
		if !req.IsOpen() {
			return fmt.Errorf("%w: %s is %s", domain.ErrAlreadyFinalized, req.ID, req.Status)
		}
		if err := actor.CanActOn(req.BranchID); err != nil {
			return err
		}

		ledgers, err := uc.lock(ctx, tx, req.DonorLedgerID, req.DestinationLedgerID)
		if err != nil {
			return err
		}
		donor, destination := ledgers[req.DonorLedgerID], ledgers[req.DestinationLedgerID]

		destination.Ceiling = teller.Ceiling
		if err := destination.VerifyCeiling(input.ConfirmedAmount); err != nil {
			return err
		}

		for _, id := range []string{donor.ID, destination.ID} {
			if err := uc.ensureFreshReference(ctx, tx, id, req.Reference); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		ops, err := uc.transfer(ctx, tx, donor, destination, movement{
			Type:          domain.OperationReplenishment,
			Amount:        input.ConfirmedAmount,
			Denominations: input.Denominations,
			Reference:     req.Reference,
			Note:          fmt.Sprintf("%s replenishment %s", uc.kind, req.ID),
			ActorID:       actor.ID,
			At:            now,
		})
		if err != nil {
			return err
		}

		if err := req.Approve(actor.ID, input.ConfirmedAmount, input.Denominations, now); err != nil {
			return err
		}
		if err := uc.requests.Update(ctx, tx, req); err != nil {
			return err
		}

		if err := uc.emit(ctx, tx, domain.AggregateTypeReplenishment, req.ID, domain.EventTypeReplenishmentApproved, requestPayload(req), now); err != nil {
			return err
		}
		if err := uc.emit(ctx, tx, domain.AggregateTypeReplenishment, req.ID, domain.EventTypePostingRequested, postingPayload(uc.postingFor(req)), now); err != nil {
			return err
		}

		result.Request = req
		result.Operations = ops
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.PostingWarning = uc.post(ctx, result.Request)
	return result, nil
}

// post books the approved movement. It returns a warning instead of an error:
// the cash has already moved and the outbox event remains for reconciliation.
func (uc *ReplenishmentUseCase) post(ctx context.Context, req *domain.ReplenishmentRequest) string {
	res, err := uc.poster.Post(ctx, uc.postingFor(req))
	if err == nil && res.Success {
		return ""
	}

	warning := res.Message
	if err != nil {
		warning = err.Error()
	}
	if warning == "" {
		warning = "accounting posting was not accepted"
	}

	uc.Metrics.PostingFailures.Inc()
	uc.Logger.Warn().
		Err(err).
		Str("request_id", req.ID).
		Str("reference", req.Reference).
		Str("warning", warning).
		Msg("cash moved but accounting posting failed")

	return "accounting posting failed: " + warning
}

func (uc *ReplenishmentUseCase) postingFor(req *domain.ReplenishmentRequest) domain.PostingRequest {
	return domain.PostingRequest{
		EventCode: domain.PostingCodeReplenishment,
		Amount:    req.ConfirmedAmount,
		Reference: req.Reference,
		Narration: fmt.Sprintf("%s replenishment to teller %s", uc.kind, req.TellerID),
		BranchID:  req.BranchID,
	}
}

// Reject closes a pending request without moving cash.
func (uc *ReplenishmentUseCase) Reject(ctx context.Context, actor domain.Actor, input RejectInput) (*domain.ReplenishmentRequest, error) {
	start := time.Now()
	req, err := uc.reject(ctx, actor, input)
	uc.observe("replenishment_reject", start, decimal.Zero, err)

	reference := ""
	if req != nil {
		reference = req.Reference
		uc.Metrics.ReplenishmentsRejected.WithLabelValues(string(uc.kind)).Inc()
	}
	uc.audit(ctx, actor, domain.AuditActionReplenishmentReject, reference, domain.JSON{
		"kind":       string(uc.kind),
		"request_id": input.RequestID,
		"reason":     input.Reason,
	}, err)

	return req, wrapInternal("reject replenishment", err)
}

func (uc *ReplenishmentUseCase) reject(ctx context.Context, actor domain.Actor, input RejectInput) (*domain.ReplenishmentRequest, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var req *domain.ReplenishmentRequest
	err := uc.inTx(ctx, func(ctx context.Context, tx Transaction) error {
		var err error
		req, err = uc.requests.GetByIDForUpdate(ctx, tx, input.RequestID)
		if err != nil {
			return err
		}
		if req.Kind != uc.kind {
			return domain.ErrReplenishmentNotFound
		}
		if err := actor.CanActOn(req.BranchID); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := req.Reject(input.Reason, now); err != nil {
			return fmt.Errorf("%w: %s is %s", err, req.ID, req.Status)
		}
		if err := uc.requests.Update(ctx, tx, req); err != nil {
			return err
		}

		return uc.emit(ctx, tx, domain.AggregateTypeReplenishment, req.ID, domain.EventTypeReplenishmentRejected, requestPayload(req), now)
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// Get returns a request of this workflow's kind from the actor's branch.
func (uc *ReplenishmentUseCase) Get(ctx context.Context, actor domain.Actor, id string) (*domain.ReplenishmentRequest, error) {
	req, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.CanActOn(req.BranchID); err != nil {
		return nil, err
	}
	return req, nil
}

// ListEvents returns the outbox events recorded for a request, oldest first.
func (uc *ReplenishmentUseCase) ListEvents(ctx context.Context, actor domain.Actor, id string, limit, offset int) ([]*domain.OutboxEvent, error) {
	req, err := uc.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	limit, offset, _ = domain.ValidatePagination(limit, offset)
	return uc.Outbox.GetByAggregate(ctx, domain.AggregateTypeReplenishment, req.ID, limit, offset)
}

func (uc *ReplenishmentUseCase) get(ctx context.Context, id string) (*domain.ReplenishmentRequest, error) {
	req, err := uc.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Kind != uc.kind {
		return nil, domain.ErrReplenishmentNotFound
	}
	return req, nil
}

// ListPending returns the open requests of a branch.
func (uc *ReplenishmentUseCase) ListPending(ctx context.Context, branchID string, limit, offset int) ([]*domain.ReplenishmentRequest, error) {
	limit, offset, _ = domain.ValidatePagination(limit, offset)
	return uc.requests.ListPending(ctx, branchID, uc.kind, limit, offset)
}

func (uc *ReplenishmentUseCase) resolveTeller(ctx context.Context, actor domain.Actor, tellerID string) (*domain.Teller, error) {
	teller, err := uc.directory.GetTeller(ctx, tellerID)
	if err != nil {
		return nil, err
	}
	if !teller.Active {
		return nil, fmt.Errorf("%w: teller %s is inactive", domain.ErrTellerNotFound, teller.ID)
	}
	if teller.Kind != uc.kind.TellerKind() {
		return nil, fmt.Errorf("%w: %s teller for %s replenishment", domain.ErrTellerKindMismatch, teller.Kind, uc.kind)
	}
	if err := actor.CanActOn(teller.BranchID); err != nil {
		return nil, err
	}
	return teller, nil
}

// donorFor returns the ledger cash is taken from: the branch vault for primary
// tellers, the supervising primary teller for sub tellers.
func (uc *ReplenishmentUseCase) donorFor(ctx context.Context, teller *domain.Teller) (*domain.CashLedger, error) {
	if uc.kind == domain.ReplenishmentPrimary {
		return uc.Ledgers.GetVaultByBranch(ctx, teller.BranchID)
	}

	if teller.PrimaryTellerID == "" {
		return nil, fmt.Errorf("%w: sub teller %s has no primary teller", domain.ErrTellerNotFound, teller.ID)
	}
	donor, err := uc.Ledgers.GetByTeller(ctx, teller.PrimaryTellerID)
	if err != nil {
		return nil, err
	}
	if donor.BranchID != teller.BranchID {
		return nil, errors.Join(domain.ErrBranchMismatch, fmt.Errorf("primary teller ledger %s is in branch %s", donor.ID, donor.BranchID))
	}
	return donor, nil
}

func requestPayload(req *domain.ReplenishmentRequest) map[string]any {
	return map[string]any{
		"request_id":            req.ID,
		"kind":                  string(req.Kind),
		"branch_id":             req.BranchID,
		"teller_id":             req.TellerID,
		"donor_ledger_id":       req.DonorLedgerID,
		"destination_ledger_id": req.DestinationLedgerID,
		"requested_amount":      req.RequestedAmount.String(),
		"confirmed_amount":      req.ConfirmedAmount.String(),
		"denominations":         domain.DenominationPayload(req.Denominations),
		"status":                string(req.Status),
		"reference":             req.Reference,
	}
}

func postingPayload(p domain.PostingRequest) map[string]any {
	return map[string]any{
		"event_code": p.EventCode,
		"amount":     p.Amount.String(),
		"reference":  p.Reference,
		"narration":  p.Narration,
		"branch_id":  p.BranchID,
	}
}
