package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

// Store is an in-memory backing store shared by the mock repositories. Begin
// takes an exclusive lock for the lifetime of the transaction, so concurrent
// use cases run one after another as they would under serializable isolation.
// A rollback without commit restores the state captured at Begin.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	ledgers    map[string]*domain.CashLedger
	operations []*domain.LedgerOperation
	requests   map[string]*domain.ReplenishmentRequest
	changes    map[string]*domain.CashChangeRecord
	outbox     []*domain.OutboxEvent
}

type storeSnapshot struct {
	ledgers    map[string]*domain.CashLedger
	operations []*domain.LedgerOperation
	requests   map[string]*domain.ReplenishmentRequest
	changes    map[string]*domain.CashChangeRecord
	outbox     []*domain.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		ledgers:  make(map[string]*domain.CashLedger),
		requests: make(map[string]*domain.ReplenishmentRequest),
		changes:  make(map[string]*domain.CashChangeRecord),
	}
}

func (s *Store) snapshot() *storeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &storeSnapshot{
		ledgers:    make(map[string]*domain.CashLedger, len(s.ledgers)),
		operations: append([]*domain.LedgerOperation(nil), s.operations...),
		requests:   make(map[string]*domain.ReplenishmentRequest, len(s.requests)),
		changes:    make(map[string]*domain.CashChangeRecord, len(s.changes)),
		outbox:     append([]*domain.OutboxEvent(nil), s.outbox...),
	}
	for id, l := range s.ledgers {
		snap.ledgers[id] = l.Clone()
	}
	for id, r := range s.requests {
		snap.requests[id] = r.Clone()
	}
	for id, c := range s.changes {
		snap.changes[id] = c
	}
	return snap
}

func (s *Store) restore(snap *storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers = snap.ledgers
	s.operations = snap.operations
	s.requests = snap.requests
	s.changes = snap.changes
	s.outbox = snap.outbox
}

// PutLedger seeds a ledger directly.
func (s *Store) PutLedger(l *domain.CashLedger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[l.ID] = l.Clone()
}

// Ledger returns a copy of the stored ledger, or nil.
func (s *Store) Ledger(id string) *domain.CashLedger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledgers[id].Clone()
}

// Operations returns every recorded operation in insertion order.
func (s *Store) Operations() []*domain.LedgerOperation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.LedgerOperation(nil), s.operations...)
}

// Events returns every outbox event in insertion order.
func (s *Store) Events() []*domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), s.outbox...)
}

// EventTypes returns the outbox event types in insertion order.
func (s *Store) EventTypes() []string {
	events := s.Events()
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}

// Changes returns every stored change record.
func (s *Store) Changes() []*domain.CashChangeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.CashChangeRecord, 0, len(s.changes))
	for _, c := range s.changes {
		out = append(out, c)
	}
	return out
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	store *Store

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager(store *Store) *MockTransactionManager {
	return &MockTransactionManager{store: store}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.store.txMu.Lock()
	return &MockTransaction{store: m.store, snap: m.store.snapshot()}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	store *Store
	snap  *storeSnapshot
	done  bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	if m.store == nil || m.done {
		return nil
	}
	m.done = true
	m.store.txMu.Unlock()
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		if err := m.RollbackFunc(ctx); err != nil {
			return err
		}
	}
	if m.store == nil || m.done {
		return nil
	}
	m.done = true
	m.store.restore(m.snap)
	m.store.txMu.Unlock()
	return nil
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	store *Store

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, ledger *domain.CashLedger) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.CashLedger, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.CashLedger, error)
	UpdateFunc            func(ctx context.Context, tx usecase.Transaction, ledger *domain.CashLedger) error
}

func NewMockLedgerRepository(store *Store) *MockLedgerRepository {
	return &MockLedgerRepository{store: store}
}

func (m *MockLedgerRepository) Create(ctx context.Context, tx usecase.Transaction, ledger *domain.CashLedger) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, ledger)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, l := range m.store.ledgers {
		if l.ID == ledger.ID ||
			(ledger.Role == domain.LedgerRoleVault && l.Role == domain.LedgerRoleVault && l.BranchID == ledger.BranchID) ||
			(ledger.TellerID != "" && l.TellerID == ledger.TellerID) {
			return domain.ErrLedgerAlreadyExists
		}
	}
	m.store.ledgers[ledger.ID] = ledger.Clone()
	return nil
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, id string) (*domain.CashLedger, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if l, ok := m.store.ledgers[id]; ok {
		return l.Clone(), nil
	}
	return nil, domain.ErrLedgerNotFound
}

func (m *MockLedgerRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.CashLedger, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	var ledgers []*domain.CashLedger
	for _, id := range ids {
		if l, ok := m.store.ledgers[id]; ok {
			ledgers = append(ledgers, l.Clone())
		}
	}
	return ledgers, nil
}

func (m *MockLedgerRepository) GetVaultByBranch(ctx context.Context, branchID string) (*domain.CashLedger, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, l := range m.store.ledgers {
		if l.Role == domain.LedgerRoleVault && l.BranchID == branchID {
			return l.Clone(), nil
		}
	}
	return nil, domain.ErrLedgerNotFound
}

func (m *MockLedgerRepository) GetByTeller(ctx context.Context, tellerID string) (*domain.CashLedger, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, l := range m.store.ledgers {
		if l.TellerID == tellerID && tellerID != "" {
			return l.Clone(), nil
		}
	}
	return nil, domain.ErrLedgerNotFound
}

func (m *MockLedgerRepository) Update(ctx context.Context, tx usecase.Transaction, ledger *domain.CashLedger) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, ledger)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.ledgers[ledger.ID]; !ok {
		return domain.ErrLedgerNotFound
	}
	m.store.ledgers[ledger.ID] = ledger.Clone()
	return nil
}

func (m *MockLedgerRepository) ListByBranch(ctx context.Context, branchID string) ([]*domain.CashLedger, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	var ledgers []*domain.CashLedger
	for _, l := range m.store.ledgers {
		if l.BranchID == branchID {
			ledgers = append(ledgers, l.Clone())
		}
	}
	sort.Slice(ledgers, func(i, j int) bool { return ledgers[i].ID < ledgers[j].ID })
	return ledgers, nil
}

// MockOperationRepository is a mock implementation of OperationRepository.
type MockOperationRepository struct {
	store *Store

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, op *domain.LedgerOperation) error
	NetAmountByLedgerFunc func(ctx context.Context, ledgerID string) (decimal.Decimal, error)
}

func NewMockOperationRepository(store *Store) *MockOperationRepository {
	return &MockOperationRepository{store: store}
}

func (m *MockOperationRepository) Create(ctx context.Context, tx usecase.Transaction, op *domain.LedgerOperation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, op)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, existing := range m.store.operations {
		if existing.LedgerID == op.LedgerID && existing.Reference == op.Reference {
			return domain.ErrDuplicateReference
		}
	}
	cp := *op
	cp.Denominations = op.Denominations.Clone()
	m.store.operations = append(m.store.operations, &cp)
	return nil
}

func (m *MockOperationRepository) ExistsByReference(ctx context.Context, tx usecase.Transaction, ledgerID, reference string) (bool, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, op := range m.store.operations {
		if op.LedgerID == ledgerID && op.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockOperationRepository) ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.LedgerOperation, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	var ops []*domain.LedgerOperation
	for i := len(m.store.operations) - 1; i >= 0; i-- {
		if op := m.store.operations[i]; op.LedgerID == ledgerID {
			ops = append(ops, op)
		}
	}
	if offset >= len(ops) {
		return nil, nil
	}
	ops = ops[offset:]
	if limit > 0 && limit < len(ops) {
		ops = ops[:limit]
	}
	return ops, nil
}

func (m *MockOperationRepository) NetAmountByLedger(ctx context.Context, ledgerID string) (decimal.Decimal, error) {
	if m.NetAmountByLedgerFunc != nil {
		return m.NetAmountByLedgerFunc(ctx, ledgerID)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	net := decimal.Zero
	for _, op := range m.store.operations {
		if op.LedgerID == ledgerID {
			net = net.Add(op.SignedAmount())
		}
	}
	return net, nil
}

// MockReplenishmentRepository is a mock implementation of ReplenishmentRepository.
type MockReplenishmentRepository struct {
	store *Store

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, req *domain.ReplenishmentRequest) error
	FindOpenForUpdateFunc func(ctx context.Context, tx usecase.Transaction, tellerID, branchID string) (*domain.ReplenishmentRequest, error)
}

func NewMockReplenishmentRepository(store *Store) *MockReplenishmentRepository {
	return &MockReplenishmentRepository{store: store}
}

func (m *MockReplenishmentRepository) Create(ctx context.Context, tx usecase.Transaction, req *domain.ReplenishmentRequest) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, req)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, r := range m.store.requests {
		if r.IsOpen() && r.TellerID == req.TellerID && r.BranchID == req.BranchID {
			return domain.ErrDuplicatePendingRequest
		}
	}
	m.store.requests[req.ID] = req.Clone()
	return nil
}

func (m *MockReplenishmentRepository) GetByID(ctx context.Context, id string) (*domain.ReplenishmentRequest, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if r, ok := m.store.requests[id]; ok {
		return r.Clone(), nil
	}
	return nil, domain.ErrReplenishmentNotFound
}

func (m *MockReplenishmentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ReplenishmentRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *MockReplenishmentRepository) FindOpenForUpdate(ctx context.Context, tx usecase.Transaction, tellerID, branchID string) (*domain.ReplenishmentRequest, error) {
	if m.FindOpenForUpdateFunc != nil {
		return m.FindOpenForUpdateFunc(ctx, tx, tellerID, branchID)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, r := range m.store.requests {
		if r.IsOpen() && r.TellerID == tellerID && r.BranchID == branchID {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (m *MockReplenishmentRepository) Update(ctx context.Context, tx usecase.Transaction, req *domain.ReplenishmentRequest) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.requests[req.ID]; !ok {
		return domain.ErrReplenishmentNotFound
	}
	m.store.requests[req.ID] = req.Clone()
	return nil
}

func (m *MockReplenishmentRepository) ListPending(ctx context.Context, branchID string, kind domain.ReplenishmentKind, limit, offset int) ([]*domain.ReplenishmentRequest, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	var out []*domain.ReplenishmentRequest
	for _, r := range m.store.requests {
		if r.IsOpen() && r.BranchID == branchID && r.Kind == kind {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.Before(out[j].InitiatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// MockChangeRepository is a mock implementation of ChangeRepository.
type MockChangeRepository struct {
	store *Store

	CreateFunc func(ctx context.Context, tx usecase.Transaction, record *domain.CashChangeRecord) error
}

func NewMockChangeRepository(store *Store) *MockChangeRepository {
	return &MockChangeRepository{store: store}
}

func (m *MockChangeRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.CashChangeRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, record)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.changes[record.ID] = record
	return nil
}

func (m *MockChangeRepository) GetByID(ctx context.Context, id string) (*domain.CashChangeRecord, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if c, ok := m.store.changes[id]; ok {
		return c, nil
	}
	return nil, domain.ErrChangeNotFound
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	store *Store

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository(store *Store) *MockOutboxRepository {
	return &MockOutboxRepository{store: store}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.outbox = append(m.store.outbox, event)
	return nil
}

func (m *MockOutboxRepository) ClaimUnpublished(ctx context.Context, limit int, lease time.Duration) ([]*domain.OutboxEvent, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.store.outbox {
		if !e.Published {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, e := range m.store.outbox {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}

func (m *MockOutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.store.outbox {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	kept := m.store.outbox[:0]
	for _, e := range m.store.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.store.outbox = kept
	return nil
}

// RecordingAuditSink keeps audit entries in memory.
type RecordingAuditSink struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry

	LogFunc func(ctx context.Context, entry *domain.AuditEntry) error
}

func NewRecordingAuditSink() *RecordingAuditSink {
	return &RecordingAuditSink{}
}

func (m *RecordingAuditSink) Log(ctx context.Context, entry *domain.AuditEntry) error {
	if m.LogFunc != nil {
		return m.LogFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns the recorded entries.
func (m *RecordingAuditSink) Entries() []*domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AuditEntry(nil), m.entries...)
}

// InMemoryDirectory serves tellers, branches and customers from maps.
type InMemoryDirectory struct {
	mu        sync.RWMutex
	tellers   map[string]*domain.Teller
	branches  map[string]*domain.Branch
	customers map[string]*domain.Customer
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		tellers:   make(map[string]*domain.Teller),
		branches:  make(map[string]*domain.Branch),
		customers: make(map[string]*domain.Customer),
	}
}

func (d *InMemoryDirectory) PutTeller(t *domain.Teller) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *t
	d.tellers[t.ID] = &cp
}

func (d *InMemoryDirectory) PutBranch(b *domain.Branch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *b
	d.branches[b.ID] = &cp
}

func (d *InMemoryDirectory) PutCustomer(c *domain.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *c
	d.customers[c.ID] = &cp
}

func (d *InMemoryDirectory) GetTeller(ctx context.Context, id string) (*domain.Teller, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if t, ok := d.tellers[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrTellerNotFound
}

func (d *InMemoryDirectory) GetBranch(ctx context.Context, id string) (*domain.Branch, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if b, ok := d.branches[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, domain.ErrBranchNotFound
}

func (d *InMemoryDirectory) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if c, ok := d.customers[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrCustomerNotFound
}

// PassthroughRetrier runs the operation once.
type PassthroughRetrier struct {
	Calls int
}

func (r *PassthroughRetrier) Retry(ctx context.Context, fn func() error) error {
	r.Calls++
	return fn()
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%04d", m.counter)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	ReleaseFunc     func(ctx context.Context, key string) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Value returns what is stored for key.
func (m *MockIdempotencyStore) Value(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}
