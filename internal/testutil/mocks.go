package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/cassiomorais/summitpay/internal/domain/catalog"
	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/outbox"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/cassiomorais/summitpay/internal/infrastructure/summit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Transaction Repository Mock ---

// MockTransactionRepository is an in-memory transaction.Repository. Stored
// transactions are copied on the way in and out, like rows in a database.
type MockTransactionRepository struct {
	mu     sync.Mutex
	txs    map[uuid.UUID]*transaction.Transaction
	order  []uuid.UUID
	lines  map[uuid.UUID][]*transaction.Line
	events map[uuid.UUID][]*transaction.Event

	UpdateCalls int

	CreateFunc          func(ctx context.Context, tx *transaction.Transaction, lines []*transaction.Line) error
	FindByReferenceFunc func(ctx context.Context, provider, reference string) ([]*transaction.Transaction, error)
	LockByIDFunc        func(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	UpdateFunc          func(ctx context.Context, tx *transaction.Transaction) error
	ListFunc            func(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
	GetLinesFunc        func(ctx context.Context, transactionID uuid.UUID) ([]*transaction.Line, error)
	MarkSentFunc        func(ctx context.Context, id uuid.UUID) error
	AddEventFunc        func(ctx context.Context, event *transaction.Event) error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		txs:    make(map[uuid.UUID]*transaction.Transaction),
		lines:  make(map[uuid.UUID][]*transaction.Line),
		events: make(map[uuid.UUID][]*transaction.Event),
	}
}

// AddTransaction pre-populates the mock.
func (m *MockTransactionRepository) AddTransaction(tx *transaction.Transaction, lines ...*transaction.Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(tx)
	for _, l := range lines {
		l.TransactionID = tx.ID
	}
	m.lines[tx.ID] = append(m.lines[tx.ID], lines...)
}

// Stored returns a copy of the stored transaction, or nil.
func (m *MockTransactionRepository) Stored(id uuid.UUID) *transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx, ok := m.txs[id]; ok {
		return clone(tx)
	}
	return nil
}

// Events returns the audit events recorded for a transaction.
func (m *MockTransactionRepository) Events(id uuid.UUID) []*transaction.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*transaction.Event(nil), m.events[id]...)
}

func (m *MockTransactionRepository) put(tx *transaction.Transaction) {
	if _, ok := m.txs[tx.ID]; !ok {
		m.order = append(m.order, tx.ID)
	}
	m.txs[tx.ID] = clone(tx)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *transaction.Transaction, lines []*transaction.Line) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, lines)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.txs {
		if existing.Provider == tx.Provider && existing.Reference == tx.Reference {
			return domainErrors.ErrDuplicateReference
		}
	}
	m.put(tx)
	for _, l := range lines {
		l.TransactionID = tx.ID
	}
	m.lines[tx.ID] = lines
	return nil
}

func (m *MockTransactionRepository) FindByReference(ctx context.Context, provider, reference string) ([]*transaction.Transaction, error) {
	if m.FindByReferenceFunc != nil {
		return m.FindByReferenceFunc(ctx, provider, reference)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*transaction.Transaction
	for _, id := range m.order {
		tx := m.txs[id]
		if tx.Provider == provider && tx.Reference == reference {
			out = append(out, clone(tx))
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, domainErrors.ErrTransactionNotFound
	}
	return clone(tx), nil
}

func (m *MockTransactionRepository) LockByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	if m.LockByIDFunc != nil {
		return m.LockByIDFunc(ctx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *transaction.Transaction) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[tx.ID]; !ok {
		return domainErrors.ErrTransactionNotFound
	}
	m.UpdateCalls++
	m.put(tx)
	return nil
}

func (m *MockTransactionRepository) List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Insertion order stands in for (created_at, id).
	start := 0
	if filter.After != nil {
		for i, id := range m.order {
			if id == filter.After.ID {
				start = i + 1
				break
			}
		}
	}
	var out []*transaction.Transaction
	for _, id := range m.order[start:] {
		tx := m.txs[id]
		if filter.Provider != "" && tx.Provider != filter.Provider {
			continue
		}
		if len(filter.States) > 0 && !hasState(filter.States, tx.State) {
			continue
		}
		if filter.AdditionalInfoSent != nil && tx.AdditionalInfoSent != *filter.AdditionalInfoSent {
			continue
		}
		out = append(out, clone(tx))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) GetLines(ctx context.Context, transactionID uuid.UUID) ([]*transaction.Line, error) {
	if m.GetLinesFunc != nil {
		return m.GetLinesFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*transaction.Line(nil), m.lines[transactionID]...), nil
}

func (m *MockTransactionRepository) MarkAdditionalInfoSent(ctx context.Context, id uuid.UUID) error {
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return domainErrors.ErrTransactionNotFound
	}
	tx.AdditionalInfoSent = true
	return nil
}

func (m *MockTransactionRepository) AddEvent(ctx context.Context, event *transaction.Event) error {
	if m.AddEventFunc != nil {
		return m.AddEventFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.TransactionID] = append(m.events[event.TransactionID], event)
	return nil
}

func hasState(states []transaction.State, s transaction.State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

func clone(tx *transaction.Transaction) *transaction.Transaction {
	c := *tx
	return &c
}

// --- Catalog Repository Mock ---

// MockCatalogRepository is an in-memory catalog.Repository.
type MockCatalogRepository struct {
	mu    sync.Mutex
	items []*catalog.Item

	ListEligibleFunc       func(ctx context.Context, ceiling decimal.Decimal) ([]*catalog.Item, error)
	UpdateInstallmentsFunc func(ctx context.Context, item *catalog.Item) error
}

func NewMockCatalogRepository(items ...*catalog.Item) *MockCatalogRepository {
	return &MockCatalogRepository{items: items}
}

// Item returns the stored item with id, or nil.
func (m *MockCatalogRepository) Item(id uuid.UUID) *catalog.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ID == id {
			c := *it
			return &c
		}
	}
	return nil
}

func (m *MockCatalogRepository) ListEligible(ctx context.Context, ceiling decimal.Decimal) ([]*catalog.Item, error) {
	if m.ListEligibleFunc != nil {
		return m.ListEligibleFunc(ctx, ceiling)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*catalog.Item
	for _, it := range m.items {
		if it.Eligible(ceiling) {
			c := *it
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MockCatalogRepository) UpdateInstallments(ctx context.Context, item *catalog.Item) error {
	if m.UpdateInstallmentsFunc != nil {
		return m.UpdateInstallmentsFunc(ctx, item)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items {
		if it.ID == item.ID {
			c := *item
			m.items[i] = &c
			return nil
		}
	}
	return domainErrors.ErrCatalogItemNotFound
}

// --- Transaction Manager Mock ---

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	Calls               int
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Outbox Repository Mock ---

// MockOutboxRepository is a mock implementation of outbox.Repository that
// records inserted entries.
type MockOutboxRepository struct {
	mu      sync.Mutex
	Entries []*outbox.Entry

	InsertFunc        func(ctx context.Context, entry *outbox.Entry) error
	GetPendingFunc    func(ctx context.Context, limit int) ([]*outbox.Entry, error)
	MarkPublishedFunc func(ctx context.Context, id uuid.UUID) error
	MarkFailedFunc    func(ctx context.Context, id uuid.UUID) error

	DeletePublishedFunc func(ctx context.Context, before time.Time) (int64, error)
}

func (m *MockOutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if m.GetPendingFunc != nil {
		return m.GetPendingFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id)
	}
	return nil
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id)
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	if m.DeletePublishedFunc != nil {
		return m.DeletePublishedFunc(ctx, before)
	}
	return 0, nil
}

// --- Summit API Mock ---

// MockSummitAPI stubs the Summit client. Unset functions answer OK with empty data.
type MockSummitAPI struct {
	mu    sync.Mutex
	calls map[string]int

	GetWebCreditLinkFunc        func(ctx context.Context, params summit.CreditLinkParams) (*summit.WebCreditLinkResponse, error)
	GetInstallmentInfoFunc      func(ctx context.Context, amount decimal.Decimal) (*summit.InstallmentInfoResponse, error)
	SendOrderAdditionalInfoFunc func(ctx context.Context, info summit.OrderInfo) (*summit.AdditionalInfoResponse, error)
	GetOrderStatusFunc          func(ctx context.Context, reference string) (*summit.OrderStatusResponse, error)
}

// Calls returns how many times method was invoked.
func (m *MockSummitAPI) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockSummitAPI) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

func (m *MockSummitAPI) GetWebCreditLink(ctx context.Context, params summit.CreditLinkParams) (*summit.WebCreditLinkResponse, error) {
	m.record("GetWebCreditLink")
	if m.GetWebCreditLinkFunc != nil {
		return m.GetWebCreditLinkFunc(ctx, params)
	}
	return CreditLinkResponse("https://pktest.takoleasy.si/pay/" + params.Reference), nil
}

func (m *MockSummitAPI) GetInstallmentInfo(ctx context.Context, amount decimal.Decimal) (*summit.InstallmentInfoResponse, error) {
	m.record("GetInstallmentInfo")
	if m.GetInstallmentInfoFunc != nil {
		return m.GetInstallmentInfoFunc(ctx, amount)
	}
	return &summit.InstallmentInfoResponse{ServiceStatus: summit.ServiceStatusOK}, nil
}

func (m *MockSummitAPI) SendOrderAdditionalInfo(ctx context.Context, info summit.OrderInfo) (*summit.AdditionalInfoResponse, error) {
	m.record("SendOrderAdditionalInfo")
	if m.SendOrderAdditionalInfoFunc != nil {
		return m.SendOrderAdditionalInfoFunc(ctx, info)
	}
	return AdditionalInfoResponse(summit.AdditionalInfoAccepted), nil
}

func (m *MockSummitAPI) GetOrderStatus(ctx context.Context, reference string) (*summit.OrderStatusResponse, error) {
	m.record("GetOrderStatus")
	if m.GetOrderStatusFunc != nil {
		return m.GetOrderStatusFunc(ctx, reference)
	}
	return OrderStatusResponse(""), nil
}

// --- Job Locker Mock ---

// MockJobLocker grants leases in memory and refuses a job that is already held.
type MockJobLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	Released []string

	TryLockFunc func(ctx context.Context, job string) (func(context.Context) error, error)
}

func NewMockJobLocker() *MockJobLocker {
	return &MockJobLocker{held: make(map[string]bool)}
}

// Hold marks job as leased by someone else.
func (m *MockJobLocker) Hold(job string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[job] = true
}

func (m *MockJobLocker) TryLock(ctx context.Context, job string) (func(context.Context) error, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[job] {
		return nil, domainErrors.ErrJobAlreadyRunning
	}
	m.held[job] = true
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, job)
		m.Released = append(m.Released, job)
		return nil
	}, nil
}
