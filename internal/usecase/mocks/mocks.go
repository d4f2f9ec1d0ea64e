package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc               func(ctx context.Context, account *domain.Account) error
	GetByIDFunc              func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdateFunc     func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error)
	UpdateBalanceFunc        func(ctx context.Context, tx usecase.Transaction, id string, balance, lifetimeEarnings decimal.Decimal, updatedAt time.Time) error
	SetRegistrationStateFunc func(ctx context.Context, tx usecase.Transaction, id string, state domain.RegistrationState, updatedAt time.Time) error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Seed stores an account directly, bypassing Create overrides.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance, lifetimeEarnings decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, lifetimeEarnings, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.Balance = balance
		acc.LifetimeEarnings = lifetimeEarnings
		acc.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockAccountRepository) SetRegistrationState(ctx context.Context, tx usecase.Transaction, id string, state domain.RegistrationState, updatedAt time.Time) error {
	if m.SetRegistrationStateFunc != nil {
		return m.SetRegistrationStateFunc(ctx, tx, id, state, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.RegistrationState = state
		acc.UpdatedAt = updatedAt
	}
	return nil
}

// MockIntentRepository is a mock implementation of IntentRepository.
type MockIntentRepository struct {
	mu      sync.RWMutex
	intents map[string]*domain.PaymentIntent

	CreateFunc                      func(ctx context.Context, intent *domain.PaymentIntent) error
	GetByIDFunc                     func(ctx context.Context, id string) (*domain.PaymentIntent, error)
	GetByCorrelationIDFunc          func(ctx context.Context, correlationID string) (*domain.PaymentIntent, error)
	GetByCorrelationIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, correlationID string) (*domain.PaymentIntent, error)
	GetByIDForUpdateFunc            func(ctx context.Context, tx usecase.Transaction, id string) (*domain.PaymentIntent, error)
	AttachCorrelationIDFunc         func(ctx context.Context, id, correlationID string, raw json.RawMessage, updatedAt time.Time) error
	FinalizeFunc                    func(ctx context.Context, tx usecase.Transaction, id string, status domain.IntentStatus, raw json.RawMessage, finalizedAt time.Time) error
	MarkFailedFunc                  func(ctx context.Context, id string, raw json.RawMessage, finalizedAt time.Time) error
	ListPendingBeforeFunc           func(ctx context.Context, cutoff time.Time, limit int) ([]*domain.PaymentIntent, error)
}

func NewMockIntentRepository() *MockIntentRepository {
	return &MockIntentRepository{
		intents: make(map[string]*domain.PaymentIntent),
	}
}

// Seed stores an intent directly, bypassing Create overrides.
func (m *MockIntentRepository) Seed(intent *domain.PaymentIntent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent.ID] = intent
}

func (m *MockIntentRepository) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, intent)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent.ID] = intent
	return nil
}

func (m *MockIntentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if intent, ok := m.intents[id]; ok {
		return intent, nil
	}
	return nil, domain.ErrIntentNotFound
}

func (m *MockIntentRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.PaymentIntent, error) {
	if m.GetByCorrelationIDFunc != nil {
		return m.GetByCorrelationIDFunc(ctx, correlationID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, intent := range m.intents {
		if intent.CorrelationID == correlationID && correlationID != "" {
			return intent, nil
		}
	}
	return nil, domain.ErrIntentNotFound
}

func (m *MockIntentRepository) GetByCorrelationIDForUpdate(ctx context.Context, tx usecase.Transaction, correlationID string) (*domain.PaymentIntent, error) {
	if m.GetByCorrelationIDForUpdateFunc != nil {
		return m.GetByCorrelationIDForUpdateFunc(ctx, tx, correlationID)
	}
	return m.GetByCorrelationID(ctx, correlationID)
}

func (m *MockIntentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.PaymentIntent, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockIntentRepository) AttachCorrelationID(ctx context.Context, id, correlationID string, raw json.RawMessage, updatedAt time.Time) error {
	if m.AttachCorrelationIDFunc != nil {
		return m.AttachCorrelationIDFunc(ctx, id, correlationID, raw, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return domain.ErrIntentNotFound
	}
	if intent.CorrelationID != "" && intent.CorrelationID != correlationID {
		return domain.ErrDuplicateCorrelationID
	}
	intent.CorrelationID = correlationID
	intent.Status = domain.IntentPending
	intent.RawResponse = raw
	return nil
}

func (m *MockIntentRepository) Finalize(ctx context.Context, tx usecase.Transaction, id string, status domain.IntentStatus, raw json.RawMessage, finalizedAt time.Time) error {
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(ctx, tx, id, status, raw, finalizedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return domain.ErrIntentNotFound
	}
	intent.Status = status
	if raw != nil {
		intent.RawResponse = raw
	}
	intent.FinalizedAt = &finalizedAt
	return nil
}

func (m *MockIntentRepository) MarkFailed(ctx context.Context, id string, raw json.RawMessage, finalizedAt time.Time) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, raw, finalizedAt)
	}
	return m.Finalize(ctx, nil, id, domain.IntentFailed, raw, finalizedAt)
}

func (m *MockIntentRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.PaymentIntent, error) {
	if m.ListPendingBeforeFunc != nil {
		return m.ListPendingBeforeFunc(ctx, cutoff, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var intents []*domain.PaymentIntent
	for _, intent := range m.intents {
		if intent.Status == domain.IntentPending && intent.CreatedAt.Before(cutoff) {
			intents = append(intents, intent)
		}
	}
	sort.Slice(intents, func(i, j int) bool { return intents[i].CreatedAt.Before(intents[j].CreatedAt) })
	if limit > 0 && len(intents) > limit {
		intents = intents[:limit]
	}
	return intents, nil
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.LedgerEntry

	CreateFunc              func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error
	GetByIdempotencyKeyFunc func(ctx context.Context, tx usecase.Transaction, accountID, key string) (*domain.LedgerEntry, error)
	ListByAccountFunc       func(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[string]*domain.LedgerEntry),
	}
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	return nil
}

func (m *MockEntryRepository) GetByIdempotencyKey(ctx context.Context, tx usecase.Transaction, accountID, key string) (*domain.LedgerEntry, error) {
	if m.GetByIdempotencyKeyFunc != nil {
		return m.GetByIdempotencyKeyFunc(ctx, tx, accountID, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.AccountID == accountID && e.IdempotencyKey == key {
			return e, nil
		}
	}
	return nil, nil
}

func (m *MockEntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

// MockCommissionRepository is a mock implementation of CommissionRepository.
type MockCommissionRepository struct {
	mu          sync.RWMutex
	commissions map[string]*domain.Commission

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, commission *domain.Commission) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Commission, error)
	GetByIDForUpdateFunc  func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Commission, error)
	FindBySourceFunc      func(ctx context.Context, tx usecase.Transaction, referrerID, sourceAccountID string, kind domain.CommissionKind) (*domain.Commission, error)
	FindBySourceEventFunc func(ctx context.Context, tx usecase.Transaction, sourceEventID string) (*domain.Commission, error)
	MarkSettledFunc       func(ctx context.Context, tx usecase.Transaction, id string, settledAt time.Time) error
	ListUnsettledFunc     func(ctx context.Context, referrerID string, limit int) ([]*domain.Commission, error)
	ListByReferrerFunc    func(ctx context.Context, referrerID string, limit, offset int) ([]*domain.Commission, error)
	StatsByReferrerFunc   func(ctx context.Context, referrerID string) (*domain.CommissionStats, error)
}

func NewMockCommissionRepository() *MockCommissionRepository {
	return &MockCommissionRepository{
		commissions: make(map[string]*domain.Commission),
	}
}

// Seed stores a commission directly, bypassing Create overrides.
func (m *MockCommissionRepository) Seed(commission *domain.Commission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commissions[commission.ID] = commission
}

func (m *MockCommissionRepository) Create(ctx context.Context, tx usecase.Transaction, commission *domain.Commission) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, commission)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commissions[commission.ID] = commission
	return nil
}

func (m *MockCommissionRepository) GetByID(ctx context.Context, id string) (*domain.Commission, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.commissions[id]; ok {
		return c, nil
	}
	return nil, domain.ErrCommissionNotFound
}

func (m *MockCommissionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Commission, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockCommissionRepository) FindBySource(ctx context.Context, tx usecase.Transaction, referrerID, sourceAccountID string, kind domain.CommissionKind) (*domain.Commission, error) {
	if m.FindBySourceFunc != nil {
		return m.FindBySourceFunc(ctx, tx, referrerID, sourceAccountID, kind)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.commissions {
		if c.ReferrerID == referrerID && c.SourceAccountID == sourceAccountID && c.Kind == kind {
			return c, nil
		}
	}
	return nil, nil
}

func (m *MockCommissionRepository) FindBySourceEvent(ctx context.Context, tx usecase.Transaction, sourceEventID string) (*domain.Commission, error) {
	if m.FindBySourceEventFunc != nil {
		return m.FindBySourceEventFunc(ctx, tx, sourceEventID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.commissions {
		if c.SourceEventID == sourceEventID {
			return c, nil
		}
	}
	return nil, nil
}

func (m *MockCommissionRepository) MarkSettled(ctx context.Context, tx usecase.Transaction, id string, settledAt time.Time) error {
	if m.MarkSettledFunc != nil {
		return m.MarkSettledFunc(ctx, tx, id, settledAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commissions[id]
	if !ok {
		return domain.ErrCommissionNotFound
	}
	c.Settled = true
	c.SettledAt = &settledAt
	return nil
}

func (m *MockCommissionRepository) ListUnsettled(ctx context.Context, referrerID string, limit int) ([]*domain.Commission, error) {
	if m.ListUnsettledFunc != nil {
		return m.ListUnsettledFunc(ctx, referrerID, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Commission
	for _, c := range m.commissions {
		if c.Settled {
			continue
		}
		if referrerID != "" && c.ReferrerID != referrerID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockCommissionRepository) ListByReferrer(ctx context.Context, referrerID string, limit, offset int) ([]*domain.Commission, error) {
	if m.ListByReferrerFunc != nil {
		return m.ListByReferrerFunc(ctx, referrerID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Commission
	for _, c := range m.commissions {
		if c.ReferrerID == referrerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockCommissionRepository) StatsByReferrer(ctx context.Context, referrerID string) (*domain.CommissionStats, error) {
	if m.StatsByReferrerFunc != nil {
		return m.StatsByReferrerFunc(ctx, referrerID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.CommissionStats{
		SettledAmount: decimal.Zero,
		PendingAmount: decimal.Zero,
	}
	for _, c := range m.commissions {
		if c.ReferrerID != referrerID {
			continue
		}
		stats.TotalCount++
		if c.Settled {
			stats.SettledCount++
			stats.SettledAmount = stats.SettledAmount.Add(c.Amount)
		} else {
			stats.PendingCount++
			stats.PendingAmount = stats.PendingAmount.Add(c.Amount)
		}
	}
	return stats, nil
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository.
type MockWithdrawalRepository struct {
	mu          sync.RWMutex
	withdrawals map[string]*domain.WithdrawalRequest

	CreateFunc           func(ctx context.Context, withdrawal *domain.WithdrawalRequest) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.WithdrawalRequest, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.WithdrawalRequest, error)
	UpdateFunc           func(ctx context.Context, tx usecase.Transaction, withdrawal *domain.WithdrawalRequest) error
	ListByAccountFunc    func(ctx context.Context, accountID string, limit, offset int) ([]*domain.WithdrawalRequest, error)
	StatsByAccountFunc   func(ctx context.Context, accountID string) (*domain.WithdrawalStats, error)
}

func NewMockWithdrawalRepository() *MockWithdrawalRepository {
	return &MockWithdrawalRepository{
		withdrawals: make(map[string]*domain.WithdrawalRequest),
	}
}

// Seed stores a withdrawal directly, bypassing Create overrides.
func (m *MockWithdrawalRepository) Seed(withdrawal *domain.WithdrawalRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawals[withdrawal.ID] = withdrawal
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, withdrawal *domain.WithdrawalRequest) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, withdrawal)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawals[withdrawal.ID] = withdrawal
	return nil
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.withdrawals[id]; ok {
		return w, nil
	}
	return nil, domain.ErrWithdrawalNotFound
}

func (m *MockWithdrawalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.WithdrawalRequest, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockWithdrawalRepository) Update(ctx context.Context, tx usecase.Transaction, withdrawal *domain.WithdrawalRequest) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, withdrawal)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawals[withdrawal.ID] = withdrawal
	return nil
}

func (m *MockWithdrawalRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.WithdrawalRequest, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.WithdrawalRequest
	for _, w := range m.withdrawals {
		if w.AccountID == accountID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockWithdrawalRepository) StatsByAccount(ctx context.Context, accountID string) (*domain.WithdrawalStats, error) {
	if m.StatsByAccountFunc != nil {
		return m.StatsByAccountFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.WithdrawalStats{
		TotalRequested: decimal.Zero,
		TotalCompleted: decimal.Zero,
		PendingAmount:  decimal.Zero,
	}
	for _, w := range m.withdrawals {
		if w.AccountID != accountID {
			continue
		}
		stats.TotalRequested = stats.TotalRequested.Add(w.Amount)
		switch w.Status {
		case domain.WithdrawalCompleted:
			stats.TotalCompleted = stats.TotalCompleted.Add(w.Amount)
		case domain.WithdrawalPending:
			stats.PendingCount++
			stats.PendingAmount = stats.PendingAmount.Add(w.Amount)
		}
	}
	return stats, nil
}

// MockSettingRepository is a mock implementation of SettingRepository.
type MockSettingRepository struct {
	mu       sync.RWMutex
	settings map[string]*domain.Setting

	GetFunc    func(ctx context.Context, key string) (*domain.Setting, error)
	UpsertFunc func(ctx context.Context, setting *domain.Setting, reason string) error
	ListFunc   func(ctx context.Context) ([]*domain.Setting, error)
}

func NewMockSettingRepository() *MockSettingRepository {
	return &MockSettingRepository{
		settings: make(map[string]*domain.Setting),
	}
}

func (m *MockSettingRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.settings[key]; ok {
		return s, nil
	}
	return nil, domain.ErrSettingNotFound
}

func (m *MockSettingRepository) Upsert(ctx context.Context, setting *domain.Setting, reason string) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, setting, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[setting.Key] = setting
	return nil
}

func (m *MockSettingRepository) List(ctx context.Context) ([]*domain.Setting, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Setting
	for _, s := range m.settings {
		out = append(out, s)
	}
	return out, nil
}

// MockGateway is a mock implementation of Gateway. By default every
// request is accepted with a deterministic correlation id.
type MockGateway struct {
	mu      sync.Mutex
	counter int

	InitiateCollectionFunc   func(ctx context.Context, phone string, amount decimal.Decimal, reference, description string) (*usecase.GatewayResult, error)
	InitiateDisbursementFunc func(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*usecase.GatewayResult, error)
	QueryStatusFunc          func(ctx context.Context, correlationID string) (usecase.GatewayStatus, json.RawMessage, error)
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) nextID(prefix string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("%s-%d", prefix, m.counter)
}

func (m *MockGateway) InitiateCollection(ctx context.Context, phone string, amount decimal.Decimal, reference, description string) (*usecase.GatewayResult, error) {
	if m.InitiateCollectionFunc != nil {
		return m.InitiateCollectionFunc(ctx, phone, amount, reference, description)
	}
	return &usecase.GatewayResult{
		CorrelationID: m.nextID("chk"),
		Description:   "Success. Request accepted for processing",
	}, nil
}

func (m *MockGateway) InitiateDisbursement(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*usecase.GatewayResult, error) {
	if m.InitiateDisbursementFunc != nil {
		return m.InitiateDisbursementFunc(ctx, phone, amount, reference)
	}
	return &usecase.GatewayResult{
		CorrelationID: m.nextID("conv"),
		Description:   "Accept the service request successfully.",
	}, nil
}

func (m *MockGateway) QueryStatus(ctx context.Context, correlationID string) (usecase.GatewayStatus, json.RawMessage, error) {
	if m.QueryStatusFunc != nil {
		return m.QueryStatusFunc(ctx, correlationID)
	}
	return usecase.GatewayStatusPending, nil, nil
}

// MockNotifier is a mock implementation of Notifier that records every
// published event.
type MockNotifier struct {
	mu     sync.Mutex
	events []domain.StatusEvent

	PublishFunc func(ctx context.Context, event domain.StatusEvent) error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Publish(ctx context.Context, event domain.StatusEvent) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (m *MockNotifier) Events() []domain.StatusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.StatusEvent, len(m.events))
	copy(out, m.events)
	return out
}

// MockSettings is a mock implementation of Settings with fixed values.
type MockSettings struct {
	Fee         decimal.Decimal
	Rate        decimal.Decimal
	AutoApprove bool
	MinAmount   decimal.Decimal
	MaxAmount   decimal.Decimal
	FeePercent  decimal.Decimal
	MinFee      decimal.Decimal

	RegistrationFeeFunc func(ctx context.Context) (decimal.Decimal, error)
	CommissionRateFunc  func(ctx context.Context) (decimal.Decimal, error)
}

func NewMockSettings() *MockSettings {
	return &MockSettings{
		Fee:         decimal.RequireFromString("500.00"),
		Rate:        decimal.RequireFromString("0.25"),
		AutoApprove: true,
		MinAmount:   decimal.RequireFromString("100.00"),
		MaxAmount:   decimal.RequireFromString("50000.00"),
		FeePercent:  decimal.RequireFromString("0.02"),
		MinFee:      decimal.RequireFromString("1.00"),
	}
}

func (m *MockSettings) RegistrationFee(ctx context.Context) (decimal.Decimal, error) {
	if m.RegistrationFeeFunc != nil {
		return m.RegistrationFeeFunc(ctx)
	}
	return m.Fee, nil
}

func (m *MockSettings) CommissionRate(ctx context.Context) (decimal.Decimal, error) {
	if m.CommissionRateFunc != nil {
		return m.CommissionRateFunc(ctx)
	}
	return m.Rate, nil
}

func (m *MockSettings) AutoApproveCommissions(ctx context.Context) (bool, error) {
	return m.AutoApprove, nil
}

func (m *MockSettings) WithdrawalLimits(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	return m.MinAmount, m.MaxAmount, nil
}

func (m *MockSettings) WithdrawalFee(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	fee := amount.Mul(m.FeePercent).Round(2)
	if fee.LessThan(m.MinFee) {
		fee = m.MinFee
	}
	return fee, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockRetrier is a mock implementation of Retrier that runs the
// operation exactly once.
type MockRetrier struct {
	RetryFunc func(ctx context.Context, operation func() error) error
}

func NewMockRetrier() *MockRetrier {
	return &MockRetrier{}
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, operation)
	}
	return operation()
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
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string]string

	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string]string),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
