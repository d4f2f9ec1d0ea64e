package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance, lifetimeEarnings decimal.Decimal, updatedAt time.Time) error
	SetRegistrationState(ctx context.Context, tx Transaction, id string, state domain.RegistrationState, updatedAt time.Time) error
}

// IntentRepository defines data access for payment intents.
type IntentRepository interface {
	Create(ctx context.Context, intent *domain.PaymentIntent) error
	GetByID(ctx context.Context, id string) (*domain.PaymentIntent, error)
	GetByCorrelationID(ctx context.Context, correlationID string) (*domain.PaymentIntent, error)
	GetByCorrelationIDForUpdate(ctx context.Context, tx Transaction, correlationID string) (*domain.PaymentIntent, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.PaymentIntent, error)
	AttachCorrelationID(ctx context.Context, id, correlationID string, raw json.RawMessage, updatedAt time.Time) error
	Finalize(ctx context.Context, tx Transaction, id string, status domain.IntentStatus, raw json.RawMessage, finalizedAt time.Time) error
	MarkFailed(ctx context.Context, id string, raw json.RawMessage, finalizedAt time.Time) error
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.PaymentIntent, error)
}

// EntryRepository defines data access for ledger entries. Entries are
// append-only; there is no update or delete.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetByIdempotencyKey(ctx context.Context, tx Transaction, accountID, key string) (*domain.LedgerEntry, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
}

// CommissionRepository defines data access for referral commissions.
type CommissionRepository interface {
	Create(ctx context.Context, tx Transaction, commission *domain.Commission) error
	GetByID(ctx context.Context, id string) (*domain.Commission, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Commission, error)
	FindBySource(ctx context.Context, tx Transaction, referrerID, sourceAccountID string, kind domain.CommissionKind) (*domain.Commission, error)
	FindBySourceEvent(ctx context.Context, tx Transaction, sourceEventID string) (*domain.Commission, error)
	MarkSettled(ctx context.Context, tx Transaction, id string, settledAt time.Time) error
	ListUnsettled(ctx context.Context, referrerID string, limit int) ([]*domain.Commission, error)
	ListByReferrer(ctx context.Context, referrerID string, limit, offset int) ([]*domain.Commission, error)
	StatsByReferrer(ctx context.Context, referrerID string) (*domain.CommissionStats, error)
}

// WithdrawalRepository defines data access for withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *domain.WithdrawalRequest) error
	GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.WithdrawalRequest, error)
	Update(ctx context.Context, tx Transaction, withdrawal *domain.WithdrawalRequest) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.WithdrawalRequest, error)
	StatsByAccount(ctx context.Context, accountID string) (*domain.WithdrawalStats, error)
}

// SettingRepository defines data access for dynamic settings.
type SettingRepository interface {
	Get(ctx context.Context, key string) (*domain.Setting, error)
	Upsert(ctx context.Context, setting *domain.Setting, reason string) error
	List(ctx context.Context) ([]*domain.Setting, error)
}

// GatewayStatus is the provider-side view of an operation, used by the
// timeout sweep to confirm before restoring balance.
type GatewayStatus string

const (
	GatewayStatusPending   GatewayStatus = "pending"
	GatewayStatusCompleted GatewayStatus = "completed"
	GatewayStatusFailed    GatewayStatus = "failed"
	GatewayStatusUnknown   GatewayStatus = "unknown"
)

// GatewayResult is the synchronous response to a collection or
// disbursement request.
type GatewayResult struct {
	CorrelationID string
	Description   string
	Raw           json.RawMessage
}

// Gateway drives the mobile-money provider. Implementations hold no
// business state and are safe for concurrent use; they never retry
// internally.
type Gateway interface {
	InitiateCollection(ctx context.Context, phone string, amount decimal.Decimal, reference, description string) (*GatewayResult, error)
	InitiateDisbursement(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*GatewayResult, error)
	QueryStatus(ctx context.Context, correlationID string) (GatewayStatus, json.RawMessage, error)
}

// Notifier fans out status events to live subscribers. Delivery is
// best-effort; the polling path is the source of truth.
type Notifier interface {
	Publish(ctx context.Context, event domain.StatusEvent) error
}

// Settings is the read-through accessor for operator-tunable values.
// Implementations must read fresh (short cache TTL at most) so admin
// changes take effect without a restart.
type Settings interface {
	RegistrationFee(ctx context.Context) (decimal.Decimal, error)
	CommissionRate(ctx context.Context) (decimal.Decimal, error)
	AutoApproveCommissions(ctx context.Context) (bool, error)
	WithdrawalLimits(ctx context.Context) (min, max decimal.Decimal, err error)
	WithdrawalFee(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient database failures
// (serialization failure, deadlock).
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
