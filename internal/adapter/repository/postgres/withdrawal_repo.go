package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/usecase"
)

// WithdrawalRepository implements usecase.WithdrawalRepository.
type WithdrawalRepository struct {
	pool *pgxpool.Pool
}

// NewWithdrawalRepository creates a new WithdrawalRepository.
func NewWithdrawalRepository(pool *pgxpool.Pool) *WithdrawalRepository {
	return &WithdrawalRepository{pool: pool}
}

const withdrawalColumns = `id, account_id, amount, fee, net_amount, phone, status, intent_id, external_reference, failure_reason, created_at, updated_at, completed_at`

// Create creates a new withdrawal request.
func (r *WithdrawalRepository) Create(ctx context.Context, withdrawal *domain.WithdrawalRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO withdrawal_requests (`+withdrawalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		withdrawal.ID,
		withdrawal.AccountID,
		decimalToNumeric(withdrawal.Amount),
		decimalToNumeric(withdrawal.Fee),
		decimalToNumeric(withdrawal.NetAmount),
		withdrawal.Phone,
		string(withdrawal.Status),
		withdrawal.IntentID,
		withdrawal.ExternalReference,
		withdrawal.FailureReason,
		timeToPgTimestamptz(withdrawal.CreatedAt),
		timeToPgTimestamptz(withdrawal.UpdatedAt),
		nil,
	)

	return err
}

// GetByID retrieves a withdrawal request by ID.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE id = $1`, id)

	return scanWithdrawal(row)
}

// GetByIDForUpdate retrieves a withdrawal request with a FOR UPDATE
// lock, serializing state transitions per request.
func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.WithdrawalRequest, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE id = $1
		FOR UPDATE`, id)

	return scanWithdrawal(row)
}

// Update persists a withdrawal's mutable fields inside the caller's
// transaction.
func (r *WithdrawalRepository) Update(ctx context.Context, tx usecase.Transaction, withdrawal *domain.WithdrawalRequest) error {
	pgxTx := tx.(*Tx).PgxTx()

	var completedAt pgtype.Timestamptz
	if withdrawal.CompletedAt != nil {
		completedAt = timeToPgTimestamptz(*withdrawal.CompletedAt)
	}

	_, err := pgxTx.Exec(ctx, `
		UPDATE withdrawal_requests
		SET status = $2, intent_id = $3, external_reference = $4, failure_reason = $5, updated_at = $6, completed_at = $7
		WHERE id = $1`,
		withdrawal.ID,
		string(withdrawal.Status),
		withdrawal.IntentID,
		withdrawal.ExternalReference,
		withdrawal.FailureReason,
		timeToPgTimestamptz(withdrawal.UpdatedAt),
		completedAt,
	)

	return err
}

// ListByAccount returns an account's withdrawal requests, newest first.
func (r *WithdrawalRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.WithdrawalRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var withdrawals []*domain.WithdrawalRequest

	for rows.Next() {
		withdrawal, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}

		withdrawals = append(withdrawals, withdrawal)
	}

	return withdrawals, rows.Err()
}

// StatsByAccount aggregates an account's withdrawal history.
func (r *WithdrawalRepository) StatsByAccount(ctx context.Context, accountID string) (*domain.WithdrawalStats, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0)
		FROM withdrawal_requests
		WHERE account_id = $1`, accountID)

	var (
		stats                         domain.WithdrawalStats
		requested, completed, pending pgtype.Numeric
	)
	if err := row.Scan(&requested, &completed, &stats.PendingCount, &pending); err != nil {
		return nil, err
	}

	stats.TotalRequested = numericToDecimal(requested)
	stats.TotalCompleted = numericToDecimal(completed)
	stats.PendingAmount = numericToDecimal(pending)

	return &stats, nil
}

func scanWithdrawal(row pgx.Row) (*domain.WithdrawalRequest, error) {
	var (
		withdrawal       domain.WithdrawalRequest
		amount, fee, net pgtype.Numeric
		status           string
		completedAt      pgtype.Timestamptz
	)

	err := row.Scan(
		&withdrawal.ID,
		&withdrawal.AccountID,
		&amount,
		&fee,
		&net,
		&withdrawal.Phone,
		&status,
		&withdrawal.IntentID,
		&withdrawal.ExternalReference,
		&withdrawal.FailureReason,
		&withdrawal.CreatedAt,
		&withdrawal.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWithdrawalNotFound
		}

		return nil, err
	}

	withdrawal.Amount = numericToDecimal(amount)
	withdrawal.Fee = numericToDecimal(fee)
	withdrawal.NetAmount = numericToDecimal(net)
	withdrawal.Status = domain.WithdrawalStatus(status)
	withdrawal.CompletedAt = pgTimestamptzToTimePtr(completedAt)

	return &withdrawal, nil
}
