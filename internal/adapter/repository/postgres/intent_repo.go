package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/usecase"
)

// IntentRepository implements usecase.IntentRepository.
type IntentRepository struct {
	pool *pgxpool.Pool
}

// NewIntentRepository creates a new IntentRepository.
func NewIntentRepository(pool *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{pool: pool}
}

const intentColumns = `id, direction, purpose, correlation_id, account_id, withdrawal_id, amount, phone, status, raw_response, created_at, finalized_at`

// Create creates a new payment intent.
func (r *IntentRepository) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	var correlationID *string
	if intent.CorrelationID != "" {
		correlationID = &intent.CorrelationID
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_intents (`+intentColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $11)`,
		intent.ID,
		string(intent.Direction),
		string(intent.Purpose),
		correlationID,
		intent.AccountID,
		intent.WithdrawalID,
		decimalToNumeric(intent.Amount),
		intent.Phone,
		string(intent.Status),
		[]byte(intent.RawResponse),
		timeToPgTimestamptz(intent.CreatedAt),
		nil,
	)

	return err
}

// GetByID retrieves an intent by ID.
func (r *IntentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE id = $1`, id)

	return scanIntent(row)
}

// GetByCorrelationID retrieves an intent by its gateway correlation id.
func (r *IntentRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.PaymentIntent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE correlation_id = $1`, correlationID)

	return scanIntent(row)
}

// GetByCorrelationIDForUpdate retrieves an intent by correlation id with
// a FOR UPDATE lock, serializing callback reconciliation per intent.
func (r *IntentRepository) GetByCorrelationIDForUpdate(ctx context.Context, tx usecase.Transaction, correlationID string) (*domain.PaymentIntent, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE correlation_id = $1
		FOR UPDATE`, correlationID)

	return scanIntent(row)
}

// GetByIDForUpdate retrieves an intent by ID with a FOR UPDATE lock.
func (r *IntentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.PaymentIntent, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE id = $1
		FOR UPDATE`, id)

	return scanIntent(row)
}

// AttachCorrelationID binds the gateway's correlation id to an initiated
// intent and moves it to pending. Attaching a different id to an intent
// that already has one is rejected.
func (r *IntentRepository) AttachCorrelationID(ctx context.Context, id, correlationID string, raw json.RawMessage, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_intents
		SET correlation_id = $2, status = $3, raw_response = $4, updated_at = $5
		WHERE id = $1
		  AND status = $6
		  AND (correlation_id IS NULL OR correlation_id = $2)`,
		id,
		correlationID,
		string(domain.IntentPending),
		[]byte(raw),
		timeToPgTimestamptz(updatedAt),
		string(domain.IntentInitiated),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}

		return domain.ErrDuplicateCorrelationID
	}

	return nil
}

// Finalize moves an intent to a terminal status inside the caller's
// transaction.
func (r *IntentRepository) Finalize(ctx context.Context, tx usecase.Transaction, id string, status domain.IntentStatus, raw json.RawMessage, finalizedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		UPDATE payment_intents
		SET status = $2, raw_response = COALESCE($3, raw_response), finalized_at = $4, updated_at = $4
		WHERE id = $1`,
		id,
		string(status),
		[]byte(raw),
		timeToPgTimestamptz(finalizedAt),
	)

	return err
}

// MarkFailed finalizes an intent as failed outside any caller
// transaction, used when the gateway rejects the initiating request.
func (r *IntentRepository) MarkFailed(ctx context.Context, id string, raw json.RawMessage, finalizedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE payment_intents
		SET status = $2, raw_response = COALESCE($3, raw_response), finalized_at = $4, updated_at = $4
		WHERE id = $1`,
		id,
		string(domain.IntentFailed),
		[]byte(raw),
		timeToPgTimestamptz(finalizedAt),
	)

	return err
}

// ListPendingBefore returns pending intents created before the cutoff,
// oldest first.
func (r *IntentRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.PaymentIntent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`,
		string(domain.IntentPending),
		timeToPgTimestamptz(cutoff),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []*domain.PaymentIntent

	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}

		intents = append(intents, intent)
	}

	return intents, rows.Err()
}

func scanIntent(row pgx.Row) (*domain.PaymentIntent, error) {
	var (
		intent             domain.PaymentIntent
		direction, purpose string
		correlationID      *string
		amount             pgtype.Numeric
		status             string
		raw                []byte
		finalizedAt        pgtype.Timestamptz
	)

	err := row.Scan(
		&intent.ID,
		&direction,
		&purpose,
		&correlationID,
		&intent.AccountID,
		&intent.WithdrawalID,
		&amount,
		&intent.Phone,
		&status,
		&raw,
		&intent.CreatedAt,
		&finalizedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIntentNotFound
		}

		return nil, err
	}

	intent.Direction = domain.IntentDirection(direction)
	intent.Purpose = domain.IntentPurpose(purpose)
	if correlationID != nil {
		intent.CorrelationID = *correlationID
	}
	intent.Amount = numericToDecimal(amount)
	intent.Status = domain.IntentStatus(status)
	intent.RawResponse = json.RawMessage(raw)
	intent.FinalizedAt = pgTimestamptzToTimePtr(finalizedAt)

	return &intent, nil
}
