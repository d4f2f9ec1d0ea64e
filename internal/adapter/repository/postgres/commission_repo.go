package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/usecase"
)

// CommissionRepository implements usecase.CommissionRepository.
type CommissionRepository struct {
	pool *pgxpool.Pool
}

// NewCommissionRepository creates a new CommissionRepository.
func NewCommissionRepository(pool *pgxpool.Pool) *CommissionRepository {
	return &CommissionRepository{pool: pool}
}

const commissionColumns = `id, referrer_id, source_account_id, source_event_id, kind, rate, source_amount, amount, settled, created_at, settled_at`

// Create creates a commission inside the caller's transaction.
func (r *CommissionRepository) Create(ctx context.Context, tx usecase.Transaction, commission *domain.Commission) error {
	pgxTx := tx.(*Tx).PgxTx()

	var settledAt pgtype.Timestamptz
	if commission.SettledAt != nil {
		settledAt = timeToPgTimestamptz(*commission.SettledAt)
	}

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO commissions (`+commissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		commission.ID,
		commission.ReferrerID,
		commission.SourceAccountID,
		commission.SourceEventID,
		string(commission.Kind),
		decimalToNumeric(commission.Rate),
		decimalToNumeric(commission.SourceAmount),
		decimalToNumeric(commission.Amount),
		commission.Settled,
		timeToPgTimestamptz(commission.CreatedAt),
		settledAt,
	)

	return err
}

// GetByID retrieves a commission by ID.
func (r *CommissionRepository) GetByID(ctx context.Context, id string) (*domain.Commission, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE id = $1`, id)

	commission, err := scanCommission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCommissionNotFound
		}

		return nil, err
	}

	return commission, nil
}

// GetByIDForUpdate retrieves a commission by ID with a FOR UPDATE lock.
func (r *CommissionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Commission, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE id = $1
		FOR UPDATE`, id)

	commission, err := scanCommission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCommissionNotFound
		}

		return nil, err
	}

	return commission, nil
}

// FindBySource returns the commission for (referrer, source account,
// kind), or nil when none exists.
func (r *CommissionRepository) FindBySource(ctx context.Context, tx usecase.Transaction, referrerID, sourceAccountID string, kind domain.CommissionKind) (*domain.Commission, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE referrer_id = $1 AND source_account_id = $2 AND kind = $3`,
		referrerID, sourceAccountID, string(kind))

	commission, err := scanCommission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return commission, nil
}

// FindBySourceEvent returns the commission created for a qualifying
// event, or nil when none exists.
func (r *CommissionRepository) FindBySourceEvent(ctx context.Context, tx usecase.Transaction, sourceEventID string) (*domain.Commission, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE source_event_id = $1`, sourceEventID)

	commission, err := scanCommission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return commission, nil
}

// MarkSettled marks a commission settled inside the caller's
// transaction.
func (r *CommissionRepository) MarkSettled(ctx context.Context, tx usecase.Transaction, id string, settledAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		UPDATE commissions
		SET settled = TRUE, settled_at = $2
		WHERE id = $1`,
		id,
		timeToPgTimestamptz(settledAt),
	)

	return err
}

// ListUnsettled returns unsettled commissions, oldest first, optionally
// limited to one referrer.
func (r *CommissionRepository) ListUnsettled(ctx context.Context, referrerID string, limit int) ([]*domain.Commission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE settled = FALSE AND ($1 = '' OR referrer_id = $1)
		ORDER BY created_at
		LIMIT $2`,
		referrerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCommissions(rows)
}

// ListByReferrer returns a referrer's commissions, newest first.
func (r *CommissionRepository) ListByReferrer(ctx context.Context, referrerID string, limit, offset int) ([]*domain.Commission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE referrer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		referrerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCommissions(rows)
}

// StatsByReferrer aggregates a referrer's commission history.
func (r *CommissionRepository) StatsByReferrer(ctx context.Context, referrerID string) (*domain.CommissionStats, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE settled),
			COUNT(*) FILTER (WHERE NOT settled),
			COALESCE(SUM(amount) FILTER (WHERE settled), 0),
			COALESCE(SUM(amount) FILTER (WHERE NOT settled), 0)
		FROM commissions
		WHERE referrer_id = $1`, referrerID)

	var (
		stats            domain.CommissionStats
		settled, pending pgtype.Numeric
	)
	if err := row.Scan(&stats.TotalCount, &stats.SettledCount, &stats.PendingCount, &settled, &pending); err != nil {
		return nil, err
	}

	stats.SettledAmount = numericToDecimal(settled)
	stats.PendingAmount = numericToDecimal(pending)

	return &stats, nil
}

func collectCommissions(rows pgx.Rows) ([]*domain.Commission, error) {
	var commissions []*domain.Commission

	for rows.Next() {
		commission, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}

		commissions = append(commissions, commission)
	}

	return commissions, rows.Err()
}

func scanCommission(row pgx.Row) (*domain.Commission, error) {
	var (
		commission           domain.Commission
		kind                 string
		rate, source, amount pgtype.Numeric
		settledAt            pgtype.Timestamptz
	)

	err := row.Scan(
		&commission.ID,
		&commission.ReferrerID,
		&commission.SourceAccountID,
		&commission.SourceEventID,
		&kind,
		&rate,
		&source,
		&amount,
		&commission.Settled,
		&commission.CreatedAt,
		&settledAt,
	)
	if err != nil {
		return nil, err
	}

	commission.Kind = domain.CommissionKind(kind)
	commission.Rate = numericToDecimal(rate)
	commission.SourceAmount = numericToDecimal(source)
	commission.Amount = numericToDecimal(amount)
	commission.SettledAt = pgTimestamptzToTimePtr(settledAt)

	return &commission, nil
}
