package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository. Entries are
// append-only.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

const entryColumns = `id, account_id, kind, amount, balance_before, balance_after, idempotency_key, metadata, created_at`

// Create appends a ledger entry inside the caller's transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	var metadata []byte
	if entry.Metadata != nil {
		var err error

		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
	}

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID,
		entry.AccountID,
		string(entry.Kind),
		decimalToNumeric(entry.Amount),
		decimalToNumeric(entry.BalanceBefore),
		decimalToNumeric(entry.BalanceAfter),
		entry.IdempotencyKey,
		metadata,
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

// GetByIdempotencyKey returns the entry recorded under (account, key),
// or nil when the event has not been applied yet.
func (r *EntryRepository) GetByIdempotencyKey(ctx context.Context, tx usecase.Transaction, accountID, key string) (*domain.LedgerEntry, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1 AND idempotency_key = $2`,
		accountID, key)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return entry, nil
}

// ListByAccount returns an account's entries, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		entry                 domain.LedgerEntry
		kind                  string
		amount, before, after pgtype.Numeric
		metadata              []byte
	)

	err := row.Scan(
		&entry.ID,
		&entry.AccountID,
		&kind,
		&amount,
		&before,
		&after,
		&entry.IdempotencyKey,
		&metadata,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Kind = domain.EntryKind(kind)
	entry.Amount = numericToDecimal(amount)
	entry.BalanceBefore = numericToDecimal(before)
	entry.BalanceAfter = numericToDecimal(after)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, err
		}
	}

	return &entry, nil
}
