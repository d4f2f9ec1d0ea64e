package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, phone, referrer_id, staff, balance, lifetime_earnings, registration_state, created_at, updated_at`

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID,
		account.Phone,
		account.ReferrerID,
		account.Staff,
		decimalToNumeric(account.Balance),
		decimalToNumeric(account.LifetimeEarnings),
		string(account.RegistrationState),
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1`, id)

	return scanAccount(row)
}

// GetByIDForUpdate retrieves an account by ID with a FOR UPDATE lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, id)

	return scanAccount(row)
}

// UpdateBalance writes the balance and lifetime earnings computed by
// the ledger.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance, lifetimeEarnings decimal.Decimal, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		UPDATE accounts
		SET balance = $2, lifetime_earnings = $3, updated_at = $4
		WHERE id = $1`,
		id,
		decimalToNumeric(balance),
		decimalToNumeric(lifetimeEarnings),
		timeToPgTimestamptz(updatedAt),
	)

	return err
}

// SetRegistrationState moves the account's registration state.
func (r *AccountRepository) SetRegistrationState(ctx context.Context, tx usecase.Transaction, id string, state domain.RegistrationState, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		UPDATE accounts
		SET registration_state = $2, updated_at = $3
		WHERE id = $1`,
		id,
		string(state),
		timeToPgTimestamptz(updatedAt),
	)

	return err
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account           domain.Account
		balance, lifetime pgtype.Numeric
		state             string
	)

	err := row.Scan(
		&account.ID,
		&account.Phone,
		&account.ReferrerID,
		&account.Staff,
		&balance,
		&lifetime,
		&state,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	account.Balance = numericToDecimal(balance)
	account.LifetimeEarnings = numericToDecimal(lifetime)
	account.RegistrationState = domain.RegistrationState(state)

	return &account, nil
}
