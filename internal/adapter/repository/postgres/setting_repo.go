package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskearn/paycore/internal/domain"
)

// SettingRepository implements usecase.SettingRepository. Every write
// leaves an audit row recording the old value and the stated reason.
type SettingRepository struct {
	pool *pgxpool.Pool
}

// NewSettingRepository creates a new SettingRepository.
func NewSettingRepository(pool *pgxpool.Pool) *SettingRepository {
	return &SettingRepository{pool: pool}
}

// Get retrieves one setting by key.
func (r *SettingRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT key, type, raw_value, updated_at, updated_by
		FROM system_settings
		WHERE key = $1`, key)

	setting, err := scanSetting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettingNotFound
		}

		return nil, err
	}

	return setting, nil
}

// Upsert writes a setting and its audit trail atomically.
func (r *SettingRepository) Upsert(ctx context.Context, setting *domain.Setting, reason string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldValue *string

	err = tx.QueryRow(ctx, `
		SELECT raw_value
		FROM system_settings
		WHERE key = $1
		FOR UPDATE`, setting.Key).Scan(&oldValue)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO system_settings (key, type, raw_value, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET type = EXCLUDED.type,
		    raw_value = EXCLUDED.raw_value,
		    updated_at = EXCLUDED.updated_at,
		    updated_by = EXCLUDED.updated_by`,
		setting.Key,
		string(setting.Type),
		setting.RawValue,
		timeToPgTimestamptz(setting.UpdatedAt),
		setting.UpdatedBy,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO settings_audit (key, old_value, new_value, reason, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		setting.Key,
		oldValue,
		setting.RawValue,
		reason,
		setting.UpdatedBy,
		timeToPgTimestamptz(setting.UpdatedAt),
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// List returns every stored setting.
func (r *SettingRepository) List(ctx context.Context) ([]*domain.Setting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT key, type, raw_value, updated_at, updated_by
		FROM system_settings
		ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*domain.Setting

	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}

		settings = append(settings, setting)
	}

	return settings, rows.Err()
}

func scanSetting(row pgx.Row) (*domain.Setting, error) {
	var (
		setting domain.Setting
		typ     string
	)

	err := row.Scan(
		&setting.Key,
		&typ,
		&setting.RawValue,
		&setting.UpdatedAt,
		&setting.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	setting.Type = domain.SettingType(typ)

	return &setting, nil
}
