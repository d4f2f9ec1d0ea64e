package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
)

// SettingsUseCase is the read-through accessor for operator-tunable
// values. Reads go cache -> database -> compiled defaults; the cache
// TTL is short so operator changes take effect promptly.
type SettingsUseCase struct {
	settingRepo SettingRepository
	cache       Cache
	cacheTTL    time.Duration
	logger      *logging.Logger
}

// NewSettingsUseCase creates a new SettingsUseCase. cache may be nil,
// in which case every read hits the database.
func NewSettingsUseCase(settingRepo SettingRepository, cache Cache, logger *logging.Logger) *SettingsUseCase {
	return &SettingsUseCase{
		settingRepo: settingRepo,
		cache:       cache,
		cacheTTL:    SettingsCacheTTL,
		logger:      logger,
	}
}

func (uc *SettingsUseCase) get(ctx context.Context, key string) (*domain.Setting, error) {
	if uc.cache != nil {
		if raw, err := uc.cache.Get(ctx, "setting:"+key); err == nil && raw != "" {
			defaults := domain.DefaultSettings()
			typ := domain.SettingTypeText
			if d, ok := defaults[key]; ok {
				typ = d.Type
			}

			return &domain.Setting{Key: key, Type: typ, RawValue: raw}, nil
		}
	}

	setting, err := uc.settingRepo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrSettingNotFound) {
			return nil, err
		}

		defaults := domain.DefaultSettings()
		d, ok := defaults[key]
		if !ok {
			return nil, domain.ErrSettingNotFound
		}

		setting = &d
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, "setting:"+key, setting.RawValue, uc.cacheTTL); err != nil {
			uc.logger.WarnCtx(ctx, "failed to cache setting", "key", key, "error", err)
		}
	}

	return setting, nil
}

func (uc *SettingsUseCase) getDecimal(ctx context.Context, key string) (decimal.Decimal, error) {
	setting, err := uc.get(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}

	return setting.Decimal()
}

// RegistrationFee returns the current one-time registration fee.
func (uc *SettingsUseCase) RegistrationFee(ctx context.Context) (decimal.Decimal, error) {
	return uc.getDecimal(ctx, domain.SettingRegistrationFee)
}

// CommissionRate returns the current referral commission rate.
func (uc *SettingsUseCase) CommissionRate(ctx context.Context) (decimal.Decimal, error) {
	return uc.getDecimal(ctx, domain.SettingCommissionRate)
}

// AutoApproveCommissions reports whether commissions settle immediately
// on creation.
func (uc *SettingsUseCase) AutoApproveCommissions(ctx context.Context) (bool, error) {
	setting, err := uc.get(ctx, domain.SettingAutoApproveCommission)
	if err != nil {
		return false, err
	}

	return setting.Bool()
}

// WithdrawalLimits returns the configured [min, max] withdrawal bounds.
func (uc *SettingsUseCase) WithdrawalLimits(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	min, err := uc.getDecimal(ctx, domain.SettingMinWithdrawal)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	max, err := uc.getDecimal(ctx, domain.SettingMaxWithdrawal)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return min, max, nil
}

// WithdrawalFee computes the fee for a withdrawal amount: a percentage
// with a configured floor.
func (uc *SettingsUseCase) WithdrawalFee(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	pct, err := uc.getDecimal(ctx, domain.SettingWithdrawalFeePercent)
	if err != nil {
		return decimal.Zero, err
	}

	minFee, err := uc.getDecimal(ctx, domain.SettingMinWithdrawalFee)
	if err != nil {
		return decimal.Zero, err
	}

	fee := amount.Mul(pct).Round(2)
	if fee.LessThan(minFee) {
		fee = minFee
	}

	return fee, nil
}

// Get returns one setting row, falling back to the compiled default.
func (uc *SettingsUseCase) Get(ctx context.Context, key string) (*domain.Setting, error) {
	return uc.get(ctx, key)
}

// Set writes a setting and invalidates its cache entry.
func (uc *SettingsUseCase) Set(ctx context.Context, setting *domain.Setting, reason string) error {
	// Reject values that do not parse as the declared type before they
	// reach storage.
	var err error
	switch setting.Type {
	case domain.SettingTypeDecimal:
		_, err = setting.Decimal()
	case domain.SettingTypeInt:
		_, err = setting.Int()
	case domain.SettingTypeBool:
		_, err = setting.Bool()
	}
	if err != nil {
		return err
	}

	setting.UpdatedAt = time.Now().UTC()
	if err := uc.settingRepo.Upsert(ctx, setting, reason); err != nil {
		return err
	}

	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, "setting:"+setting.Key); err != nil {
			uc.logger.WarnCtx(ctx, "failed to invalidate setting cache", "key", setting.Key, "error", err)
		}
	}

	uc.logger.InfoCtx(ctx, "setting updated",
		"key", setting.Key,
		"value", setting.RawValue,
		"reason", reason,
	)

	return nil
}

// List returns all settings, overlaying stored rows on the defaults.
func (uc *SettingsUseCase) List(ctx context.Context) ([]*domain.Setting, error) {
	stored, err := uc.settingRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	merged := domain.DefaultSettings()
	for _, s := range stored {
		merged[s.Key] = *s
	}

	out := make([]*domain.Setting, 0, len(merged))
	for key := range merged {
		s := merged[key]
		out = append(out, &s)
	}

	return out, nil
}
