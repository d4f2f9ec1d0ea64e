package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/usecase"
	"github.com/taskearn/paycore/internal/usecase/mocks"
)

func newSettingsFixture() (*usecase.SettingsUseCase, *mocks.MockSettingRepository, *mocks.MockCache) {
	repo := mocks.NewMockSettingRepository()
	cache := mocks.NewMockCache()
	uc := usecase.NewSettingsUseCase(repo, cache, logging.NewNop())

	return uc, repo, cache
}

func TestSettingsFallBackToDefaults(t *testing.T) {
	uc, _, _ := newSettingsFixture()
	ctx := context.Background()

	fee, err := uc.RegistrationFee(ctx)
	require.NoError(t, err)
	require.True(t, fee.Equal(decimal.RequireFromString("500.00")), "fee = %s", fee)

	rate, err := uc.CommissionRate(ctx)
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("0.25")), "rate = %s", rate)

	auto, err := uc.AutoApproveCommissions(ctx)
	require.NoError(t, err)
	require.True(t, auto)
}

func TestSettingsStoredValueWins(t *testing.T) {
	uc, repo, _ := newSettingsFixture()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.Setting{
		Key:      domain.SettingRegistrationFee,
		Type:     domain.SettingTypeDecimal,
		RawValue: "750.00",
	}, "test"))

	fee, err := uc.RegistrationFee(ctx)
	require.NoError(t, err)
	require.True(t, fee.Equal(decimal.RequireFromString("750.00")), "fee = %s", fee)
}

func TestSettingsReadThroughCache(t *testing.T) {
	uc, repo, cache := newSettingsFixture()
	ctx := context.Background()

	calls := 0
	repo.GetFunc = func(ctx context.Context, key string) (*domain.Setting, error) {
		calls++
		return &domain.Setting{Key: key, Type: domain.SettingTypeDecimal, RawValue: "750.00"}, nil
	}

	_, err := uc.RegistrationFee(ctx)
	require.NoError(t, err)
	_, err = uc.RegistrationFee(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, calls, "second read should come from cache")

	cached, err := cache.Get(ctx, "setting:"+domain.SettingRegistrationFee)
	require.NoError(t, err)
	require.Equal(t, "750.00", cached)
}

func TestSettingsSetInvalidatesCache(t *testing.T) {
	uc, _, cache := newSettingsFixture()
	ctx := context.Background()

	_, err := uc.RegistrationFee(ctx)
	require.NoError(t, err)

	cached, _ := cache.Get(ctx, "setting:"+domain.SettingRegistrationFee)
	require.NotEmpty(t, cached)

	require.NoError(t, uc.Set(ctx, &domain.Setting{
		Key:      domain.SettingRegistrationFee,
		Type:     domain.SettingTypeDecimal,
		RawValue: "600.00",
	}, "promo pricing"))

	cached, _ = cache.Get(ctx, "setting:"+domain.SettingRegistrationFee)
	require.Empty(t, cached, "stale cache entry survived the write")

	fee, err := uc.RegistrationFee(ctx)
	require.NoError(t, err)
	require.True(t, fee.Equal(decimal.RequireFromString("600.00")), "fee = %s", fee)
}

func TestSettingsSetRejectsUnparseableValue(t *testing.T) {
	uc, repo, _ := newSettingsFixture()

	err := uc.Set(context.Background(), &domain.Setting{
		Key:      domain.SettingRegistrationFee,
		Type:     domain.SettingTypeDecimal,
		RawValue: "banana",
	}, "typo")
	require.Error(t, err)

	_, err = repo.Get(context.Background(), domain.SettingRegistrationFee)
	require.ErrorIs(t, err, domain.ErrSettingNotFound, "bad value must not reach storage")
}

func TestSettingsWithdrawalFeeFloor(t *testing.T) {
	uc, _, _ := newSettingsFixture()
	ctx := context.Background()

	// 2% of 1000 = 20.
	fee, err := uc.WithdrawalFee(ctx, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.True(t, fee.Equal(decimal.NewFromInt(20)), "fee = %s", fee)

	// 2% of 10 = 0.20, floored to the minimum fee of 1.00.
	fee, err = uc.WithdrawalFee(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.True(t, fee.Equal(decimal.RequireFromString("1.00")), "fee = %s", fee)
}

func TestSettingsListMergesDefaults(t *testing.T) {
	uc, repo, _ := newSettingsFixture()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.Setting{
		Key:      domain.SettingCommissionRate,
		Type:     domain.SettingTypeDecimal,
		RawValue: "0.30",
	}, "test"))

	settings, err := uc.List(ctx)
	require.NoError(t, err)
	require.Len(t, settings, len(domain.DefaultSettings()))

	byKey := make(map[string]*domain.Setting, len(settings))
	for _, s := range settings {
		byKey[s.Key] = s
	}
	require.Equal(t, "0.30", byKey[domain.SettingCommissionRate].RawValue)
	require.Equal(t, "500.00", byKey[domain.SettingRegistrationFee].RawValue)
}

func TestSettingsUnknownKey(t *testing.T) {
	uc, _, _ := newSettingsFixture()

	_, err := uc.Get(context.Background(), "no_such_setting")
	require.ErrorIs(t, err, domain.ErrSettingNotFound)
}
