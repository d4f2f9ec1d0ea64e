package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSettingTypedAccessors(t *testing.T) {
	dec := &Setting{Key: "k", Type: SettingTypeDecimal, RawValue: "12.50"}
	got, err := dec.Decimal()
	if err != nil {
		t.Fatalf("Decimal() failed: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("Decimal() = %s, want 12.50", got)
	}

	i := &Setting{Key: "k", Type: SettingTypeInt, RawValue: "42"}
	n, err := i.Int()
	if err != nil {
		t.Fatalf("Int() failed: %v", err)
	}
	if n != 42 {
		t.Errorf("Int() = %d, want 42", n)
	}

	b := &Setting{Key: "k", Type: SettingTypeBool, RawValue: "true"}
	v, err := b.Bool()
	if err != nil {
		t.Fatalf("Bool() failed: %v", err)
	}
	if !v {
		t.Error("Bool() = false, want true")
	}
}

func TestSettingTypeMismatch(t *testing.T) {
	s := &Setting{Key: "k", Type: SettingTypeBool, RawValue: "true"}

	if _, err := s.Decimal(); err == nil {
		t.Error("expected error reading bool setting as decimal")
	}
	if _, err := s.Int(); err == nil {
		t.Error("expected error reading bool setting as int")
	}
	if _, err := s.Text(); err == nil {
		t.Error("expected error reading bool setting as text")
	}
}

func TestSettingBadRawValue(t *testing.T) {
	s := &Setting{Key: "k", Type: SettingTypeDecimal, RawValue: "not-a-number"}
	if _, err := s.Decimal(); err == nil {
		t.Error("expected error for unparseable decimal")
	}
}

func TestDefaultSettingsCoverKnownKeys(t *testing.T) {
	defaults := DefaultSettings()

	keys := []string{
		SettingRegistrationFee,
		SettingCommissionRate,
		SettingAutoApproveCommission,
		SettingMinWithdrawal,
		SettingMaxWithdrawal,
		SettingWithdrawalFeePercent,
		SettingMinWithdrawalFee,
	}

	for _, key := range keys {
		d, ok := defaults[key]
		if !ok {
			t.Errorf("no default for %s", key)
			continue
		}
		if d.Key != key {
			t.Errorf("default for %s carries key %s", key, d.Key)
		}
	}
}

func TestAccountValidateDebit(t *testing.T) {
	acc := &Account{Balance: decimal.NewFromInt(100)}

	if err := acc.ValidateDebit(decimal.NewFromInt(100)); err != nil {
		t.Errorf("debit to zero should be allowed, got %v", err)
	}
	if err := acc.ValidateDebit(decimal.NewFromInt(101)); err != ErrInsufficientBalance {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestAccountHasReferrer(t *testing.T) {
	referrer := "ref-1"
	empty := ""

	if (&Account{}).HasReferrer() {
		t.Error("nil referrer should report false")
	}
	if (&Account{ReferrerID: &empty}).HasReferrer() {
		t.Error("empty referrer should report false")
	}
	if !(&Account{ReferrerID: &referrer}).HasReferrer() {
		t.Error("set referrer should report true")
	}
}
