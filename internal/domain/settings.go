package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Setting keys consumed by the settlement core. Values are
// operator-editable at runtime; readers must not cache them beyond a
// short TTL.
const (
	SettingRegistrationFee       = "registration_fee"
	SettingCommissionRate        = "referral_commission_rate"
	SettingAutoApproveCommission = "auto_approve_referral_commissions"
	SettingMinWithdrawal         = "minimum_withdrawal_amount"
	SettingMaxWithdrawal         = "maximum_withdrawal_amount"
	SettingWithdrawalFeePercent  = "withdrawal_fee_percentage"
	SettingMinWithdrawalFee      = "minimum_withdrawal_fee"
)

// SettingType tags which concrete value a Setting row carries.
type SettingType string

const (
	SettingTypeDecimal SettingType = "decimal"
	SettingTypeInt     SettingType = "int"
	SettingTypeBool    SettingType = "bool"
	SettingTypeText    SettingType = "text"
)

// Setting is one dynamic configuration row. The raw value is stored as
// text with a type tag and converted by a typed getter the moment it is
// read; it is never passed around untyped.
type Setting struct {
	Key       string
	Type      SettingType
	RawValue  string
	UpdatedAt time.Time
	UpdatedBy string
}

// Decimal converts the setting to a decimal value.
func (s *Setting) Decimal() (decimal.Decimal, error) {
	if s.Type != SettingTypeDecimal {
		return decimal.Zero, fmt.Errorf("setting %s has type %s, not decimal", s.Key, s.Type)
	}
	return decimal.NewFromString(s.RawValue)
}

// Int converts the setting to an int value.
func (s *Setting) Int() (int, error) {
	if s.Type != SettingTypeInt {
		return 0, fmt.Errorf("setting %s has type %s, not int", s.Key, s.Type)
	}
	return strconv.Atoi(s.RawValue)
}

// Bool converts the setting to a bool value.
func (s *Setting) Bool() (bool, error) {
	if s.Type != SettingTypeBool {
		return false, fmt.Errorf("setting %s has type %s, not bool", s.Key, s.Type)
	}
	return strconv.ParseBool(s.RawValue)
}

// Text returns the setting as text.
func (s *Setting) Text() (string, error) {
	if s.Type != SettingTypeText {
		return "", fmt.Errorf("setting %s has type %s, not text", s.Key, s.Type)
	}
	return s.RawValue, nil
}

// DefaultSettings are used when a key has never been written by an
// operator.
func DefaultSettings() map[string]Setting {
	return map[string]Setting{
		SettingRegistrationFee:       {Key: SettingRegistrationFee, Type: SettingTypeDecimal, RawValue: "500.00"},
		SettingCommissionRate:        {Key: SettingCommissionRate, Type: SettingTypeDecimal, RawValue: "0.25"},
		SettingAutoApproveCommission: {Key: SettingAutoApproveCommission, Type: SettingTypeBool, RawValue: "true"},
		SettingMinWithdrawal:         {Key: SettingMinWithdrawal, Type: SettingTypeDecimal, RawValue: "100.00"},
		SettingMaxWithdrawal:         {Key: SettingMaxWithdrawal, Type: SettingTypeDecimal, RawValue: "50000.00"},
		SettingWithdrawalFeePercent:  {Key: SettingWithdrawalFeePercent, Type: SettingTypeDecimal, RawValue: "0.02"},
		SettingMinWithdrawalFee:      {Key: SettingMinWithdrawalFee, Type: SettingTypeDecimal, RawValue: "1.00"},
	}
}
