package domain

import "strings"

// FormatPhone normalizes a Kenyan mobile number to the 254XXXXXXXXX
// form the gateway expects.
func FormatPhone(phone string) string {
	r := strings.NewReplacer(" ", "", "-", "", "+", "")
	phone = r.Replace(phone)

	switch {
	case strings.HasPrefix(phone, "0"):
		return "254" + phone[1:]
	case strings.HasPrefix(phone, "254"):
		return phone
	case strings.HasPrefix(phone, "7"), strings.HasPrefix(phone, "1"):
		return "254" + phone
	default:
		return "254" + phone
	}
}

// ValidPhone reports whether phone normalizes to a valid Kenyan mobile
// number.
func ValidPhone(phone string) bool {
	f := FormatPhone(phone)
	if len(f) != 12 || !strings.HasPrefix(f, "254") {
		return false
	}
	return f[3] == '7' || f[3] == '1'
}
