package domain

import "time"

// StatusSubject names what a status event is about.
type StatusSubject string

const (
	SubjectCollection   StatusSubject = "collection"
	SubjectDisbursement StatusSubject = "disbursement"
	SubjectWithdrawal   StatusSubject = "withdrawal"
	SubjectCommission   StatusSubject = "commission"
)

// PublicStatus is the status vocabulary shared by the push stream and
// the polling endpoint.
type PublicStatus string

const (
	StatusPending PublicStatus = "pending"
	StatusSuccess PublicStatus = "success"
	StatusFailed  PublicStatus = "failed"
	StatusTimeout PublicStatus = "timeout"
)

// StatusEvent is a best-effort push notification about an intent or
// withdrawal state change. The polling path, not the stream, is the
// source of truth.
type StatusEvent struct {
	AccountID string        `json:"account_id"`
	Subject   StatusSubject `json:"subject"`
	SubjectID string        `json:"subject_id"`
	Status    PublicStatus  `json:"status"`
	Message   string        `json:"message"`
	At        time.Time     `json:"at"`
}

// resultMessages maps known provider result codes to human-readable
// reasons. Unknown codes fall back to a generic message rather than
// leaking raw provider text.
var resultMessages = map[int]string{
	0:    "payment completed",
	1:    "insufficient funds on the paying account",
	17:   "unable to reach the paying phone",
	26:   "system busy, try again shortly",
	1032: "payment cancelled by user",
	1037: "payment request timed out",
}

// ResultMessage returns the user-visible reason for a provider result
// code.
func ResultMessage(code int) string {
	if msg, ok := resultMessages[code]; ok {
		return msg
	}
	return "payment failed"
}
