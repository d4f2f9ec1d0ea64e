package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database
	// transaction. Settlement transactions are expected to finish in
	// well under 100ms; this is a hard stop, not a target.
	DefaultTransactionTimeout = 10 * time.Second

	// SettingsCacheTTL bounds how stale a dynamic setting may be.
	SettingsCacheTTL = 2 * time.Minute

	// DefaultPendingIntentTTL is how long an intent may sit pending
	// before the sweep times it out.
	DefaultPendingIntentTTL = 15 * time.Minute

	// SweepBatchSize limits how many pending intents one sweep pass
	// touches.
	SweepBatchSize = 100

	// DefaultAwaitInterval is the pause between bounded status polls.
	DefaultAwaitInterval = 3 * time.Second

	// DefaultAwaitAttempts bounds a single status await. Exhaustion
	// reports a timeout to the caller; the intent itself stays pending.
	DefaultAwaitAttempts = 10
)
