package entities

import "time"

// SubjectSnapshot is the read model the treasury receives from the roster.
// The treasury never owns subjects; records keep identifiers and copied stats.
type SubjectSnapshot struct {
	PlayerID      string
	PlayerName    string
	Reputation    int64
	SkillTotal    int64
	LastCheckInAt time.Time
}

// RecipientRecord is an audit snapshot of why a share was paid, independent
// of later changes to the subject's live stats. Immutable once created.
type RecipientRecord struct {
	PlayerID     string
	PlayerName   string
	GoldReceived int64
	MeritScore   int64
	Reputation   int64
	SkillTotal   int64
}

// DistributionRecord describes one completed payout round.
// TotalPool is the gold actually disbursed (the sum of floored shares),
// never the nominal pool. Immutable once created.
type DistributionRecord struct {
	ID           string
	SettlementID string
	TotalPool    int64
	Recipients   []RecipientRecord
	OccurredAt   time.Time
}
