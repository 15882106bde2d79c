package application

import (
	"time"

	"demesne/contexts/realm-economy/treasury-service/domain/entities"
)

const (
	// DefaultReputationFloor is the minimum standing required for a share.
	DefaultReputationFloor int64 = 0

	// DefaultCheckInWindow bounds how stale a subject's last check-in may be
	// before they stop qualifying for payouts.
	DefaultCheckInWindow = 7 * 24 * time.Hour
)

// StandardEligibility is the default eligibility predicate: not the ruler,
// reputation at or above the floor, and a check-in within the window.
// A zero CheckInWindow disables the check-in requirement.
type StandardEligibility struct {
	ReputationFloor int64
	CheckInWindow   time.Duration
	Now             func() time.Time
}

func (e StandardEligibility) IsEligible(subject entities.SubjectSnapshot, settlement entities.Settlement) bool {
	if subject.PlayerID == settlement.RulerID {
		return false
	}
	if subject.Reputation < e.ReputationFloor {
		return false
	}
	if e.CheckInWindow > 0 {
		if subject.LastCheckInAt.IsZero() {
			return false
		}
		now := time.Now().UTC()
		if e.Now != nil {
			now = e.Now()
		}
		if now.Sub(subject.LastCheckInAt) > e.CheckInWindow {
			return false
		}
	}
	return true
}

// StandardMerit weighs a subject by reputation plus skill total, floored at
// zero. Zero-merit subjects are excluded from payouts by the engine.
type StandardMerit struct{}

func (StandardMerit) MeritScore(subject entities.SubjectSnapshot, _ string) int64 {
	score := subject.Reputation + subject.SkillTotal
	if score < 0 {
		return 0
	}
	return score
}
