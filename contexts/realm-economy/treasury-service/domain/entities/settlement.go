package entities

import "time"

const (
	// CooldownPeriod is the minimum interval between distribution attempts
	// for a settlement. Both the gate check and the no-eligible path advance
	// LastDistributionAt, so the window is spent at most once per attempt.
	CooldownPeriod = 23 * time.Hour

	// HistoryCapacity bounds the per-settlement distribution log.
	HistoryCapacity = 30

	MinRewardRate = 0
	MaxRewardRate = 100
)

type Settlement struct {
	ID                      string
	Name                    string
	RulerID                 string
	TreasuryGold            int64
	TotalRewardsDistributed int64
	PendingRewardPool       int64
	SubjectRewardRate       int
	LastDistributionAt      time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// CanDistribute reports whether the cooldown gate is open at now.
// Pure; the timestamp is only advanced by the distribution engine.
func (s Settlement) CanDistribute(now time.Time) bool {
	if s.LastDistributionAt.IsZero() {
		return true
	}
	return now.Sub(s.LastDistributionAt) >= CooldownPeriod
}

// RemainingCooldown returns how long until the gate opens, zero if open.
func (s Settlement) RemainingCooldown(now time.Time) time.Duration {
	if s.CanDistribute(now) {
		return 0
	}
	return s.LastDistributionAt.Add(CooldownPeriod).Sub(now)
}

// ClampRewardRate bounds a requested subject reward rate to [0, 100].
func ClampRewardRate(rate int) int {
	if rate < MinRewardRate {
		return MinRewardRate
	}
	if rate > MaxRewardRate {
		return MaxRewardRate
	}
	return rate
}
