package entities

import "time"

// Subject is a player known to the realm, with the four trainable skills
// and the gold wallet payouts are credited to.
type Subject struct {
	PlayerID    string
	PlayerName  string
	Attack      int64
	Defense     int64
	Leadership  int64
	Building    int64
	GoldBalance int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SkillTotal is the combined skill weight used by merit scoring.
func (s Subject) SkillTotal() int64 {
	return s.Attack + s.Defense + s.Leadership + s.Building
}

// Standing ties a subject to one settlement: reputation earned there and
// the last time they checked in. A subject may hold standings in several
// settlements at once.
type Standing struct {
	SettlementID  string
	PlayerID      string
	Reputation    int64
	LastCheckInAt time.Time
	JoinedAt      time.Time
}
