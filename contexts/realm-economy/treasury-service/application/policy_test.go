package application

import (
	"testing"
	"time"

	"demesne/contexts/realm-economy/treasury-service/domain/entities"
)

func TestStandardEligibility(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	policy := StandardEligibility{
		ReputationFloor: 10,
		CheckInWindow:   7 * 24 * time.Hour,
		Now:             func() time.Time { return now },
	}
	settlement := entities.Settlement{ID: "settlement-1", RulerID: "ruler-1"}

	cases := []struct {
		name    string
		subject entities.SubjectSnapshot
		want    bool
	}{
		{
			name: "qualifying subject",
			subject: entities.SubjectSnapshot{
				PlayerID:      "player-1",
				Reputation:    10,
				LastCheckInAt: now.Add(-time.Hour),
			},
			want: true,
		},
		{
			name: "ruler is excluded",
			subject: entities.SubjectSnapshot{
				PlayerID:      "ruler-1",
				Reputation:    100,
				LastCheckInAt: now,
			},
			want: false,
		},
		{
			name: "reputation below floor",
			subject: entities.SubjectSnapshot{
				PlayerID:      "player-2",
				Reputation:    9,
				LastCheckInAt: now,
			},
			want: false,
		},
		{
			name: "check-in outside window",
			subject: entities.SubjectSnapshot{
				PlayerID:      "player-3",
				Reputation:    50,
				LastCheckInAt: now.Add(-8 * 24 * time.Hour),
			},
			want: false,
		},
		{
			name: "never checked in",
			subject: entities.SubjectSnapshot{
				PlayerID:   "player-4",
				Reputation: 50,
			},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.IsEligible(tc.subject, settlement); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestStandardEligibilityZeroWindowDisablesCheckIn(t *testing.T) {
	policy := StandardEligibility{}
	subject := entities.SubjectSnapshot{PlayerID: "player-1"}
	settlement := entities.Settlement{ID: "settlement-1", RulerID: "ruler-1"}
	if !policy.IsEligible(subject, settlement) {
		t.Fatalf("zero window should not require a check-in")
	}
}

func TestStandardMeritScore(t *testing.T) {
	scorer := StandardMerit{}

	got := scorer.MeritScore(entities.SubjectSnapshot{Reputation: 30, SkillTotal: 12}, "settlement-1")
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}

	got = scorer.MeritScore(entities.SubjectSnapshot{Reputation: -20, SkillTotal: 5}, "settlement-1")
	if got != 0 {
		t.Fatalf("negative totals clamp to zero, got %d", got)
	}
}
