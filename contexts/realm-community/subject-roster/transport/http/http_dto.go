package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterSubjectRequest struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Attack     int64  `json:"attack"`
	Defense    int64  `json:"defense"`
	Leadership int64  `json:"leadership"`
	Building   int64  `json:"building"`
}

type TrainSkillsRequest struct {
	Attack     int64 `json:"attack"`
	Defense    int64 `json:"defense"`
	Leadership int64 `json:"leadership"`
	Building   int64 `json:"building"`
}

type AdjustReputationRequest struct {
	Delta int64 `json:"delta"`
}

type SubjectDTO struct {
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name"`
	Attack      int64  `json:"attack"`
	Defense     int64  `json:"defense"`
	Leadership  int64  `json:"leadership"`
	Building    int64  `json:"building"`
	SkillTotal  int64  `json:"skill_total"`
	GoldBalance int64  `json:"gold_balance"`
	CreatedAt   string `json:"created_at"`
}

type StandingDTO struct {
	SettlementID  string `json:"settlement_id"`
	PlayerID      string `json:"player_id"`
	Reputation    int64  `json:"reputation"`
	LastCheckInAt string `json:"last_check_in_at,omitempty"`
	JoinedAt      string `json:"joined_at"`
}

type RosterEntryDTO struct {
	Subject  SubjectDTO  `json:"subject"`
	Standing StandingDTO `json:"standing"`
}

type RosterResponse struct {
	SettlementID string           `json:"settlement_id"`
	Entries      []RosterEntryDTO `json:"entries"`
}
