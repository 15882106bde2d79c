package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type FoundSettlementRequest struct {
	Name            string `json:"name"`
	RulerID         string `json:"ruler_id"`
	InitialTreasury int64  `json:"initial_treasury"`
}

type AccrueIncomeRequest struct {
	Amount int64 `json:"amount"`
}

type SetRewardRateRequest struct {
	Rate int `json:"rate"`
}

type SettlementDTO struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	RulerID                 string `json:"ruler_id"`
	TreasuryGold            int64  `json:"treasury_gold"`
	TotalRewardsDistributed int64  `json:"total_rewards_distributed"`
	PendingRewardPool       int64  `json:"pending_reward_pool"`
	SubjectRewardRate       int    `json:"subject_reward_rate"`
	LastDistributionAt      string `json:"last_distribution_at,omitempty"`
	CreatedAt               string `json:"created_at"`
	UpdatedAt               string `json:"updated_at"`
}

type RecipientDTO struct {
	PlayerID     string `json:"player_id"`
	PlayerName   string `json:"player_name"`
	GoldReceived int64  `json:"gold_received"`
	MeritScore   int64  `json:"merit_score"`
	Reputation   int64  `json:"reputation"`
	SkillTotal   int64  `json:"skill_total"`
}

type DistributionRecordDTO struct {
	ID           string         `json:"id"`
	SettlementID string         `json:"settlement_id"`
	TotalPool    int64          `json:"total_pool"`
	Recipients   []RecipientDTO `json:"recipients"`
	OccurredAt   string         `json:"occurred_at"`
}

type DistributeResponse struct {
	Distributed   bool                   `json:"distributed"`
	EligibleCount int                    `json:"eligible_count"`
	NextAttemptAt string                 `json:"next_attempt_at"`
	Record        *DistributionRecordDTO `json:"record,omitempty"`
}

type CooldownResponse struct {
	Open             bool   `json:"open"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	NextAttemptAt    string `json:"next_attempt_at,omitempty"`
}

type HistoryResponse struct {
	SettlementID string                  `json:"settlement_id"`
	Records      []DistributionRecordDTO `json:"records"`
}

type EstimatedShareResponse struct {
	SettlementID   string `json:"settlement_id"`
	PlayerID       string `json:"player_id"`
	EstimatedShare int64  `json:"estimated_share"`
}
