package errors

import "errors"

var (
	ErrSettlementNotFound   = errors.New("settlement not found")
	ErrSettlementExists     = errors.New("settlement already exists")
	ErrNotAuthorized        = errors.New("acting player does not control this settlement")
	ErrCooldownActive       = errors.New("distribution cooldown has not elapsed")
	ErrEmptyRewardPool      = errors.New("pending reward pool is empty")
	ErrInsufficientTreasury = errors.New("reward pool exceeds treasury balance")
	ErrDistributionBusy     = errors.New("another distribution is in progress for this settlement")
	ErrInvalidTreasuryInput = errors.New("invalid treasury input")
)
