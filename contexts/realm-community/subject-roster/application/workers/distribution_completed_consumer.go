package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	domainerrors "demesne/contexts/realm-community/subject-roster/domain/errors"
	"demesne/contexts/realm-community/subject-roster/ports"
)

const (
	distributionCompletedTopic     = "treasury.distribution.completed"
	defaultPayoutConsumerGroupName = "subject-roster-payout-cg"
)

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

type payoutPayload struct {
	SettlementID string   `json:"settlement_id"`
	RecordID     string   `json:"record_id"`
	Recipients   []string `json:"recipients"`
}

// DistributionCompletedConsumer refreshes recipient standings when a payout
// lands: receiving a share counts as settlement activity, so each recipient's
// check-in moves to the payout time. Replays converge on the same timestamp.
type DistributionCompletedConsumer struct {
	Subscriber    ports.EventSubscriber
	Repo          ports.Repository
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c DistributionCompletedConsumer) Start(ctx context.Context) error {
	logger := resolveLogger(c.Logger)
	group := c.ConsumerGroup
	if group == "" {
		group = defaultPayoutConsumerGroupName
	}
	if err := c.Subscriber.Subscribe(ctx, distributionCompletedTopic, group, c.handle); err != nil {
		logger.Error("payout consumer subscribe failed",
			"event", "roster_payout_consumer_subscribe_failed",
			"module", "realm-community/subject-roster",
			"layer", "worker",
			"topic", distributionCompletedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("payout consumer subscribed",
		"event", "roster_payout_consumer_subscribed",
		"module", "realm-community/subject-roster",
		"layer", "worker",
		"topic", distributionCompletedTopic,
		"consumer_group", group,
	)
	return nil
}

func (c DistributionCompletedConsumer) handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := resolveLogger(c.Logger)
	var payload payoutPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("payout event decode failed",
			"event", "roster_payout_decode_failed",
			"module", "realm-community/subject-roster",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if payload.SettlementID == "" || len(payload.Recipients) == 0 {
		logger.Warn("payout payload invalid",
			"event", "roster_payout_payload_invalid",
			"module", "realm-community/subject-roster",
			"layer", "worker",
			"event_id", event.EventID,
			"has_settlement_id", payload.SettlementID != "",
			"recipient_count", len(payload.Recipients),
		)
		return domainerrors.ErrInvalidRosterInput
	}

	touched := 0
	for _, playerID := range payload.Recipients {
		err := c.Repo.TouchCheckIn(ctx, payload.SettlementID, playerID, event.OccurredAt)
		if err != nil {
			// A recipient may have left the settlement between payout and
			// delivery; their standing is gone and the event moves on.
			if errors.Is(err, domainerrors.ErrStandingNotFound) {
				logger.Warn("payout recipient standing missing",
					"event", "roster_payout_standing_missing",
					"module", "realm-community/subject-roster",
					"layer", "worker",
					"event_id", event.EventID,
					"settlement_id", payload.SettlementID,
					"player_id", playerID,
				)
				continue
			}
			logger.Error("payout standing refresh failed",
				"event", "roster_payout_refresh_failed",
				"module", "realm-community/subject-roster",
				"layer", "worker",
				"event_id", event.EventID,
				"settlement_id", payload.SettlementID,
				"player_id", playerID,
				"error", err.Error(),
			)
			return err
		}
		touched++
	}

	logger.Info("payout standings refreshed",
		"event", "roster_payout_standings_refreshed",
		"module", "realm-community/subject-roster",
		"layer", "worker",
		"event_id", event.EventID,
		"settlement_id", payload.SettlementID,
		"record_id", payload.RecordID,
		"refreshed_count", touched,
	)
	return nil
}
