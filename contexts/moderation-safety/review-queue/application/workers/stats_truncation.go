package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"triage/contexts/moderation-safety/review-queue/application"
	"triage/contexts/moderation-safety/review-queue/ports"
)

// StatsTruncationConsumer prunes per-user flag counters for actors whose
// lifetime totals crossed the truncation threshold. Processing is idempotent:
// re-truncating an already-pruned actor is a no-op.
type StatsTruncationConsumer struct {
	Subscriber    ports.EventSubscriber
	Stats         ports.UserStatsStore
	ConsumerGroup string
	DefaultKeep   int
	Logger        *slog.Logger
}

type truncatePayload struct {
	UserIDs []string `json:"user_ids"`
	Keep    int      `json:"keep"`
}

func (c StatsTruncationConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = "review-queue-stats-truncation-cg"
	}
	return c.Subscriber.Subscribe(ctx, application.TopicStatsTruncate, group, c.handle)
}

func (c StatsTruncationConsumer) handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	var payload truncatePayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("stats truncation decode failed",
			"event", "review_stats_truncate_decode_failed",
			"module", "moderation-safety/review-queue",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	keep := payload.Keep
	if keep <= 0 {
		keep = c.DefaultKeep
	}
	if keep <= 0 {
		keep = 100
	}

	truncated := 0
	for _, userID := range payload.UserIDs {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		if err := c.Stats.TruncateFlagStats(ctx, userID, keep); err != nil {
			logger.Error("stats truncation failed",
				"event", "review_stats_truncate_failed",
				"module", "moderation-safety/review-queue",
				"layer", "worker",
				"event_id", event.EventID,
				"user_id", userID,
				"error", err.Error(),
			)
			return err
		}
		truncated++
	}
	logger.Info("stats truncation completed",
		"event", "review_stats_truncate_completed",
		"module", "moderation-safety/review-queue",
		"layer", "worker",
		"event_id", event.EventID,
		"user_count", truncated,
	)
	return nil
}
