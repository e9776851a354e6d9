package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
	"triage/contexts/moderation-safety/review-queue/ports"
)

// Scoring recomputes aggregate reviewable scores and maintains per-user flag
// counters. It only runs as an effect of the transition engine or the signal
// intake, never on its own schedule.
type Scoring struct {
	Reviewables       ports.ReviewableRepository
	Scores            ports.ScoreRepository
	Stats             ports.UserStatsStore
	Outbox            ports.EventOutbox
	IDGen             ports.IDGenerator
	Clock             ports.Clock
	TruncateThreshold int
	TruncateKeep      int
	Logger            *slog.Logger
}

// Recalculate sets the aggregate score to the sum of still-pending
// contributing weights. It affects ranking/visibility only; status changes
// stay with the transition engine.
func (s Scoring) Recalculate(ctx context.Context, reviewableID string) error {
	scores, err := s.Scores.ListScores(ctx, reviewableID)
	if err != nil {
		return err
	}
	total := 0.0
	var latest time.Time
	for _, score := range scores {
		if score.Disposition == entities.DispositionPending {
			total += score.Weight
		}
		if score.CreatedAt.After(latest) {
			latest = score.CreatedAt
		}
	}
	if err := s.Reviewables.UpdateScore(ctx, reviewableID, total, latest.UTC()); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Debug("reviewable score recalculated",
		"event", "review_score_recalculated",
		"module", "moderation-safety/review-queue",
		"layer", "application",
		"reviewable_id", reviewableID,
		"score", total,
	)
	return nil
}

// UpdateFlagStats increments the per-actor counter bucket for the resolved
// outcome. The target's own author never counts (self-flag guard), and actors
// whose lifetime totals cross the truncation threshold are scheduled for
// asynchronous counter pruning.
func (s Scoring) UpdateFlagStats(
	ctx context.Context,
	outcome entities.ScoreDisposition,
	userIDs []string,
	excludeUserID string,
) error {
	switch outcome {
	case entities.DispositionAgreed, entities.DispositionDisagreed, entities.DispositionIgnored:
	default:
		return nil
	}

	seen := make(map[string]struct{}, len(userIDs))
	eligible := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		userID = strings.TrimSpace(userID)
		if userID == "" || userID == strings.TrimSpace(excludeUserID) {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		eligible = append(eligible, userID)
	}
	if len(eligible) == 0 {
		return nil
	}

	now := s.now()
	totals, err := s.Stats.IncrementFlagStats(ctx, outcome, eligible, now)
	if err != nil {
		return err
	}

	overdue := make([]string, 0, len(totals))
	for _, total := range totals {
		if total.Total > s.truncateThreshold() {
			overdue = append(overdue, total.UserID)
		}
	}
	if len(overdue) == 0 {
		return nil
	}
	s.scheduleTruncation(ctx, overdue, now)
	return nil
}

// scheduleTruncation is fire-and-forget: a failed enqueue loses nothing but a
// cleanup opportunity and must not fail the transition that triggered it.
func (s Scoring) scheduleTruncation(ctx context.Context, userIDs []string, now time.Time) {
	logger := ResolveLogger(s.Logger)
	if s.Outbox == nil {
		return
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		logger.Warn("stats truncation id generation failed",
			"event", "review_stats_truncate_enqueue_failed",
			"module", "moderation-safety/review-queue",
			"layer", "application",
			"error", err.Error(),
		)
		return
	}
	envelope, err := newReviewEnvelope(eventID, TopicStatsTruncate, userIDs[0], now, map[string]any{
		"user_ids": userIDs,
		"keep":     s.truncateKeep(),
	})
	if err != nil {
		logger.Warn("stats truncation envelope build failed",
			"event", "review_stats_truncate_enqueue_failed",
			"module", "moderation-safety/review-queue",
			"layer", "application",
			"error", err.Error(),
		)
		return
	}
	if err := s.Outbox.AppendOutbox(ctx, envelope); err != nil {
		logger.Warn("stats truncation enqueue failed",
			"event", "review_stats_truncate_enqueue_failed",
			"module", "moderation-safety/review-queue",
			"layer", "application",
			"user_count", len(userIDs),
			"error", err.Error(),
		)
		return
	}
	logger.Info("stats truncation scheduled",
		"event", "review_stats_truncate_scheduled",
		"module", "moderation-safety/review-queue",
		"layer", "application",
		"user_count", len(userIDs),
	)
}

func (s Scoring) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (s Scoring) truncateThreshold() int {
	if s.TruncateThreshold <= 0 {
		return 100
	}
	return s.TruncateThreshold
}

func (s Scoring) truncateKeep() int {
	if s.TruncateKeep <= 0 {
		return 100
	}
	return s.TruncateKeep
}
