package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	"triage/contexts/moderation-safety/review-queue/ports"
)

// TransitionEngine applies named actions to reviewables under optimistic
// version control. It is the only component allowed to move status/version.
type TransitionEngine struct {
	Reviewables ports.ReviewableRepository
	Targets     ports.TargetStore
	Guardian    ports.Guardian
	Catalog     *Catalog
	Scoring     Scoring
	UnitOfWork  ports.UnitOfWork
	Outbox      ports.EventOutbox
	IDGen       ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

// Perform executes one action against the expected version. Version conflicts
// and unoffered actions are the only caller-retryable failures; everything
// inside the unit of work commits atomically or not at all.
func (e TransitionEngine) Perform(
	ctx context.Context,
	actor entities.Actor,
	reviewableID string,
	actionID string,
	expectedVersion int,
	args map[string]string,
) (entities.PerformResult, error) {
	logger := ResolveLogger(e.Logger)
	reviewableID = strings.TrimSpace(reviewableID)
	actionID = strings.TrimSpace(actionID)
	logger.Info("reviewable transition started",
		"event", "review_transition_started",
		"module", "moderation-safety/review-queue",
		"layer", "application",
		"reviewable_id", reviewableID,
		"action_id", actionID,
		"actor_id", actor.UserID,
		"expected_version", expectedVersion,
	)
	if reviewableID == "" || actionID == "" {
		return entities.PerformResult{}, domainerrors.ErrInvalidAction
	}
	if expectedVersion < 0 {
		return entities.PerformResult{}, domainerrors.ErrVersionRequired
	}

	var (
		result     entities.PerformResult
		reviewable entities.Reviewable
	)
	err := e.UnitOfWork.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		reviewable, err = e.Reviewables.GetReviewable(txCtx, reviewableID)
		if err != nil {
			return err
		}
		if e.Guardian != nil && !e.Guardian.CanSeeReviewable(actor, reviewable) {
			// Invisible entities report as absent so existence never leaks.
			return domainerrors.ErrReviewableNotFound
		}
		if reviewable.Version != expectedVersion {
			return domainerrors.ErrUpdateConflict
		}

		target, targetFound, err := e.Targets.GetTarget(txCtx, reviewable.TargetType, reviewable.TargetID)
		if err != nil {
			return err
		}
		actions := e.Catalog.ActionsFor(reviewable, target, targetFound, actor)
		if !actions.Has(actionID) {
			return domainerrors.ErrInvalidAction
		}
		handler, ok := e.Catalog.HandlerFor(reviewable.Type)
		if !ok {
			return domainerrors.ErrInvalidAction
		}

		handled, err := handler.Perform(txCtx, PerformRequest{
			Reviewable:  reviewable,
			Target:      target,
			TargetFound: targetFound,
			Actor:       actor,
			ActionID:    actionID,
			Args:        args,
		})
		if err != nil {
			return err
		}

		toStatus := handled.Outcome.StatusFor()
		newVersion, err := e.Reviewables.UpdateTransition(txCtx, reviewableID, toStatus, expectedVersion, e.now())
		if err != nil {
			return err
		}
		if handled.RecalculateScore {
			if err := e.Scoring.Recalculate(txCtx, reviewableID); err != nil {
				return err
			}
		}
		result = entities.PerformResult{
			Success:          true,
			Outcome:          handled.Outcome,
			TransitionTo:     toStatus,
			Version:          newVersion,
			RecalculateScore: handled.RecalculateScore,
			RemoveFromQueue:  toStatus != entities.StatusPending,
		}
		return nil
	})
	if err != nil {
		logger.Warn("reviewable transition failed",
			"event", "review_transition_failed",
			"module", "moderation-safety/review-queue",
			"layer", "application",
			"reviewable_id", reviewableID,
			"action_id", actionID,
			"actor_id", actor.UserID,
			"error", err.Error(),
		)
		return entities.PerformResult{}, err
	}

	e.emitTransitionEvents(ctx, reviewable, actor, actionID, result)

	logger.Info("reviewable transition applied",
		"event", "review_transition_applied",
		"module", "moderation-safety/review-queue",
		"layer", "application",
		"reviewable_id", reviewableID,
		"action_id", actionID,
		"actor_id", actor.UserID,
		"outcome", string(result.Outcome),
		"version", result.Version,
	)
	return result, nil
}

// emitTransitionEvents publishes domain events after the commit. The event
// path sits outside the transactional boundary: a failed append is logged
// and never rolls back a moderation decision.
func (e TransitionEngine) emitTransitionEvents(
	ctx context.Context,
	reviewable entities.Reviewable,
	actor entities.Actor,
	actionID string,
	result entities.PerformResult,
) {
	if e.Outbox == nil {
		return
	}
	logger := ResolveLogger(e.Logger)
	now := e.now()
	data := map[string]any{
		"reviewable_id": reviewable.ReviewableID,
		"type":          string(reviewable.Type),
		"target_id":     reviewable.TargetID,
		"action_id":     actionID,
		"actor_id":      actor.UserID,
		"outcome":       string(result.Outcome),
		"version":       result.Version,
	}
	for _, topic := range []string{TopicReviewableReviewed, outcomeTopic(result.Outcome)} {
		eventID, err := e.IDGen.NewID(ctx)
		if err != nil {
			logger.Warn("transition event id generation failed",
				"event", "review_transition_event_failed",
				"module", "moderation-safety/review-queue",
				"layer", "application",
				"reviewable_id", reviewable.ReviewableID,
				"topic", topic,
				"error", err.Error(),
			)
			return
		}
		envelope, err := newReviewEnvelope(eventID, topic, reviewable.ReviewableID, now, data)
		if err != nil {
			logger.Warn("transition event build failed",
				"event", "review_transition_event_failed",
				"module", "moderation-safety/review-queue",
				"layer", "application",
				"reviewable_id", reviewable.ReviewableID,
				"topic", topic,
				"error", err.Error(),
			)
			return
		}
		if err := e.Outbox.AppendOutbox(ctx, envelope); err != nil {
			logger.Warn("transition event append failed",
				"event", "review_transition_event_failed",
				"module", "moderation-safety/review-queue",
				"layer", "application",
				"reviewable_id", reviewable.ReviewableID,
				"topic", topic,
				"error", err.Error(),
			)
		}
	}
}

func (e TransitionEngine) now() time.Time {
	if e.Clock != nil {
		return e.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
