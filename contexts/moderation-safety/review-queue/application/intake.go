package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	"triage/contexts/moderation-safety/review-queue/ports"
)

// SignalCommand is one incoming review signal, typically a flag on a piece of
// content or a queued item awaiting approval.
type SignalCommand struct {
	Type       entities.ReviewableType
	TargetID   string
	TargetType string
	UserID     string
	ScoreType  entities.ScoreType
	Payload    map[string]string
}

// Intake turns signals into queue entries. The (type, target_id) uniqueness
// invariant lives here: the first signal creates the reviewable, every later
// one attaches another contributing score to the open entry.
type Intake struct {
	Reviewables ports.ReviewableRepository
	Scores      ports.ScoreRepository
	Targets     ports.TargetStore
	Catalog     *Catalog
	Scoring     Scoring
	UnitOfWork  ports.UnitOfWork
	Outbox      ports.EventOutbox
	IDGen       ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (i Intake) SubmitSignal(ctx context.Context, cmd SignalCommand) (entities.Reviewable, error) {
	logger := ResolveLogger(i.Logger)
	cmd.TargetID = strings.TrimSpace(cmd.TargetID)
	cmd.TargetType = strings.TrimSpace(cmd.TargetType)
	cmd.UserID = strings.TrimSpace(cmd.UserID)
	if cmd.TargetID == "" || cmd.UserID == "" || cmd.ScoreType == "" {
		return entities.Reviewable{}, domainerrors.ErrInvalidSignal
	}
	if !i.Catalog.KnownType(cmd.Type) {
		return entities.Reviewable{}, domainerrors.ErrInvalidType
	}

	target, found, err := i.Targets.GetTarget(ctx, cmd.TargetType, cmd.TargetID)
	if err != nil {
		return entities.Reviewable{}, err
	}
	if !found {
		return entities.Reviewable{}, domainerrors.ErrTargetMissing
	}

	now := i.now()
	var reviewable entities.Reviewable
	created := false
	err = i.UnitOfWork.WithinTransaction(ctx, func(txCtx context.Context) error {
		existing, open, err := i.Reviewables.GetOpenByTarget(txCtx, cmd.Type, cmd.TargetID)
		if err != nil {
			return err
		}
		if open {
			reviewable = existing
		} else {
			reviewableID, err := i.IDGen.NewID(txCtx)
			if err != nil {
				return err
			}
			candidate := entities.Reviewable{
				ReviewableID:          reviewableID,
				Type:                  cmd.Type,
				Status:                entities.StatusPending,
				Version:               0,
				TargetID:              cmd.TargetID,
				TargetType:            cmd.TargetType,
				CreatedByID:           cmd.UserID,
				TargetCreatedByID:     target.CreatedByID,
				ReviewableByModerator: true,
				Payload:               cmd.Payload,
				CreatedAt:             now,
				UpdatedAt:             now,
			}
			reviewable, err = i.Reviewables.CreateReviewable(txCtx, candidate)
			if err != nil {
				// A concurrent signal may have opened the entry first; attach
				// to it instead of failing the caller.
				if errors.Is(err, domainerrors.ErrDuplicateTarget) {
					raced, open, raceErr := i.Reviewables.GetOpenByTarget(txCtx, cmd.Type, cmd.TargetID)
					if raceErr != nil {
						return raceErr
					}
					if !open {
						return err
					}
					reviewable = raced
				} else {
					return err
				}
			} else {
				created = true
			}
		}

		scoreID, err := i.IDGen.NewID(txCtx)
		if err != nil {
			return err
		}
		if err := i.Scores.AppendScore(txCtx, entities.ReviewableScore{
			ScoreID:      scoreID,
			ReviewableID: reviewable.ReviewableID,
			UserID:       cmd.UserID,
			ScoreType:    cmd.ScoreType,
			Weight:       cmd.ScoreType.Weight(),
			Disposition:  entities.DispositionPending,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		if err := i.Scoring.Recalculate(txCtx, reviewable.ReviewableID); err != nil {
			return err
		}
		reviewable, err = i.Reviewables.GetReviewable(txCtx, reviewable.ReviewableID)
		return err
	})
	if err != nil {
		logger.Warn("review signal rejected",
			"event", "review_signal_rejected",
			"module", "moderation-safety/review-queue",
			"layer", "application",
			"target_id", cmd.TargetID,
			"user_id", cmd.UserID,
			"error", err.Error(),
		)
		return entities.Reviewable{}, err
	}

	topic := TopicReviewableScored
	if created {
		topic = TopicReviewableCreated
	}
	i.emitSignalEvent(ctx, topic, reviewable, cmd, now)

	logger.Info("review signal accepted",
		"event", "review_signal_accepted",
		"module", "moderation-safety/review-queue",
		"layer", "application",
		"reviewable_id", reviewable.ReviewableID,
		"target_id", cmd.TargetID,
		"user_id", cmd.UserID,
		"score_type", string(cmd.ScoreType),
		"score", reviewable.Score,
	)
	return reviewable, nil
}

func (i Intake) emitSignalEvent(
	ctx context.Context,
	topic string,
	reviewable entities.Reviewable,
	cmd SignalCommand,
	occurredAt time.Time,
) {
	if i.Outbox == nil {
		return
	}
	logger := ResolveLogger(i.Logger)
	eventID, err := i.IDGen.NewID(ctx)
	if err != nil {
		logger.Warn("signal event id generation failed",
			"event", "review_signal_event_failed",
			"module", "moderation-safety/review-queue",
			"layer", "application",
			"reviewable_id", reviewable.ReviewableID,
			"error", err.Error(),
		)
		return
	}
	envelope, err := newReviewEnvelope(eventID, topic, reviewable.ReviewableID, occurredAt, map[string]any{
		"reviewable_id": reviewable.ReviewableID,
		"type":          string(reviewable.Type),
		"target_id":     reviewable.TargetID,
		"user_id":       cmd.UserID,
		"score_type":    string(cmd.ScoreType),
		"score":         reviewable.Score,
	})
	if err != nil {
		logger.Warn("signal event build failed",
			"event", "review_signal_event_failed",
			"module", "moderation-safety/review-queue",
			"layer", "application",
			"reviewable_id", reviewable.ReviewableID,
			"error", err.Error(),
		)
		return
	}
	if err := i.Outbox.AppendOutbox(ctx, envelope); err != nil {
		logger.Warn("signal event append failed",
			"event", "review_signal_event_failed",
			"module", "moderation-safety/review-queue",
			"layer", "application",
			"reviewable_id", reviewable.ReviewableID,
			"error", err.Error(),
		)
	}
}

func (i Intake) now() time.Time {
	if i.Clock != nil {
		return i.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
