package handlers

import (
	"context"
	"time"

	"triage/contexts/moderation-safety/review-queue/application"
	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	"triage/contexts/moderation-safety/review-queue/ports"
)

// FlaggedPostHandler reviews posts reported by users. Agreeing upholds the
// flags, disagreeing clears them and undoes any hide, ignoring defers them
// without touching the post.
type FlaggedPostHandler struct {
	Targets ports.TargetStore
	Scores  ports.ScoreRepository
	Stats   application.Scoring
	Clock   ports.Clock
}

func (FlaggedPostHandler) Type() entities.ReviewableType {
	return entities.TypeFlaggedPost
}

func (FlaggedPostHandler) BuildActions(
	reviewable entities.Reviewable,
	target entities.Target,
	targetFound bool,
	_ entities.Actor,
) entities.ActionSet {
	var actions entities.ActionSet
	if !reviewable.Pending() || !targetFound {
		return actions
	}

	actions.Add(entities.Action{ID: "agree_and_keep", Icon: "thumbs-up"})

	if target.UserDeleted {
		actions.Add(entities.Action{ID: "agree_and_restore", Icon: "far-eye"})
	} else if !target.Hidden {
		actions.Add(entities.Action{ID: "agree_and_hide", Icon: "far-eye-slash"})
	}

	if target.Hidden {
		actions.Add(entities.Action{ID: "disagree_and_restore", Icon: "thumbs-down"})
	} else {
		actions.Add(entities.Action{ID: "disagree", Icon: "thumbs-down"})
	}

	actions.Add(entities.Action{ID: "ignore", Icon: "external-link-alt"})
	return actions
}

func (h FlaggedPostHandler) Perform(ctx context.Context, req application.PerformRequest) (application.HandlerResult, error) {
	switch req.ActionID {
	case "agree_and_keep":
		return h.agree(ctx, req, nil)
	case "agree_and_hide":
		return h.agree(ctx, req, func() error {
			return h.Targets.HideTarget(ctx, req.Reviewable.TargetID, req.Actor.UserID)
		})
	case "agree_and_restore":
		return h.agree(ctx, req, func() error {
			return h.Targets.RecoverTarget(ctx, req.Reviewable.TargetID, req.Actor.UserID)
		})
	case "disagree":
		return h.disagree(ctx, req, false)
	case "disagree_and_restore":
		return h.disagree(ctx, req, true)
	case "ignore":
		return h.ignore(ctx, req)
	default:
		return application.HandlerResult{}, domainerrors.ErrInvalidAction
	}
}

func (FlaggedPostHandler) EditableFields(entities.ReviewableStatus) []string {
	return nil
}

func (h FlaggedPostHandler) agree(
	ctx context.Context,
	req application.PerformRequest,
	effect func() error,
) (application.HandlerResult, error) {
	userIDs, err := h.Scores.MarkScoreDispositions(
		ctx, req.Reviewable.ReviewableID, entities.DispositionAgreed, req.Actor.UserID, h.now())
	if err != nil {
		return application.HandlerResult{}, err
	}
	if err := h.Stats.UpdateFlagStats(ctx, entities.DispositionAgreed, userIDs, req.Target.CreatedByID); err != nil {
		return application.HandlerResult{}, err
	}
	if effect != nil {
		if err := effect(); err != nil {
			return application.HandlerResult{}, err
		}
	}
	return application.HandlerResult{Outcome: entities.OutcomeApproved, RecalculateScore: true}, nil
}

func (h FlaggedPostHandler) disagree(
	ctx context.Context,
	req application.PerformRequest,
	recover bool,
) (application.HandlerResult, error) {
	userIDs, err := h.Scores.MarkScoreDispositions(
		ctx, req.Reviewable.ReviewableID, entities.DispositionDisagreed, req.Actor.UserID, h.now())
	if err != nil {
		return application.HandlerResult{}, err
	}
	if err := h.Stats.UpdateFlagStats(ctx, entities.DispositionDisagreed, userIDs, req.Target.CreatedByID); err != nil {
		return application.HandlerResult{}, err
	}
	// Disagreement clears any hide the flags caused.
	if req.Target.Hidden {
		if err := h.Targets.RestoreTarget(ctx, req.Reviewable.TargetID, req.Actor.UserID); err != nil {
			return application.HandlerResult{}, err
		}
	}
	if recover {
		if err := h.Targets.RecoverTarget(ctx, req.Reviewable.TargetID, req.Actor.UserID); err != nil {
			return application.HandlerResult{}, err
		}
	}
	return application.HandlerResult{Outcome: entities.OutcomeRejected, RecalculateScore: true}, nil
}

func (h FlaggedPostHandler) ignore(ctx context.Context, req application.PerformRequest) (application.HandlerResult, error) {
	userIDs, err := h.Scores.MarkScoreDispositions(
		ctx, req.Reviewable.ReviewableID, entities.DispositionIgnored, req.Actor.UserID, h.now())
	if err != nil {
		return application.HandlerResult{}, err
	}
	if err := h.Stats.UpdateFlagStats(ctx, entities.DispositionIgnored, userIDs, req.Target.CreatedByID); err != nil {
		return application.HandlerResult{}, err
	}
	return application.HandlerResult{Outcome: entities.OutcomeIgnored, RecalculateScore: true}, nil
}

func (h FlaggedPostHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
