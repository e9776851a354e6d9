package handlers

import (
	"context"
	"time"

	"triage/contexts/moderation-safety/review-queue/application"
	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	"triage/contexts/moderation-safety/review-queue/ports"
)

// QueuedPostHandler reviews posts held back before publication. The post
// title/body stay editable while the entry is pending so reviewers can fix
// up content before approving it.
type QueuedPostHandler struct {
	Targets ports.TargetStore
	Scores  ports.ScoreRepository
	Stats   application.Scoring
	Clock   ports.Clock
}

func (QueuedPostHandler) Type() entities.ReviewableType {
	return entities.TypeQueuedPost
}

func (QueuedPostHandler) BuildActions(
	reviewable entities.Reviewable,
	_ entities.Target,
	targetFound bool,
	_ entities.Actor,
) entities.ActionSet {
	var actions entities.ActionSet
	if !reviewable.Pending() || !targetFound {
		return actions
	}
	actions.Add(entities.Action{ID: "approve_post", Icon: "check"})
	actions.Add(entities.Action{ID: "reject_post", Icon: "times", RequireConfirmation: true})
	return actions
}

func (h QueuedPostHandler) Perform(ctx context.Context, req application.PerformRequest) (application.HandlerResult, error) {
	switch req.ActionID {
	case "approve_post":
		return h.resolve(ctx, req, entities.DispositionAgreed, entities.OutcomeApproved, func() error {
			return h.Targets.PublishTarget(ctx, req.Reviewable.TargetID, req.Actor.UserID)
		})
	case "reject_post":
		return h.resolve(ctx, req, entities.DispositionDisagreed, entities.OutcomeRejected, func() error {
			return h.Targets.RemoveTarget(ctx, req.Reviewable.TargetID, req.Actor.UserID)
		})
	default:
		return application.HandlerResult{}, domainerrors.ErrInvalidAction
	}
}

func (QueuedPostHandler) EditableFields(status entities.ReviewableStatus) []string {
	if status != entities.StatusPending {
		return nil
	}
	return []string{"title", "body"}
}

func (h QueuedPostHandler) resolve(
	ctx context.Context,
	req application.PerformRequest,
	disposition entities.ScoreDisposition,
	outcome entities.ReviewOutcome,
	effect func() error,
) (application.HandlerResult, error) {
	userIDs, err := h.Scores.MarkScoreDispositions(
		ctx, req.Reviewable.ReviewableID, disposition, req.Actor.UserID, h.now())
	if err != nil {
		return application.HandlerResult{}, err
	}
	if err := h.Stats.UpdateFlagStats(ctx, disposition, userIDs, req.Target.CreatedByID); err != nil {
		return application.HandlerResult{}, err
	}
	if err := effect(); err != nil {
		return application.HandlerResult{}, err
	}
	return application.HandlerResult{Outcome: outcome, RecalculateScore: true}, nil
}

func (h QueuedPostHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
