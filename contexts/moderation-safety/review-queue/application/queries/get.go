package queries

import (
	"context"
	"strings"

	"triage/contexts/moderation-safety/review-queue/application"
	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	"triage/contexts/moderation-safety/review-queue/ports"
)

// GetUseCase reads one reviewable with the action set the actor may render.
type GetUseCase struct {
	Reviewables ports.ReviewableRepository
	Targets     ports.TargetStore
	Guardian    ports.Guardian
	Catalog     *application.Catalog
}

func (uc GetUseCase) Get(
	ctx context.Context,
	actor entities.Actor,
	reviewableID string,
) (entities.Reviewable, entities.ActionSet, error) {
	reviewableID = strings.TrimSpace(reviewableID)
	if reviewableID == "" {
		return entities.Reviewable{}, entities.ActionSet{}, domainerrors.ErrReviewableNotFound
	}
	reviewable, err := uc.Reviewables.GetReviewable(ctx, reviewableID)
	if err != nil {
		return entities.Reviewable{}, entities.ActionSet{}, err
	}
	if uc.Guardian != nil && !uc.Guardian.CanSeeReviewable(actor, reviewable) {
		return entities.Reviewable{}, entities.ActionSet{}, domainerrors.ErrReviewableNotFound
	}
	target, targetFound, err := uc.Targets.GetTarget(ctx, reviewable.TargetType, reviewable.TargetID)
	if err != nil {
		return entities.Reviewable{}, entities.ActionSet{}, err
	}
	actions := uc.Catalog.ActionsFor(reviewable, target, targetFound, actor)
	return reviewable, actions, nil
}
