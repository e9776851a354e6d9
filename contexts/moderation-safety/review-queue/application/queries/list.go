package queries

import (
	"context"
	"log/slog"
	"strings"

	"triage/contexts/moderation-safety/review-queue/application"
	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	"triage/contexts/moderation-safety/review-queue/ports"
)

// PerPage is the default and maximum queue page size.
const PerPage = 30

type ListQuery struct {
	MinScore *float64
	Type     string
	Limit    int
	Offset   int
}

type ListResult struct {
	Items     []entities.Reviewable
	TotalRows int
}

// ListUseCase serves the pending-queue read model: highest score first,
// freshest signal breaking ties, with the total counted independently of the
// page slice.
type ListUseCase struct {
	Reviewables     ports.ReviewableRepository
	Catalog         *application.Catalog
	DefaultMinScore float64
	Logger          *slog.Logger
}

func (uc ListUseCase) List(ctx context.Context, actor entities.Actor, query ListQuery) (ListResult, error) {
	if query.Offset < 0 {
		return ListResult{}, domainerrors.ErrValidationFailure
	}

	filter := ports.ListFilter{
		Status:       entities.StatusPending,
		MinScore:     uc.DefaultMinScore,
		Limit:        query.Limit,
		Offset:       query.Offset,
		ForModerator: actor.IsModerator,
		GroupIDs:     actor.GroupIDs,
	}
	if query.MinScore != nil {
		filter.MinScore = *query.MinScore
	}
	if filter.Limit <= 0 || filter.Limit > PerPage {
		filter.Limit = PerPage
	}

	if typeTag := strings.TrimSpace(query.Type); typeTag != "" {
		reviewableType := entities.ReviewableType(typeTag)
		if !uc.Catalog.KnownType(reviewableType) {
			return ListResult{}, domainerrors.ErrInvalidType
		}
		filter.Type = reviewableType
	}

	total, err := uc.Reviewables.CountPending(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	items, err := uc.Reviewables.ListPending(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	application.ResolveLogger(uc.Logger).Debug("review queue listed",
		"event", "review_queue_listed",
		"module", "moderation-safety/review-queue",
		"layer", "application",
		"actor_id", actor.UserID,
		"total_rows", total,
		"page_size", len(items),
	)
	return ListResult{Items: items, TotalRows: total}, nil
}
