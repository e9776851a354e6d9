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

// Editor applies payload field edits under the same optimistic version
// control as transitions. Field edits never touch scores or dispositions.
type Editor struct {
	Reviewables ports.ReviewableRepository
	Guardian    ports.Guardian
	Catalog     *Catalog
	UnitOfWork  ports.UnitOfWork
	Clock       ports.Clock
	Logger      *slog.Logger
}

type UpdateFieldsResult struct {
	Fields  map[string]string
	Version int
}

// UpdateFields rejects any field outside the editable set for the current
// (status, type) with ErrForbidden before anything is written; the version
// stays untouched on every failure path.
func (e Editor) UpdateFields(
	ctx context.Context,
	actor entities.Actor,
	reviewableID string,
	fields map[string]string,
	expectedVersion int,
) (UpdateFieldsResult, error) {
	logger := ResolveLogger(e.Logger)
	reviewableID = strings.TrimSpace(reviewableID)
	if reviewableID == "" {
		return UpdateFieldsResult{}, domainerrors.ErrReviewableNotFound
	}
	if expectedVersion < 0 {
		return UpdateFieldsResult{}, domainerrors.ErrVersionRequired
	}
	if len(fields) == 0 {
		return UpdateFieldsResult{}, domainerrors.ErrValidationFailure
	}

	var result UpdateFieldsResult
	err := e.UnitOfWork.WithinTransaction(ctx, func(txCtx context.Context) error {
		reviewable, err := e.Reviewables.GetReviewable(txCtx, reviewableID)
		if err != nil {
			return err
		}
		if e.Guardian != nil && !e.Guardian.CanSeeReviewable(actor, reviewable) {
			return domainerrors.ErrReviewableNotFound
		}
		handler, ok := e.Catalog.HandlerFor(reviewable.Type)
		if !ok {
			return domainerrors.ErrForbidden
		}
		editable := handler.EditableFields(reviewable.Status)
		for name, value := range fields {
			if !containsField(editable, name) {
				return domainerrors.ErrForbidden
			}
			if strings.TrimSpace(value) == "" {
				return domainerrors.ErrValidationFailure
			}
		}
		if reviewable.Version != expectedVersion {
			return domainerrors.ErrUpdateConflict
		}

		payload := make(map[string]string, len(reviewable.Payload)+len(fields))
		for name, value := range reviewable.Payload {
			payload[name] = value
		}
		for name, value := range fields {
			payload[name] = value
		}
		newVersion, err := e.Reviewables.UpdatePayload(txCtx, reviewableID, payload, expectedVersion, e.now())
		if err != nil {
			return err
		}
		result = UpdateFieldsResult{Fields: fields, Version: newVersion}
		return nil
	})
	if err != nil {
		logger.Warn("reviewable field edit failed",
			"event", "review_field_edit_failed",
			"module", "moderation-safety/review-queue",
			"layer", "application",
			"reviewable_id", reviewableID,
			"actor_id", actor.UserID,
			"error", err.Error(),
		)
		return UpdateFieldsResult{}, err
	}
	logger.Info("reviewable fields updated",
		"event", "review_fields_updated",
		"module", "moderation-safety/review-queue",
		"layer", "application",
		"reviewable_id", reviewableID,
		"actor_id", actor.UserID,
		"version", result.Version,
	)
	return result, nil
}

func (e Editor) now() time.Time {
	if e.Clock != nil {
		return e.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func containsField(fields []string, name string) bool {
	for _, field := range fields {
		if field == name {
			return true
		}
	}
	return false
}
