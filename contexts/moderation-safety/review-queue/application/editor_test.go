package application

import (
	"context"
	"errors"
	"testing"

	"triage/contexts/moderation-safety/review-queue/adapters/memory"
	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
)

func newTestEditor(store *memory.Store) Editor {
	return Editor{
		Reviewables: store,
		Guardian:    StandardGuardian{},
		Catalog:     NewCatalog(queueTestHandler{}),
		UnitOfWork:  store,
		Clock:       store,
	}
}

func TestUpdateFieldsAppliesAndBumpsVersion(t *testing.T) {
	store := memory.NewStore()
	editor := newTestEditor(store)
	seedPendingReviewable(t, store)

	moderator := entities.Actor{UserID: "mod-1", IsModerator: true}
	result, err := editor.UpdateFields(context.Background(), moderator, "rev-1", map[string]string{
		"title": "cleaned up title",
	}, 0)
	if err != nil {
		t.Fatalf("update fields failed: %v", err)
	}
	if result.Version != 1 {
		t.Fatalf("expected version 1, got %d", result.Version)
	}

	stored, err := store.GetReviewable(context.Background(), "rev-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Payload["title"] != "cleaned up title" {
		t.Fatalf("expected payload merged, got %v", stored.Payload)
	}
	if stored.Status != entities.StatusPending {
		t.Fatalf("field edit must not change status, got %s", stored.Status)
	}
}

func TestUpdateFieldsRejectsUneditableField(t *testing.T) {
	store := memory.NewStore()
	editor := newTestEditor(store)
	seedPendingReviewable(t, store)

	moderator := entities.Actor{UserID: "mod-1", IsModerator: true}
	_, err := editor.UpdateFields(context.Background(), moderator, "rev-1", map[string]string{
		"score": "999",
	}, 0)
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	stored, err := store.GetReviewable(context.Background(), "rev-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Version != 0 {
		t.Fatalf("rejected edit must leave version untouched, got v%d", stored.Version)
	}
}

func TestUpdateFieldsStaleVersionConflicts(t *testing.T) {
	store := memory.NewStore()
	editor := newTestEditor(store)
	seedPendingReviewable(t, store)

	moderator := entities.Actor{UserID: "mod-1", IsModerator: true}
	_, err := editor.UpdateFields(context.Background(), moderator, "rev-1", map[string]string{
		"title": "stale",
	}, 7)
	if !errors.Is(err, domainerrors.ErrUpdateConflict) {
		t.Fatalf("expected update conflict, got %v", err)
	}
}

func TestUpdateFieldsEmptyValueInvalid(t *testing.T) {
	store := memory.NewStore()
	editor := newTestEditor(store)
	seedPendingReviewable(t, store)

	moderator := entities.Actor{UserID: "mod-1", IsModerator: true}
	_, err := editor.UpdateFields(context.Background(), moderator, "rev-1", map[string]string{
		"title": "   ",
	}, 0)
	if !errors.Is(err, domainerrors.ErrValidationFailure) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestUpdateFieldsNegativeVersionRequiresVersion(t *testing.T) {
	store := memory.NewStore()
	editor := newTestEditor(store)
	seedPendingReviewable(t, store)

	moderator := entities.Actor{UserID: "mod-1", IsModerator: true}
	_, err := editor.UpdateFields(context.Background(), moderator, "rev-1", map[string]string{
		"title": "x",
	}, -1)
	if !errors.Is(err, domainerrors.ErrVersionRequired) {
		t.Fatalf("expected version required, got %v", err)
	}
}
