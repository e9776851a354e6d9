package application

import (
	"context"
	"errors"
	"testing"

	"triage/contexts/moderation-safety/review-queue/adapters/memory"
	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
)

func newTestIntake(store *memory.Store) Intake {
	return Intake{
		Reviewables: store,
		Scores:      store,
		Targets:     store,
		Catalog:     NewCatalog(queueTestHandler{}),
		Scoring:     newTestScoring(store, 0),
		UnitOfWork:  store,
		Outbox:      store,
		IDGen:       store,
		Clock:       store,
	}
}

func TestSubmitSignalCreatesPendingReviewable(t *testing.T) {
	store := memory.NewStore()
	intake := newTestIntake(store)
	store.SeedTarget(entities.Target{TargetID: "post-1", TargetType: "post", CreatedByID: "author-1"})

	reviewable, err := intake.SubmitSignal(context.Background(), SignalCommand{
		Type:       entities.TypeFlaggedPost,
		TargetID:   "post-1",
		TargetType: "post",
		UserID:     "flagger-1",
		ScoreType:  entities.ScoreTypeSpam,
	})
	if err != nil {
		t.Fatalf("submit signal failed: %v", err)
	}
	if reviewable.Status != entities.StatusPending || reviewable.Version != 0 {
		t.Fatalf("expected pending v0, got %s v%d", reviewable.Status, reviewable.Version)
	}
	if reviewable.Score != 5.0 {
		t.Fatalf("expected spam weight 5.0, got %v", reviewable.Score)
	}
	if reviewable.TargetCreatedByID != "author-1" {
		t.Fatalf("expected author snapshot, got %q", reviewable.TargetCreatedByID)
	}
}

func TestSubmitSignalAttachesToOpenEntry(t *testing.T) {
	store := memory.NewStore()
	intake := newTestIntake(store)
	store.SeedTarget(entities.Target{TargetID: "post-1", TargetType: "post", CreatedByID: "author-1"})

	ctx := context.Background()
	first, err := intake.SubmitSignal(ctx, SignalCommand{
		Type:       entities.TypeFlaggedPost,
		TargetID:   "post-1",
		TargetType: "post",
		UserID:     "flagger-1",
		ScoreType:  entities.ScoreTypeSpam,
	})
	if err != nil {
		t.Fatalf("first signal failed: %v", err)
	}
	second, err := intake.SubmitSignal(ctx, SignalCommand{
		Type:       entities.TypeFlaggedPost,
		TargetID:   "post-1",
		TargetType: "post",
		UserID:     "flagger-2",
		ScoreType:  entities.ScoreTypeInappropriate,
	})
	if err != nil {
		t.Fatalf("second signal failed: %v", err)
	}
	if second.ReviewableID != first.ReviewableID {
		t.Fatalf("expected one open entry per target, got %q and %q", first.ReviewableID, second.ReviewableID)
	}
	if second.Score != 9.0 {
		t.Fatalf("expected accumulated score 9.0, got %v", second.Score)
	}
}

func TestSubmitSignalUnknownTypeRejected(t *testing.T) {
	store := memory.NewStore()
	intake := newTestIntake(store)
	store.SeedTarget(entities.Target{TargetID: "post-1", TargetType: "post"})

	_, err := intake.SubmitSignal(context.Background(), SignalCommand{
		Type:       "flagged_chat_message",
		TargetID:   "post-1",
		TargetType: "post",
		UserID:     "flagger-1",
		ScoreType:  entities.ScoreTypeSpam,
	})
	if !errors.Is(err, domainerrors.ErrInvalidType) {
		t.Fatalf("expected invalid type, got %v", err)
	}
}

func TestSubmitSignalMissingTargetRejected(t *testing.T) {
	store := memory.NewStore()
	intake := newTestIntake(store)

	_, err := intake.SubmitSignal(context.Background(), SignalCommand{
		Type:       entities.TypeFlaggedPost,
		TargetID:   "post-gone",
		TargetType: "post",
		UserID:     "flagger-1",
		ScoreType:  entities.ScoreTypeSpam,
	})
	if !errors.Is(err, domainerrors.ErrTargetMissing) {
		t.Fatalf("expected target missing, got %v", err)
	}
}

func TestSubmitSignalBlankUserRejected(t *testing.T) {
	store := memory.NewStore()
	intake := newTestIntake(store)
	store.SeedTarget(entities.Target{TargetID: "post-1", TargetType: "post"})

	_, err := intake.SubmitSignal(context.Background(), SignalCommand{
		Type:       entities.TypeFlaggedPost,
		TargetID:   "post-1",
		TargetType: "post",
		UserID:     "   ",
		ScoreType:  entities.ScoreTypeSpam,
	})
	if !errors.Is(err, domainerrors.ErrInvalidSignal) {
		t.Fatalf("expected invalid signal, got %v", err)
	}
}
