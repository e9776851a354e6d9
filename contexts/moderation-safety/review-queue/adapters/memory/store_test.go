package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
)

func seedReviewable(t *testing.T, store *Store, id string) entities.Reviewable {
	t.Helper()
	reviewable, err := store.CreateReviewable(context.Background(), entities.Reviewable{
		ReviewableID: id,
		Type:         entities.TypeFlaggedPost,
		Status:       entities.StatusPending,
		TargetID:     "post-1",
		TargetType:   "post",
	})
	if err != nil {
		t.Fatalf("seed %s failed: %v", id, err)
	}
	return reviewable
}

func TestUpdateTransitionChecksVersion(t *testing.T) {
	store := NewStore()
	seedReviewable(t, store, "rev-1")
	ctx := context.Background()
	now := time.Now().UTC()

	version, err := store.UpdateTransition(ctx, "rev-1", entities.StatusApproved, 0, now)
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}

	if _, err := store.UpdateTransition(ctx, "rev-1", entities.StatusRejected, 0, now); !errors.Is(err, domainerrors.ErrUpdateConflict) {
		t.Fatalf("expected conflict on stale version, got %v", err)
	}
	if _, err := store.UpdateTransition(ctx, "rev-missing", entities.StatusApproved, 0, now); !errors.Is(err, domainerrors.ErrReviewableNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTerminalTransitionFreesTargetSlot(t *testing.T) {
	store := NewStore()
	seedReviewable(t, store, "rev-1")
	ctx := context.Background()

	if _, err := store.CreateReviewable(ctx, entities.Reviewable{
		ReviewableID: "rev-dup",
		Type:         entities.TypeFlaggedPost,
		TargetID:     "post-1",
	}); !errors.Is(err, domainerrors.ErrDuplicateTarget) {
		t.Fatalf("expected duplicate target while entry is open, got %v", err)
	}

	if _, err := store.UpdateTransition(ctx, "rev-1", entities.StatusApproved, 0, time.Now().UTC()); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if _, open, _ := store.GetOpenByTarget(ctx, entities.TypeFlaggedPost, "post-1"); open {
		t.Fatalf("expected target slot freed after terminal transition")
	}

	if _, err := store.CreateReviewable(ctx, entities.Reviewable{
		ReviewableID: "rev-2",
		Type:         entities.TypeFlaggedPost,
		TargetID:     "post-1",
	}); err != nil {
		t.Fatalf("expected new entry for resolved target, got %v", err)
	}
}

func TestWithinTransactionRollsBackOnError(t *testing.T) {
	store := NewStore()
	seedReviewable(t, store, "rev-1")
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := store.UpdateTransition(txCtx, "rev-1", entities.StatusApproved, 0, time.Now().UTC()); err != nil {
			return err
		}
		if err := store.AppendScore(txCtx, entities.ReviewableScore{
			ScoreID:      "s-1",
			ReviewableID: "rev-1",
			UserID:       "flagger-1",
			ScoreType:    entities.ScoreTypeSpam,
			Weight:       5.0,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}

	reviewable, err := store.GetReviewable(ctx, "rev-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if reviewable.Status != entities.StatusPending || reviewable.Version != 0 {
		t.Fatalf("expected rollback to pending v0, got %s v%d", reviewable.Status, reviewable.Version)
	}
	scores, err := store.ListScores(ctx, "rev-1")
	if err != nil {
		t.Fatalf("list scores failed: %v", err)
	}
	if len(scores) != 0 {
		t.Fatalf("expected score write rolled back, got %d rows", len(scores))
	}
}

func TestTruncateFlagStatsPreservesRatioAndIsIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 60; i++ {
		if _, err := store.IncrementFlagStats(ctx, entities.DispositionAgreed, []string{"flagger-1"}, now); err != nil {
			t.Fatalf("increment failed: %v", err)
		}
	}
	for i := 0; i < 40; i++ {
		if _, err := store.IncrementFlagStats(ctx, entities.DispositionDisagreed, []string{"flagger-1"}, now); err != nil {
			t.Fatalf("increment failed: %v", err)
		}
	}

	if err := store.TruncateFlagStats(ctx, "flagger-1", 10); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	agreed, disagreed, ignored := store.FlagStats("flagger-1")
	if agreed+disagreed+ignored != 10 {
		t.Fatalf("expected total capped at 10, got %d", agreed+disagreed+ignored)
	}
	if agreed != 6 || disagreed != 4 {
		t.Fatalf("expected 6/4 split preserved, got %d/%d", agreed, disagreed)
	}

	if err := store.TruncateFlagStats(ctx, "flagger-1", 10); err != nil {
		t.Fatalf("second truncate failed: %v", err)
	}
	agreedAgain, disagreedAgain, _ := store.FlagStats("flagger-1")
	if agreedAgain != agreed || disagreedAgain != disagreed {
		t.Fatalf("truncate below threshold must be a no-op, got %d/%d", agreedAgain, disagreedAgain)
	}
}

func TestMarkScoreDispositionsResolvesOnlyPending(t *testing.T) {
	store := NewStore()
	seedReviewable(t, store, "rev-1")
	ctx := context.Background()

	resolvedAt := time.Now().UTC()
	seed := []entities.ReviewableScore{
		{ScoreID: "s-1", ReviewableID: "rev-1", UserID: "u-1", ScoreType: entities.ScoreTypeSpam, Weight: 5.0},
		{ScoreID: "s-2", ReviewableID: "rev-1", UserID: "u-2", ScoreType: entities.ScoreTypeOffTopic, Weight: 3.0, Disposition: entities.DispositionIgnored},
	}
	for _, score := range seed {
		if err := store.AppendScore(ctx, score); err != nil {
			t.Fatalf("seed score failed: %v", err)
		}
	}

	userIDs, err := store.MarkScoreDispositions(ctx, "rev-1", entities.DispositionAgreed, "mod-1", resolvedAt)
	if err != nil {
		t.Fatalf("mark dispositions failed: %v", err)
	}
	if len(userIDs) != 1 || userIDs[0] != "u-1" {
		t.Fatalf("expected only pending row resolved, got %v", userIDs)
	}

	scores, err := store.ListScores(ctx, "rev-1")
	if err != nil {
		t.Fatalf("list scores failed: %v", err)
	}
	for _, score := range scores {
		if score.ScoreID == "s-2" && score.Disposition != entities.DispositionIgnored {
			t.Fatalf("already-resolved row must keep its disposition, got %s", score.Disposition)
		}
	}
}
