package application

import (
	"context"
	"testing"

	"triage/contexts/moderation-safety/review-queue/adapters/memory"
	"triage/contexts/moderation-safety/review-queue/domain/entities"
)

func newTestScoring(store *memory.Store, threshold int) Scoring {
	return Scoring{
		Reviewables:       store,
		Scores:            store,
		Stats:             store,
		Outbox:            store,
		IDGen:             store,
		Clock:             store,
		TruncateThreshold: threshold,
	}
}

func TestRecalculateSumsOnlyPendingWeights(t *testing.T) {
	store := memory.NewStore()
	scoring := newTestScoring(store, 0)
	seedPendingReviewable(t, store)

	ctx := context.Background()
	scores := []entities.ReviewableScore{
		{ScoreID: "s-1", ReviewableID: "rev-1", UserID: "u-1", ScoreType: entities.ScoreTypeSpam, Weight: 5.0},
		{ScoreID: "s-2", ReviewableID: "rev-1", UserID: "u-2", ScoreType: entities.ScoreTypeInappropriate, Weight: 4.0, Disposition: entities.DispositionAgreed},
		{ScoreID: "s-3", ReviewableID: "rev-1", UserID: "u-3", ScoreType: entities.ScoreTypeOffTopic, Weight: 3.0},
	}
	for _, score := range scores {
		if err := store.AppendScore(ctx, score); err != nil {
			t.Fatalf("seed score failed: %v", err)
		}
	}

	if err := scoring.Recalculate(ctx, "rev-1"); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	reviewable, err := store.GetReviewable(ctx, "rev-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if reviewable.Score != 8.0 {
		t.Fatalf("expected score 8.0 from pending weights, got %v", reviewable.Score)
	}
}

func TestUpdateFlagStatsExcludesTargetAuthor(t *testing.T) {
	store := memory.NewStore()
	scoring := newTestScoring(store, 0)

	err := scoring.UpdateFlagStats(
		context.Background(),
		entities.DispositionAgreed,
		[]string{"flagger-1", "author-1", "flagger-1"},
		"author-1",
	)
	if err != nil {
		t.Fatalf("update flag stats failed: %v", err)
	}

	agreed, _, _ := store.FlagStats("flagger-1")
	if agreed != 1 {
		t.Fatalf("expected flagger counted once, got %d", agreed)
	}
	authorAgreed, authorDisagreed, authorIgnored := store.FlagStats("author-1")
	if authorAgreed+authorDisagreed+authorIgnored != 0 {
		t.Fatalf("self-flag must never count, got %d/%d/%d", authorAgreed, authorDisagreed, authorIgnored)
	}
}

func TestUpdateFlagStatsSchedulesTruncationAboveThreshold(t *testing.T) {
	store := memory.NewStore()
	scoring := newTestScoring(store, 2)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := scoring.UpdateFlagStats(ctx, entities.DispositionDisagreed, []string{"flagger-1"}, ""); err != nil {
			t.Fatalf("update flag stats failed: %v", err)
		}
	}
	if store.PendingOutboxCount() != 1 {
		t.Fatalf("expected one truncation task enqueued, got %d", store.PendingOutboxCount())
	}
}

func TestUpdateFlagStatsNoEligibleActorsIsNoop(t *testing.T) {
	store := memory.NewStore()
	scoring := newTestScoring(store, 0)

	err := scoring.UpdateFlagStats(context.Background(), entities.DispositionIgnored, []string{"", "author-1"}, "author-1")
	if err != nil {
		t.Fatalf("update flag stats failed: %v", err)
	}
	if store.PendingOutboxCount() != 0 {
		t.Fatalf("expected no outbox writes, got %d", store.PendingOutboxCount())
	}
}
