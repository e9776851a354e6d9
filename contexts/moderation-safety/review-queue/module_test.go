package reviewqueue

import (
	"context"
	"errors"
	"testing"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	httptransport "triage/contexts/moderation-safety/review-queue/transport/http"
)

func intPtr(v int) *int {
	return &v
}

func TestFlagReviewHideFlow(t *testing.T) {
	module := NewInMemoryModule(nil)
	module.Store.SeedTarget(entities.Target{TargetID: "post-1", TargetType: "post", CreatedByID: "author-1"})

	ctx := context.Background()
	flagger := entities.Actor{UserID: "flagger-1"}
	moderator := entities.Actor{UserID: "mod-1", IsModerator: true}

	created, err := module.Handler.SubmitFlagHandler(ctx, flagger, httptransport.FlagRequest{
		Type:       "flagged_post",
		TargetID:   "post-1",
		TargetType: "post",
		ScoreType:  "spam",
	})
	if err != nil {
		t.Fatalf("submit flag failed: %v", err)
	}
	reviewableID := created.Data.Reviewable.ReviewableID
	if created.Data.Reviewable.Status != "pending" || created.Data.Reviewable.Score != 5.0 {
		t.Fatalf("unexpected created entry: %+v", created.Data.Reviewable)
	}

	fetched, err := module.Handler.GetReviewableHandler(ctx, moderator, reviewableID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	hasHide := false
	for _, action := range fetched.Data.Reviewable.Actions {
		if action.ID == "agree_and_hide" {
			hasHide = true
		}
	}
	if !hasHide {
		t.Fatalf("expected agree_and_hide offered, got %+v", fetched.Data.Reviewable.Actions)
	}

	performed, err := module.Handler.PerformHandler(ctx, moderator, reviewableID, "agree_and_hide", httptransport.PerformRequest{
		Version: intPtr(fetched.Data.Reviewable.Version),
	})
	if err != nil {
		t.Fatalf("perform failed: %v", err)
	}
	if !performed.Data.Success || performed.Data.Outcome != "approved" {
		t.Fatalf("unexpected perform result: %+v", performed.Data)
	}
	if performed.Data.Version != fetched.Data.Reviewable.Version+1 {
		t.Fatalf("expected single version bump, got %d", performed.Data.Version)
	}
	if !performed.Data.RemoveFromQueue {
		t.Fatalf("expected terminal transition to leave the queue")
	}

	target, ok := module.Store.TargetState("post-1")
	if !ok || !target.Hidden {
		t.Fatalf("expected target hidden after agree_and_hide, got %+v", target)
	}
	agreed, _, _ := module.Store.FlagStats("flagger-1")
	if agreed != 1 {
		t.Fatalf("expected flagger credited once, got %d", agreed)
	}

	queue, err := module.Handler.ListQueueHandler(ctx, moderator, "", "", "", "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if queue.Data.Meta.TotalRowsReviewables != 0 {
		t.Fatalf("expected empty queue after review, got %d", queue.Data.Meta.TotalRowsReviewables)
	}
}

func TestPerformStaleVersionReturnsConflict(t *testing.T) {
	module := NewInMemoryModule(nil)
	module.Store.SeedTarget(entities.Target{TargetID: "post-1", TargetType: "post", CreatedByID: "author-1"})

	ctx := context.Background()
	moderator := entities.Actor{UserID: "mod-1", IsModerator: true}
	created, err := module.Handler.SubmitFlagHandler(ctx, entities.Actor{UserID: "flagger-1"}, httptransport.FlagRequest{
		Type:       "flagged_post",
		TargetID:   "post-1",
		TargetType: "post",
		ScoreType:  "inappropriate",
	})
	if err != nil {
		t.Fatalf("submit flag failed: %v", err)
	}

	_, err = module.Handler.PerformHandler(ctx, moderator, created.Data.Reviewable.ReviewableID, "ignore", httptransport.PerformRequest{
		Version: intPtr(created.Data.Reviewable.Version + 5),
	})
	if !errors.Is(err, domainerrors.ErrUpdateConflict) {
		t.Fatalf("expected update conflict, got %v", err)
	}
}

func TestPerformWithoutVersionRejected(t *testing.T) {
	module := NewInMemoryModule(nil)
	module.Store.SeedTarget(entities.Target{TargetID: "post-1", TargetType: "post", CreatedByID: "author-1"})

	ctx := context.Background()
	created, err := module.Handler.SubmitFlagHandler(ctx, entities.Actor{UserID: "flagger-1"}, httptransport.FlagRequest{
		Type:       "flagged_post",
		TargetID:   "post-1",
		TargetType: "post",
		ScoreType:  "spam",
	})
	if err != nil {
		t.Fatalf("submit flag failed: %v", err)
	}

	_, err = module.Handler.PerformHandler(
		ctx,
		entities.Actor{UserID: "mod-1", IsModerator: true},
		created.Data.Reviewable.ReviewableID,
		"ignore",
		httptransport.PerformRequest{},
	)
	if !errors.Is(err, domainerrors.ErrVersionRequired) {
		t.Fatalf("expected version required, got %v", err)
	}
}

func TestRepeatedFlagsAccumulateOnOneEntry(t *testing.T) {
	module := NewInMemoryModule(nil)
	module.Store.SeedTarget(entities.Target{TargetID: "post-1", TargetType: "post", CreatedByID: "author-1"})

	ctx := context.Background()
	first, err := module.Handler.SubmitFlagHandler(ctx, entities.Actor{UserID: "flagger-1"}, httptransport.FlagRequest{
		Type:       "flagged_post",
		TargetID:   "post-1",
		TargetType: "post",
		ScoreType:  "spam",
	})
	if err != nil {
		t.Fatalf("first flag failed: %v", err)
	}
	second, err := module.Handler.SubmitFlagHandler(ctx, entities.Actor{UserID: "flagger-2"}, httptransport.FlagRequest{
		Type:       "flagged_post",
		TargetID:   "post-1",
		TargetType: "post",
		ScoreType:  "off_topic",
	})
	if err != nil {
		t.Fatalf("second flag failed: %v", err)
	}
	if second.Data.Reviewable.ReviewableID != first.Data.Reviewable.ReviewableID {
		t.Fatalf("expected one open entry per target, got %q and %q",
			first.Data.Reviewable.ReviewableID, second.Data.Reviewable.ReviewableID)
	}
	if second.Data.Reviewable.Score != 8.0 {
		t.Fatalf("expected accumulated score 8.0, got %v", second.Data.Reviewable.Score)
	}
}
