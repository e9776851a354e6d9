package application

import "triage/contexts/moderation-safety/review-queue/domain/entities"

// StandardGuardian resolves visibility from the reviewable's own scoping
// attributes. Swap in a different ports.Guardian when an external
// authorization service owns the decision.
type StandardGuardian struct{}

func (StandardGuardian) CanSeeReviewable(actor entities.Actor, reviewable entities.Reviewable) bool {
	if actor.IsModerator {
		return true
	}
	if reviewable.ReviewableByModerator {
		return false
	}
	if reviewable.ReviewableByGroupID != "" {
		for _, groupID := range actor.GroupIDs {
			if groupID == reviewable.ReviewableByGroupID {
				return true
			}
		}
		return false
	}
	return false
}
