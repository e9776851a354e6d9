package application

import (
	"encoding/json"
	"time"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
	"triage/contexts/moderation-safety/review-queue/ports"
)

const (
	TopicReviewableCreated  = "reviewable.created"
	TopicReviewableScored   = "reviewable.scored"
	TopicReviewableReviewed = "reviewable.reviewed"
	TopicFlagAgreed         = "flag.agreed"
	TopicFlagDisagreed      = "flag.disagreed"
	TopicFlagIgnored        = "flag.ignored"
	TopicStatsTruncate      = "review.stats.truncate"
)

const sourceService = "review-queue"

// outcomeTopic maps a transition outcome onto its flag-disposition topic.
func outcomeTopic(outcome entities.ReviewOutcome) string {
	switch outcome {
	case entities.OutcomeApproved:
		return TopicFlagAgreed
	case entities.OutcomeRejected:
		return TopicFlagDisagreed
	case entities.OutcomeIgnored:
		return TopicFlagIgnored
	default:
		return TopicReviewableReviewed
	}
}

func newReviewEnvelope(
	eventID string,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "reviewable_id",
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}
