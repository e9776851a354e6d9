package ports

import (
	"context"
	"time"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
	contractsv1 "triage/contracts/gen/events/v1"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// ListFilter narrows pending-queue reads. Visibility fields are derived from
// the requesting actor, never taken from the wire directly.
type ListFilter struct {
	Status       entities.ReviewableStatus
	Type         entities.ReviewableType
	MinScore     float64
	Limit        int
	Offset       int
	ForModerator bool
	GroupIDs     []string
}

type ReviewableRepository interface {
	CreateReviewable(ctx context.Context, reviewable entities.Reviewable) (entities.Reviewable, error)
	GetReviewable(ctx context.Context, reviewableID string) (entities.Reviewable, error)
	GetOpenByTarget(ctx context.Context, reviewableType entities.ReviewableType, targetID string) (entities.Reviewable, bool, error)
	// UpdateTransition is the compare-and-swap commit: the row is updated only
	// where the stored version equals expectedVersion, and the new version is
	// returned. A lost race surfaces as ErrUpdateConflict.
	UpdateTransition(ctx context.Context, reviewableID string, to entities.ReviewableStatus, expectedVersion int, updatedAt time.Time) (int, error)
	UpdatePayload(ctx context.Context, reviewableID string, payload map[string]string, expectedVersion int, updatedAt time.Time) (int, error)
	UpdateScore(ctx context.Context, reviewableID string, score float64, latestScoreAt time.Time) error
	ListPending(ctx context.Context, filter ListFilter) ([]entities.Reviewable, error)
	CountPending(ctx context.Context, filter ListFilter) (int, error)
}

type ScoreRepository interface {
	AppendScore(ctx context.Context, score entities.ReviewableScore) error
	ListScores(ctx context.Context, reviewableID string) ([]entities.ReviewableScore, error)
	// MarkScoreDispositions resolves every still-pending contributing score of
	// the reviewable and returns the scorer user ids it touched.
	MarkScoreDispositions(ctx context.Context, reviewableID string, disposition entities.ScoreDisposition, actorID string, at time.Time) ([]string, error)
}

// UnitOfWork brackets the critical section between version check and commit.
// The postgres adapter maps it onto a database transaction; the memory
// adapter serializes writers behind one mutex.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Guardian is the opaque capability check the queue consumes. Visibility
// failures are reported to callers as not-found, never as forbidden.
type Guardian interface {
	CanSeeReviewable(actor entities.Actor, reviewable entities.Reviewable) bool
}

// TargetStore lets type handlers request content side effects without the
// queue owning the content's business rules.
type TargetStore interface {
	GetTarget(ctx context.Context, targetType string, targetID string) (entities.Target, bool, error)
	HideTarget(ctx context.Context, targetID string, actorID string) error
	RestoreTarget(ctx context.Context, targetID string, actorID string) error
	RecoverTarget(ctx context.Context, targetID string, actorID string) error
	PublishTarget(ctx context.Context, targetID string, actorID string) error
	RemoveTarget(ctx context.Context, targetID string, actorID string) error
}

// FlagStatTotal reports one actor's lifetime counter total after an
// increment, so callers can decide whether truncation is due.
type FlagStatTotal struct {
	UserID string
	Total  int
}

type UserStatsStore interface {
	IncrementFlagStats(ctx context.Context, outcome entities.ScoreDisposition, userIDs []string, at time.Time) ([]FlagStatTotal, error)
	TruncateFlagStats(ctx context.Context, userID string, keep int) error
}

// EventEnvelope aliases the published contract type so producers and
// consumers share one wire shape.
type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type EventOutbox interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}
