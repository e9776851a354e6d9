package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	"triage/contexts/moderation-safety/review-queue/ports"
)

type flagStats struct {
	Agreed    int
	Disagreed int
	Ignored   int
}

func (s flagStats) total() int {
	return s.Agreed + s.Disagreed + s.Ignored
}

type outboxRow struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	Published    bool
	CreatedAt    time.Time
}

// Store satisfies every review-queue port in memory. Tests and local wiring
// use it as repository, target store, stats store, outbox, unit of work,
// clock, and id generator at once.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	reviewables  map[string]entities.Reviewable
	openByTarget map[string]string
	scores       map[string][]entities.ReviewableScore
	targets      map[string]entities.Target
	stats        map[string]flagStats
	outbox       []outboxRow
	sequence     uint64
}

func NewStore() *Store {
	return &Store{
		reviewables:  map[string]entities.Reviewable{},
		openByTarget: map[string]string{},
		scores:       map[string][]entities.ReviewableScore{},
		targets:      map[string]entities.Target{},
		stats:        map[string]flagStats{},
	}
}

// WithinTransaction serializes writers and rolls the whole store back when fn
// fails, so a failed transition leaves no partial status/score state behind.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type storeSnapshot struct {
	reviewables  map[string]entities.Reviewable
	openByTarget map[string]string
	scores       map[string][]entities.ReviewableScore
	targets      map[string]entities.Target
	stats        map[string]flagStats
	outbox       []outboxRow
}

func (s *Store) snapshot() storeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := storeSnapshot{
		reviewables:  make(map[string]entities.Reviewable, len(s.reviewables)),
		openByTarget: make(map[string]string, len(s.openByTarget)),
		scores:       make(map[string][]entities.ReviewableScore, len(s.scores)),
		targets:      make(map[string]entities.Target, len(s.targets)),
		stats:        make(map[string]flagStats, len(s.stats)),
		outbox:       append([]outboxRow(nil), s.outbox...),
	}
	for id, reviewable := range s.reviewables {
		snap.reviewables[id] = copyReviewable(reviewable)
	}
	for key, id := range s.openByTarget {
		snap.openByTarget[key] = id
	}
	for id, rows := range s.scores {
		snap.scores[id] = append([]entities.ReviewableScore(nil), rows...)
	}
	for id, target := range s.targets {
		snap.targets[id] = target
	}
	for id, stat := range s.stats {
		snap.stats[id] = stat
	}
	return snap
}

func (s *Store) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviewables = snap.reviewables
	s.openByTarget = snap.openByTarget
	s.scores = snap.scores
	s.targets = snap.targets
	s.stats = snap.stats
	s.outbox = snap.outbox
}

func (s *Store) CreateReviewable(ctx context.Context, reviewable entities.Reviewable) (entities.Reviewable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := targetKey(reviewable.Type, reviewable.TargetID)
	if _, open := s.openByTarget[key]; open {
		return entities.Reviewable{}, domainerrors.ErrDuplicateTarget
	}
	if reviewable.Status == "" {
		reviewable.Status = entities.StatusPending
	}
	s.reviewables[reviewable.ReviewableID] = copyReviewable(reviewable)
	s.openByTarget[key] = reviewable.ReviewableID
	return copyReviewable(reviewable), nil
}

func (s *Store) GetReviewable(ctx context.Context, reviewableID string) (entities.Reviewable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviewable, ok := s.reviewables[reviewableID]
	if !ok {
		return entities.Reviewable{}, domainerrors.ErrReviewableNotFound
	}
	return copyReviewable(reviewable), nil
}

func (s *Store) GetOpenByTarget(
	ctx context.Context,
	reviewableType entities.ReviewableType,
	targetID string,
) (entities.Reviewable, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviewableID, open := s.openByTarget[targetKey(reviewableType, targetID)]
	if !open {
		return entities.Reviewable{}, false, nil
	}
	return copyReviewable(s.reviewables[reviewableID]), true, nil
}

func (s *Store) UpdateTransition(
	ctx context.Context,
	reviewableID string,
	to entities.ReviewableStatus,
	expectedVersion int,
	updatedAt time.Time,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviewable, ok := s.reviewables[reviewableID]
	if !ok {
		return 0, domainerrors.ErrReviewableNotFound
	}
	if reviewable.Version != expectedVersion {
		return 0, domainerrors.ErrUpdateConflict
	}
	reviewable.Status = to
	reviewable.Version = expectedVersion + 1
	reviewable.UpdatedAt = updatedAt.UTC()
	s.reviewables[reviewableID] = reviewable
	if to != entities.StatusPending {
		delete(s.openByTarget, targetKey(reviewable.Type, reviewable.TargetID))
	}
	return reviewable.Version, nil
}

func (s *Store) UpdatePayload(
	ctx context.Context,
	reviewableID string,
	payload map[string]string,
	expectedVersion int,
	updatedAt time.Time,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviewable, ok := s.reviewables[reviewableID]
	if !ok {
		return 0, domainerrors.ErrReviewableNotFound
	}
	if reviewable.Version != expectedVersion {
		return 0, domainerrors.ErrUpdateConflict
	}
	reviewable.Payload = copyPayload(payload)
	reviewable.Version = expectedVersion + 1
	reviewable.UpdatedAt = updatedAt.UTC()
	s.reviewables[reviewableID] = reviewable
	return reviewable.Version, nil
}

func (s *Store) UpdateScore(ctx context.Context, reviewableID string, score float64, latestScoreAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviewable, ok := s.reviewables[reviewableID]
	if !ok {
		return domainerrors.ErrReviewableNotFound
	}
	reviewable.Score = score
	reviewable.LatestScoreAt = latestScoreAt.UTC()
	s.reviewables[reviewableID] = reviewable
	return nil
}

func (s *Store) ListPending(ctx context.Context, filter ports.ListFilter) ([]entities.Reviewable, error) {
	matched := s.matchPending(filter)
	if filter.Offset >= len(matched) {
		return []entities.Reviewable{}, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], nil
}

func (s *Store) CountPending(ctx context.Context, filter ports.ListFilter) (int, error) {
	return len(s.matchPending(filter)), nil
}

func (s *Store) matchPending(filter ports.ListFilter) []entities.Reviewable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := filter.Status
	if status == "" {
		status = entities.StatusPending
	}
	matched := make([]entities.Reviewable, 0, len(s.reviewables))
	for _, reviewable := range s.reviewables {
		if reviewable.Status != status {
			continue
		}
		if reviewable.Score < filter.MinScore {
			continue
		}
		if filter.Type != "" && reviewable.Type != filter.Type {
			continue
		}
		if !visibleTo(reviewable, filter) {
			continue
		}
		matched = append(matched, copyReviewable(reviewable))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		return matched[i].LatestScoreAt.After(matched[j].LatestScoreAt)
	})
	return matched
}

func visibleTo(reviewable entities.Reviewable, filter ports.ListFilter) bool {
	if filter.ForModerator {
		return true
	}
	if reviewable.ReviewableByModerator {
		return false
	}
	if reviewable.ReviewableByGroupID != "" {
		for _, groupID := range filter.GroupIDs {
			if groupID == reviewable.ReviewableByGroupID {
				return true
			}
		}
		return false
	}
	return false
}

func (s *Store) AppendScore(ctx context.Context, score entities.ReviewableScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviewables[score.ReviewableID]; !ok {
		return domainerrors.ErrReviewableNotFound
	}
	if score.Disposition == "" {
		score.Disposition = entities.DispositionPending
	}
	s.scores[score.ReviewableID] = append(s.scores[score.ReviewableID], score)
	return nil
}

func (s *Store) ListScores(ctx context.Context, reviewableID string) ([]entities.ReviewableScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.ReviewableScore(nil), s.scores[reviewableID]...), nil
}

func (s *Store) MarkScoreDispositions(
	ctx context.Context,
	reviewableID string,
	disposition entities.ScoreDisposition,
	actorID string,
	at time.Time,
) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.scores[reviewableID]
	userIDs := make([]string, 0, len(rows))
	resolvedAt := at.UTC()
	for i, row := range rows {
		if row.Disposition != entities.DispositionPending {
			continue
		}
		rows[i].Disposition = disposition
		rows[i].DispositionByID = actorID
		rows[i].DispositionAt = &resolvedAt
		userIDs = append(userIDs, row.UserID)
	}
	s.scores[reviewableID] = rows
	return userIDs, nil
}

func (s *Store) GetTarget(ctx context.Context, targetType string, targetID string) (entities.Target, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.targets[targetID]
	if !ok || target.Deleted {
		return entities.Target{}, false, nil
	}
	if targetType != "" && target.TargetType != targetType {
		return entities.Target{}, false, nil
	}
	return target, true, nil
}

func (s *Store) HideTarget(ctx context.Context, targetID string, actorID string) error {
	return s.mutateTarget(targetID, func(target *entities.Target) {
		target.Hidden = true
	})
}

func (s *Store) RestoreTarget(ctx context.Context, targetID string, actorID string) error {
	return s.mutateTarget(targetID, func(target *entities.Target) {
		target.Hidden = false
	})
}

func (s *Store) RecoverTarget(ctx context.Context, targetID string, actorID string) error {
	return s.mutateTarget(targetID, func(target *entities.Target) {
		target.UserDeleted = false
	})
}

func (s *Store) PublishTarget(ctx context.Context, targetID string, actorID string) error {
	return s.mutateTarget(targetID, func(target *entities.Target) {
		target.Hidden = false
	})
}

func (s *Store) RemoveTarget(ctx context.Context, targetID string, actorID string) error {
	return s.mutateTarget(targetID, func(target *entities.Target) {
		target.Deleted = true
	})
}

func (s *Store) mutateTarget(targetID string, mutate func(*entities.Target)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[targetID]
	if !ok {
		return domainerrors.ErrTargetMissing
	}
	mutate(&target)
	s.targets[targetID] = target
	return nil
}

func (s *Store) IncrementFlagStats(
	ctx context.Context,
	outcome entities.ScoreDisposition,
	userIDs []string,
	at time.Time,
) ([]ports.FlagStatTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make([]ports.FlagStatTotal, 0, len(userIDs))
	for _, userID := range userIDs {
		stat := s.stats[userID]
		switch outcome {
		case entities.DispositionAgreed:
			stat.Agreed++
		case entities.DispositionDisagreed:
			stat.Disagreed++
		case entities.DispositionIgnored:
			stat.Ignored++
		}
		s.stats[userID] = stat
		totals = append(totals, ports.FlagStatTotal{UserID: userID, Total: stat.total()})
	}
	return totals, nil
}

func (s *Store) TruncateFlagStats(ctx context.Context, userID string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stat, ok := s.stats[userID]
	if !ok || keep <= 0 || stat.total() <= keep {
		return nil
	}
	total := stat.total()
	stat.Disagreed = stat.Disagreed * keep / total
	stat.Ignored = stat.Ignored * keep / total
	stat.Agreed = keep - stat.Disagreed - stat.Ignored
	s.stats[userID] = stat
	return nil
}

func (s *Store) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, outboxRow{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	})
	return nil
}

func (s *Store) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := make([]ports.OutboxMessage, 0, limit)
	for _, row := range s.outbox {
		if row.Published {
			continue
		}
		messages = append(messages, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt,
		})
		if len(messages) == limit {
			break
		}
	}
	return messages, nil
}

func (s *Store) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.outbox {
		if row.OutboxID == outboxID {
			s.outbox[i].Published = true
			return nil
		}
	}
	return domainerrors.ErrUpdateConflict
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(ctx context.Context) (string, error) {
	return fmt.Sprintf("id-%d", atomic.AddUint64(&s.sequence, 1)), nil
}

// SeedTarget registers a target projection the queue can act on.
func (s *Store) SeedTarget(target entities.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[target.TargetID] = target
}

// TargetState reads back a seeded target regardless of deletion, for
// asserting side effects in tests.
func (s *Store) TargetState(targetID string) (entities.Target, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.targets[targetID]
	return target, ok
}

// FlagStats reads one actor's counter buckets.
func (s *Store) FlagStats(userID string) (agreed int, disagreed int, ignored int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stat := s.stats[userID]
	return stat.Agreed, stat.Disagreed, stat.Ignored
}

// PendingOutboxCount reports unpublished outbox rows.
func (s *Store) PendingOutboxCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, row := range s.outbox {
		if !row.Published {
			count++
		}
	}
	return count
}

func targetKey(reviewableType entities.ReviewableType, targetID string) string {
	return string(reviewableType) + "|" + strings.TrimSpace(targetID)
}

func copyReviewable(reviewable entities.Reviewable) entities.Reviewable {
	reviewable.Payload = copyPayload(reviewable.Payload)
	return reviewable
}

func copyPayload(payload map[string]string) map[string]string {
	if payload == nil {
		return nil
	}
	copied := make(map[string]string, len(payload))
	for name, value := range payload {
		copied[name] = value
	}
	return copied
}

var _ ports.ReviewableRepository = (*Store)(nil)
var _ ports.ScoreRepository = (*Store)(nil)
var _ ports.TargetStore = (*Store)(nil)
var _ ports.UserStatsStore = (*Store)(nil)
var _ ports.EventOutbox = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.UnitOfWork = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
