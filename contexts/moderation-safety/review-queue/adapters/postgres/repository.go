package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	"triage/contexts/moderation-safety/review-queue/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type txContextKey struct{}

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// WithinTransaction runs fn inside one database transaction. Repository calls
// made with the ctx fn receives join that transaction, so the version check
// and the compare-and-swap commit share a single atomic scope.
func (r *Repository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(txContextKey{}).(*gorm.DB); nested {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *Repository) CreateReviewable(ctx context.Context, reviewable entities.Reviewable) (entities.Reviewable, error) {
	row, err := reviewableModelFromEntity(reviewable)
	if err != nil {
		return entities.Reviewable{}, r.logError("review_repo_create_marshal_failed", err,
			"reviewable_id", strings.TrimSpace(reviewable.ReviewableID),
		)
	}
	create := r.conn(ctx).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return entities.Reviewable{}, domainerrors.ErrDuplicateTarget
		}
		return entities.Reviewable{}, r.logError("review_repo_create_failed", create.Error,
			"reviewable_id", row.ID,
			"target_id", row.TargetID,
		)
	}
	return row.toEntity()
}

func (r *Repository) GetReviewable(ctx context.Context, reviewableID string) (entities.Reviewable, error) {
	var row reviewableModel
	err := r.conn(ctx).
		Where("id = ?", strings.TrimSpace(reviewableID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Reviewable{}, domainerrors.ErrReviewableNotFound
		}
		return entities.Reviewable{}, r.logError("review_repo_get_failed", err,
			"reviewable_id", strings.TrimSpace(reviewableID),
		)
	}
	return row.toEntity()
}

func (r *Repository) GetOpenByTarget(
	ctx context.Context,
	reviewableType entities.ReviewableType,
	targetID string,
) (entities.Reviewable, bool, error) {
	var row reviewableModel
	err := r.conn(ctx).
		Where("type = ?", string(reviewableType)).
		Where("target_id = ?", strings.TrimSpace(targetID)).
		Where("status = ?", string(entities.StatusPending)).
		Order("created_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Reviewable{}, false, nil
		}
		return entities.Reviewable{}, false, r.logError("review_repo_get_open_by_target_failed", err,
			"type", string(reviewableType),
			"target_id", strings.TrimSpace(targetID),
		)
	}
	reviewable, err := row.toEntity()
	if err != nil {
		return entities.Reviewable{}, false, err
	}
	return reviewable, true, nil
}

func (r *Repository) UpdateTransition(
	ctx context.Context,
	reviewableID string,
	to entities.ReviewableStatus,
	expectedVersion int,
	updatedAt time.Time,
) (int, error) {
	result := r.conn(ctx).
		Model(&reviewableModel{}).
		Where("id = ?", strings.TrimSpace(reviewableID)).
		Where("version = ?", expectedVersion).
		Updates(map[string]any{
			"status":     string(to),
			"version":    expectedVersion + 1,
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return 0, r.logError("review_repo_update_transition_failed", result.Error,
			"reviewable_id", strings.TrimSpace(reviewableID),
			"to_status", string(to),
			"expected_version", expectedVersion,
		)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.conn(ctx).
			Model(&reviewableModel{}).
			Where("id = ?", strings.TrimSpace(reviewableID)).
			Count(&count).Error; err != nil {
			return 0, r.logError("review_repo_update_transition_probe_failed", err,
				"reviewable_id", strings.TrimSpace(reviewableID),
			)
		}
		if count == 0 {
			return 0, domainerrors.ErrReviewableNotFound
		}
		return 0, domainerrors.ErrUpdateConflict
	}
	return expectedVersion + 1, nil
}

func (r *Repository) UpdatePayload(
	ctx context.Context,
	reviewableID string,
	payload map[string]string,
	expectedVersion int,
	updatedAt time.Time,
) (int, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, r.logError("review_repo_update_payload_marshal_failed", err,
			"reviewable_id", strings.TrimSpace(reviewableID),
		)
	}
	result := r.conn(ctx).
		Model(&reviewableModel{}).
		Where("id = ?", strings.TrimSpace(reviewableID)).
		Where("version = ?", expectedVersion).
		Updates(map[string]any{
			"payload":    encoded,
			"version":    expectedVersion + 1,
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return 0, r.logError("review_repo_update_payload_failed", result.Error,
			"reviewable_id", strings.TrimSpace(reviewableID),
			"expected_version", expectedVersion,
		)
	}
	if result.RowsAffected == 0 {
		return 0, domainerrors.ErrUpdateConflict
	}
	return expectedVersion + 1, nil
}

func (r *Repository) UpdateScore(ctx context.Context, reviewableID string, score float64, latestScoreAt time.Time) error {
	result := r.conn(ctx).
		Model(&reviewableModel{}).
		Where("id = ?", strings.TrimSpace(reviewableID)).
		Updates(map[string]any{
			"score":           score,
			"latest_score_at": latestScoreAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("review_repo_update_score_failed", result.Error,
			"reviewable_id", strings.TrimSpace(reviewableID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrReviewableNotFound
	}
	return nil
}

func (r *Repository) ListPending(ctx context.Context, filter ports.ListFilter) ([]entities.Reviewable, error) {
	tx := r.pendingQuery(ctx, filter).
		Order("score DESC, latest_score_at DESC, id ASC").
		Offset(filter.Offset)
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	var rows []reviewableModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, r.logError("review_repo_list_pending_failed", err,
			"min_score", filter.MinScore,
			"type", string(filter.Type),
		)
	}
	items := make([]entities.Reviewable, 0, len(rows))
	for _, row := range rows {
		reviewable, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, reviewable)
	}
	return items, nil
}

func (r *Repository) CountPending(ctx context.Context, filter ports.ListFilter) (int, error) {
	var count int64
	if err := r.pendingQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, r.logError("review_repo_count_pending_failed", err,
			"min_score", filter.MinScore,
			"type", string(filter.Type),
		)
	}
	return int(count), nil
}

func (r *Repository) pendingQuery(ctx context.Context, filter ports.ListFilter) *gorm.DB {
	status := filter.Status
	if status == "" {
		status = entities.StatusPending
	}
	tx := r.conn(ctx).Model(&reviewableModel{}).
		Where("status = ?", string(status)).
		Where("score >= ?", filter.MinScore)
	if filter.Type != "" {
		tx = tx.Where("type = ?", string(filter.Type))
	}
	if !filter.ForModerator {
		tx = tx.Where("reviewable_by_moderator = ?", false)
		if len(filter.GroupIDs) > 0 {
			tx = tx.Where("reviewable_by_group_id IN ?", filter.GroupIDs)
		} else {
			// Non-moderators without group routing see nothing.
			tx = tx.Where("1 = 0")
		}
	}
	return tx
}

func (r *Repository) AppendScore(ctx context.Context, score entities.ReviewableScore) error {
	row := scoreModelFromEntity(score)
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("review_repo_append_score_failed", create.Error,
			"score_id", row.ID,
			"reviewable_id", row.ReviewableID,
		)
	}
	return nil
}

func (r *Repository) ListScores(ctx context.Context, reviewableID string) ([]entities.ReviewableScore, error) {
	var rows []scoreModel
	if err := r.conn(ctx).
		Where("reviewable_id = ?", strings.TrimSpace(reviewableID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("review_repo_list_scores_failed", err,
			"reviewable_id", strings.TrimSpace(reviewableID),
		)
	}
	items := make([]entities.ReviewableScore, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) MarkScoreDispositions(
	ctx context.Context,
	reviewableID string,
	disposition entities.ScoreDisposition,
	actorID string,
	at time.Time,
) ([]string, error) {
	var rows []scoreModel
	if err := r.conn(ctx).
		Where("reviewable_id = ?", strings.TrimSpace(reviewableID)).
		Where("disposition = ?", string(entities.DispositionPending)).
		Find(&rows).Error; err != nil {
		return nil, r.logError("review_repo_mark_dispositions_list_failed", err,
			"reviewable_id", strings.TrimSpace(reviewableID),
		)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if err := r.conn(ctx).
		Model(&scoreModel{}).
		Where("reviewable_id = ?", strings.TrimSpace(reviewableID)).
		Where("disposition = ?", string(entities.DispositionPending)).
		Updates(map[string]any{
			"disposition":       string(disposition),
			"disposition_by_id": strings.TrimSpace(actorID),
			"disposition_at":    at.UTC(),
		}).Error; err != nil {
		return nil, r.logError("review_repo_mark_dispositions_update_failed", err,
			"reviewable_id", strings.TrimSpace(reviewableID),
			"disposition", string(disposition),
		)
	}

	userIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		userIDs = append(userIDs, row.UserID)
	}
	return userIDs, nil
}

func (r *Repository) GetTarget(ctx context.Context, targetType string, targetID string) (entities.Target, bool, error) {
	tx := r.conn(ctx).Where("target_id = ?", strings.TrimSpace(targetID))
	if strings.TrimSpace(targetType) != "" {
		tx = tx.Where("target_type = ?", strings.TrimSpace(targetType))
	}
	var row targetModel
	err := tx.First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Target{}, false, nil
		}
		return entities.Target{}, false, r.logError("review_repo_get_target_failed", err,
			"target_id", strings.TrimSpace(targetID),
			"target_type", strings.TrimSpace(targetType),
		)
	}
	if row.Deleted {
		return entities.Target{}, false, nil
	}
	return row.toEntity(), true, nil
}

func (r *Repository) HideTarget(ctx context.Context, targetID string, actorID string) error {
	return r.mutateTarget(ctx, targetID, "review_repo_hide_target_failed", map[string]any{"hidden": true})
}

func (r *Repository) RestoreTarget(ctx context.Context, targetID string, actorID string) error {
	return r.mutateTarget(ctx, targetID, "review_repo_restore_target_failed", map[string]any{"hidden": false})
}

func (r *Repository) RecoverTarget(ctx context.Context, targetID string, actorID string) error {
	return r.mutateTarget(ctx, targetID, "review_repo_recover_target_failed", map[string]any{"user_deleted": false})
}

func (r *Repository) PublishTarget(ctx context.Context, targetID string, actorID string) error {
	return r.mutateTarget(ctx, targetID, "review_repo_publish_target_failed", map[string]any{"hidden": false})
}

func (r *Repository) RemoveTarget(ctx context.Context, targetID string, actorID string) error {
	return r.mutateTarget(ctx, targetID, "review_repo_remove_target_failed", map[string]any{"deleted": true})
}

func (r *Repository) mutateTarget(ctx context.Context, targetID string, event string, updates map[string]any) error {
	result := r.conn(ctx).
		Model(&targetModel{}).
		Where("target_id = ?", strings.TrimSpace(targetID)).
		Updates(updates)
	if result.Error != nil {
		return r.logError(event, result.Error, "target_id", strings.TrimSpace(targetID))
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrTargetMissing
	}
	return nil
}

func (r *Repository) IncrementFlagStats(
	ctx context.Context,
	outcome entities.ScoreDisposition,
	userIDs []string,
	at time.Time,
) ([]ports.FlagStatTotal, error) {
	column, ok := flagStatColumn(outcome)
	if !ok {
		return nil, nil
	}

	totals := make([]ports.FlagStatTotal, 0, len(userIDs))
	for _, userID := range userIDs {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		row := flagStatsModel{UserID: userID, UpdatedAt: at.UTC()}
		switch outcome {
		case entities.DispositionAgreed:
			row.Agreed = 1
		case entities.DispositionDisagreed:
			row.Disagreed = 1
		case entities.DispositionIgnored:
			row.Ignored = 1
		}
		if err := r.conn(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				column:       gorm.Expr("user_flag_stats."+column+" + 1"),
				"updated_at": at.UTC(),
			}),
		}).Create(&row).Error; err != nil {
			return nil, r.logError("review_repo_increment_flag_stats_failed", err,
				"user_id", userID,
				"outcome", string(outcome),
			)
		}

		var current flagStatsModel
		if err := r.conn(ctx).
			Where("user_id = ?", userID).
			First(&current).Error; err != nil {
			return nil, r.logError("review_repo_flag_stats_readback_failed", err, "user_id", userID)
		}
		totals = append(totals, ports.FlagStatTotal{
			UserID: userID,
			Total:  current.Agreed + current.Disagreed + current.Ignored,
		})
	}
	return totals, nil
}

func (r *Repository) TruncateFlagStats(ctx context.Context, userID string, keep int) error {
	if keep <= 0 {
		return nil
	}
	var row flagStatsModel
	err := r.conn(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return r.logError("review_repo_truncate_flag_stats_get_failed", err,
			"user_id", strings.TrimSpace(userID),
		)
	}
	total := row.Agreed + row.Disagreed + row.Ignored
	if total <= keep {
		return nil
	}
	disagreed := row.Disagreed * keep / total
	ignored := row.Ignored * keep / total
	agreed := keep - disagreed - ignored
	if err := r.conn(ctx).
		Model(&flagStatsModel{}).
		Where("user_id = ?", row.UserID).
		Updates(map[string]any{
			"agreed":     agreed,
			"disagreed":  disagreed,
			"ignored":    ignored,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return r.logError("review_repo_truncate_flag_stats_update_failed", err,
			"user_id", row.UserID,
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("review_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("review_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.conn(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("review_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.conn(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("review_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrUpdateConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "moderation-safety/review-queue",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("review repository operation failed", fields...)
	return err
}

type reviewableModel struct {
	ID                    string    `gorm:"column:id;primaryKey"`
	Type                  string    `gorm:"column:type"`
	Status                string    `gorm:"column:status"`
	Score                 float64   `gorm:"column:score"`
	Version               int       `gorm:"column:version"`
	TargetID              string    `gorm:"column:target_id"`
	TargetType            string    `gorm:"column:target_type"`
	CreatedByID           string    `gorm:"column:created_by_id"`
	TargetCreatedByID     string    `gorm:"column:target_created_by_id"`
	ReviewableByModerator bool      `gorm:"column:reviewable_by_moderator"`
	ReviewableByGroupID   string    `gorm:"column:reviewable_by_group_id"`
	Payload               []byte    `gorm:"column:payload"`
	LatestScoreAt         time.Time `gorm:"column:latest_score_at"`
	CreatedAt             time.Time `gorm:"column:created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (reviewableModel) TableName() string {
	return "reviewables"
}

func reviewableModelFromEntity(reviewable entities.Reviewable) (reviewableModel, error) {
	payload := []byte("{}")
	if len(reviewable.Payload) > 0 {
		encoded, err := json.Marshal(reviewable.Payload)
		if err != nil {
			return reviewableModel{}, err
		}
		payload = encoded
	}
	row := reviewableModel{
		ID:                    strings.TrimSpace(reviewable.ReviewableID),
		Type:                  string(reviewable.Type),
		Status:                string(reviewable.Status),
		Score:                 reviewable.Score,
		Version:               reviewable.Version,
		TargetID:              strings.TrimSpace(reviewable.TargetID),
		TargetType:            strings.TrimSpace(reviewable.TargetType),
		CreatedByID:           strings.TrimSpace(reviewable.CreatedByID),
		TargetCreatedByID:     strings.TrimSpace(reviewable.TargetCreatedByID),
		ReviewableByModerator: reviewable.ReviewableByModerator,
		ReviewableByGroupID:   strings.TrimSpace(reviewable.ReviewableByGroupID),
		Payload:               payload,
		LatestScoreAt:         reviewable.LatestScoreAt.UTC(),
		CreatedAt:             reviewable.CreatedAt.UTC(),
		UpdatedAt:             reviewable.UpdatedAt.UTC(),
	}
	if row.Status == "" {
		row.Status = string(entities.StatusPending)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m reviewableModel) toEntity() (entities.Reviewable, error) {
	var payload map[string]string
	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return entities.Reviewable{}, err
		}
	}
	return entities.Reviewable{
		ReviewableID:          m.ID,
		Type:                  entities.ReviewableType(m.Type),
		Status:                entities.ReviewableStatus(m.Status),
		Score:                 m.Score,
		Version:               m.Version,
		TargetID:              m.TargetID,
		TargetType:            m.TargetType,
		CreatedByID:           m.CreatedByID,
		TargetCreatedByID:     m.TargetCreatedByID,
		ReviewableByModerator: m.ReviewableByModerator,
		ReviewableByGroupID:   m.ReviewableByGroupID,
		Payload:               payload,
		LatestScoreAt:         m.LatestScoreAt.UTC(),
		CreatedAt:             m.CreatedAt.UTC(),
		UpdatedAt:             m.UpdatedAt.UTC(),
	}, nil
}

type scoreModel struct {
	ID              string     `gorm:"column:id;primaryKey"`
	ReviewableID    string     `gorm:"column:reviewable_id"`
	UserID          string     `gorm:"column:user_id"`
	ScoreType       string     `gorm:"column:score_type"`
	Weight          float64    `gorm:"column:weight"`
	Disposition     string     `gorm:"column:disposition"`
	DispositionByID string     `gorm:"column:disposition_by_id"`
	DispositionAt   *time.Time `gorm:"column:disposition_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
}

func (scoreModel) TableName() string {
	return "reviewable_scores"
}

func scoreModelFromEntity(score entities.ReviewableScore) scoreModel {
	row := scoreModel{
		ID:              strings.TrimSpace(score.ScoreID),
		ReviewableID:    strings.TrimSpace(score.ReviewableID),
		UserID:          strings.TrimSpace(score.UserID),
		ScoreType:       string(score.ScoreType),
		Weight:          score.Weight,
		Disposition:     string(score.Disposition),
		DispositionByID: strings.TrimSpace(score.DispositionByID),
		DispositionAt:   normalizeOptionalTime(score.DispositionAt),
		CreatedAt:       score.CreatedAt.UTC(),
	}
	if row.Disposition == "" {
		row.Disposition = string(entities.DispositionPending)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m scoreModel) toEntity() entities.ReviewableScore {
	return entities.ReviewableScore{
		ScoreID:         m.ID,
		ReviewableID:    m.ReviewableID,
		UserID:          m.UserID,
		ScoreType:       entities.ScoreType(m.ScoreType),
		Weight:          m.Weight,
		Disposition:     entities.ScoreDisposition(m.Disposition),
		DispositionByID: m.DispositionByID,
		DispositionAt:   normalizeOptionalTime(m.DispositionAt),
		CreatedAt:       m.CreatedAt.UTC(),
	}
}

type targetModel struct {
	TargetID    string `gorm:"column:target_id;primaryKey"`
	TargetType  string `gorm:"column:target_type"`
	CreatedByID string `gorm:"column:created_by_id"`
	Hidden      bool   `gorm:"column:hidden"`
	UserDeleted bool   `gorm:"column:user_deleted"`
	Deleted     bool   `gorm:"column:deleted"`
}

func (targetModel) TableName() string {
	return "review_targets"
}

func (m targetModel) toEntity() entities.Target {
	return entities.Target{
		TargetID:    m.TargetID,
		TargetType:  m.TargetType,
		CreatedByID: m.CreatedByID,
		Hidden:      m.Hidden,
		UserDeleted: m.UserDeleted,
		Deleted:     m.Deleted,
	}
}

type flagStatsModel struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Agreed    int       `gorm:"column:agreed"`
	Disagreed int       `gorm:"column:disagreed"`
	Ignored   int       `gorm:"column:ignored"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (flagStatsModel) TableName() string {
	return "user_flag_stats"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "review_outbox"
}

func flagStatColumn(outcome entities.ScoreDisposition) (string, bool) {
	switch outcome {
	case entities.DispositionAgreed:
		return "agreed", true
	case entities.DispositionDisagreed:
		return "disagreed", true
	case entities.DispositionIgnored:
		return "ignored", true
	default:
		return "", false
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ReviewableRepository = (*Repository)(nil)
var _ ports.ScoreRepository = (*Repository)(nil)
var _ ports.TargetStore = (*Repository)(nil)
var _ ports.UserStatsStore = (*Repository)(nil)
var _ ports.EventOutbox = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.UnitOfWork = (*Repository)(nil)
