package httpadapter

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"triage/contexts/moderation-safety/review-queue/application"
	"triage/contexts/moderation-safety/review-queue/application/queries"
	"triage/contexts/moderation-safety/review-queue/domain/entities"
	domainerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	httptransport "triage/contexts/moderation-safety/review-queue/transport/http"
)

// Handler translates wire shapes into use case calls. Error mapping onto
// status codes stays in the platform http server.
type Handler struct {
	Intake    application.Intake
	Engine    application.TransitionEngine
	Editor    application.Editor
	ListQueue queries.ListUseCase
	GetOne    queries.GetUseCase
	Logger    *slog.Logger
}

func (h Handler) SubmitFlagHandler(ctx context.Context, actor entities.Actor, req httptransport.FlagRequest) (httptransport.ReviewableResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = actor.UserID
	}
	reviewable, err := h.Intake.SubmitSignal(ctx, application.SignalCommand{
		Type:       entities.ReviewableType(strings.TrimSpace(req.Type)),
		TargetID:   strings.TrimSpace(req.TargetID),
		TargetType: strings.TrimSpace(req.TargetType),
		UserID:     userID,
		ScoreType:  entities.ScoreType(strings.TrimSpace(req.ScoreType)),
		Payload:    req.Payload,
	})
	if err != nil {
		return httptransport.ReviewableResponse{}, err
	}
	resp := httptransport.ReviewableResponse{Status: "success", Timestamp: timestamp()}
	resp.Data.Reviewable = mapReviewableData(reviewable, entities.ActionSet{})
	return resp, nil
}

func (h Handler) ListQueueHandler(
	ctx context.Context,
	actor entities.Actor,
	minScoreRaw string,
	typeRaw string,
	limitRaw string,
	offsetRaw string,
) (httptransport.QueueResponse, error) {
	query := queries.ListQuery{Type: strings.TrimSpace(typeRaw)}
	if raw := strings.TrimSpace(minScoreRaw); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return httptransport.QueueResponse{}, domainerrors.ErrValidationFailure
		}
		query.MinScore = &parsed
	}
	if raw := strings.TrimSpace(limitRaw); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return httptransport.QueueResponse{}, domainerrors.ErrValidationFailure
		}
		query.Limit = parsed
	}
	if raw := strings.TrimSpace(offsetRaw); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return httptransport.QueueResponse{}, domainerrors.ErrValidationFailure
		}
		query.Offset = parsed
	}

	result, err := h.ListQueue.List(ctx, actor, query)
	if err != nil {
		return httptransport.QueueResponse{}, err
	}
	resp := httptransport.QueueResponse{Status: "success", Timestamp: timestamp()}
	resp.Data.Items = make([]httptransport.ReviewableData, 0, len(result.Items))
	for _, item := range result.Items {
		resp.Data.Items = append(resp.Data.Items, mapReviewableData(item, entities.ActionSet{}))
	}
	resp.Data.Meta.TotalRowsReviewables = result.TotalRows
	resp.Data.Meta.PerPage = queries.PerPage
	resp.Data.Meta.Offset = query.Offset
	return resp, nil
}

func (h Handler) GetReviewableHandler(ctx context.Context, actor entities.Actor, reviewableID string) (httptransport.ReviewableResponse, error) {
	reviewable, actions, err := h.GetOne.Get(ctx, actor, reviewableID)
	if err != nil {
		return httptransport.ReviewableResponse{}, err
	}
	resp := httptransport.ReviewableResponse{Status: "success", Timestamp: timestamp()}
	resp.Data.Reviewable = mapReviewableData(reviewable, actions)
	return resp, nil
}

func (h Handler) PerformHandler(
	ctx context.Context,
	actor entities.Actor,
	reviewableID string,
	actionID string,
	req httptransport.PerformRequest,
) (httptransport.PerformResponse, error) {
	if req.Version == nil {
		return httptransport.PerformResponse{}, domainerrors.ErrVersionRequired
	}
	result, err := h.Engine.Perform(ctx, actor, reviewableID, actionID, *req.Version, req.Args)
	if err != nil {
		return httptransport.PerformResponse{}, err
	}
	resp := httptransport.PerformResponse{Status: "success", Timestamp: timestamp()}
	resp.Data.ReviewableID = strings.TrimSpace(reviewableID)
	resp.Data.Success = result.Success
	resp.Data.Outcome = string(result.Outcome)
	resp.Data.TransitionTo = string(result.TransitionTo)
	resp.Data.Version = result.Version
	resp.Data.RemoveFromQueue = result.RemoveFromQueue
	return resp, nil
}

func (h Handler) UpdateReviewableHandler(
	ctx context.Context,
	actor entities.Actor,
	reviewableID string,
	req httptransport.UpdateRequest,
) (httptransport.UpdateResponse, error) {
	if req.Version == nil {
		return httptransport.UpdateResponse{}, domainerrors.ErrVersionRequired
	}
	result, err := h.Editor.UpdateFields(ctx, actor, reviewableID, req.Fields, *req.Version)
	if err != nil {
		return httptransport.UpdateResponse{}, err
	}
	resp := httptransport.UpdateResponse{Status: "success", Timestamp: timestamp()}
	resp.Data.ReviewableID = strings.TrimSpace(reviewableID)
	resp.Data.Fields = result.Fields
	resp.Data.Version = result.Version
	return resp, nil
}

func mapReviewableData(reviewable entities.Reviewable, actions entities.ActionSet) httptransport.ReviewableData {
	data := httptransport.ReviewableData{
		ReviewableID:          reviewable.ReviewableID,
		Type:                  string(reviewable.Type),
		Status:                string(reviewable.Status),
		Score:                 reviewable.Score,
		Version:               reviewable.Version,
		TargetID:              reviewable.TargetID,
		TargetType:            reviewable.TargetType,
		CreatedByID:           reviewable.CreatedByID,
		TargetCreatedByID:     reviewable.TargetCreatedByID,
		ReviewableByModerator: reviewable.ReviewableByModerator,
		ReviewableByGroupID:   reviewable.ReviewableByGroupID,
		Payload:               reviewable.Payload,
		CreatedAt:             reviewable.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             reviewable.UpdatedAt.UTC().Format(time.RFC3339),
		Actions:               make([]httptransport.ActionData, 0, len(actions.Actions)),
	}
	if !reviewable.LatestScoreAt.IsZero() {
		data.LatestScoreAt = reviewable.LatestScoreAt.UTC().Format(time.RFC3339)
	}
	for _, action := range actions.Actions {
		data.Actions = append(data.Actions, httptransport.ActionData{
			ID:                  action.ID,
			Icon:                action.Icon,
			TitleKey:            action.TitleKey,
			DescriptionKey:      action.DescriptionKey,
			RequireConfirmation: action.RequireConfirmation,
		})
	}
	return data
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
