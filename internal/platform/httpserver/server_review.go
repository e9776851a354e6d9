package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
	reviewerrors "triage/contexts/moderation-safety/review-queue/domain/errors"
	reviewhttp "triage/contexts/moderation-safety/review-queue/transport/http"
)

func writeReviewError(w http.ResponseWriter, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, reviewhttp.ErrorEnvelope{
		Status: "error",
		Error: reviewhttp.ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeReviewDomainError maps sentinel errors onto transport codes. Unoffered
// actions map to 403: the action exists in principle, the actor just cannot
// take it here, same as a capability failure.
func writeReviewDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reviewerrors.ErrReviewableNotFound):
		writeReviewError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, reviewerrors.ErrTargetMissing):
		writeReviewError(w, http.StatusNotFound, "TARGET_MISSING", err.Error(), nil)
	case errors.Is(err, reviewerrors.ErrForbidden):
		writeReviewError(w, http.StatusForbidden, "PERMISSION_DENIED", err.Error(), nil)
	case errors.Is(err, reviewerrors.ErrInvalidAction):
		writeReviewError(w, http.StatusForbidden, "INVALID_ACTION", err.Error(), nil)
	case errors.Is(err, reviewerrors.ErrUpdateConflict):
		writeReviewError(w, http.StatusConflict, "UPDATE_CONFLICT", err.Error(), nil)
	case errors.Is(err, reviewerrors.ErrDuplicateTarget):
		writeReviewError(w, http.StatusConflict, "DUPLICATE_TARGET", err.Error(), nil)
	case errors.Is(err, reviewerrors.ErrVersionRequired):
		writeReviewError(w, http.StatusUnprocessableEntity, "VERSION_REQUIRED", err.Error(), nil)
	case errors.Is(err, reviewerrors.ErrInvalidType):
		writeReviewError(w, http.StatusBadRequest, "INVALID_TYPE", err.Error(), nil)
	case errors.Is(err, reviewerrors.ErrInvalidSignal):
		writeReviewError(w, http.StatusBadRequest, "INVALID_SIGNAL", err.Error(), nil)
	case errors.Is(err, reviewerrors.ErrValidationFailure):
		writeReviewError(w, http.StatusBadRequest, "VALIDATION_FAILURE", err.Error(), nil)
	default:
		writeReviewError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
	}
}

func requireReviewActor(w http.ResponseWriter, r *http.Request) (entities.Actor, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeReviewError(w, http.StatusUnauthorized, "USER_REQUIRED", "X-User-Id header is required", nil)
		return entities.Actor{}, false
	}
	actor := entities.Actor{
		UserID:      userID,
		IsModerator: strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Moderator")), "true"),
	}
	for _, groupID := range strings.Split(r.Header.Get("X-Group-Ids"), ",") {
		groupID = strings.TrimSpace(groupID)
		if groupID != "" {
			actor.GroupIDs = append(actor.GroupIDs, groupID)
		}
	}
	return actor, true
}

func decodeReviewJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeReviewError(w, http.StatusBadRequest, "INVALID_JSON", "request body must be valid JSON", nil)
		return false
	}
	return true
}

func (s *Server) handleSubmitFlag(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireReviewActor(w, r)
	if !ok {
		return
	}
	var req reviewhttp.FlagRequest
	if !decodeReviewJSON(w, r, &req) {
		return
	}
	resp, err := s.review.Handler.SubmitFlagHandler(r.Context(), actor, req)
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireReviewActor(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	resp, err := s.review.Handler.ListQueueHandler(
		r.Context(),
		actor,
		query.Get("min_score"),
		query.Get("type"),
		query.Get("limit"),
		query.Get("offset"),
	)
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetReviewable(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireReviewActor(w, r)
	if !ok {
		return
	}
	resp, err := s.review.Handler.GetReviewableHandler(r.Context(), actor, r.PathValue("reviewable_id"))
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateReviewable(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireReviewActor(w, r)
	if !ok {
		return
	}
	var req reviewhttp.UpdateRequest
	if !decodeReviewJSON(w, r, &req) {
		return
	}
	resp, err := s.review.Handler.UpdateReviewableHandler(r.Context(), actor, r.PathValue("reviewable_id"), req)
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePerform(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireReviewActor(w, r)
	if !ok {
		return
	}
	var req reviewhttp.PerformRequest
	if !decodeReviewJSON(w, r, &req) {
		return
	}
	resp, err := s.review.Handler.PerformHandler(
		r.Context(),
		actor,
		r.PathValue("reviewable_id"),
		r.PathValue("action_id"),
		req,
	)
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
