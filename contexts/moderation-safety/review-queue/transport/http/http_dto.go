package http

type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Status    string    `json:"status"`
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
}

type FlagRequest struct {
	Type       string            `json:"type"`
	TargetID   string            `json:"target_id"`
	TargetType string            `json:"target_type"`
	UserID     string            `json:"user_id"`
	ScoreType  string            `json:"score_type"`
	Payload    map[string]string `json:"payload,omitempty"`
}

type PerformRequest struct {
	Version *int              `json:"version"`
	Args    map[string]string `json:"args,omitempty"`
}

type UpdateRequest struct {
	Version *int              `json:"version"`
	Fields  map[string]string `json:"fields"`
}

type ActionData struct {
	ID                  string `json:"id"`
	Icon                string `json:"icon,omitempty"`
	TitleKey            string `json:"title_key"`
	DescriptionKey      string `json:"description_key"`
	RequireConfirmation bool   `json:"require_confirmation,omitempty"`
}

type ReviewableData struct {
	ReviewableID          string            `json:"reviewable_id"`
	Type                  string            `json:"type"`
	Status                string            `json:"status"`
	Score                 float64           `json:"score"`
	Version               int               `json:"version"`
	TargetID              string            `json:"target_id"`
	TargetType            string            `json:"target_type"`
	CreatedByID           string            `json:"created_by_id,omitempty"`
	TargetCreatedByID     string            `json:"target_created_by_id,omitempty"`
	ReviewableByModerator bool              `json:"reviewable_by_moderator"`
	ReviewableByGroupID   string            `json:"reviewable_by_group_id,omitempty"`
	Payload               map[string]string `json:"payload,omitempty"`
	LatestScoreAt         string            `json:"latest_score_at,omitempty"`
	CreatedAt             string            `json:"created_at"`
	UpdatedAt             string            `json:"updated_at"`
	Actions               []ActionData      `json:"actions"`
}

type ReviewableResponse struct {
	Status string `json:"status"`
	Data   struct {
		Reviewable ReviewableData `json:"reviewable"`
	} `json:"data"`
	Timestamp string `json:"timestamp"`
}

type QueueResponse struct {
	Status string `json:"status"`
	Data   struct {
		Items []ReviewableData `json:"items"`
		Meta  struct {
			TotalRowsReviewables int `json:"total_rows_reviewables"`
			PerPage              int `json:"per_page"`
			Offset               int `json:"offset"`
		} `json:"meta"`
	} `json:"data"`
	Timestamp string `json:"timestamp"`
}

type PerformResponse struct {
	Status string `json:"status"`
	Data   struct {
		ReviewableID    string `json:"reviewable_id"`
		Success         bool   `json:"success"`
		Outcome         string `json:"outcome"`
		TransitionTo    string `json:"transition_to"`
		Version         int    `json:"version"`
		RemoveFromQueue bool   `json:"remove_from_queue"`
	} `json:"data"`
	Timestamp string `json:"timestamp"`
}

type UpdateResponse struct {
	Status string `json:"status"`
	Data   struct {
		ReviewableID string            `json:"reviewable_id"`
		Fields       map[string]string `json:"fields"`
		Version      int               `json:"version"`
	} `json:"data"`
	Timestamp string `json:"timestamp"`
}
