package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	reviewqueue "triage/contexts/moderation-safety/review-queue"
	"triage/contexts/moderation-safety/review-queue/domain/entities"
	reviewhttp "triage/contexts/moderation-safety/review-queue/transport/http"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	module := reviewqueue.NewInMemoryModule(nil)
	module.Store.SeedTarget(entities.Target{TargetID: "post-1", TargetType: "post", CreatedByID: "author-1"})
	return New(module, nil, "")
}

func doRequest(t *testing.T, server *Server, method string, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func moderatorHeaders() map[string]string {
	return map[string]string{"X-User-Id": "mod-1", "X-Moderator": "true"}
}

func TestSubmitFlagEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/review/flags",
		`{"type":"flagged_post","target_id":"post-1","target_type":"post","score_type":"spam"}`,
		map[string]string{"X-User-Id": "flagger-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp reviewhttp.ReviewableResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.Status != "success" || resp.Data.Reviewable.Status != "pending" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Data.Reviewable.Score != 5.0 {
		t.Fatalf("expected spam weight 5.0, got %v", resp.Data.Reviewable.Score)
	}
}

func TestMissingUserHeaderUnauthorized(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/review/queue", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var envelope reviewhttp.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope failed: %v", err)
	}
	if envelope.Error.Code != "USER_REQUIRED" {
		t.Fatalf("expected USER_REQUIRED, got %q", envelope.Error.Code)
	}
}

func TestPerformStaleVersionMapsToConflict(t *testing.T) {
	server := newTestServer(t)

	created := doRequest(t, server, http.MethodPost, "/api/review/flags",
		`{"type":"flagged_post","target_id":"post-1","target_type":"post","score_type":"spam"}`,
		map[string]string{"X-User-Id": "flagger-1"})
	if created.Code != http.StatusCreated {
		t.Fatalf("seed flag failed: %d %s", created.Code, created.Body.String())
	}
	var resp reviewhttp.ReviewableResponse
	if err := json.Unmarshal(created.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}

	rec := doRequest(t, server, http.MethodPost,
		"/api/review/"+resp.Data.Reviewable.ReviewableID+"/perform/ignore",
		`{"version":9}`, moderatorHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope reviewhttp.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope failed: %v", err)
	}
	if envelope.Error.Code != "UPDATE_CONFLICT" {
		t.Fatalf("expected UPDATE_CONFLICT, got %q", envelope.Error.Code)
	}
}

func TestPerformWithoutVersionUnprocessable(t *testing.T) {
	server := newTestServer(t)

	created := doRequest(t, server, http.MethodPost, "/api/review/flags",
		`{"type":"flagged_post","target_id":"post-1","target_type":"post","score_type":"spam"}`,
		map[string]string{"X-User-Id": "flagger-1"})
	var resp reviewhttp.ReviewableResponse
	if err := json.Unmarshal(created.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}

	rec := doRequest(t, server, http.MethodPost,
		"/api/review/"+resp.Data.Reviewable.ReviewableID+"/perform/ignore",
		`{}`, moderatorHeaders())
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestQueueRejectsMalformedPaging(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{
		"/api/review/queue?limit=abc",
		"/api/review/queue?offset=zz",
		"/api/review/queue?min_score=high",
	} {
		rec := doRequest(t, server, http.MethodGet, path, "", moderatorHeaders())
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
		var envelope reviewhttp.ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("%s: decode error envelope failed: %v", path, err)
		}
		if envelope.Error.Code != "VALIDATION_FAILURE" {
			t.Fatalf("%s: expected VALIDATION_FAILURE, got %q", path, envelope.Error.Code)
		}
	}
}

func TestGetUnknownReviewableNotFound(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/review/rev-missing", "", moderatorHeaders())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMalformedJSONBadRequest(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/review/flags",
		`{"type":`, map[string]string{"X-User-Id": "flagger-1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var envelope reviewhttp.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope failed: %v", err)
	}
	if envelope.Error.Code != "INVALID_JSON" {
		t.Fatalf("expected INVALID_JSON, got %q", envelope.Error.Code)
	}
}
