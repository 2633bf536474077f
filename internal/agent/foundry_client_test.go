package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ashureev/agent-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFoundryClient(t *testing.T, handler http.Handler) *FoundryClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewFoundryClient(FoundryConfig{Endpoint: srv.URL + "/api/projects/demo/"}, srv.Client(), nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewFoundryClientRequiresEndpoint(t *testing.T) {
	_, err := NewFoundryClient(FoundryConfig{Endpoint: "  "}, nil, nil)
	assert.Error(t, err)
}

func TestFoundryClientCreateMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/projects/demo/threads/thread_1/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "v1", r.URL.Query().Get("api-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body createMessageRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user", body.Role)
		assert.Equal(t, "hi there", body.Content)

		writeJSON(w, http.StatusOK, map[string]any{
			"id":         "msg_1",
			"thread_id":  "thread_1",
			"role":       "user",
			"created_at": 1700000000,
			"content": []map[string]any{
				{"type": "text", "text": map[string]any{"value": "hi there", "annotations": []any{}}},
			},
		})
	})
	c := newTestFoundryClient(t, mux)

	msg, err := c.CreateMessage(context.Background(), "thread_1", domain.RoleUser, "hi there")
	require.NoError(t, err)
	assert.Equal(t, "msg_1", msg.ID)
	assert.Equal(t, "hi there", msg.LastText())
	assert.Equal(t, int64(1700000000), msg.CreatedAt.Unix())
}

func TestFoundryClientRunLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/projects/demo/threads/thread_1/runs", func(w http.ResponseWriter, r *http.Request) {
		var body createRunRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "asst_1", body.AssistantID)
		writeJSON(w, http.StatusOK, map[string]any{"id": "run_1", "thread_id": "thread_1", "status": "queued", "created_at": 1700000000})
	})
	mux.HandleFunc("GET /api/projects/demo/threads/thread_1/runs/run_1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "run_1", "thread_id": "thread_1", "status": "failed", "model": "gpt-4o",
			"created_at": 1700000000, "completed_at": nil,
			"last_error": map[string]any{"code": "server_error", "message": "boom"},
		})
	})
	c := newTestFoundryClient(t, mux)

	run, err := c.CreateRun(context.Background(), "thread_1", "asst_1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusQueued, run.Status)

	run, err = c.GetRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Nil(t, run.CompletedAt)
	require.NotNil(t, run.LastError)
	assert.Equal(t, "server_error: boom", run.LastError.String())
}

func TestFoundryClientListMessagesFollowsPages(t *testing.T) {
	var afters []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects/demo/threads/thread_1/messages", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "asc", q.Get("order"))
		assert.Equal(t, strconv.Itoa(maxPageSize), q.Get("limit"))
		after := q.Get("after")
		afters = append(afters, after)

		start := 1
		if after != "" {
			start = 3
		}
		var data []map[string]any
		for i := start; i < start+2; i++ {
			data = append(data, map[string]any{
				"id":   fmt.Sprintf("msg_%d", i),
				"role": "assistant",
				"content": []map[string]any{{
					"type": "text",
					"text": map[string]any{
						"value": fmt.Sprintf("answer %d", i),
						"annotations": []map[string]any{
							{"type": "file_citation", "text": "【0†source】", "file_citation": map[string]any{"file_id": fmt.Sprintf("file_%d", i)}},
						},
					},
				}},
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":     data,
			"first_id": data[0]["id"],
			"last_id":  data[1]["id"],
			"has_more": after == "",
		})
	})
	c := newTestFoundryClient(t, mux)

	msgs, err := c.ListMessages(context.Background(), "thread_1", ListOptions{Order: SortAscending})
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"", "msg_2"}, afters)
	assert.Equal(t, "msg_4", msgs[3].ID)
	assert.Equal(t, []domain.FileCitation{{FileID: "file_4"}}, msgs[3].FileCitations)
}

func TestFoundryClientListMessagesHonorsLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects/demo/threads/thread_1/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"id": "msg_9", "role": "assistant"},
				{"id": "msg_8", "role": "user"},
			},
			"last_id":  "msg_8",
			"has_more": true,
		})
	})
	c := newTestFoundryClient(t, mux)

	msgs, err := c.ListMessages(context.Background(), "thread_1", ListOptions{Order: SortDescending, Limit: 2})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg_9", msgs[0].ID)
}

func TestFoundryClientDecodesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects/demo/assistants/asst_missing", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": "NotFound", "message": "No assistant found with id 'asst_missing'."},
		})
	})
	mux.HandleFunc("POST /api/projects/demo/threads", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})
	c := newTestFoundryClient(t, mux)

	_, err := c.GetAgent(context.Background(), "asst_missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NotFound", apiErr.Code)

	_, err = c.CreateThread(context.Background())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}
