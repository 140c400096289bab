package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/internal/orchestrator_service/service"
	"AgentHub/backend/go/internal/orchestrator_service/store"
	"AgentHub/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrchestrator struct {
	mu           sync.Mutex
	tasks        map[string]*models.Task
	deliverables map[string]*models.Deliverable
	submitErr    error
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{tasks: map[string]*models.Task{}, deliverables: map[string]*models.Deliverable{}}
}

func (f *fakeOrchestrator) put(task *models.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task
}

func (f *fakeOrchestrator) Submit(_ context.Context, description string) (*models.Task, error) {
	if strings.TrimSpace(description) == "" {
		return nil, service.ErrEmptyDescription
	}
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	task := models.NewTask("task-1", description, time.Now())
	f.put(task)
	return task, nil
}

func (f *fakeOrchestrator) GetTask(_ context.Context, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t.Clone(), nil
}

func (f *fakeOrchestrator) GetActivities(ctx context.Context, id string) ([]models.Activity, error) {
	t, err := f.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.Activities, nil
}

func (f *fakeOrchestrator) GetDeliverable(_ context.Context, id string) (*models.Deliverable, error) {
	d, ok := f.deliverables[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeOrchestrator) ListDeliverables(context.Context) ([]*models.Deliverable, error) {
	return []*models.Deliverable{{ID: "d2"}, {ID: "d1"}}, nil
}

func (f *fakeOrchestrator) ListAgents() []models.AgentProfile {
	return []models.AgentProfile{{ID: "business_consultant", DisplayName: "General Business Consultant"}}
}

func newTestRouter(orch Orchestrator, events EventSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(logger.Discard()))
	RegisterRoutes(r, NewAPI(orch, events, logger.Discard()), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	}))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitTask(t *testing.T) {
	r := newTestRouter(newFakeOrchestrator(), nil)

	w := do(r, http.MethodPost, "/api/v1/tasks", `{"description":"Launch a campaign"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "task-1", body["task_id"])
	assert.Equal(t, "analyzing", body["status"])

	w = do(r, http.MethodPost, "/api/v1/tasks", `{"description":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "must not be empty")

	w = do(r, http.MethodPost, "/api/v1/tasks", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitTaskInternalError(t *testing.T) {
	orch := newFakeOrchestrator()
	orch.submitErr = errors.New("store exploded")
	w := do(newTestRouter(orch, nil), http.MethodPost, "/api/v1/tasks", `{"description":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestQueries(t *testing.T) {
	orch := newFakeOrchestrator()
	task := models.NewTask("abc", "desc", time.Now())
	task.AppendActivity(models.ActivityAnalyzing, "", "Analyzing task request", time.Now())
	orch.put(task)
	orch.deliverables["d1"] = &models.Deliverable{ID: "d1", TaskID: "abc", Title: "T"}
	r := newTestRouter(orch, nil)

	w := do(r, http.MethodGet, "/api/v1/tasks/abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "desc", got.Description)

	w = do(r, http.MethodGet, "/api/v1/tasks/abc/activities", "")
	require.Equal(t, http.StatusOK, w.Code)
	var activities []models.Activity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &activities))
	assert.Len(t, activities, 1)

	for _, path := range []string{"/api/v1/tasks/nope", "/api/v1/tasks/nope/activities", "/api/v1/deliverables/nope"} {
		w = do(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), `"error"`)
	}

	w = do(r, http.MethodGet, "/api/v1/deliverables/d1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"T"`)

	w = do(r, http.MethodGet, "/api/v1/deliverables", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Index(w.Body.String(), "d2") < strings.Index(w.Body.String(), "d1"))

	w = do(r, http.MethodGet, "/api/v1/agents", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "business_consultant")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)
	assert.Contains(t, do(r, http.MethodGet, "/metrics", "").Body.String(), "# metrics")
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/ws/tasks/abc", "").Code, "websocket route off without an event source")
}

func dialWS(t *testing.T, srv *httptest.Server, taskID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tasks/" + taskID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *models.TaskEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var e models.TaskEvent
	require.NoError(t, conn.ReadJSON(&e))
	return &e
}

func TestWebSocketStream(t *testing.T) {
	orch := newFakeOrchestrator()
	task := models.NewTask("live", "desc", time.Now())
	first := task.AppendActivity(models.ActivityAnalyzing, "", "Analyzing task request", time.Now())
	orch.put(task)
	hub := service.NewConnectionManager(logger.Discard())
	srv := httptest.NewServer(newTestRouter(orch, hub))
	defer srv.Close()

	conn := dialWS(t, srv, "live")
	defer conn.Close()

	assert.Equal(t, first.Seq, readEvent(t, conn).Activity.Seq, "snapshot first")
	require.Eventually(t, func() bool { return hub.Count("live") == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	// A duplicate of the snapshot is skipped.
	require.NoError(t, hub.Publish(ctx, models.NewTaskEvent("live", models.TaskStatusAnalyzing, first)))
	require.NoError(t, hub.Publish(ctx, models.NewTaskEvent("live", models.TaskStatusRouting, models.Activity{Seq: 2, Kind: models.ActivityRouting})))
	require.NoError(t, hub.Publish(ctx, models.NewTaskEvent("live", models.TaskStatusCompleted, models.Activity{Seq: 3, Kind: models.ActivityComplete})))

	assert.Equal(t, 2, readEvent(t, conn).Activity.Seq)
	final := readEvent(t, conn)
	assert.Equal(t, 3, final.Activity.Seq)
	assert.True(t, final.Final())

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "server closes after the final event: %v", err)
}

func TestWebSocketFinishedTask(t *testing.T) {
	orch := newFakeOrchestrator()
	task := models.NewTask("done", "desc", time.Now())
	task.AppendActivity(models.ActivityAnalyzing, "", "a", time.Now())
	require.NoError(t, task.Advance(models.TaskStatusFailed, time.Now()))
	task.AppendActivity(models.ActivityError, "", "boom", time.Now())
	orch.put(task)
	srv := httptest.NewServer(newTestRouter(orch, service.NewConnectionManager(nil)))
	defer srv.Close()

	conn := dialWS(t, srv, "done")
	defer conn.Close()
	assert.Equal(t, 1, readEvent(t, conn).Activity.Seq)
	assert.Equal(t, 2, readEvent(t, conn).Activity.Seq)
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestWebSocketUnknownTask(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(newFakeOrchestrator(), service.NewConnectionManager(nil)))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tasks/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
