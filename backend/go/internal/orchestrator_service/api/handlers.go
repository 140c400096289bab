package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/internal/orchestrator_service/service"
	"AgentHub/backend/go/internal/orchestrator_service/store"
	"AgentHub/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// Orchestrator is the task surface the handlers depend on.
type Orchestrator interface {
	Submit(ctx context.Context, description string) (*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	GetActivities(ctx context.Context, id string) ([]models.Activity, error)
	GetDeliverable(ctx context.Context, id string) (*models.Deliverable, error)
	ListDeliverables(ctx context.Context) ([]*models.Deliverable, error)
	ListAgents() []models.AgentProfile
}

// EventSource hands out live event subscriptions per task.
type EventSource interface {
	Subscribe(taskID string) *service.Subscription
}

// API provides handlers for the orchestrator service.
type API struct {
	orchestrator Orchestrator
	events       EventSource
	logger       *logger.Logger
	upgrader     websocket.Upgrader
}

// NewAPI creates a new API handler. events may be nil when websockets are disabled.
func NewAPI(orchestrator Orchestrator, events EventSource, logger *logger.Logger) *API {
	return &API{
		orchestrator: orchestrator,
		events:       events,
		logger:       logger,
		upgrader: websocket.Upgrader{
			// Authentication is handled outside this service.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type submitTaskRequest struct {
	Description string `json:"description"`
}

// SubmitTaskHandler handles the submission of a new task.
func (a *API) SubmitTaskHandler(c *gin.Context) {
	var payload submitTaskRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	task, err := a.orchestrator.Submit(c.Request.Context(), payload.Description)
	if errors.Is(err, service.ErrEmptyDescription) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		// The orchestrator already logged the detailed error
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit task"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID, "status": task.Status})
}

// GetTaskHandler handles requests to get a single task by its ID.
func (a *API) GetTaskHandler(c *gin.Context) {
	task, err := a.orchestrator.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "Task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// GetActivitiesHandler returns only the activity log of a task.
func (a *API) GetActivitiesHandler(c *gin.Context) {
	activities, err := a.orchestrator.GetActivities(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "Task")
		return
	}
	c.JSON(http.StatusOK, activities)
}

// ListDeliverablesHandler returns every deliverable, newest first.
func (a *API) ListDeliverablesHandler(c *gin.Context) {
	deliverables, err := a.orchestrator.ListDeliverables(c.Request.Context())
	if err != nil {
		a.respondError(c, err, "Deliverables")
		return
	}
	c.JSON(http.StatusOK, deliverables)
}

// GetDeliverableHandler handles requests to get a single deliverable by its ID.
func (a *API) GetDeliverableHandler(c *gin.Context) {
	d, err := a.orchestrator.GetDeliverable(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "Deliverable")
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListAgentsHandler returns the agent registry.
func (a *API) ListAgentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.orchestrator.ListAgents())
}

// HealthHandler reports liveness.
func (a *API) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// WebSocketHandler streams a task's activities: the existing log first, then live events
// until the task reaches a terminal state.
func (a *API) WebSocketHandler(c *gin.Context) {
	taskID := c.Param("id")
	ctx := c.Request.Context()
	if _, err := a.orchestrator.GetTask(ctx, taskID); err != nil {
		a.respondError(c, err, "Task")
		return
	}

	// Subscribe before taking the snapshot so no event falls between the two.
	sub := a.events.Subscribe(taskID)
	defer sub.Cancel()

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()
	log := a.logger.WithTask(taskID)
	log.Info("WebSocket subscriber attached")

	// Drain client frames so close and ping frames are processed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	task, err := a.orchestrator.GetTask(ctx, taskID)
	if err != nil {
		a.closeWS(conn, websocket.CloseInternalServerErr, "task lookup failed")
		return
	}
	lastSeq := 0
	for _, activity := range task.Activities {
		if err := a.writeEvent(conn, models.NewTaskEvent(taskID, task.Status, activity)); err != nil {
			return
		}
		lastSeq = activity.Seq
	}
	if task.Status.Terminal() {
		a.closeWS(conn, websocket.CloseNormalClosure, "task "+string(task.Status))
		return
	}

	for {
		select {
		case <-clientGone:
			log.Info("WebSocket subscriber left")
			return
		case event, ok := <-sub.Events:
			if !ok {
				a.closeWS(conn, websocket.CloseGoingAway, "stream ended")
				return
			}
			if event.Activity.Seq <= lastSeq {
				continue
			}
			if err := a.writeEvent(conn, event); err != nil {
				log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Failed to write WebSocket message")
				return
			}
			lastSeq = event.Activity.Seq
			if event.Final() {
				a.closeWS(conn, websocket.CloseNormalClosure, "task "+string(event.Status))
				return
			}
		}
	}
}

func (a *API) writeEvent(conn *websocket.Conn, event *models.TaskEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(event)
}

func (a *API) closeWS(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}

func (a *API) respondError(c *gin.Context, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
