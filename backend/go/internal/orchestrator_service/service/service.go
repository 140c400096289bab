package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"AgentHub/backend/go/internal/llm"
	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/internal/orchestrator_service/publisher"
	"AgentHub/backend/go/internal/orchestrator_service/store"
	"AgentHub/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// ErrEmptyDescription is returned by Submit for a blank task description.
var ErrEmptyDescription = errors.New("task description must not be empty")

// Router maps a task description to agent ids.
type Router interface {
	Route(description string) []string
}

// ruleExplainer is implemented by routers that can name the rules a description hit.
type ruleExplainer interface {
	MatchedRules(description string) []string
}

// AgentDirectory resolves and lists agent profiles.
type AgentDirectory interface {
	Get(id string) (models.AgentProfile, error)
	List() []models.AgentProfile
}

// AgentExecutor runs one agent.
type AgentExecutor interface {
	Execute(ctx context.Context, agentID, description string) (*Execution, error)
}

// DeliverableSynthesizer merges agent outputs.
type DeliverableSynthesizer interface {
	Synthesize(ctx context.Context, description string, outputs []models.AgentOutput) (string, error)
}

// Metrics receives pipeline outcomes.
type Metrics interface {
	TaskSubmitted()
	TaskFinished(status models.TaskStatus)
	AgentExecuted(agentID string, provider models.Provider, outcome string)
	SynthesisFinished(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) TaskSubmitted() {}
func (nopMetrics) TaskFinished(models.TaskStatus) {}
func (nopMetrics) AgentExecuted(string, models.Provider, string) {}
func (nopMetrics) SynthesisFinished(string) {}

// Dependencies groups the collaborators of a TaskOrchestrator.
// Publisher and Metrics are optional.
type Dependencies struct {
	Router       Router
	Agents       AgentDirectory
	Executor     AgentExecutor
	Synthesizer  DeliverableSynthesizer
	Tasks        store.TaskStore
	Deliverables store.DeliverableStore
	Publisher    publisher.EventPublisher
	Metrics      Metrics
	Logger       *logger.Logger
}

// TaskOrchestrator owns every task from submission to a terminal state.
// Each task runs in its own goroutine; agents within a task run sequentially.
type TaskOrchestrator struct {
	router       Router
	agents       AgentDirectory
	executor     AgentExecutor
	synthesizer  DeliverableSynthesizer
	tasks        store.TaskStore
	deliverables store.DeliverableStore
	publisher    publisher.EventPublisher
	metrics      Metrics
	logger       *logger.Logger

	now   func() time.Time
	newID func() string
	wg    sync.WaitGroup
}

// NewTaskOrchestrator creates a new TaskOrchestrator.
func NewTaskOrchestrator(deps Dependencies) *TaskOrchestrator {
	o := &TaskOrchestrator{
		router:       deps.Router,
		agents:       deps.Agents,
		executor:     deps.Executor,
		synthesizer:  deps.Synthesizer,
		tasks:        deps.Tasks,
		deliverables: deps.Deliverables,
		publisher:    deps.Publisher,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	if o.logger == nil {
		o.logger = logger.Discard()
	}
	return o
}

// Submit creates a task in Analyzing and starts its pipeline in the background.
// It returns as soon as the task is stored.
func (o *TaskOrchestrator) Submit(ctx context.Context, description string) (*models.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	task := models.NewTask(o.newID(), description, o.now())
	activity := task.AppendActivity(models.ActivityAnalyzing, "", "Analyzing task request", o.now())
	if err := o.tasks.Create(ctx, task); err != nil {
		o.logger.WithTask(task.ID).WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to create task in store")
		return nil, fmt.Errorf("create task: %w", err)
	}
	o.metrics.TaskSubmitted()
	o.logger.WithTask(task.ID).WithPayload(map[string]interface{}{"description": description}).Info("Task accepted")

	// The pipeline outlives the submitting request and is never cancelled.
	// Every event of the task, the first included, is published from its own goroutine.
	runCtx := context.WithoutCancel(ctx)
	first := models.NewTaskEvent(task.ID, task.Status, activity)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.publish(runCtx, first)
		o.run(runCtx, task.ID, description)
	}()
	return task, nil
}

// Wait blocks until every running pipeline has finished or ctx is done.
func (o *TaskOrchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetTask returns a snapshot of a task.
func (o *TaskOrchestrator) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return o.tasks.Get(ctx, id)
}

// GetActivities returns only the activity log of a task.
func (o *TaskOrchestrator) GetActivities(ctx context.Context, id string) ([]models.Activity, error) {
	task, err := o.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Activities == nil {
		return []models.Activity{}, nil
	}
	return task.Activities, nil
}

// GetDeliverable returns a stored deliverable.
func (o *TaskOrchestrator) GetDeliverable(ctx context.Context, id string) (*models.Deliverable, error) {
	return o.deliverables.Get(ctx, id)
}

// ListDeliverables returns every deliverable, newest first.
func (o *TaskOrchestrator) ListDeliverables(ctx context.Context) ([]*models.Deliverable, error) {
	return o.deliverables.List(ctx)
}

// ListAgents returns the agent registry.
func (o *TaskOrchestrator) ListAgents() []models.AgentProfile {
	return o.agents.List()
}

func (o *TaskOrchestrator) run(ctx context.Context, taskID, description string) {
	log := o.logger.WithTask(taskID)
	defer func() {
		if r := recover(); r != nil {
			o.fail(ctx, taskID, fmt.Sprintf("internal error: %v", r))
		}
	}()
	if err := o.pipeline(ctx, taskID, description, log); err != nil {
		o.fail(ctx, taskID, err.Error())
	}
}

func (o *TaskOrchestrator) routingMessage(description string, names []string) string {
	msg := fmt.Sprintf("Assigned %d agent(s): %s", len(names), strings.Join(names, ", "))
	ex, ok := o.router.(ruleExplainer)
	if !ok {
		return msg
	}
	if rules := ex.MatchedRules(description); len(rules) > 0 {
		return msg + " (matched rules: " + strings.Join(rules, ", ") + ")"
	}
	return msg + " (no rule matched, default agent)"
}

// pipeline runs routing, execution, synthesis and completion.
// Any returned error is orchestrator-level and fails the task.
func (o *TaskOrchestrator) pipeline(ctx context.Context, taskID, description string, log *logger.Logger) error {
	// Analyzing -> Routing
	ids := o.router.Route(description)
	if len(ids) == 0 {
		return errors.New("router returned no agents")
	}
	profiles := make([]models.AgentProfile, 0, len(ids))
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		p, err := o.agents.Get(id)
		if err != nil {
			return fmt.Errorf("routing: %w", err)
		}
		profiles = append(profiles, p)
		names = append(names, p.DisplayName)
	}
	if _, err := o.update(ctx, taskID, func(t *models.Task) error {
		if err := t.Advance(models.TaskStatusRouting, o.now()); err != nil {
			return err
		}
		if err := t.AssignAgents(profiles); err != nil {
			return err
		}
		t.AppendActivity(models.ActivityRouting, "", o.routingMessage(description, names), o.now())
		return nil
	}); err != nil {
		return err
	}
	log.WithPayload(map[string]interface{}{"agents": ids}).Info("Task routed")

	// Routing -> Executing
	if _, err := o.update(ctx, taskID, func(t *models.Task) error {
		return t.Advance(models.TaskStatusExecuting, o.now())
	}); err != nil {
		return err
	}

	var outputs []models.AgentOutput
	for _, p := range profiles {
		out, err := o.runAgent(ctx, taskID, description, p, log)
		if err != nil {
			return err
		}
		if out != nil {
			outputs = append(outputs, *out)
		}
	}

	// Executing -> Synthesizing, only with more than one agent and at least two outputs to merge.
	var merged string
	var synthErr error
	if len(profiles) > 1 && len(outputs) > 1 {
		merged, synthErr = o.synthesize(ctx, taskID, description, outputs, log)
		if errors.Is(synthErr, errStoreUpdate) {
			return synthErr
		}
	}

	return o.complete(ctx, taskID, merged, synthErr, log)
}

var errStoreUpdate = errors.New("task store update failed")

// runAgent executes one agent. A nil output with a nil error means the agent failed
// and the failure was recorded; a non-nil error is orchestrator-level.
func (o *TaskOrchestrator) runAgent(ctx context.Context, taskID, description string, p models.AgentProfile, log *logger.Logger) (*models.AgentOutput, error) {
	agentLog := log.WithAgent(p.ID)
	if _, err := o.update(ctx, taskID, func(t *models.Task) error {
		t.AppendActivity(models.ActivityAgentStart, p.ID, fmt.Sprintf("%s started working (%s/%s)", p.DisplayName, p.Provider, p.Model), o.now())
		return nil
	}); err != nil {
		return nil, err
	}
	agentLog.WithPayload(map[string]interface{}{"provider": p.Provider, "model": p.Model}).Info("Agent started")

	exec, err := o.executor.Execute(ctx, p.ID, description)
	if err != nil {
		msg := fmt.Sprintf("%s failed: %s", p.DisplayName, err)
		if _, uerr := o.update(ctx, taskID, func(t *models.Task) error {
			t.AppendActivity(models.ActivityAgentError, p.ID, msg, o.now())
			t.RecordError(msg)
			return nil
		}); uerr != nil {
			return nil, uerr
		}
		outcome := string(llm.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		o.metrics.AgentExecuted(p.ID, p.Provider, outcome)
		agentLog.WithError(errorInfo(err, p.Provider)).Warn("Agent failed")
		return nil, nil
	}

	msg := fmt.Sprintf("%s completed in %s (%d prompt tokens, %d completion tokens)",
		p.DisplayName, exec.Elapsed.Round(time.Millisecond), exec.Usage.PromptTokens, exec.Usage.CompletionTokens)
	if _, err := o.update(ctx, taskID, func(t *models.Task) error {
		t.AppendOutput(exec.Output)
		t.AppendActivity(models.ActivityAgentComplete, p.ID, msg, o.now())
		return nil
	}); err != nil {
		return nil, err
	}
	o.metrics.AgentExecuted(p.ID, p.Provider, "success")
	agentLog.WithPayload(map[string]interface{}{
		"provider":          p.Provider,
		"model":             exec.Output.Model,
		"duration_ms":       exec.Elapsed.Milliseconds(),
		"prompt_tokens":     exec.Usage.PromptTokens,
		"completion_tokens": exec.Usage.CompletionTokens,
	}).Info("Agent completed")
	return &exec.Output, nil
}

func (o *TaskOrchestrator) synthesize(ctx context.Context, taskID, description string, outputs []models.AgentOutput, log *logger.Logger) (string, error) {
	if _, err := o.update(ctx, taskID, func(t *models.Task) error {
		if err := t.Advance(models.TaskStatusSynthesizing, o.now()); err != nil {
			return err
		}
		t.AppendActivity(models.ActivitySynthesizing, "", fmt.Sprintf("Synthesizing %d agent outputs into one deliverable", len(outputs)), o.now())
		return nil
	}); err != nil {
		return "", fmt.Errorf("%w: %w", errStoreUpdate, err)
	}

	merged, synthErr := o.synthesizer.Synthesize(ctx, description, outputs)
	if synthErr != nil {
		if !errors.Is(synthErr, ErrSynthesisFailed) {
			synthErr = fmt.Errorf("%w: %w", ErrSynthesisFailed, synthErr)
		}
		msg := synthErr.Error()
		if _, err := o.update(ctx, taskID, func(t *models.Task) error {
			t.AppendActivity(models.ActivitySynthesisError, "", msg, o.now())
			t.RecordError(msg)
			return nil
		}); err != nil {
			return "", fmt.Errorf("%w: %w", errStoreUpdate, err)
		}
		o.metrics.SynthesisFinished("failure")
		log.WithError(models.ErrorInfo{Message: msg, Kind: string(llm.KindOf(synthErr))}).Warn("Synthesis failed")
		return "", synthErr
	}

	if _, err := o.update(ctx, taskID, func(t *models.Task) error {
		t.AppendActivity(models.ActivitySynthesisComplete, "", "Synthesis completed", o.now())
		return nil
	}); err != nil {
		return "", fmt.Errorf("%w: %w", errStoreUpdate, err)
	}
	o.metrics.SynthesisFinished("success")
	log.Info("Synthesis completed")
	return merged, nil
}

func (o *TaskOrchestrator) complete(ctx context.Context, taskID, merged string, synthErr error, log *logger.Logger) error {
	task, err := o.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	draft := shapeDeliverable(task, merged, synthErr)
	d := &models.Deliverable{
		ID:          o.newID(),
		TaskID:      taskID,
		Title:       draft.Title,
		Description: draft.Description,
		Content:     draft.Content,
		Synthesized: draft.Synthesized,
		CreatedAt:   o.now(),
	}
	if err := o.deliverables.Save(ctx, d); err != nil {
		return fmt.Errorf("store deliverable: %w", err)
	}

	if _, err := o.update(ctx, taskID, func(t *models.Task) error {
		if err := t.SetFinalDeliverable(d.Content); err != nil {
			return err
		}
		if err := t.LinkDeliverable(d.ID); err != nil {
			return err
		}
		if err := t.Advance(models.TaskStatusCompleted, o.now()); err != nil {
			return err
		}
		t.AppendActivity(models.ActivityComplete, "", "Task completed: "+d.Title, o.now())
		return nil
	}); err != nil {
		// The task is about to fail; its deliverable must not outlive it.
		if derr := o.deliverables.Delete(context.WithoutCancel(ctx), d.ID); derr != nil {
			log.WithError(models.ErrorInfo{Message: derr.Error()}).Error("Failed to withdraw deliverable of failed task")
		}
		return err
	}
	o.metrics.TaskFinished(models.TaskStatusCompleted)
	log.WithPayload(map[string]interface{}{"deliverable_id": d.ID, "title": d.Title}).Info("Task completed")
	return nil
}

// fail moves a task to Failed after an orchestrator-level error.
func (o *TaskOrchestrator) fail(ctx context.Context, taskID, msg string) {
	log := o.logger.WithTask(taskID)
	log.WithError(models.ErrorInfo{Message: msg}).Error("Task failed")
	_, err := o.update(ctx, taskID, func(t *models.Task) error {
		if t.Status.Terminal() {
			return fmt.Errorf("task already %s", t.Status)
		}
		t.RecordError(msg)
		if err := t.Advance(models.TaskStatusFailed, o.now()); err != nil {
			return err
		}
		t.AppendActivity(models.ActivityError, "", msg, o.now())
		return nil
	})
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to mark task as failed")
		return
	}
	o.metrics.TaskFinished(models.TaskStatusFailed)
}

// update applies fn through the store and publishes every activity it appended.
func (o *TaskOrchestrator) update(ctx context.Context, taskID string, fn func(*models.Task) error) (*models.Task, error) {
	before := 0
	task, err := o.tasks.Update(ctx, taskID, func(t *models.Task) error {
		before = len(t.Activities)
		return fn(t)
	})
	if err != nil {
		return nil, err
	}
	for _, a := range task.Activities[before:] {
		o.publish(ctx, models.NewTaskEvent(task.ID, task.Status, a))
	}
	return task, nil
}

func (o *TaskOrchestrator) publish(ctx context.Context, event *models.TaskEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.WithTask(event.TaskID).WithError(models.ErrorInfo{Message: err.Error()}).Warn("Failed to publish task event")
	}
}

func errorInfo(err error, provider models.Provider) models.ErrorInfo {
	info := models.ErrorInfo{Message: err.Error(), Provider: string(provider)}
	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		info.Kind = string(pe.Kind)
		info.StatusCode = pe.StatusCode
	}
	return info
}
