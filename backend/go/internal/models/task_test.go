package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskAdvanceForwardOnly(t *testing.T) {
	now := time.Now()
	task := NewTask("t1", "do things", now)

	require.NoError(t, task.Advance(TaskStatusRouting, now))
	require.NoError(t, task.Advance(TaskStatusExecuting, now))
	assert.Error(t, task.Advance(TaskStatusRouting, now), "back-transition must be rejected")
	assert.Error(t, task.Advance(TaskStatusExecuting, now), "self-transition must be rejected")

	// Synthesizing is optional.
	require.NoError(t, task.Advance(TaskStatusCompleted, now))
	require.NotNil(t, task.CompletedAt)
	assert.Error(t, task.Advance(TaskStatusFailed, now), "terminal tasks stay terminal")
}

func TestTaskAdvanceToFailedFromAnyActiveState(t *testing.T) {
	for _, from := range []TaskStatus{TaskStatusAnalyzing, TaskStatusRouting, TaskStatusExecuting, TaskStatusSynthesizing} {
		task := NewTask("t", "d", time.Now())
		task.Status = from
		require.NoError(t, task.Advance(TaskStatusFailed, time.Now()), from)
		assert.Equal(t, TaskStatusFailed, task.Status)
	}
}

func TestTaskRecordErrorFirstWins(t *testing.T) {
	task := NewTask("t", "d", time.Now())
	assert.False(t, task.RecordError(""))
	assert.True(t, task.RecordError("first"))
	assert.False(t, task.RecordError("second"))
	assert.Equal(t, "first", task.FirstError)
}

func TestTaskSetOnceFields(t *testing.T) {
	task := NewTask("t", "d", time.Now())

	require.NoError(t, task.AssignAgents([]AgentProfile{{ID: "a"}}))
	assert.Error(t, task.AssignAgents([]AgentProfile{{ID: "b"}}))

	require.NoError(t, task.SetFinalDeliverable("x"))
	assert.Error(t, task.SetFinalDeliverable("y"))
	assert.Equal(t, "x", *task.FinalDeliverable)

	require.NoError(t, task.LinkDeliverable("d1"))
	assert.Error(t, task.LinkDeliverable("d2"))
}

func TestTaskActivitiesAreSequenced(t *testing.T) {
	task := NewTask("t", "d", time.Now())
	task.AppendActivity(ActivityAnalyzing, "", "one", time.Now())
	a := task.AppendActivity(ActivityAgentStart, "lead_generator", "two", time.Now())

	assert.Equal(t, 2, a.Seq)
	assert.Equal(t, "lead_generator", task.Activities[1].AgentID)
}

func TestTaskCloneIsIndependent(t *testing.T) {
	task := NewTask("t", "d", time.Now())
	task.AppendActivity(ActivityAnalyzing, "", "one", time.Now())
	require.NoError(t, task.SetFinalDeliverable("x"))

	c := task.Clone()
	c.Activities[0].Message = "changed"
	*c.FinalDeliverable = "changed"
	c.AppendActivity(ActivityRouting, "", "two", time.Now())

	assert.Equal(t, "one", task.Activities[0].Message)
	assert.Equal(t, "x", *task.FinalDeliverable)
	assert.Len(t, task.Activities, 1)
}

func TestProviderValid(t *testing.T) {
	assert.True(t, ProviderAnthropic.Valid())
	assert.False(t, Provider("mistral").Valid())
}
