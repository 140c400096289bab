package service

import (
	"fmt"
	"strings"

	"AgentHub/backend/go/internal/models"
)

// deliverableDraft is the shaped result before it gets an id and timestamp.
type deliverableDraft struct {
	Title       string
	Description string
	Content     string
	Synthesized bool
}

// shapeDeliverable picks title, description and content from what the pipeline produced.
// merged is only consulted when there are at least two outputs and synthErr is nil.
func shapeDeliverable(task *models.Task, merged string, synthErr error) deliverableDraft {
	assigned := len(task.AssignedAgents)
	outputs := task.Outputs

	switch {
	case len(outputs) == 0:
		var b strings.Builder
		b.WriteString("No agent produced output for this task.")
		if task.FirstError != "" {
			b.WriteString("\n\nFirst error: ")
			b.WriteString(task.FirstError)
		}
		return deliverableDraft{
			Title:       "No Deliverable Produced",
			Description: fmt.Sprintf("All %d assigned agents failed", assigned),
			Content:     b.String(),
		}

	case len(outputs) == 1:
		out := outputs[0]
		desc := fmt.Sprintf("Output produced by %s (%s)", out.DisplayName, out.Specialization)
		if failed := assigned - 1; failed > 0 {
			desc += fmt.Sprintf("; %d of %d agents failed", failed, assigned)
		}
		return deliverableDraft{
			Title:       out.DisplayName + " Deliverable",
			Description: desc,
			Content:     out.Content,
		}

	case synthErr != nil:
		reason := strings.TrimPrefix(synthErr.Error(), ErrSynthesisFailed.Error()+": ")
		var b strings.Builder
		fmt.Fprintf(&b, "Synthesis failed: %s\n\nThe individual agent outputs follow unmerged.\n\n", reason)
		writeLabelledOutputs(&b, outputs)
		return deliverableDraft{
			Title:       "Partial Deliverable (synthesis failed)",
			Description: fmt.Sprintf("Synthesis failed: %s. Individual agent outputs are included below.", reason),
			Content:     strings.TrimRight(b.String(), "\n"),
		}

	default:
		names := make([]string, 0, len(outputs))
		for _, out := range outputs {
			names = append(names, out.DisplayName)
		}
		return deliverableDraft{
			Title:       "Synthesized Deliverable",
			Description: fmt.Sprintf("Merged output of %d agents: %s", len(outputs), strings.Join(names, ", ")),
			Content:     merged,
			Synthesized: true,
		}
	}
}
