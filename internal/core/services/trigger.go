package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	"workflow-runner-service/internal/core/domain"
	output "workflow-runner-service/internal/core/ports/output"
)

// triggerListLimit caps how many workflows one event is matched against.
const triggerListLimit = 100

type TriggerService struct {
	workflows output.WorkflowRepository
	runs      output.RunRepository
}

func NewTriggerService(workflows output.WorkflowRepository, runs output.RunRepository) *TriggerService {
	return &TriggerService{workflows: workflows, runs: runs}
}

// HandleEvent matches the event against every registered workflow and creates
// a queued run, with its matrix expanded into job runs, for each match.
func (s *TriggerService) HandleEvent(ctx context.Context, ev *domain.Event) ([]*domain.WorkflowRun, error) {
	var created []*domain.WorkflowRun

	offset := 0
	for {
		workflows, total, err := s.workflows.List(ctx, output.WorkflowFilter{
			Limit:  triggerListLimit,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}

		for _, wf := range workflows {
			if !wf.Spec.On.Matches(ev) {
				continue
			}

			run := domain.NewWorkflowRun(wf, ev)
			if err := s.runs.CreateRun(ctx, run); err != nil {
				return created, err
			}

			log.WithFields(log.Fields{
				"workflow": wf.Name,
				"run_id":   run.ID,
				"event":    ev.Type,
				"branch":   ev.Branch,
				"commit":   ev.Commit,
				"jobs":     len(run.Jobs),
			}).Info("workflow run queued")

			created = append(created, run)
		}

		offset += len(workflows)
		if offset >= total || len(workflows) == 0 {
			break
		}
	}

	return created, nil
}
