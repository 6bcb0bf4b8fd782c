package temporaladapter

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/workflows"
)

// Orchestrator implements ports.ImportOrchestrator on a Temporal client.
type Orchestrator struct {
	client    client.Client
	taskQueue string
}

// New dials the Temporal frontend.
func New(hostPort, namespace, taskQueue string) (*Orchestrator, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial: %w", err)
	}
	return &Orchestrator{client: c, taskQueue: taskQueue}, nil
}

// StartImport launches the import workflow for a registered job. The
// workflow ID is derived from the job ID so a retried request attaches to
// the running workflow instead of starting a second one.
func (o *Orchestrator) StartImport(ctx context.Context, job *domain.ImportJob) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:        "import-" + job.ID,
		TaskQueue: o.taskQueue,
	}

	run, err := o.client.ExecuteWorkflow(ctx, opts, workflows.ImportWorkflow, workflows.ImportInput{
		JobID:     job.ID,
		SetSlug:   job.SetSlug,
		SetName:   job.SetName,
		SourceURL: job.SourceURL,
	})
	if err != nil {
		return "", fmt.Errorf("execute workflow: %w", err)
	}
	return run.GetID(), nil
}

// Close releases the underlying Temporal connection.
func (o *Orchestrator) Close() {
	o.client.Close()
}
