package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
)

// WorkflowConfig names the workflow notifications start executions of.
type WorkflowConfig struct {
	ProjectID string
	Location  string
	ID        string
}

// Parent is the resource name executions are created under.
func (c WorkflowConfig) Parent() string {
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s", c.ProjectID, c.Location, c.ID)
}

// WorkflowNotifier delivers notifications by starting a workflow execution
// whose argument is the notification JSON.
type WorkflowNotifier struct {
	client *executions.Client
	config WorkflowConfig
}

// NewWorkflowNotifier creates a Workflows Executions client.
func NewWorkflowNotifier(ctx context.Context, config WorkflowConfig) (*WorkflowNotifier, error) {
	if config.ProjectID == "" || config.ID == "" {
		return nil, fmt.Errorf("workflow notifier needs PROJECT_ID and WORKFLOW_ID")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowNotifier{client: client, config: config}, nil
}

func (n *WorkflowNotifier) Notify(ctx context.Context, note models.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: n.config.Parent(),
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	if _, err := n.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (n *WorkflowNotifier) Close() error {
	return n.client.Close()
}
