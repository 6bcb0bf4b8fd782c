package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ImportInput is the input for the import workflow.
type ImportInput struct {
	JobID     string
	SetSlug   string
	SetName   string
	SourceURL string
}

// ImportWorkflow orchestrates one coordinate-file ingestion: fetch the
// source file, parse its rows, store the point set, and refresh the match
// runs that reference it. If the refresh fails after the set was stored,
// the set is removed again and the job is marked compensated (saga
// compensation), so a half-imported set never feeds stale rankings.
func ImportWorkflow(ctx workflow.Context, input ImportInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting import workflow", "slug", input.SetSlug, "source", input.SourceURL)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	_ = workflow.ExecuteActivity(ctx, "MarkJobStatus", input.JobID, "running", "").Get(ctx, nil)

	// Step 1: Fetch the source file
	var file FetchedFile
	err := workflow.ExecuteActivity(ctx, "FetchSource", input.SourceURL).Get(ctx, &file)
	if err != nil {
		_ = workflow.ExecuteActivity(ctx, "MarkJobStatus", input.JobID, "failed", err.Error()).Get(ctx, nil)
		return err
	}

	// Step 2: Parse coordinate rows
	var parsed ParsedPoints
	err = workflow.ExecuteActivity(ctx, "ParsePoints", file).Get(ctx, &parsed)
	if err != nil {
		_ = workflow.ExecuteActivity(ctx, "MarkJobStatus", input.JobID, "failed", err.Error()).Get(ctx, nil)
		return err
	}

	// Step 3: Store the point set
	err = workflow.ExecuteActivity(ctx, "StorePointSet", input, parsed).Get(ctx, nil)
	if err != nil {
		_ = workflow.ExecuteActivity(ctx, "MarkJobStatus", input.JobID, "failed", err.Error()).Get(ctx, nil)
		return err
	}

	// Step 4: Refresh standing match runs that touch this set
	var refreshed int
	err = workflow.ExecuteActivity(ctx, "RefreshMatches", input.SetSlug).Get(ctx, &refreshed)
	if err != nil {
		logger.Warn("match refresh failed, compensating", "error", err)
		// Compensate: remove the stored set so no ranking sees it half-done
		_ = workflow.ExecuteActivity(ctx, "RemovePointSet", input.SetSlug).Get(ctx, nil)
		_ = workflow.ExecuteActivity(ctx, "MarkJobStatus", input.JobID, "compensated", err.Error()).Get(ctx, nil)
		return err
	}

	// Step 5: Announce completion
	_ = workflow.ExecuteActivity(ctx, "MarkJobStatus", input.JobID, "completed", "").Get(ctx, nil)
	_ = workflow.ExecuteActivity(ctx, "AnnounceImport", input.JobID).Get(ctx, nil)

	logger.Info("Import completed", "slug", input.SetSlug, "points", len(parsed.Records), "refreshed_runs", refreshed)
	return nil
}
