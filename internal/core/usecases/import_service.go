package usecases

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
)

// ImportService registers coordinate-file imports and hands them to the
// workflow engine. State transitions past pending belong to the workflow
// activities.
type ImportService struct {
	imports ports.ImportRepository
	flow    ports.ImportOrchestrator
}

// NewImportService creates a new ImportService.
func NewImportService(imports ports.ImportRepository, flow ports.ImportOrchestrator) *ImportService {
	return &ImportService{imports: imports, flow: flow}
}

// Start registers an import job and launches its workflow.
func (s *ImportService) Start(ctx context.Context, slug, name, sourceURL string) (*domain.ImportJob, error) {
	if s.flow == nil {
		return nil, fmt.Errorf("%w: import workflow engine is not configured", ErrUnavailable)
	}

	slug = strings.TrimSpace(slug)
	if !domain.ValidSlug(slug) {
		return nil, fmt.Errorf("%w: invalid slug %q, want lowercase letters, digits and hyphens", ErrInvalidInput, slug)
	}

	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: source_url must be an absolute http(s) URL", ErrInvalidInput)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = slug
	}

	job := &domain.ImportJob{
		SetSlug:   slug,
		SetName:   name,
		SourceURL: sourceURL,
		Status:    domain.ImportPending,
	}
	if err := s.imports.Create(ctx, job); err != nil {
		return nil, err
	}

	workflowID, err := s.flow.StartImport(ctx, job)
	if err != nil {
		_ = s.imports.UpdateStatus(ctx, job.ID, domain.ImportFailed, err.Error())
		return nil, fmt.Errorf("start workflow: %w", err)
	}

	job.WorkflowID = workflowID
	if err := s.imports.SetWorkflowID(ctx, job.ID, workflowID); err != nil {
		return nil, err
	}

	return job, nil
}

// Get returns a single import job.
func (s *ImportService) Get(ctx context.Context, id string) (*domain.ImportJob, error) {
	return s.imports.GetByID(ctx, id)
}

// List returns recent import jobs, newest first.
func (s *ImportService) List(ctx context.Context, limit int) ([]domain.ImportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.imports.List(ctx, limit)
}
