package repository

import (
	"context"

	"flowcanvas/internal/domain"
)

// Repository defines the interface for project data access. Getters return
// nil without an error when the project does not exist.
type Repository interface {
	// Read operations
	ListProjects(ctx context.Context) ([]domain.ProjectSummary, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)

	// Write operations
	SaveProject(ctx context.Context, p *domain.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Layout persistence
	SavePositions(ctx context.Context, projectID string, positions map[string]domain.Point) error
	SaveViewport(ctx context.Context, projectID string, v domain.Viewport) error

	// Close releases resources
	Close() error
}
