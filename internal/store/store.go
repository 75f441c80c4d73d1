package store

import (
	"context"

	"github.com/resolvebot/resolvebot/internal/models"
)

// RunListFilter specifies filters for listing runs.
type RunListFilter struct {
	IssueNumber int
	Status      models.RunStatus
	Limit       int
}

// Store defines the persistence interface for run history.
type Store interface {
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, filter RunListFilter) ([]*models.Run, error)
	UpdateRun(ctx context.Context, run *models.Run) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
