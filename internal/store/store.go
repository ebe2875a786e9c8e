package store

import (
	"context"

	"github.com/me/mgasm/pkg/model"
)

// Store defines the persistence layer for run history and the local object
// catalog.
type Store interface {
	// Run history
	CreateRun(ctx context.Context, run *model.Run) error
	UpdateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error)

	// Step history
	AddStep(ctx context.Context, step *model.StepRecord) error
	ListSteps(ctx context.Context, runID string) ([]model.StepRecord, error)

	// Object catalog
	CreateObject(ctx context.Context, obj *model.StoredObject) error
	GetObject(ctx context.Context, ref string) (*model.StoredObject, error)
	ListObjects(ctx context.Context, kind string) ([]*model.StoredObject, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
