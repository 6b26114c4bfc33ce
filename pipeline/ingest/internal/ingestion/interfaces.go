package ingestion

import (
	"context"

	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// Stage uploads a local artifact into the destination store's staging area.
// The remote name is the base name of localPath.
type Stage interface {
	Put(ctx context.Context, localPath string) error
}

// TaskTrigger runs the destination store's materialization task.
// Implementations must be idempotent: triggering an already running or
// scheduled task is a no-op, not an error.
type TaskTrigger interface {
	ExecuteTask(ctx context.Context) error
}

// BatchMaterializer turns one closed batch into staged data.
// index is the 1-based position of the batch in the run.
type BatchMaterializer interface {
	Materialize(ctx context.Context, batch []tickets.LiftTicket, index int) error
}

// Result summarizes an ingest run
type Result struct {
	Records int
	Batches int
}
