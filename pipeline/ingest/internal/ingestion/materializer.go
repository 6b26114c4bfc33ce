package ingestion

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Log-Tools/lift-tickets-pipeline/errs"
	"github.com/Log-Tools/lift-tickets-pipeline/metrics"
	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// Materializer writes a batch to a columnar file, stages it and triggers the load task.
type Materializer struct {
	stage   Stage
	trigger TaskTrigger
	tempDir string
	metrics metrics.Collector
	debug   bool

	// writes the artifact; WriteParquet outside tests
	write func(path string, rows []Row) (int64, error)
}

// NewMaterializer creates a materializer that writes its artifacts into tempDir
func NewMaterializer(stage Stage, trigger TaskTrigger, tempDir string, collector metrics.Collector, debug bool) *Materializer {
	if collector == nil {
		collector = metrics.NewSimpleCollector()
	}
	return &Materializer{
		stage:   stage,
		trigger: trigger,
		tempDir: tempDir,
		metrics: collector,
		debug:   debug,
		write:   WriteParquet,
	}
}

// Materialize runs write, upload, local delete and task trigger, in that order.
// Any failure aborts with a *errs.ConnectorError naming the step and batch.
func (m *Materializer) Materialize(ctx context.Context, batch []tickets.LiftTicket, index int) error {
	path := filepath.Join(m.tempDir, tickets.NewStagedFileKey().String())

	size, err := m.stageFile(ctx, path, batch, index)
	if err != nil {
		return err
	}
	m.metrics.AddBytesStaged(size)

	// skipped by the store when the task is already scheduled
	if err := m.trigger.ExecuteTask(ctx); err != nil {
		return &errs.ConnectorError{Stage: "execute_task", Batch: index, Err: err}
	}
	m.metrics.IncrementTaskTriggers()
	m.metrics.IncrementBatchesMaterialized()
	m.metrics.AddRecordsIngested(len(batch))

	if m.debug {
		log.Printf("%d tickets in stage (batch %d, %s)", len(batch), index, filepath.Base(path))
	}
	return nil
}

// stageFile owns the local artifact: it is removed on every return path.
func (m *Materializer) stageFile(ctx context.Context, path string, batch []tickets.LiftTicket, index int) (int64, error) {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️ Failed to remove local artifact %s: %v", path, err)
		}
	}()

	size, err := m.write(path, ToRows(batch))
	if err != nil {
		return 0, &errs.ConnectorError{Stage: "write", Batch: index, Err: err}
	}

	if err := m.stage.Put(ctx, path); err != nil {
		return 0, &errs.ConnectorError{Stage: "put", Batch: index, Err: fmt.Errorf("failed to upload %s: %w", filepath.Base(path), err)}
	}
	return size, nil
}
