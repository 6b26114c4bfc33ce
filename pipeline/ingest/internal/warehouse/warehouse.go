// Package warehouse implements the stage and task contracts of the ingest
// pipeline against Snowflake, Azure Blob external stages and a local DuckDB file.
package warehouse

import (
	"context"
	"fmt"
	"io"

	ingestConfig "github.com/Log-Tools/lift-tickets-pipeline/pipeline/ingest/internal/config"
	"github.com/Log-Tools/lift-tickets-pipeline/pipeline/ingest/internal/ingestion"
)

// Warehouse is a connected backend serving both ingestion ports
type Warehouse interface {
	ingestion.Stage
	ingestion.TaskTrigger
	io.Closer
}

var (
	_ Warehouse       = (*Snowflake)(nil)
	_ Warehouse       = (*DuckDB)(nil)
	_ Warehouse       = (*Composite)(nil)
	_ ingestion.Stage = (*AzureStage)(nil)
)

// New opens the backend selected by cfg.Kind
func New(ctx context.Context, cfg ingestConfig.WarehouseConfig) (Warehouse, error) {
	switch cfg.Kind {
	case ingestConfig.WarehouseSnowflake:
		return OpenSnowflake(cfg.Snowflake)
	case ingestConfig.WarehouseAzure:
		stage, err := NewAzureStage(cfg.Azure.StorageAccount, cfg.Azure.Container, cfg.Azure.Prefix)
		if err != nil {
			return nil, err
		}
		task, err := OpenSnowflake(cfg.Snowflake)
		if err != nil {
			return nil, err
		}
		return &Composite{Stage: stage, Task: task}, nil
	case ingestConfig.WarehouseDuckDB:
		return OpenDuckDB(ctx, cfg.DuckDB.Path, cfg.DuckDB.StageDir, cfg.DuckDB.Table)
	default:
		return nil, fmt.Errorf("unknown warehouse kind %q", cfg.Kind)
	}
}

// Composite uploads through one backend and triggers the task through another
type Composite struct {
	Stage ingestion.Stage
	Task  Warehouse
}

func (c *Composite) Put(ctx context.Context, localPath string) error {
	return c.Stage.Put(ctx, localPath)
}

func (c *Composite) ExecuteTask(ctx context.Context) error {
	return c.Task.ExecuteTask(ctx)
}

func (c *Composite) Close() error {
	return c.Task.Close()
}
