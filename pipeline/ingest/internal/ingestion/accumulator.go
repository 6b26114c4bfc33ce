package ingestion

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// Accumulator groups decoded tickets into fixed-size batches and hands each
// closed batch to a materializer. A batch is owned by the accumulator until it
// is handed over; a fresh batch is opened afterwards.
type Accumulator struct {
	batchSize      int
	lineBufferSize int
	materializer   BatchMaterializer
}

// NewAccumulator creates an accumulator. batchSize must be positive.
func NewAccumulator(batchSize, lineBufferSize int, materializer BatchMaterializer) (*Accumulator, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if lineBufferSize <= 0 {
		lineBufferSize = 1024 * 1024
	}
	return &Accumulator{
		batchSize:      batchSize,
		lineBufferSize: lineBufferSize,
		materializer:   materializer,
	}, nil
}

// Run reads lines until the blank-line sentinel or EOF. Every full batch is
// materialized as soon as it closes; a non-empty final batch is materialized at
// end of stream. A malformed line aborts the run before its batch is staged.
func (a *Accumulator) Run(ctx context.Context, r io.Reader) (Result, error) {
	scanner := bufio.NewScanner(r)
	buffer := make([]byte, 0, 64*1024)
	scanner.Buffer(buffer, a.lineBufferSize)

	var result Result
	batch := make([]tickets.LiftTicket, 0, a.batchSize)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		if tickets.IsSentinel(scanner.Bytes()) {
			break
		}
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("ingest interrupted at line %d with %d records pending: %w", lineNo, len(batch), err)
		}

		ticket, err := tickets.DecodeLine(scanner.Bytes(), lineNo)
		if err != nil {
			return result, err
		}
		batch = append(batch, ticket)

		if len(batch) == a.batchSize {
			if err := a.materialize(ctx, batch, &result); err != nil {
				return result, err
			}
			batch = make([]tickets.LiftTicket, 0, a.batchSize)
		}
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read input after line %d: %w", lineNo, err)
	}

	if len(batch) > 0 {
		if err := a.materialize(ctx, batch, &result); err != nil {
			return result, err
		}
	}

	log.Printf("Ingest complete: %d records in %d batches", result.Records, result.Batches)
	return result, nil
}

func (a *Accumulator) materialize(ctx context.Context, batch []tickets.LiftTicket, result *Result) error {
	index := result.Batches + 1
	if err := a.materializer.Materialize(ctx, batch, index); err != nil {
		return err
	}
	result.Batches++
	result.Records += len(batch)
	return nil
}
