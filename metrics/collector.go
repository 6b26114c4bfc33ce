// Package metrics counts what a pipeline run did and reports it at the end of the run.
package metrics

import (
	"log"
	"sync/atomic"
)

// Collector defines the interface for collecting pipeline metrics
type Collector interface {
	IncrementRecordsProduced()
	IncrementBufferFullRetries()
	AddRecordsIngested(n int)
	IncrementBatchesMaterialized()
	AddBytesStaged(n int64)
	IncrementTaskTriggers()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	RecordsProduced     int64
	BufferFullRetries   int64
	RecordsIngested     int64
	BatchesMaterialized int64
	BytesStaged         int64
	TaskTriggers        int64
}

// SimpleCollector keeps counters in memory. Safe for concurrent use.
type SimpleCollector struct {
	recordsProduced     atomic.Int64
	bufferFullRetries   atomic.Int64
	recordsIngested     atomic.Int64
	batchesMaterialized atomic.Int64
	bytesStaged         atomic.Int64
	taskTriggers        atomic.Int64
}

func NewSimpleCollector() *SimpleCollector {
	return &SimpleCollector{}
}

func (c *SimpleCollector) IncrementRecordsProduced()     { c.recordsProduced.Add(1) }
func (c *SimpleCollector) IncrementBufferFullRetries()   { c.bufferFullRetries.Add(1) }
func (c *SimpleCollector) AddRecordsIngested(n int)      { c.recordsIngested.Add(int64(n)) }
func (c *SimpleCollector) IncrementBatchesMaterialized() { c.batchesMaterialized.Add(1) }
func (c *SimpleCollector) AddBytesStaged(n int64)        { c.bytesStaged.Add(n) }
func (c *SimpleCollector) IncrementTaskTriggers()        { c.taskTriggers.Add(1) }

// Snapshot returns the current counter values.
func (c *SimpleCollector) Snapshot() Snapshot {
	return Snapshot{
		RecordsProduced:     c.recordsProduced.Load(),
		BufferFullRetries:   c.bufferFullRetries.Load(),
		RecordsIngested:     c.recordsIngested.Load(),
		BatchesMaterialized: c.batchesMaterialized.Load(),
		BytesStaged:         c.bytesStaged.Load(),
		TaskTriggers:        c.taskTriggers.Load(),
	}
}

// LogSummary writes the counters of the run to the standard logger.
func (c *SimpleCollector) LogSummary(job string) {
	s := c.Snapshot()
	log.Printf("📊 %s summary: produced=%d buffer_full_retries=%d ingested=%d batches=%d bytes_staged=%d task_triggers=%d",
		job, s.RecordsProduced, s.BufferFullRetries, s.RecordsIngested, s.BatchesMaterialized, s.BytesStaged, s.TaskTriggers)
}

// Multi fans every call out to all collectors.
type Multi []Collector

func (m Multi) IncrementRecordsProduced() {
	for _, c := range m {
		c.IncrementRecordsProduced()
	}
}

func (m Multi) IncrementBufferFullRetries() {
	for _, c := range m {
		c.IncrementBufferFullRetries()
	}
}

func (m Multi) AddRecordsIngested(n int) {
	for _, c := range m {
		c.AddRecordsIngested(n)
	}
}

func (m Multi) IncrementBatchesMaterialized() {
	for _, c := range m {
		c.IncrementBatchesMaterialized()
	}
}

func (m Multi) AddBytesStaged(n int64) {
	for _, c := range m {
		c.AddBytesStaged(n)
	}
}

func (m Multi) IncrementTaskTriggers() {
	for _, c := range m {
		c.IncrementTaskTriggers()
	}
}
