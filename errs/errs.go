// Package errs defines the failure taxonomy shared by the pipeline commands.
package errs

import (
	"errors"
	"fmt"
)

// ErrBufferFull reports that the producer's local send queue is saturated.
// It is recovered by the publisher and only surfaces when the retry policy is exhausted.
var ErrBufferFull = errors.New("producer send buffer is full")

// InvalidArgument is returned for bad command line input.
type InvalidArgument struct {
	Arg    string
	Value  string
	Reason string
}

func (e *InvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument %s=%q: %s", e.Arg, e.Value, e.Reason)
}

// MalformedRecordError reports an input line that is not a valid serialized record.
// Line is 1-based; Field is empty when the line is not valid JSON at all.
type MalformedRecordError struct {
	Line  int
	Field string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed record at line %d (field %q): %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed record at line %d: %v", e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// ConnectorError wraps a failure talking to the broker, the stage or the task runner.
// Stage names the pipeline step ("publish", "flush", "put", "execute_task", ...).
// Batch is the 1-based batch index, or 0 when the failure is not tied to a batch.
type ConnectorError struct {
	Stage string
	Batch int
	Err   error
}

func (e *ConnectorError) Error() string {
	if e.Batch > 0 {
		return fmt.Sprintf("%s failed for batch %d: %v", e.Stage, e.Batch, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by a command to its process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var invalid *InvalidArgument
	if errors.As(err, &invalid) {
		return 2
	}
	return 1
}
