package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"invalid argument", &InvalidArgument{Arg: "count", Value: "abc", Reason: "not a number"}, 2},
		{"wrapped invalid argument", fmt.Errorf("parse: %w", &InvalidArgument{Arg: "batch_size"}), 2},
		{"malformed record", &MalformedRecordError{Line: 3, Err: errors.New("bad json")}, 1},
		{"connector error", &ConnectorError{Stage: "put", Batch: 2, Err: errors.New("timeout")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.err))
		})
	}
}

func TestConnectorError_Unwrap(t *testing.T) {
	err := fmt.Errorf("run aborted: %w", &ConnectorError{Stage: "publish", Err: ErrBufferFull})

	assert.ErrorIs(t, err, ErrBufferFull)

	var connErr *ConnectorError
	assert.ErrorAs(t, err, &connErr)
	assert.Equal(t, "publish", connErr.Stage)
	assert.Equal(t, "publish failed: producer send buffer is full", connErr.Error())
}

func TestMalformedRecordError_Message(t *testing.T) {
	withField := &MalformedRecordError{Line: 7, Field: "txid", Err: errors.New("missing")}
	assert.Equal(t, `malformed record at line 7 (field "txid"): missing`, withField.Error())

	withoutField := &MalformedRecordError{Line: 1, Err: errors.New("unexpected end of JSON input")}
	assert.Equal(t, "malformed record at line 1: unexpected end of JSON input", withoutField.Error())
}
