package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecution(t *testing.T) {
	t.Parallel()

	e, err := NewExecution()
	require.NoError(t, err)

	assert.Len(t, e.ID, 12)
	assert.NotNil(t, e.OutputStream)
	assert.NotNil(t, e.ErrorStream)
	assert.False(t, e.IsRunning)

	other, err := NewExecution()
	require.NoError(t, err)
	assert.NotEqual(t, e.ID, other.ID)
}

func TestExecutionStartStop(t *testing.T) {
	t.Parallel()

	e, err := NewExecution()
	require.NoError(t, err)

	e.Start()
	assert.True(t, e.IsRunning)
	assert.False(t, e.Date.IsZero())

	time.Sleep(time.Millisecond)
	e.Stop(nil)

	assert.False(t, e.IsRunning)
	assert.False(t, e.Failed)
	assert.Equal(t, 0, e.ExitCode)
	assert.Positive(t, e.Duration)
	assert.Empty(t, e.ErrorMessage())
}

func TestExecutionStopWithError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		exitCode int
		canceled bool
	}{
		{"test failures", NonZeroExitError{ExitCode: 1}, 1, false},
		{"wrapped exit", fmt.Errorf("run: %w", NonZeroExitError{ExitCode: 5}), 5, false},
		{"interrupted", context.Canceled, ExitCodeInterrupted, true},
		{"daemon error", errors.New("connection refused"), ExitCodeRuntimeError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, err := NewExecution()
			require.NoError(t, err)

			e.Stop(tt.err)

			assert.True(t, e.Failed)
			assert.Equal(t, tt.exitCode, e.ExitCode)
			assert.Equal(t, tt.canceled, e.Canceled)
			assert.Equal(t, tt.err.Error(), e.ErrorMessage())
		})
	}
}

func TestExecutionStopWithoutStart(t *testing.T) {
	t.Parallel()

	e := &Execution{}
	e.Stop(nil)

	assert.False(t, e.Date.IsZero())
	assert.Positive(t, e.Duration)
}

func TestExecutionStreams(t *testing.T) {
	t.Parallel()

	e, err := NewExecution()
	require.NoError(t, err)

	_, _ = e.OutputStream.Write([]byte("1 passed"))
	_, _ = e.ErrorStream.Write([]byte("warning"))

	assert.Equal(t, "1 passed", e.GetStdout())
	assert.Equal(t, "warning", e.GetStderr())
	assert.False(t, e.Truncated())

	empty := &Execution{}
	assert.Empty(t, empty.GetStdout())
	assert.Empty(t, empty.GetStderr())
	assert.False(t, empty.Truncated())
}
