package core

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/armon/circbuf"
)

// maximum size of a stdout/stderr stream to be kept in memory for reports
const maxStreamSize = 10 * 1024 * 1024

// Execution contains all the information relative to a test run.
type Execution struct {
	ID          string
	ContainerID string
	Image       string
	Date        time.Time
	Duration    time.Duration
	IsRunning   bool
	Failed      bool
	Canceled    bool
	ExitCode    int
	Error       error `json:"-"`

	// Last maxStreamSize bytes of each stream.
	OutputStream, ErrorStream *circbuf.Buffer `json:"-"`
}

// NewExecution returns a new Execution, with a random ID
func NewExecution() (*Execution, error) {
	bufOut, err := circbuf.NewBuffer(maxStreamSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create output buffer: %w", err)
	}

	bufErr, err := circbuf.NewBuffer(maxStreamSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create error buffer: %w", err)
	}

	id, err := randomID()
	if err != nil {
		return nil, err
	}

	return &Execution{
		ID:           id,
		OutputStream: bufOut,
		ErrorStream:  bufErr,
	}, nil
}

// Start starts the execution, initializes the running flags and the start date.
func (e *Execution) Start() {
	e.IsRunning = true
	e.Date = time.Now()
}

// Stop halts the execution. Any error marks it as failed; cancellation also
// marks it as canceled. The exit code is derived from err.
func (e *Execution) Stop(err error) {
	e.IsRunning = false
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	e.Duration = time.Since(e.Date)
	if e.Duration <= 0 {
		e.Duration = time.Nanosecond
	}

	e.ExitCode = ExitCode(err)
	if err == nil {
		return
	}

	e.Error = err
	e.Failed = true
	if e.ExitCode == ExitCodeInterrupted {
		e.Canceled = true
	}
}

// ErrorMessage returns the error text, or "" when the run succeeded.
func (e *Execution) ErrorMessage() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Error()
}

// GetStdout returns the captured tail of stdout.
func (e *Execution) GetStdout() string {
	if e.OutputStream == nil {
		return ""
	}
	return e.OutputStream.String()
}

// GetStderr returns the captured tail of stderr.
func (e *Execution) GetStderr() string {
	if e.ErrorStream == nil {
		return ""
	}
	return e.ErrorStream.String()
}

// Truncated reports whether either stream outgrew its buffer.
func (e *Execution) Truncated() bool {
	return (e.OutputStream != nil && e.OutputStream.TotalWritten() > e.OutputStream.Size()) ||
		(e.ErrorStream != nil && e.ErrorStream.TotalWritten() > e.ErrorStream.Size())
}

func randomID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand read: %w", errors.Join(ErrUnexpected, err))
	}

	return fmt.Sprintf("%x", b), nil
}
