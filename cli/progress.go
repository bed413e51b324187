package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/e-commerce/testrunner/core"
)

// ProgressReporter reports the steps of a multi-step operation: a progress
// bar on a terminal, log lines otherwise.
type ProgressReporter struct {
	logger      core.Logger
	writer      io.Writer
	totalSteps  int
	currentStep int
	mu          sync.Mutex
	isTerminal  bool
}

// NewProgressReporter creates a new multi-step progress reporter
func NewProgressReporter(logger core.Logger, totalSteps int) *ProgressReporter {
	return &ProgressReporter{
		logger:     logger,
		writer:     os.Stdout,
		totalSteps: totalSteps,
		isTerminal: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Step reports progress for a single step
func (pr *ProgressReporter) Step(stepNum int, message string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.currentStep = stepNum

	if pr.totalSteps == 0 {
		return
	}

	if !pr.isTerminal {
		pr.logger.Noticef("[%d/%d] %s", stepNum, pr.totalSteps, message)
		return
	}

	progress := float64(stepNum) / float64(pr.totalSteps) * 100
	fmt.Fprintf(pr.writer, "\r[%d/%d] %s %s", stepNum, pr.totalSteps, renderProgressBar(progress), message)
	if stepNum == pr.totalSteps {
		fmt.Fprintln(pr.writer)
	}
}

// Complete marks all steps as complete
func (pr *ProgressReporter) Complete(message string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.isTerminal && pr.currentStep != pr.totalSteps {
		fmt.Fprintln(pr.writer)
	}
	pr.logger.Noticef("✅ %s", message)
}

func renderProgressBar(percent float64) string {
	const barWidth = 20
	filled := min(int(percent/100.0*barWidth), barWidth)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s %.0f%%", bar, percent)
}
