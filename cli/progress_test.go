package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/e-commerce/testrunner/test"
)

func TestProgressReporterNonTerminal(t *testing.T) {
	logger := test.NewTestLogger()
	buf := &bytes.Buffer{}
	pr := &ProgressReporter{logger: logger, writer: buf, totalSteps: 2}

	pr.Step(1, "Checking configuration...")
	pr.Step(2, "Checking Docker connectivity...")
	pr.Complete("done")

	assert.True(t, logger.HasNotice("[1/2] Checking configuration..."))
	assert.True(t, logger.HasNotice("[2/2] Checking Docker connectivity..."))
	assert.True(t, logger.HasNotice("done"))
	assert.Empty(t, buf.String())
}

func TestProgressReporterTerminal(t *testing.T) {
	logger := test.NewTestLogger()
	buf := &bytes.Buffer{}
	pr := &ProgressReporter{logger: logger, writer: buf, totalSteps: 2, isTerminal: true}

	pr.Step(1, "first")
	assert.Contains(t, buf.String(), "[1/2]")
	assert.Contains(t, buf.String(), "50%")

	pr.Step(2, "second")
	assert.True(t, strings.HasSuffix(buf.String(), "second\n"))
	assert.Equal(t, 0, logger.MessageCount(), "steps are not logged on a terminal")
}

func TestProgressReporterZeroSteps(t *testing.T) {
	logger := test.NewTestLogger()
	pr := &ProgressReporter{logger: logger, writer: &bytes.Buffer{}}

	assert.NotPanics(t, func() { pr.Step(1, "x") })
	assert.Equal(t, 0, logger.MessageCount())
}

func TestRenderProgressBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("░", 20)+" 0%", renderProgressBar(0))
	assert.Equal(t, strings.Repeat("█", 10)+strings.Repeat("░", 10)+" 50%", renderProgressBar(50))
	assert.Equal(t, strings.Repeat("█", 20)+" 100%", renderProgressBar(100))
	assert.Equal(t, strings.Repeat("█", 20)+" 150%", renderProgressBar(150))
}
