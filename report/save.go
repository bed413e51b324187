// Package report writes the output and summary of a test run to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/e-commerce/testrunner/core"
)

// SaveConfig configures saving of run reports.
type SaveConfig struct {
	// SaveFolder is the directory the stdout, stderr and JSON summary of each
	// run are written to. Empty disables saving.
	SaveFolder string `mapstructure:"save-folder" json:"save-folder,omitempty"`
	// SaveOnlyOnError restricts saving to failed runs.
	SaveOnlyOnError bool `mapstructure:"save-only-on-error" json:"save-only-on-error,omitempty"`
}

// Saver writes run reports to SaveFolder.
type Saver struct {
	SaveConfig
	logger core.Logger
}

// NewSaver returns a Saver, or nil when no save folder is configured.
func NewSaver(c *SaveConfig, logger core.Logger) *Saver {
	if c == nil || c.SaveFolder == "" {
		return nil
	}
	return &Saver{SaveConfig: *c, logger: logger}
}

// Summary is the JSON document written next to the logs.
type Summary struct {
	Run       any             `json:"run"`
	Execution *core.Execution `json:"execution"`
	Error     string          `json:"error,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
}

// Handle saves the report of e when the configuration asks for it. Failures
// are logged and never change the result of the run.
func (s *Saver) Handle(e *core.Execution, run any) {
	if s == nil || e == nil {
		return
	}
	if !e.Failed && s.SaveOnlyOnError {
		return
	}

	root, err := s.saveToDisk(e, run)
	if err != nil {
		s.logger.Errorf("Save error: %q", err)
		return
	}
	s.logger.Debugf("[run %s] Report saved to %s.*", e.ID, root)
}

func (s *Saver) saveToDisk(e *core.Execution, run any) (string, error) {
	if err := ValidateSaveFolder(s.SaveFolder); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.SaveFolder, 0o750); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", s.SaveFolder, err)
	}

	root := filepath.Join(s.SaveFolder, fmt.Sprintf(
		"%s_%s",
		e.Date.Format("20060102_150405"), SanitizeFilename(e.ID),
	))

	if err := writeFile([]byte(e.GetStderr()), root+".stderr.log"); err != nil {
		return "", fmt.Errorf("write stderr log: %w", err)
	}

	if err := writeFile([]byte(e.GetStdout()), root+".stdout.log"); err != nil {
		return "", fmt.Errorf("write stdout log: %w", err)
	}

	js, err := json.MarshalIndent(Summary{
		Run:       run,
		Execution: e,
		Error:     e.ErrorMessage(),
		Truncated: e.Truncated(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	if err := writeFile(js, root+".json"); err != nil {
		return "", fmt.Errorf("write summary json: %w", err)
	}

	return root, nil
}

func writeFile(data []byte, filename string) error {
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("write file %q: %w", filename, err)
	}
	return nil
}
