package core

import (
	"fmt"
	"strings"

	"github.com/gobs/args"
)

// Default commands of a test run.
const (
	DefaultShell          = "sh -c"
	DefaultInstallCommand = "pip install -r requirements.txt"
	DefaultTestCommand    = "pytest -q"
)

// BuildShellCommand returns the container Cmd that runs install and then test
// through shell. Extra arguments are quoted and appended to the test command.
// An empty install step is skipped.
func BuildShellCommand(shell, install, test string, extra []string) ([]string, error) {
	shellArgs := args.GetArgs(shell)
	if len(shellArgs) == 0 {
		return nil, fmt.Errorf("shell: %w", ErrEmptyCommand)
	}

	script, err := BuildScript(install, test, extra)
	if err != nil {
		return nil, err
	}

	return append(shellArgs, script), nil
}

// BuildScript joins the install and test steps with && so a failed install
// aborts the run with its own exit status.
func BuildScript(install, test string, extra []string) (string, error) {
	test = strings.TrimSpace(test)
	if test == "" {
		return "", fmt.Errorf("test command: %w", ErrEmptyCommand)
	}

	if len(extra) > 0 {
		quoted := make([]string, len(extra))
		for i, a := range extra {
			quoted[i] = ShellQuote(a)
		}
		test += " " + strings.Join(quoted, " ")
	}

	install = strings.TrimSpace(install)
	if install == "" {
		return test, nil
	}
	return install + " && " + test, nil
}

// ShellQuote quotes s for a POSIX shell. Words made only of safe characters
// are returned as they are.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuoting) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./=:,+@%", r)
}
