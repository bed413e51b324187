package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	ini "gopkg.in/ini.v1"

	"github.com/e-commerce/testrunner/cli"
	"github.com/e-commerce/testrunner/core"
)

var version string
var build string

// commands are the subcommand names; anything else on the command line is
// handed to run.
var commands = []string{"run", "validate", "doctor", "init"}

func buildLogger(level string) core.Logger {
	// Container output owns stdout.
	logrus.SetOutput(os.Stderr)
	logrus.SetReportCaller(true)
	forceColors := false
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb" && os.Getenv("NO_COLOR") == "" {
		forceColors = true
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		ForceColors:      forceColors,
		DisableColors:    !forceColors,
		DisableQuote:     true,
		TimestampFormat:  "2006-01-02 15:04:05",
		CallerPrettyfier: prettyCaller,
	})
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	return core.NewLogrusAdapter(logrus.StandardLogger())
}

func prettyCaller(frame *runtime.Frame) (string, string) {
	return "", fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}

// withDefaultCommand puts the command name first, prepending "run" when
// args name none. Options given before the command name move after it,
// since each command owns its options. Nothing after "--" is inspected.
func withDefaultCommand(args []string) []string {
	if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		return args
	}

	for i, arg := range args {
		if arg == "--" {
			break
		}
		if slices.Contains(commands, arg) {
			if i == 0 {
				return args
			}
			out := make([]string, 0, len(args))
			out = append(out, arg)
			out = append(out, args[:i]...)
			return append(out, args[i+1:]...)
		}
	}
	return append([]string{"run"}, args...)
}

// globalLogLevel reads [global] log-level from the config file, "" when
// the file or key is missing.
func globalLogLevel(configFile string) string {
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true, InsensitiveKeys: true}, configFile)
	if err != nil {
		return ""
	}
	sec, err := cfg.GetSection("global")
	if err != nil {
		return ""
	}
	return sec.Key("log-level").String()
}

func main() {
	// Pre-parse log-level flag to configure logger early
	var pre struct {
		LogLevel   string `long:"log-level" env:"TESTRUNNER_LOG_LEVEL"`
		ConfigFile string `long:"config" short:"c" env:"TESTRUNNER_CONFIG" default:"./testrunner.ini"`
	}
	args := withDefaultCommand(os.Args[1:])
	preParser := flags.NewParser(&pre, flags.IgnoreUnknown)
	_, _ = preParser.ParseArgs(args)

	if pre.LogLevel == "" {
		pre.LogLevel = globalLogLevel(pre.ConfigFile)
	}

	logger := buildLogger(pre.LogLevel)

	// Errors are printed below.
	parser := flags.NewNamedParser("testrunner", flags.HelpFlag|flags.PassDoubleDash)
	parser.AddCommand(
		"run",
		"runs the test suite in a container (default)",
		"Mounts the project into a throwaway container on the compose network, installs "+
			"the requirements and runs the tests. Exits with the status of the test command. "+
			"Arguments after -- are appended to it, e.g. testrunner -- -k orders.",
		&cli.RunCommand{Logger: logger},
	)
	parser.AddCommand(
		"validate",
		"validates the config file",
		"",
		&cli.ValidateCommand{Logger: logger},
	)
	parser.AddCommand(
		"doctor",
		"checks that a test run can succeed",
		"",
		&cli.DoctorCommand{Logger: logger},
	)
	parser.AddCommand(
		"init",
		"creates a config file interactively",
		"",
		&cli.InitCommand{Logger: logger},
	)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagErr, ok := errors.AsType[*flags.Error](err); ok {
			if flagErr.Type == flags.ErrHelp {
				fmt.Fprintln(os.Stdout, flagErr.Message)
				return
			}

			fmt.Fprintln(os.Stderr, flagErr.Message)
			parser.WriteHelp(os.Stderr)
			fmt.Fprintf(os.Stderr, "\nBuild information\n  commit: %s\n  date:%s\n", version, build)
			os.Exit(core.ExitCodeRuntimeError)
		}

		// The test run already reported a failing suite.
		if !core.IsNonZeroExitError(err) {
			logger.Errorf("%v", err)
		}
		os.Exit(core.ExitCode(err))
	}
}
