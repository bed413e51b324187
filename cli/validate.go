package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/e-commerce/testrunner/core"
)

// ValidateCommand validates the config file and prints the effective
// configuration, database password masked.
type ValidateCommand struct {
	ConfigFile string `long:"config" short:"c" env:"TESTRUNNER_CONFIG" description:"configuration file" default:"./testrunner.ini"`
	LogLevel   string `long:"log-level" env:"TESTRUNNER_LOG_LEVEL" description:"Set log level (overrides config)"`
	Format     string `long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	RunOptions `group:"Run Options"`

	Logger core.Logger
	// Out receives the document; os.Stdout when nil.
	Out io.Writer
}

// Execute runs the validation command
func (c *ValidateCommand) Execute(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: %q", ErrUnexpectedArgument, args[0])
	}
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		c.Logger.Warningf("Failed to apply log level (using default): %v", err)
	}

	c.Logger.Debugf("Validating %q ... ", c.ConfigFile)
	conf, err := effectiveConfig(c.ConfigFile, &c.RunOptions, c.Logger)
	if err != nil {
		c.Logger.Errorf("ERROR")
		return core.ExitError{Code: core.ExitCodeInvalidConfig, Err: err}
	}
	if c.LogLevel == "" {
		_ = ApplyLogLevel(conf.Global.LogLevel)
	}

	out, err := json.MarshalIndent(conf.Redacted(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if c.Format == "yaml" {
		if out, err = jsonToYAML(out); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
	}
	fmt.Fprintln(writerOr(c.Out, os.Stdout), string(out))

	c.Logger.Debugf("OK")
	return nil
}

// jsonToYAML re-encodes a JSON document as block-style YAML, keeping the
// key order of the JSON.
func jsonToYAML(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	blockStyle(&doc)
	return yaml.Marshal(&doc)
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}
