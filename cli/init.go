package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"gopkg.in/ini.v1"

	"github.com/e-commerce/testrunner/core"
	dockeradapter "github.com/e-commerce/testrunner/core/adapters/docker"
)

// InitCommand creates an interactive wizard for generating a testrunner.ini
type InitCommand struct {
	Output   string `long:"output" short:"o" description:"Output file path" default:"./testrunner.ini"`
	LogLevel string `long:"log-level" env:"TESTRUNNER_LOG_LEVEL" description:"Set log level"`
	Logger   core.Logger
}

// initSettings holds the answers of the wizard
type initSettings struct {
	Image          string
	Network        string
	DatabaseURL    string
	InstallCommand string
	TestCommand    string
	Pull           string
	LogLevel       string
	SaveFolder     string
}

func defaultInitSettings() *initSettings {
	return &initSettings{
		Image:          core.DefaultImage,
		Network:        core.DefaultNetwork,
		DatabaseURL:    core.DefaultDatabaseURL,
		InstallCommand: core.DefaultInstallCommand,
		TestCommand:    core.DefaultTestCommand,
		Pull:           string(core.PullMissing),
		LogLevel:       "info",
	}
}

// Execute runs the interactive configuration wizard
func (c *InitCommand) Execute(_ []string) error {
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		c.Logger.Warningf("Failed to apply log level (using default): %v", err)
	}

	c.Logger.Noticef("🚀 Welcome to the testrunner setup!")
	c.Logger.Noticef("This wizard writes the settings the test container runs with.")

	if _, err := os.Stat(c.Output); err == nil {
		if !c.confirmOverwrite() {
			c.Logger.Noticef("Setup canceled")
			return nil
		}
	}

	settings := defaultInitSettings()
	if err := c.promptSettings(settings); err != nil {
		return fmt.Errorf("failed to gather settings: %w", err)
	}

	if err := settings.save(c.Output); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.Logger.Noticef("✅ Configuration saved to: %s", c.Output)

	if err := c.postCreationActions(); err != nil {
		c.Logger.Warningf("Post-creation action failed: %v", err)
	}

	c.printNextSteps()
	return nil
}

// confirmOverwrite asks user to confirm overwriting existing file
func (c *InitCommand) confirmOverwrite() bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("File %s already exists. Overwrite", c.Output),
		IsConfirm: true,
		Default:   "n",
	}
	_, err := prompt.Run()
	return err == nil
}

func (c *InitCommand) promptSettings(s *initSettings) error {
	c.Logger.Noticef("=== Container ===")

	text := []struct {
		label    string
		value    *string
		validate promptui.ValidateFunc
	}{
		{"Docker image", &s.Image, validateImageInput},
		{"Docker network (the compose project's network)", &s.Network, validateNetworkInput},
		{"TEST_DATABASE_URL (as seen from the container)", &s.DatabaseURL, validateDatabaseURLInput},
		{"Install command (empty to skip)", &s.InstallCommand, nil},
		{"Test command", &s.TestCommand, validateCommandInput},
	}
	for _, p := range text {
		prompt := promptui.Prompt{
			Label:     p.label,
			Default:   *p.value,
			AllowEdit: true,
			Validate:  p.validate,
		}
		v, err := prompt.Run()
		if err != nil {
			return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
		}
		*p.value = strings.TrimSpace(v)
	}

	pullPrompt := promptui.Select{
		Label: "Image pull policy",
		Items: []string{string(core.PullMissing), string(core.PullAlways), string(core.PullNever)},
	}
	var err error
	_, s.Pull, err = pullPrompt.Run()
	if err != nil {
		return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	c.Logger.Noticef("=== Reporting ===")

	logLevelPrompt := promptui.Select{
		Label:     "Log level",
		Items:     []string{"panic", "fatal", "error", "warning", "info", "debug", "trace"},
		CursorPos: 4, // info
	}
	_, s.LogLevel, err = logLevelPrompt.Run()
	if err != nil {
		return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	savePrompt := promptui.Prompt{
		Label:   "Folder to save run reports to (optional)",
		Default: "",
	}
	s.SaveFolder, err = savePrompt.Run()
	if err != nil && !errors.Is(err, promptui.ErrAbort) {
		return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}
	s.SaveFolder = strings.TrimSpace(s.SaveFolder)

	return nil
}

func validateImageInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrImageEmpty
	}
	if !dockeradapter.ValidImageReference(strings.TrimSpace(input)) {
		return fmt.Errorf("invalid image reference %q", input)
	}
	return nil
}

func validateNetworkInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrNetworkEmpty
	}
	return nil
}

func validateDatabaseURLInput(input string) error {
	_, err := core.ParseDatabaseURL(input)
	return err
}

func validateCommandInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrCommandEmpty
	}
	return nil
}

// toINI renders the settings as a config file
func (s *initSettings) toINI() *ini.File {
	cfg := ini.Empty()

	global := cfg.Section(sectionGlobal)
	if s.LogLevel != "" {
		global.Key("log-level").SetValue(s.LogLevel)
	}
	if s.SaveFolder != "" {
		global.Key("save-folder").SetValue(s.SaveFolder)
	}

	run := cfg.Section(sectionRun)
	run.Key("image").SetValue(s.Image)
	run.Key("network").SetValue(s.Network)
	run.Key("database-url").SetValue(s.DatabaseURL)
	run.Key("install-command").SetValue(s.InstallCommand)
	run.Key("test-command").SetValue(s.TestCommand)
	run.Key("pull").SetValue(s.Pull)

	return cfg
}

// save writes the configuration file, owner-readable only: it holds the
// database password.
func (s *initSettings) save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := s.toINI().WriteTo(f); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// postCreationActions offers to validate the new file
func (c *InitCommand) postCreationActions() error {
	validatePrompt := promptui.Prompt{
		Label:     "Validate configuration now",
		IsConfirm: true,
		Default:   "Y",
	}
	if _, err := validatePrompt.Run(); err != nil {
		return nil //nolint:nilerr // declining is normal flow
	}

	conf, err := BuildFromFile(c.Output, c.Logger)
	if err == nil {
		err = conf.Validate()
	}
	if err != nil {
		c.Logger.Errorf("❌ Configuration validation failed: %v", err)
		return err
	}
	c.Logger.Noticef("✅ Configuration is valid!")
	return nil
}

// printNextSteps displays helpful next steps
func (c *InitCommand) printNextSteps() {
	c.Logger.Noticef("📋 Setup complete! Next steps:")
	c.Logger.Noticef("  → Start the database: docker compose up -d db")
	c.Logger.Noticef("  → Check the environment: testrunner doctor --config=%s", c.Output)
	c.Logger.Noticef("  → Run the tests: testrunner run --config=%s", c.Output)
}
