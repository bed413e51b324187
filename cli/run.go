package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/e-commerce/testrunner/core"
	dockeradapter "github.com/e-commerce/testrunner/core/adapters/docker"
	"github.com/e-commerce/testrunner/report"
)

// newDockerProvider allows overriding provider creation (e.g., for testing)
var newDockerProvider = core.NewDockerProvider

// RunOptions override the [run] section of the config file. Unset options
// leave the file's values alone.
type RunOptions struct {
	Image           string         `long:"image" env:"TESTRUNNER_IMAGE" description:"Image the tests run in"`
	Network         string         `long:"network" env:"TESTRUNNER_NETWORK" description:"Network the container joins"`
	Source          string         `long:"source" env:"TESTRUNNER_SOURCE" description:"Directory mounted into the container (default: current directory)"`
	WorkingDir      string         `long:"workdir" env:"TESTRUNNER_WORKDIR" description:"Mount point and working directory in the container"`
	DatabaseURL     string         `long:"database-url" env:"TEST_DATABASE_URL" description:"Connection string passed as TEST_DATABASE_URL"`
	NormalizeDriver string         `long:"normalize-driver" env:"TESTRUNNER_NORMALIZE_DRIVER" description:"Rewrite the database URL scheme to postgresql+<driver>"`
	EnvFile         string         `long:"env-file" env:"TESTRUNNER_ENV_FILE" description:"dotenv file to read TEST_DATABASE_URL from"`
	Environment     []string       `long:"env" short:"e" description:"Extra environment variable KEY=VALUE (repeatable)"`
	Shell           string         `long:"shell" env:"TESTRUNNER_SHELL" description:"Shell the command chain runs in"`
	InstallCommand  string         `long:"install-command" env:"TESTRUNNER_INSTALL_COMMAND" description:"Dependency install step"`
	SkipInstall     bool           `long:"skip-install" description:"Run the tests without the install step"`
	TestCommand     string         `long:"test-command" env:"TESTRUNNER_TEST_COMMAND" description:"Test command"`
	Pull            string         `long:"pull" env:"TESTRUNNER_PULL" description:"Image pull policy" choice:"missing" choice:"always" choice:"never"`
	PullRetries     *int           `long:"pull-retries" description:"Retries of a failed image pull"`
	Keep            bool           `long:"keep" description:"Keep the container after it exits"`
	User            string         `long:"user" short:"u" description:"User the tests run as"`
	ContainerName   string         `long:"name" description:"Container name"`
	Platform        string         `long:"platform" env:"TESTRUNNER_PLATFORM" description:"Image platform os/arch[/variant]"`
	TTY             bool           `long:"tty" short:"t" description:"Allocate a pseudo-TTY"`
	Labels          []string       `long:"label" short:"l" description:"Extra container label key=value (repeatable)"`
	MaxRuntime      *time.Duration `long:"max-runtime" env:"TESTRUNNER_MAX_RUNTIME" description:"Stop the tests after this long (0 = no limit)"`
	StopTimeout     time.Duration  `long:"stop-timeout" description:"Grace period before the container is killed"`
	DockerHost      string         `long:"docker-host" env:"TESTRUNNER_DOCKER_HOST" description:"Docker daemon address (default: DOCKER_HOST)"`
	SaveFolder      string         `long:"save-folder" env:"TESTRUNNER_SAVE_FOLDER" description:"Folder run reports are saved to"`
}

// apply writes the set options over conf.
func (o *RunOptions) apply(conf *Config) {
	setString(&conf.Run.Image, o.Image)
	setString(&conf.Run.Network, o.Network)
	setString(&conf.Run.Source, o.Source)
	setString(&conf.Run.WorkingDir, o.WorkingDir)
	setString(&conf.Run.NormalizeDriver, o.NormalizeDriver)
	setString(&conf.Run.EnvFile, o.EnvFile)
	setString(&conf.Run.Shell, o.Shell)
	setString(&conf.Run.InstallCommand, o.InstallCommand)
	setString(&conf.Run.TestCommand, o.TestCommand)
	setString(&conf.Run.Pull, o.Pull)
	setString(&conf.Run.User, o.User)
	setString(&conf.Run.ContainerName, o.ContainerName)
	setString(&conf.Run.Platform, o.Platform)
	setString(&conf.Docker.Host, o.DockerHost)
	setString(&conf.Global.SaveFolder, o.SaveFolder)

	conf.Run.Environment = append(conf.Run.Environment, o.Environment...)
	conf.Run.Labels = append(conf.Run.Labels, o.Labels...)

	if o.SkipInstall {
		conf.Run.InstallCommand = ""
	}
	if o.Keep {
		conf.Run.Delete = false
	}
	if o.TTY {
		conf.Run.TTY = true
	}
	if o.PullRetries != nil {
		conf.Run.PullRetries = *o.PullRetries
	}
	if o.MaxRuntime != nil {
		conf.Run.MaxRuntime = *o.MaxRuntime
	}
	if o.StopTimeout > 0 {
		conf.Run.StopTimeout = o.StopTimeout
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// effectiveConfig loads the config file and layers env file, environment
// and flags on top of it, then validates the result.
func effectiveConfig(configFile string, opts *RunOptions, logger core.Logger) (*Config, error) {
	conf, err := LoadConfig(configFile, logger)
	if err != nil {
		return nil, err
	}

	opts.apply(conf)

	if err := conf.ResolveEnvFile(opts.DatabaseURL); err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// RunCommand runs the test suite in a throwaway container and exits with
// the status of the test command.
type RunCommand struct {
	ConfigFile string `long:"config" short:"c" env:"TESTRUNNER_CONFIG" description:"configuration file" default:"./testrunner.ini"`
	LogLevel   string `long:"log-level" env:"TESTRUNNER_LOG_LEVEL" description:"Set log level (overrides config)"`
	RunOptions `group:"Run Options"`

	Logger core.Logger
	// Container output; os.Stdout and os.Stderr when nil.
	Stdout io.Writer
	Stderr io.Writer
}

// Execute runs the tests. Positional arguments are appended to the test
// command.
func (c *RunCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.run(ctx, args)
}

func (c *RunCommand) run(ctx context.Context, args []string) error {
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		c.Logger.Warningf("Failed to apply log level (using default): %v", err)
	}

	conf, err := effectiveConfig(c.ConfigFile, &c.RunOptions, c.Logger)
	if err != nil {
		return err
	}
	if c.LogLevel == "" {
		if err := ApplyLogLevel(conf.Global.LogLevel); err != nil {
			c.Logger.Warningf("Failed to apply log level from config: %v", err)
		}
	}

	source, err := conf.ResolveSource()
	if err != nil {
		return err
	}
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", core.ErrInvalidMountSource, source)
	}

	warnUnreachableDatabase(conf, c.Logger)

	provider, err := newDockerProvider(&core.DockerProviderConfig{
		Host:         conf.Docker.Host,
		Logger:       c.Logger,
		AuthProvider: dockeradapter.NewConfigAuthProvider(c.Logger),
		PullRetry:    conf.PullRetryConfig(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Close(); err != nil {
			c.Logger.Debugf("Closing docker client: %v", err)
		}
	}()

	testRun, err := conf.NewTestRun(provider, source, args)
	if err != nil {
		return err
	}
	testRun.Stdout = writerOr(c.Stdout, os.Stdout)
	testRun.Stderr = writerOr(c.Stderr, os.Stderr)

	c.Logger.Debugf("Mounting %s at %s, database %s",
		source, conf.Run.WorkingDir, core.RedactDatabaseURL(conf.Run.DatabaseURL))

	runErr := testRun.Run(ctx)

	report.NewSaver(&conf.Global.SaveConfig, c.Logger).Handle(testRun.Execution(), conf.Redacted().Run)

	return runErr
}

// warnUnreachableDatabase flags a loopback database host, which is what a
// host-side .env usually holds and what a container cannot reach.
func warnUnreachableDatabase(conf *Config, logger core.Logger) {
	if conf.Run.DatabaseURL == "" || conf.Run.Network == "host" {
		return
	}
	dbURL, err := core.ParseDatabaseURL(conf.Run.DatabaseURL)
	if err != nil || !dbURL.IsLoopback() {
		return
	}
	logger.Warningf("%s points at %s, which is the container itself; use the database service name on network %s",
		core.DatabaseURLEnv, dbURL.Host, conf.Run.Network)
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}
