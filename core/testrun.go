package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/e-commerce/testrunner/core/domain"
)

// Defaults of a test run.
const (
	DefaultImage      = "python:3.12-slim"
	DefaultNetwork    = "e-commerce_default"
	DefaultWorkingDir = "/app"

	DefaultStopTimeout = 10 * time.Second
)

const (
	// cleanupTimeout bounds stop and remove after the run context is gone.
	cleanupTimeout = 30 * time.Second
	// logDrainTimeout bounds waiting for the log stream after the container exited.
	logDrainTimeout = 5 * time.Second
)

var ErrInvalidMountSource = errors.New("mount source must be an absolute path")

// TestRun runs the install and test commands in a throwaway container and
// reports the container's exit status.
type TestRun struct {
	Image       string
	Network     string
	Source      string
	WorkingDir  string
	DatabaseURL string
	// NormalizeDriver rewrites the database URL scheme to postgresql+<driver>.
	NormalizeDriver string
	Environment     []string

	Shell          string
	InstallCommand string
	TestCommand    string
	ExtraArgs      []string

	Pull          PullPolicy
	Delete        bool
	User          string
	ContainerName string
	Platform      string
	TTY           bool
	Labels        map[string]string

	MaxRuntime  time.Duration
	StopTimeout time.Duration

	// Container output is copied here as it is produced.
	Stdout io.Writer
	Stderr io.Writer

	provider  *DockerProvider
	logger    Logger
	execution *Execution
}

// NewTestRun returns a TestRun with the defaults of the e-commerce suite.
func NewTestRun(provider *DockerProvider, logger Logger) *TestRun {
	return &TestRun{
		Image:          DefaultImage,
		Network:        DefaultNetwork,
		WorkingDir:     DefaultWorkingDir,
		DatabaseURL:    DefaultDatabaseURL,
		Shell:          DefaultShell,
		InstallCommand: DefaultInstallCommand,
		TestCommand:    DefaultTestCommand,
		Pull:           PullMissing,
		Delete:         true,
		StopTimeout:    DefaultStopTimeout,
		provider:       provider,
		logger:         logger,
	}
}

// Execution returns the record of the last Run, nil before the first one.
func (r *TestRun) Execution() *Execution {
	return r.execution
}

// Run executes the test run. A non-zero exit of the test command is returned
// as NonZeroExitError carrying the container's status.
func (r *TestRun) Run(ctx context.Context) (err error) {
	e, err := NewExecution()
	if err != nil {
		return err
	}
	e.Image = r.Image
	r.execution = e

	e.Start()
	defer func() {
		e.Stop(err)
		r.logResult(e)
	}()

	config, err := r.buildContainer()
	if err != nil {
		return err
	}

	if err := r.ensureImage(ctx); err != nil {
		return err
	}

	if err := r.ensureNetwork(ctx); err != nil {
		return err
	}

	containerID, err := r.provider.CreateContainer(ctx, config)
	if err != nil {
		return err
	}
	e.ContainerID = containerID

	if r.Delete {
		defer r.deleteContainer(ctx, containerID)
	}

	if err := r.provider.StartContainer(ctx, containerID); err != nil {
		return err
	}

	r.logger.Noticef("[run %s] Running %q in %s", e.ID, strings.Join(config.Cmd, " "), r.Image)

	return r.watchContainer(ctx, containerID)
}

func (r *TestRun) ensureImage(ctx context.Context) error {
	policy := r.Pull
	if policy == "" {
		policy = PullMissing
	}
	return r.provider.EnsureImage(ctx, r.Image, r.Platform, policy)
}

// ensureNetwork checks that the compose network the database lives on exists.
func (r *TestRun) ensureNetwork(ctx context.Context) error {
	if domain.IsBuiltinNetworkMode(r.Network) {
		return nil
	}

	network, err := r.provider.FindNetwork(ctx, r.Network)
	if err != nil {
		if errors.Is(err, ErrNetworkNotFound) {
			return fmt.Errorf("%w (start the %q compose project first)", err, composeProjectOf(r.Network))
		}
		return err
	}

	if project := network.ComposeProject(); project != "" {
		r.logger.Debugf("Using network %s of compose project %s", network.Name, project)
	}
	return nil
}

func (r *TestRun) buildContainer() (*domain.ContainerConfig, error) {
	if !filepath.IsAbs(r.Source) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMountSource, r.Source)
	}

	cmd, err := BuildShellCommand(r.Shell, r.InstallCommand, r.TestCommand, r.ExtraArgs)
	if err != nil {
		return nil, err
	}

	env, err := r.environment()
	if err != nil {
		return nil, err
	}

	labels := make(map[string]string, len(r.Labels)+2)
	maps.Copy(labels, r.Labels)
	labels[LabelManaged] = "true"
	labels[LabelRunID] = r.execution.ID

	workdir := r.WorkingDir
	if workdir == "" {
		workdir = DefaultWorkingDir
	}

	return &domain.ContainerConfig{
		Name:         r.ContainerName,
		Image:        r.Image,
		Cmd:          cmd,
		Env:          env,
		WorkingDir:   workdir,
		User:         r.User,
		Labels:       labels,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          r.TTY,
		Platform:     r.Platform,
		HostConfig: &domain.HostConfig{
			Binds:       []string{r.Source + ":" + workdir},
			NetworkMode: r.Network,
		},
	}, nil
}

// environment puts TEST_DATABASE_URL first so an explicit entry in
// Environment overrides it, as with repeated docker run -e flags.
func (r *TestRun) environment() ([]string, error) {
	env := make([]string, 0, len(r.Environment)+1)

	if r.DatabaseURL != "" {
		dbURL, err := ParseDatabaseURL(r.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// Only a rewritten scheme is re-serialized; otherwise the suite
		// sees the value exactly as given.
		value := strings.TrimSpace(r.DatabaseURL)
		if withDriver := dbURL.WithDriver(r.NormalizeDriver); withDriver != dbURL {
			value = withDriver.String()
		}
		env = append(env, DatabaseURLEnv+"="+value)
	} else {
		r.logger.Warningf("%s is not set; the test suite will not reach its database", DatabaseURLEnv)
	}

	return append(env, r.Environment...), nil
}

// watchContainer streams the container output and waits for it to exit.
func (r *TestRun) watchContainer(ctx context.Context, containerID string) error {
	e := r.execution

	// The log stream ends when the container exits; it is only cut short
	// when the container outlives the run.
	logCtx, cancelLogs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelLogs()

	logsDone := make(chan error, 1)
	go func() {
		logsDone <- r.provider.FollowLogs(logCtx, containerID,
			teeWriter(r.Stdout, e.OutputStream), teeWriter(r.Stderr, e.ErrorStream))
	}()

	waitCtx := ctx
	if r.MaxRuntime > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.MaxRuntime)
		defer cancel()
	}

	exitCode, err := r.provider.WaitContainer(waitCtx, containerID)
	if err != nil {
		r.stopContainer(ctx, containerID)
		r.drainLogs(logsDone, cancelLogs)

		switch {
		case ctx.Err() != nil:
			return fmt.Errorf("test run interrupted: %w", ctx.Err())
		case errors.Is(waitCtx.Err(), context.DeadlineExceeded):
			return fmt.Errorf("%w: %s", ErrMaxTimeRunning, r.MaxRuntime)
		default:
			return err
		}
	}

	r.drainLogs(logsDone, cancelLogs)

	switch exitCode {
	case 0:
		return nil
	case -1:
		return ErrUnexpected
	default:
		return NonZeroExitError{ExitCode: int(exitCode)}
	}
}

func (r *TestRun) drainLogs(logsDone <-chan error, cancel context.CancelFunc) {
	timer := time.NewTimer(logDrainTimeout)
	defer timer.Stop()

	select {
	case err := <-logsDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warningf("[run %s] Failed to stream container output: %v", r.execution.ID, err)
		}
	case <-timer.C:
		cancel()
		<-logsDone
	}
}

func (r *TestRun) stopContainer(ctx context.Context, containerID string) {
	timeout := r.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout+cleanupTimeout)
	defer cancel()

	r.logger.Warningf("[run %s] Stopping container %s", r.execution.ID, shortID(containerID))
	err := r.provider.StopContainer(stopCtx, containerID, timeout)
	if err == nil || domain.IsNotFound(err) {
		return
	}
	r.logger.Errorf("[run %s] %v", r.execution.ID, err)

	// A failed or timed out stop can leave the container running.
	killCtx, cancelKill := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancelKill()

	r.logger.Warningf("[run %s] Killing container %s", r.execution.ID, shortID(containerID))
	if err := r.provider.KillContainer(killCtx, containerID); err != nil && !domain.IsNotFound(err) {
		r.logger.Errorf("[run %s] %v", r.execution.ID, err)
	}
}

func (r *TestRun) deleteContainer(ctx context.Context, containerID string) {
	rmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := r.provider.RemoveContainer(rmCtx, containerID); err != nil {
		r.logger.Warningf("[run %s] Failed to delete container: %v", r.execution.ID, err)
	}
}

func (r *TestRun) logResult(e *Execution) {
	switch {
	case !e.Failed:
		r.logger.Noticef("[run %s] Tests passed in %s", e.ID, e.Duration.Round(time.Millisecond))
	case IsNonZeroExitError(e.Error):
		r.logger.Errorf("[run %s] Tests failed with exit code %d in %s", e.ID, e.ExitCode, e.Duration.Round(time.Millisecond))
	case e.Canceled:
		r.logger.Warningf("[run %s] Test run interrupted after %s", e.ID, e.Duration.Round(time.Millisecond))
	default:
		r.logger.Errorf("[run %s] Test run failed: %v", e.ID, e.Error)
	}
}

func teeWriter(w io.Writer, buf io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(w, buf)
}

// composeProjectOf guesses the compose project owning a default network.
func composeProjectOf(network string) string {
	return strings.TrimSuffix(network, "_default")
}
