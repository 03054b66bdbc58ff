package intelligence

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// ProcessRunner invokes the two external analysis processes. Both are
// opaque: only the exit outcome matters for control flow.
type ProcessRunner interface {
	RunWatcher(ctx context.Context) error
	RunBrain(ctx context.Context) error
}

// ExecRunner shells out to the market-watcher and pricing-brain
// commands. Each stage gets its own timeout so a hung scrape cannot
// stall the cycle forever.
type ExecRunner struct {
	watcherArgv  []string
	brainArgv    []string
	stageTimeout time.Duration
	logger       *logrus.Logger
}

func NewExecRunner(watcherArgv, brainArgv []string, stageTimeout time.Duration, logger *logrus.Logger) *ExecRunner {
	if stageTimeout <= 0 {
		stageTimeout = 15 * time.Minute
	}
	return &ExecRunner{
		watcherArgv:  watcherArgv,
		brainArgv:    brainArgv,
		stageTimeout: stageTimeout,
		logger:       logger,
	}
}

func (r *ExecRunner) RunWatcher(ctx context.Context) error {
	return r.run(ctx, "watcher", r.watcherArgv)
}

func (r *ExecRunner) RunBrain(ctx context.Context) error {
	return r.run(ctx, "brain", r.brainArgv)
}

func (r *ExecRunner) run(ctx context.Context, stage string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command configured for %s stage", stage)
	}

	ctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	output, err := cmd.CombinedOutput()

	fields := logrus.Fields{
		"stage":    stage,
		"command":  argv[0],
		"duration": time.Since(start).Milliseconds(),
	}
	if err != nil {
		r.logger.WithError(err).WithFields(fields).WithField("output", string(output)).Error("Intelligence stage failed")
		return fmt.Errorf("%s stage failed: %w", stage, err)
	}

	r.logger.WithFields(fields).Info("Intelligence stage completed")
	return nil
}
