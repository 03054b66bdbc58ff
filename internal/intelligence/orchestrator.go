package intelligence

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/events"
	"github.com/vendexhq/commerce-engine/internal/websocket"
)

// ErrCycleInProgress is returned when a sync cycle is triggered while
// another one is still running. Concurrent cycles would double-trigger
// both external processes.
var ErrCycleInProgress = errors.New("sync cycle already in progress")

// Cycle outcome messages surfaced to the operator.
const (
	msgWatcherFailed = "market watcher stage failed"
	msgBrainFailed   = "pricing brain stage failed"
	msgCompleted     = "sync cycle completed"
)

// CycleResult reports a sync cycle run. There is no partial-success
// state: either both stages completed or the cycle failed.
type CycleResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EventPublisher is the slice of the Kafka producer the orchestrator uses.
type EventPublisher interface {
	PublishSyncCycleCompleted(event events.SyncCycleCompletedEvent) error
}

// Broadcaster pushes cycle progress to the dashboard stream.
type Broadcaster interface {
	Broadcast(messageType string, data interface{})
}

// Orchestrator runs the two-stage pricing-intelligence pipeline:
// market-watch first, pricing-brain second. Stage 2 consumes stage 1's
// output, so a watcher failure aborts the cycle before the brain runs.
type Orchestrator struct {
	runner    ProcessRunner
	publisher EventPublisher
	hub       Broadcaster
	logger    *logrus.Logger

	mutex sync.Mutex
}

func NewOrchestrator(runner ProcessRunner, publisher EventPublisher, hub Broadcaster, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		runner:    runner,
		publisher: publisher,
		hub:       hub,
		logger:    logger,
	}
}

// RunSyncCycle executes one full cycle. Single-flight: a trigger while
// a cycle is outstanding fails with ErrCycleInProgress instead of
// queueing.
func (o *Orchestrator) RunSyncCycle(ctx context.Context) (*CycleResult, error) {
	if !o.mutex.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer o.mutex.Unlock()

	o.logger.Info("Starting intelligence sync cycle")
	o.progress("watcher", "running")

	if err := o.runner.RunWatcher(ctx); err != nil {
		o.logger.WithError(err).Error("Market watcher failed, aborting cycle")
		o.progress("watcher", "failed")
		return o.finish(&CycleResult{Success: false, Message: msgWatcherFailed}), nil
	}
	o.progress("brain", "running")

	if err := o.runner.RunBrain(ctx); err != nil {
		o.logger.WithError(err).Error("Pricing brain failed")
		o.progress("brain", "failed")
		return o.finish(&CycleResult{Success: false, Message: msgBrainFailed}), nil
	}
	o.progress("brain", "completed")

	o.logger.Info("Intelligence sync cycle completed")
	return o.finish(&CycleResult{Success: true, Message: msgCompleted}), nil
}

func (o *Orchestrator) finish(result *CycleResult) *CycleResult {
	if o.publisher != nil {
		event := events.SyncCycleCompletedEvent{Success: result.Success, Message: result.Message}
		if err := o.publisher.PublishSyncCycleCompleted(event); err != nil {
			o.logger.WithError(err).Error("Failed to publish sync cycle event")
		}
	}
	return result
}

func (o *Orchestrator) progress(stage, state string) {
	if o.hub == nil {
		return
	}
	o.hub.Broadcast(websocket.TypeSyncProgress, map[string]string{
		"stage": stage,
		"state": state,
	})
}
