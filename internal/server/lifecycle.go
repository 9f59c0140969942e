// Package server wires long-running components into one ordered lifecycle:
// start in registration order, stop in reverse on SIGINT, SIGTERM, context
// cancellation, or the first component failure.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultStopTimeout bounds how long shutdown waits on a single component's
// Stop before moving on to the next one.
const DefaultStopTimeout = 10 * time.Second

// Service is a long-running component under lifecycle control.
type Service interface {
	// Start runs the component and blocks until it stops or fails.
	Start() error
	// Stop asks the component to wind down; Start returns once it has.
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
// A nil StartFn blocks nothing; a nil StopFn stops nothing. Useful for
// components that only need teardown, like a scripting VM.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn when set.
func (f *FuncService) Start() error {
	if f.StartFn == nil {
		return nil
	}
	return f.StartFn()
}

// Stop calls StopFn when set.
func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}

// Lifecycle owns an ordered set of named services. Registration order is
// start order; shutdown walks the set in reverse so dependents go down
// before what they depend on.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration

	mu      sync.Mutex
	entries []lifecycleEntry
}

type lifecycleEntry struct {
	name string
	svc  Service
}

// NewLifecycle creates an empty Lifecycle with the default stop timeout.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger:      logger,
		stopTimeout: DefaultStopTimeout,
	}
}

// SetStopTimeout overrides the per-service shutdown bound.
//
// Precondition: d > 0; call before Run.
func (l *Lifecycle) SetStopTimeout(d time.Duration) {
	l.stopTimeout = d
}

// Add registers a named service. Services start in the order they are added.
//
// Precondition: name non-empty; svc non-nil; call before Run.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, lifecycleEntry{name: name, svc: svc})
}

// Run starts every registered service and blocks until SIGINT or SIGTERM
// arrives, ctx is cancelled, or a service's Start returns an error. It then
// stops everything in reverse order, bounding each Stop by the stop timeout.
//
// Postcondition: Every service has been asked to stop when Run returns.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	failures := make(chan error, len(l.entries))
	for _, e := range l.entries {
		e := e
		go func() {
			l.logger.Info("starting service", zap.String("service", e.name))
			if err := e.svc.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", e.name),
					zap.Error(err),
				)
				failures <- fmt.Errorf("service %s: %w", e.name, err)
				cancel()
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(l.entries)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-failures:
		l.logger.Error("service error, shutting down", zap.Error(err))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown()

	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(start)))
	return nil
}

// shutdown stops services newest-first. A Stop that outlives the stop
// timeout is abandoned so one hung component cannot wedge the whole exit;
// its goroutine is left to finish on its own.
func (l *Lifecycle) shutdown() {
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		l.logger.Info("stopping service", zap.String("service", e.name))

		stopped := make(chan struct{})
		go func() {
			e.svc.Stop()
			close(stopped)
		}()

		svcStart := time.Now()
		select {
		case <-stopped:
			l.logger.Info("service stopped",
				zap.String("service", e.name),
				zap.Duration("elapsed", time.Since(svcStart)),
			)
		case <-time.After(l.stopTimeout):
			l.logger.Warn("service stop timed out, moving on",
				zap.String("service", e.name),
				zap.Duration("timeout", l.stopTimeout),
			)
		}
	}
}
