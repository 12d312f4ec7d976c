package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"lifedash/internal/log"
)

// PendingProcessor mirrors documents whose latest version has not been synced.
type PendingProcessor interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

type SyncProcessorConfig struct {
	// PollInterval separates sweeps when the backlog is empty (default 30s).
	PollInterval time.Duration
	// BatchSize caps the documents mirrored per sweep (default 50).
	BatchSize int
	// MaxDrain caps back-to-back sweeps while batches come back full (default 20).
	MaxDrain int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    50,
		MaxDrain:     20,
	}
}

// SweepStats summarizes the sweeps run since Start.
type SweepStats struct {
	Sweeps    int
	Mirrored  int
	Failures  int
	LastError string
	LastSweep time.Time
}

var ErrProcessorRunning = errors.New("sync processor is already running")

// SyncProcessor sweeps documents the AMQP path missed. A full batch means
// more are waiting, so it keeps sweeping up to MaxDrain times before it
// goes back to polling.
type SyncProcessor struct {
	pending PendingProcessor
	config  SyncProcessorConfig
	logger  *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	kick   chan struct{}
	stats  SweepStats
}

func NewSyncProcessor(pending PendingProcessor, config SyncProcessorConfig, logger *log.Logger) *SyncProcessor {
	defaults := DefaultSyncProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxDrain <= 0 {
		config.MaxDrain = defaults.MaxDrain
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncProcessor{
		pending: pending,
		config:  config,
		logger:  logger.WithComponent(log.ComponentWorker),
		kick:    make(chan struct{}, 1),
	}
}

// Start runs the sweep loop until Stop is called or ctx ends.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return ErrProcessorRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.stats = SweepStats{}
	go p.loop(loopCtx, p.done)

	p.logger.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop cancels the loop and waits for the current sweep to return.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	p.logger.InfoContext(ctx, "Sync processor stopped")
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}

// Kick asks for a sweep without waiting for the next poll. Kicks made while a
// sweep is already queued collapse into it.
func (p *SyncProcessor) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *SyncProcessor) Stats() SweepStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *SyncProcessor) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.kick:
		}
		p.drain(ctx)
	}
}

func (p *SyncProcessor) drain(ctx context.Context) {
	for i := 0; i < p.config.MaxDrain && ctx.Err() == nil; i++ {
		n, err := p.pending.ProcessPending(ctx, p.config.BatchSize)
		p.record(n, err)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to process pending documents", log.FieldError, err.Error())
			return
		}
		if n > 0 {
			p.logger.DebugContext(ctx, "Mirrored pending documents", "count", n)
		}
		if n < p.config.BatchSize {
			return
		}
	}
}

func (p *SyncProcessor) record(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Sweeps++
	p.stats.Mirrored += n
	p.stats.LastSweep = time.Now()
	if err != nil {
		p.stats.Failures++
		p.stats.LastError = err.Error()
	}
}
