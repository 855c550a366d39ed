package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gilbertyin/Jurni/internal/domain"
	"github.com/gilbertyin/Jurni/internal/queue"
)

// ErrShutdownTimeout is returned when workers don't stop within timeout.
var ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

// Processor runs one job to a terminal state.
type Processor interface {
	Process(ctx context.Context, msg domain.JobMessage) error
}

// Pool manages a pool of workers consuming the job queue. Each worker
// blocks on the queue's pop timeout, so an idle pool costs one Redis
// connection per worker and nothing else.
type Pool struct {
	workers   int
	queue     queue.Queue
	processor Processor
	logger    *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds worker pool configuration.
type Config struct {
	Workers int
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, q queue.Queue, processor Processor, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:   cfg.Workers,
		queue:     q,
		processor: processor,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully stops all workers. In-flight jobs run to their terminal
// state before the worker exits.
func (p *Pool) Stop(timeout time.Duration) error {
	p.logger.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Info("worker started")

	for {
		select {
		case <-p.ctx.Done():
			logger.Info("worker stopping")
			return
		default:
			p.processNextJob(logger)
		}
	}
}

func (p *Pool) processNextJob(logger *slog.Logger) {
	msg, err := p.queue.Dequeue(p.ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoJobs) && !errors.Is(err, context.Canceled) {
			logger.Error("failed to dequeue job", "error", err)
		}
		return
	}

	logger = logger.With("job_id", msg.JobID)
	logger.Info("job dequeued", "attempt", msg.Attempts+1)

	// The job finishes even if shutdown starts mid-processing; only the
	// dequeue loop observes cancellation.
	procErr := p.processor.Process(context.WithoutCancel(p.ctx), msg)
	if procErr != nil {
		logger.Warn("job processing failed", "error", procErr)
	}

	if err := p.queue.Report(context.WithoutCancel(p.ctx), msg, procErr); err != nil {
		logger.Error("failed to report job outcome", "error", err)
	}
}
