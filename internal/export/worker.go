package export

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	ErrQueueFull  = errors.New("pdf job queue is full")
	ErrPoolClosed = errors.New("pdf worker pool is shut down")
)

type PDFJob struct {
	ReportID     string
	ReportNumber string
}

type Worker struct {
	ID         int
	WorkerPool chan chan PDFJob
	JobChannel chan PDFJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan PDFJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan PDFJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(PDFJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			// announce readiness, then wait for work
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "report_id", job.ReportID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type PoolConfig struct {
	MaxWorkers   int
	JobQueueSize int
}

// Pool runs PDF jobs on a fixed set of workers fed from a bounded queue.
type Pool struct {
	logger  *slog.Logger
	process func(PDFJob)

	jobQueue   chan PDFJob
	workerPool chan chan PDFJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	closed     atomic.Bool
}

func NewPool(config PoolConfig, process func(PDFJob), logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	pool := &Pool{
		logger:     logger,
		process:    process,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan PDFJob, jobQueueSize),
		workerPool: make(chan chan PDFJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	pool.start()

	return pool
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			worker := NewWorker(i, p.workerPool, p.logger)
			worker.Start(p.ctx, &p.wg, p.process)
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("pdf worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					p.logger.Info("dispatcher shutting down")
					return
				}
			case <-p.ctx.Done():
				p.logger.Info("dispatcher shutting down")
				return
			}
		case <-p.ctx.Done():
			p.logger.Info("dispatcher shutting down")
			return
		}
	}
}

// Enqueue never blocks. A full queue is reported to the caller.
func (p *Pool) Enqueue(job PDFJob) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	select {
	case p.jobQueue <- job:
		return nil
	default:
		p.logger.Warn("pdf job queue full, dropping job", "report_id", job.ReportID)
		return ErrQueueFull
	}
}

// Shutdown stops the workers after their current job. Queued jobs that
// have not started are dropped.
func (p *Pool) Shutdown() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.logger.Info("shutting down pdf worker pool")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("pdf worker pool shutdown complete", "dropped_jobs", len(p.jobQueue))
}
