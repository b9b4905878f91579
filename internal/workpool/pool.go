package workpool

import (
	"context"
	"log/slog"

	"github.com/isseis/go-wcc/internal/failure"
)

// Task processes one job. It owns everything it allocates until it returns;
// the returned Result is handed to the consumer by value.
type Task[J, R any] func(ctx context.Context, job J) failure.Result[R]

// Outcome pairs a job with its Result.
type Outcome[J, R any] struct {
	Job    J
	Result failure.Result[R]
}

// Pool runs a Task over a batch of jobs on a fixed number of goroutines.
type Pool[J, R any] struct {
	workers int
	task    Task[J, R]
	logger  *slog.Logger
}

// Option configures a Pool.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for worker lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New returns a Pool with the given number of workers. A non-positive count
// is treated as one.
func New[J, R any](workers int, task Task[J, R], opts ...Option) *Pool[J, R] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if workers < 1 {
		workers = 1
	}
	return &Pool[J, R]{
		workers: workers,
		task:    task,
		logger:  o.logger,
	}
}

// Run is one execution of a Pool over a batch of jobs.
type Run[J, R any] struct {
	results *Channel[Outcome[J, R]]
	handles []*Handle
}

// Start queues jobs and starts the workers. Outcomes arrive on Results in no
// particular order. Cancelling ctx stops workers from taking new jobs; a job
// already running is not interrupted.
func (p *Pool[J, R]) Start(ctx context.Context, jobs []J) *Run[J, R] {
	queue := make(chan J, len(jobs))
	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	workers := min(p.workers, max(len(jobs), 1))
	results := NewChannel[Outcome[J, R]](workers)

	// Register every sender before any worker can finish and drain the channel.
	senders := make([]*Sender[Outcome[J, R]], workers)
	for i := range senders {
		senders[i] = results.Sender()
	}

	run := &Run[J, R]{results: results, handles: make([]*Handle, workers)}
	for i, sender := range senders {
		run.handles[i] = Go(func() error {
			defer sender.Close()
			return p.work(ctx, i, queue, sender)
		})
	}
	return run
}

func (p *Pool[J, R]) work(ctx context.Context, id int, queue <-chan J, out *Sender[Outcome[J, R]]) error {
	logger := p.logger.With("worker", id)
	logger.Debug("Worker started")

	processed := 0
	for job := range queue {
		if ctx.Err() != nil {
			logger.Debug("Worker stopping on cancellation", "processed", processed)
			return nil
		}

		outcome := Outcome[J, R]{Job: job, Result: p.runTask(ctx, job)}
		if err := out.Send(outcome); err != nil {
			logger.Debug("Consumer went away, worker stopping", "processed", processed)
			return err
		}
		processed++
	}

	logger.Debug("Worker finished", "processed", processed)
	return nil
}

func (p *Pool[J, R]) runTask(ctx context.Context, job J) (result failure.Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			result = failure.Fail[R](failure.FromPanic(r))
		}
	}()
	return p.task(ctx, job)
}

// Results returns the outcome stream. It is closed once every worker exits.
func (r *Run[J, R]) Results() *Channel[Outcome[J, R]] {
	return r.results
}

// Wait joins every worker and returns the first worker failure, if any.
// KindChannelSend failures caused by the consumer closing its side early
// are expected and not reported.
func (r *Run[J, R]) Wait() error {
	var first error
	for _, h := range r.handles {
		err := h.Join()
		if err == nil || failure.Is(err, failure.KindChannelSend) {
			continue
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// Collect drains the outcome stream into a slice and joins the workers.
func (r *Run[J, R]) Collect() ([]Outcome[J, R], error) {
	var outcomes []Outcome[J, R]
	for {
		o, ok := r.results.Recv()
		if !ok {
			break
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, r.Wait()
}

// Drain feeds every outcome to fn until the stream ends or fn returns an
// error. On error the receiver is closed so that workers stop, and fn's
// error is returned once the workers have been joined.
func (r *Run[J, R]) Drain(fn func(Outcome[J, R]) error) error {
	var stopErr error
	for {
		o, ok := r.results.Recv()
		if !ok {
			break
		}
		if err := fn(o); err != nil {
			stopErr = err
			r.results.CloseReceiver()
			break
		}
	}

	waitErr := r.Wait()
	if stopErr != nil {
		return stopErr
	}
	return waitErr
}
