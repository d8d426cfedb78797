package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	jsoniter "github.com/json-iterator/go"
	"github.com/vfg2006/traffic-ledger/infrastructure/repository"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/pkg/log"
	"github.com/vfg2006/traffic-ledger/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultPollInterval = 2 * time.Second
	defaultLease        = 30 * time.Minute
	reapInterval        = time.Minute
)

// Handler executa um job. Erros comuns são retentados com backoff; use Permanent para falhar de vez.
type Handler func(ctx context.Context, job *domain.Job) error

// TaskOptions configura um tipo de tarefa. SerializationKey, quando definido, é aplicado
// a todo job do tipo que não traga uma chave explícita.
type TaskOptions struct {
	SerializationKey func(payload []byte) string
	MaxAttempts      int
}

type registration struct {
	handler Handler
	opts    TaskOptions
}

// Enqueuer é a superfície usada por quem só submete e consulta jobs
type Enqueuer interface {
	EnqueueBatch(ctx context.Context, jobs []*domain.NewJob) ([]*domain.Job, error)
	Get(ctx context.Context, jobID string) (*domain.Job, error)
	ListByBatch(ctx context.Context, batchID string) ([]*domain.Job, error)
}

type Options struct {
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	Backoff      Backoff
	Lease        time.Duration
	// Heartbeat é o intervalo de renovação do lease enquanto o handler roda; padrão Lease/3
	Heartbeat time.Duration
}

func OptionsFromConfig(cfg config.JobQueue) Options {
	return Options{
		Concurrency:  cfg.Concurrency,
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.MaxAttempts,
		Backoff:      Backoff{Base: cfg.BackoffBase, Max: cfg.BackoffMax},
		Lease:        cfg.Lease,
	}
}

type Queue struct {
	repo     repository.JobRepository
	opts     Options
	handlers map[string]registration
	mu       sync.RWMutex
	now      func() time.Time
}

func New(repo repository.JobRepository, opts Options) *Queue {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Lease <= 0 {
		opts.Lease = defaultLease
	}
	if opts.Heartbeat <= 0 || opts.Heartbeat >= opts.Lease {
		opts.Heartbeat = opts.Lease / 3
	}

	return &Queue{
		repo:     repo,
		opts:     opts,
		handlers: make(map[string]registration),
		now:      time.Now,
	}
}

func (q *Queue) Register(taskType string, handler Handler, opts TaskOptions) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = registration{handler: handler, opts: opts}
}

func (q *Queue) registration(taskType string) (registration, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	r, ok := q.handlers[taskType]
	return r, ok
}

// Enqueue submete um único job; o payload é serializado em JSON
func (q *Queue) Enqueue(ctx context.Context, taskType string, payload any) (*domain.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrInvalidJob, err)
	}

	created, err := q.EnqueueBatch(ctx, []*domain.NewJob{{TaskType: taskType, Payload: raw}})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// EnqueueBatch submete os jobs de forma atômica, na ordem da fatia.
// Os padrões do tipo de tarefa são aplicados em cópias; a fatia recebida não é alterada.
func (q *Queue) EnqueueBatch(ctx context.Context, batch []*domain.NewJob) ([]*domain.Job, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	jobs := make([]*domain.NewJob, 0, len(batch))
	for i, in := range batch {
		if in == nil || in.TaskType == "" {
			return nil, fmt.Errorf("%w: job %d sem task_type", ErrInvalidJob, i)
		}
		j := *in
		jobs = append(jobs, &j)

		reg, ok := q.registration(j.TaskType)
		if ok && j.SerializationKey == nil && reg.opts.SerializationKey != nil {
			if key := reg.opts.SerializationKey(j.Payload); key != "" {
				j.SerializationKey = &key
			}
		}
		if j.MaxAttempts <= 0 && ok {
			j.MaxAttempts = reg.opts.MaxAttempts
		}
		if j.MaxAttempts <= 0 {
			j.MaxAttempts = q.opts.MaxAttempts
		}
		if j.MaxAttempts <= 0 {
			j.MaxAttempts = 1
		}
	}

	created, err := q.repo.InsertBatch(ctx, jobs)
	if err != nil {
		return nil, fmt.Errorf("erro ao enfileirar lote: %w", err)
	}

	log.ForContext(ctx).WithFields(log.Fields{
		"batch_id": jobs[0].BatchID,
		"jobs":     len(created),
	}).Info("jobqueue: lote enfileirado")

	return created, nil
}

func (q *Queue) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	return q.repo.GetByID(ctx, jobID)
}

func (q *Queue) ListByBatch(ctx context.Context, batchID string) ([]*domain.Job, error) {
	return q.repo.ListByBatch(ctx, batchID)
}

// Run inicia os workers e o reaper de leases e bloqueia até ctx ser cancelado.
// Jobs em andamento terminam antes do retorno.
func (q *Queue) Run(ctx context.Context) error {
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(reapInterval).Do(func() {
		if _, err := q.ReapStale(ctx); err != nil {
			log.L.WithError(err).Error("jobqueue: erro ao devolver jobs com lease expirado")
		}
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar reaper: %w", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	log.L.WithFields(log.Fields{
		"concurrency":   q.opts.Concurrency,
		"poll_interval": q.opts.PollInterval.String(),
	}).Info("jobqueue: workers iniciados")

	var wg sync.WaitGroup
	for i := 0; i < q.opts.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			q.work(ctx, worker)
		}(i)
	}

	wg.Wait()
	log.L.Info("jobqueue: workers finalizados")

	return nil
}

func (q *Queue) work(ctx context.Context, worker int) {
	for {
		if ctx.Err() != nil {
			return
		}

		processed, err := q.ProcessNext(ctx)
		if err != nil {
			log.L.WithError(err).WithField("worker", worker).Error("jobqueue: erro ao reservar job")
		}
		if processed {
			continue
		}

		timer := time.NewTimer(q.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// ProcessNext reserva e executa um job. Retorna false quando não havia job elegível.
func (q *Queue) ProcessNext(ctx context.Context) (bool, error) {
	job, err := q.repo.Claim(ctx, q.now())
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	q.process(ctx, job)
	return true, nil
}

func (q *Queue) process(ctx context.Context, job *domain.Job) {
	jobCtx := log.ContextWithCorrelationID(ctx, job.ID)
	logger := log.ForContext(jobCtx).WithFields(log.Fields{
		"job_id":    job.ID,
		"task_type": job.TaskType,
		"batch_id":  job.BatchID,
		"attempt":   job.Attempts,
	})

	// o estado final do job é gravado mesmo durante o desligamento
	statusCtx := context.WithoutCancel(ctx)

	reg, ok := q.registration(job.TaskType)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTaskType, job.TaskType)
		logger.WithError(err).Error("jobqueue: job sem handler")
		q.fail(statusCtx, job, err, logger)
		return
	}

	handlerCtx, cancel := context.WithCancel(jobCtx)
	defer cancel()
	stopHeartbeat := q.keepLease(statusCtx, job, cancel, logger)

	metrics.JobsRunning.Inc()
	start := q.now()
	err := q.runHandler(handlerCtx, reg.handler, job)
	metrics.JobsRunning.Dec()
	stopHeartbeat()

	if err == nil {
		if markErr := q.repo.MarkSucceeded(statusCtx, job); markErr != nil {
			q.logStatusError(job, markErr, logger)
			return
		}
		metrics.JobsProcessed.WithLabelValues(job.TaskType, "succeeded").Inc()
		logger.WithField("duration_ms", q.now().Sub(start).Milliseconds()).Info("jobqueue: job concluído")
		return
	}

	if IsPermanent(err) || job.Attempts >= q.maxAttempts(job) {
		logger.WithError(err).Error("jobqueue: job falhou definitivamente")
		q.fail(statusCtx, job, err, logger)
		return
	}

	delay := q.opts.Backoff.Delay(job.Attempts)
	if rErr := q.repo.Reschedule(statusCtx, job, q.now().Add(delay), err.Error()); rErr != nil {
		q.logStatusError(job, rErr, logger)
		return
	}
	metrics.JobsProcessed.WithLabelValues(job.TaskType, "retried").Inc()
	logger.WithError(err).Warnf("jobqueue: job falhou, nova tentativa em %s", delay)
}

func (q *Queue) runHandler(ctx context.Context, handler Handler, job *domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return handler(ctx, job)
}

func (q *Queue) fail(ctx context.Context, job *domain.Job, cause error, logger log.Logger) {
	if err := q.repo.MarkFailed(ctx, job, cause.Error()); err != nil {
		q.logStatusError(job, err, logger)
		return
	}
	metrics.JobsProcessed.WithLabelValues(job.TaskType, "failed").Inc()
}

// logStatusError trata falhas ao gravar o resultado. Com o lease perdido, o job já
// pertence a outra reserva e o resultado desta execução é descartado.
func (q *Queue) logStatusError(job *domain.Job, err error, logger log.Logger) {
	if errors.Is(err, repository.ErrJobLeaseLost) {
		metrics.JobsProcessed.WithLabelValues(job.TaskType, "lease_lost").Inc()
		logger.WithError(err).Warn("jobqueue: lease perdido, resultado descartado")
		return
	}
	logger.WithError(err).Error("jobqueue: erro ao gravar o estado do job")
}

// keepLease renova locked_at a cada Heartbeat até o retorno de stop. Se a reserva
// deixou de existir, cancela o handler para que a execução antiga pare.
func (q *Queue) keepLease(ctx context.Context, job *domain.Job, lost context.CancelFunc, logger log.Logger) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(q.opts.Heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				err := q.repo.Touch(ctx, job, q.now())
				if errors.Is(err, repository.ErrJobLeaseLost) {
					logger.WithError(err).Warn("jobqueue: lease perdido durante a execução, cancelando handler")
					lost()
					return
				}
				if err != nil {
					logger.WithError(err).Warn("jobqueue: erro ao renovar lease")
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

func (q *Queue) maxAttempts(job *domain.Job) int {
	if job.MaxAttempts > 0 {
		return job.MaxAttempts
	}
	if q.opts.MaxAttempts > 0 {
		return q.opts.MaxAttempts
	}
	return 1
}

// ReapStale devolve à fila jobs cujo lease não foi renovado (worker morto no meio da execução)
func (q *Queue) ReapStale(ctx context.Context) (int64, error) {
	n, err := q.repo.RequeueStale(ctx, q.now().Add(-q.opts.Lease))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.L.WithField("jobs", n).Warn("jobqueue: jobs com lease expirado devolvidos à fila")
	}
	return n, nil
}
