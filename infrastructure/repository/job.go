package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vfg2006/traffic-ledger/infrastructure/database/postgres"
	"github.com/vfg2006/traffic-ledger/internal/domain"
)

const (
	jobsTable = "jobs"
	jobsCols  = "id, batch_id, task_type, payload, priority, serialization_key, status, attempts, max_attempts, run_at, locked_at, last_error, created_at, updated_at"

	defaultMaxAttempts = 5
)

// ErrJobLeaseLost indica que o job não pertence mais a esta reserva: foi devolvido
// à fila pelo reaper e possivelmente reservado de novo por outro worker.
var ErrJobLeaseLost = errors.New("job lease lost")

// claimJobSQL reserva o próximo job elegível em ordem de prioridade.
// Jobs cuja chave de serialização já tem um job em execução são pulados;
// o índice único parcial uq_jobs_running_key resolve a corrida entre processos.
const claimJobSQL = `
	UPDATE jobs SET
		status = 'running',
		attempts = attempts + 1,
		locked_at = $1,
		updated_at = $1
	WHERE id = (
		SELECT q.id FROM jobs q
		WHERE q.status = 'queued'
			AND q.run_at <= $1
			AND (
				q.serialization_key IS NULL
				OR NOT EXISTS (
					SELECT 1 FROM jobs r
					WHERE r.status = 'running' AND r.serialization_key = q.serialization_key
				)
			)
		ORDER BY q.priority ASC, q.id ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	)
	RETURNING ` + jobsCols

type JobRepository interface {
	InsertBatch(ctx context.Context, jobs []*domain.NewJob) ([]*domain.Job, error)
	Claim(ctx context.Context, now time.Time) (*domain.Job, error)
	// As escritas abaixo só valem para a reserva de origem (id, status running, attempts)
	Touch(ctx context.Context, claim *domain.Job, now time.Time) error
	MarkSucceeded(ctx context.Context, claim *domain.Job) error
	Reschedule(ctx context.Context, claim *domain.Job, runAt time.Time, lastErr string) error
	MarkFailed(ctx context.Context, claim *domain.Job, lastErr string) error
	RequeueStale(ctx context.Context, lockedBefore time.Time) (int64, error)
	GetByID(ctx context.Context, jobID string) (*domain.Job, error)
	ListByBatch(ctx context.Context, batchID string) ([]*domain.Job, error)
}

type jobRepository struct {
	conn *postgres.Connection
}

func NewJobRepository(conn *postgres.Connection) JobRepository {
	return &jobRepository{
		conn: conn,
	}
}

// InsertBatch grava todos os jobs numa única transação: ou todos entram, ou nenhum.
// A prioridade vem da sequência, então a ordem da fatia é a ordem de execução.
func (r *jobRepository) InsertBatch(ctx context.Context, jobs []*domain.NewJob) ([]*domain.Job, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	created := make([]*domain.Job, 0, len(jobs))

	err := r.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		for i, nj := range jobs {
			maxAttempts := nj.MaxAttempts
			if maxAttempts <= 0 {
				maxAttempts = defaultMaxAttempts
			}

			query, args, err := squirrel.StatementBuilder.
				Insert(jobsTable).
				Columns("id", "batch_id", "task_type", "payload", "serialization_key", "status", "max_attempts").
				Values(
					uuid.NewString(),
					nj.BatchID,
					nj.TaskType,
					[]byte(nj.Payload),
					nj.SerializationKey,
					domain.JobStatusQueued,
					maxAttempts,
				).
				Suffix("RETURNING " + jobsCols).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build query: %w", err)
			}

			job, err := scanJob(tx.QueryRowContext(ctx, query, args...))
			if err != nil {
				if pqErr, ok := err.(*pq.Error); ok {
					return fmt.Errorf("database error ao inserir job %d: %w (code: %s)", i, pqErr, pqErr.Code)
				}
				return fmt.Errorf("failed to insert job %d: %w", i, err)
			}

			created = append(created, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Claim retorna nil, nil quando não há job elegível
func (r *jobRepository) Claim(ctx context.Context, now time.Time) (*domain.Job, error) {
	job, err := scanJob(r.conn.QueryRowContext(ctx, claimJobSQL, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		// outro processo reservou um job com a mesma chave entre o SELECT e o UPDATE
		if postgres.IsCode(err, postgres.UniqueViolation) {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao reservar job: %w", err)
	}

	return job, nil
}

// Touch renova o lease de um job em execução
func (r *jobRepository) Touch(ctx context.Context, claim *domain.Job, now time.Time) error {
	return r.update(ctx, claim, map[string]interface{}{
		"locked_at": now,
	})
}

func (r *jobRepository) MarkSucceeded(ctx context.Context, claim *domain.Job) error {
	return r.update(ctx, claim, map[string]interface{}{
		"status":     domain.JobStatusSucceeded,
		"locked_at":  nil,
		"last_error": nil,
	})
}

// Reschedule devolve o job à fila para uma nova tentativa; a prioridade original é mantida
func (r *jobRepository) Reschedule(ctx context.Context, claim *domain.Job, runAt time.Time, lastErr string) error {
	return r.update(ctx, claim, map[string]interface{}{
		"status":     domain.JobStatusQueued,
		"run_at":     runAt,
		"locked_at":  nil,
		"last_error": lastErr,
	})
}

func (r *jobRepository) MarkFailed(ctx context.Context, claim *domain.Job, lastErr string) error {
	return r.update(ctx, claim, map[string]interface{}{
		"status":     domain.JobStatusFailed,
		"locked_at":  nil,
		"last_error": lastErr,
	})
}

// update altera o job apenas se ele ainda estiver na reserva que o worker recebeu
func (r *jobRepository) update(ctx context.Context, claim *domain.Job, fields map[string]interface{}) error {
	query, args, err := squirrel.
		Update(jobsTable).
		SetMap(fields).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": claim.ID}).
		Where(squirrel.Eq{"status": domain.JobStatusRunning}).
		Where(squirrel.Eq{"attempts": claim.Attempts}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("database error: %w (code: %s)", pqErr, pqErr.Code)
		}
		return fmt.Errorf("failed to execute query: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: job %s (tentativa %d)", ErrJobLeaseLost, claim.ID, claim.Attempts)
	}

	return nil
}

// RequeueStale devolve à fila jobs cujo lease não é renovado há mais tempo que o limite (processo morto).
// Jobs que já esgotaram as tentativas são marcados como falhos.
func (r *jobRepository) RequeueStale(ctx context.Context, lockedBefore time.Time) (int64, error) {
	query, args, err := squirrel.
		Update(jobsTable).
		Set("status", squirrel.Expr("CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'queued' END")).
		Set("last_error", "lease expirado").
		Set("locked_at", nil).
		Set("run_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"status": domain.JobStatusRunning}).
		Where(squirrel.Lt{"locked_at": lockedBefore}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}

	return result.RowsAffected()
}

func (r *jobRepository) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query, args, err := squirrel.
		Select(jobsCols).
		From(jobsTable).
		Where(squirrel.Eq{"id": jobID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	job, err := scanJob(r.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao buscar job: %w", err)
	}

	return job, nil
}

func (r *jobRepository) ListByBatch(ctx context.Context, batchID string) ([]*domain.Job, error) {
	query, args, err := squirrel.
		Select(jobsCols).
		From(jobsTable).
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("priority ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return jobs, nil
}

func scanJob(row scanner) (*domain.Job, error) {
	job := &domain.Job{}
	var (
		payload          []byte
		serializationKey sql.NullString
		lockedAt         sql.NullTime
		lastError        sql.NullString
	)

	if err := row.Scan(
		&job.ID,
		&job.BatchID,
		&job.TaskType,
		&payload,
		&job.Priority,
		&serializationKey,
		&job.Status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.RunAt,
		&lockedAt,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.Payload = payload
	if serializationKey.Valid {
		job.SerializationKey = &serializationKey.String
	}
	if lockedAt.Valid {
		job.LockedAt = &lockedAt.Time
	}
	if lastError.Valid {
		job.LastError = &lastError.String
	}

	return job, nil
}
