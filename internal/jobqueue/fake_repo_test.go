package jobqueue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vfg2006/traffic-ledger/infrastructure/repository"
	"github.com/vfg2006/traffic-ledger/internal/domain"
)

// memoryJobRepository reproduz as regras de reserva do Postgres:
// ordem por prioridade, run_at vencido e no máximo um job running por chave.
type memoryJobRepository struct {
	mu   sync.Mutex
	seq  int64
	jobs []*domain.Job
}

func newMemoryJobRepository() *memoryJobRepository {
	return &memoryJobRepository{}
}

func (r *memoryJobRepository) InsertBatch(_ context.Context, jobs []*domain.NewJob) ([]*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := make([]*domain.Job, 0, len(jobs))
	for _, nj := range jobs {
		r.seq++
		job := &domain.Job{
			ID:               fmt.Sprintf("job-%d", r.seq),
			BatchID:          nj.BatchID,
			TaskType:         nj.TaskType,
			Payload:          nj.Payload,
			Priority:         r.seq,
			SerializationKey: nj.SerializationKey,
			Status:           domain.JobStatusQueued,
			MaxAttempts:      nj.MaxAttempts,
			RunAt:            time.Time{},
		}
		r.jobs = append(r.jobs, job)
		cp := *job
		created = append(created, &cp)
	}
	return created, nil
}

func (r *memoryJobRepository) Claim(_ context.Context, now time.Time) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	running := map[string]bool{}
	for _, j := range r.jobs {
		if j.Status == domain.JobStatusRunning && j.SerializationKey != nil {
			running[*j.SerializationKey] = true
		}
	}

	candidates := make([]*domain.Job, 0)
	for _, j := range r.jobs {
		if j.Status != domain.JobStatusQueued || j.RunAt.After(now) {
			continue
		}
		if j.SerializationKey != nil && running[*j.SerializationKey] {
			continue
		}
		candidates = append(candidates, j)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(a, b int) bool { return candidates[a].Priority < candidates[b].Priority })
	job := candidates[0]
	job.Status = domain.JobStatusRunning
	job.Attempts++
	lockedAt := now
	job.LockedAt = &lockedAt

	cp := *job
	return &cp, nil
}

func (r *memoryJobRepository) find(id string) (*domain.Job, error) {
	for _, j := range r.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, fmt.Errorf("job %s not found", id)
}

// claimed devolve o job apenas se ele ainda estiver na mesma reserva (running + attempts)
func (r *memoryJobRepository) claimed(claim *domain.Job) (*domain.Job, error) {
	j, err := r.find(claim.ID)
	if err != nil || j.Status != domain.JobStatusRunning || j.Attempts != claim.Attempts {
		return nil, fmt.Errorf("%w: job %s", repository.ErrJobLeaseLost, claim.ID)
	}
	return j, nil
}

func (r *memoryJobRepository) Touch(_ context.Context, claim *domain.Job, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, err := r.claimed(claim)
	if err != nil {
		return err
	}
	lockedAt := now
	j.LockedAt = &lockedAt
	return nil
}

func (r *memoryJobRepository) MarkSucceeded(_ context.Context, claim *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, err := r.claimed(claim)
	if err != nil {
		return err
	}
	j.Status = domain.JobStatusSucceeded
	j.LockedAt = nil
	j.LastError = nil
	return nil
}

func (r *memoryJobRepository) Reschedule(_ context.Context, claim *domain.Job, runAt time.Time, lastErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, err := r.claimed(claim)
	if err != nil {
		return err
	}
	j.Status = domain.JobStatusQueued
	j.RunAt = runAt
	j.LockedAt = nil
	j.LastError = &lastErr
	return nil
}

func (r *memoryJobRepository) MarkFailed(_ context.Context, claim *domain.Job, lastErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, err := r.claimed(claim)
	if err != nil {
		return err
	}
	j.Status = domain.JobStatusFailed
	j.LockedAt = nil
	j.LastError = &lastErr
	return nil
}

func (r *memoryJobRepository) RequeueStale(_ context.Context, lockedBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, j := range r.jobs {
		if j.Status != domain.JobStatusRunning || j.LockedAt == nil || !j.LockedAt.Before(lockedBefore) {
			continue
		}
		if j.Attempts >= j.MaxAttempts {
			j.Status = domain.JobStatusFailed
		} else {
			j.Status = domain.JobStatusQueued
		}
		j.LockedAt = nil
		lastErr := "lease expirado"
		j.LastError = &lastErr
		n++
	}
	return n, nil
}

func (r *memoryJobRepository) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, err := r.find(jobID)
	if err != nil {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (r *memoryJobRepository) ListByBatch(_ context.Context, batchID string) ([]*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Job, 0)
	for _, j := range r.jobs {
		if j.BatchID == batchID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryJobRepository) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.jobs {
		if j.Status == domain.JobStatusQueued || j.Status == domain.JobStatusRunning {
			n++
		}
	}
	return n
}
