package syncing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/vfg2006/traffic-ledger/infrastructure/events"
	"github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta"
	"github.com/vfg2006/traffic-ledger/infrastructure/repository"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/internal/jobqueue"
	"github.com/vfg2006/traffic-ledger/pkg/daterange"
	"github.com/vfg2006/traffic-ledger/pkg/log"
	"github.com/vfg2006/traffic-ledger/pkg/metrics"
)

const defaultFactBatchSize = 100

// Orchestrator executa um pedaço de sincronização de ponta a ponta:
// conexão, contas, linhas por nível, objetos em duas fases e fatos em lotes.
// Não há checkpoint; uma falha aborta o pedaço inteiro e a fila tenta de novo.
type Orchestrator struct {
	cfg         config.Sync
	accessToken string
	integrator  meta.Integrator
	connections repository.ConnectionRepository
	accounts    repository.AccountRepository
	objects     repository.HierarchyObjectRepository
	facts       repository.FactRepository
	publisher   events.Publisher
	now         func() time.Time
}

func NewOrchestrator(
	cfg *config.Config,
	integrator meta.Integrator,
	connections repository.ConnectionRepository,
	accounts repository.AccountRepository,
	objects repository.HierarchyObjectRepository,
	facts repository.FactRepository,
	publisher events.Publisher,
) *Orchestrator {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &Orchestrator{
		cfg:         cfg.Sync,
		accessToken: cfg.Meta.AccessToken,
		integrator:  integrator,
		connections: connections,
		accounts:    accounts,
		objects:     objects,
		facts:       facts,
		publisher:   publisher,
		now:         time.Now,
	}
}

// TaskOptions registra o handler com a chave de serialização da integração
func (o *Orchestrator) TaskOptions() jobqueue.TaskOptions {
	return jobqueue.TaskOptions{
		SerializationKey: func(_ []byte) string { return SerializationKey(domain.PlatformMeta) },
		MaxAttempts:      o.cfg.MaxAttempts,
	}
}

// Handle é o jobqueue.Handler de TaskChunkSync
func (o *Orchestrator) Handle(ctx context.Context, job *domain.Job) error {
	payload, r, err := ParsePayload(job.Payload)
	if err != nil {
		return jobqueue.Permanent(err)
	}

	if payload.BatchID == "" {
		payload.BatchID = job.BatchID
	}

	_, err = o.RunChunk(ctx, payload.BatchID, r)
	return err
}

// ParsePayload valida o payload do job. Erros aqui nunca são retentados.
func ParsePayload(raw []byte) (*domain.ChunkPayload, daterange.Range, error) {
	payload := &domain.ChunkPayload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, daterange.Range{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if payload.Platform != "" && payload.Platform != string(domain.PlatformMeta) {
		return nil, daterange.Range{}, fmt.Errorf("%w: plataforma %q não suportada", ErrInvalidPayload, payload.Platform)
	}

	start, err := daterange.ParseDate(payload.StartDate)
	if err != nil {
		return nil, daterange.Range{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	end, err := daterange.ParseDate(payload.EndDate)
	if err != nil {
		return nil, daterange.Range{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	r, err := daterange.NewRange(start, end)
	if err != nil {
		return nil, daterange.Range{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return payload, r, nil
}

// RunChunk sincroniza todas as contas da conexão para o intervalo r.
// Todos os fatos da passada compartilham o mesmo collected_at.
func (o *Orchestrator) RunChunk(ctx context.Context, batchID string, r daterange.Range) (*domain.ChunkSummary, error) {
	collectedAt := o.now().UTC()
	logger := log.ForContext(ctx).WithFields(log.Fields{
		"batch_id": batchID,
		"range":    r.String(),
	})

	conn, err := o.connections.GetOrCreate(ctx, domain.PlatformMeta, CredentialFingerprint(o.accessToken))
	if err != nil {
		return nil, fmt.Errorf("erro ao resolver conexão: %w", err)
	}

	remoteAccounts, err := o.integrator.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar contas: %w", err)
	}

	summary := &domain.ChunkSummary{
		BatchID: batchID,
		Start:   r.Start.Format(dateLayout),
		End:     r.End.Format(dateLayout),
	}

	for i, remote := range remoteAccounts {
		if i > 0 {
			if err := o.wait(ctx); err != nil {
				return nil, err
			}
		}

		objects, facts, err := o.syncAccount(ctx, conn, remote, r, collectedAt)
		if err != nil {
			return nil, fmt.Errorf("conta %s: %w", remote.ExternalID, err)
		}

		summary.Accounts++
		summary.Objects += objects
		summary.Facts += facts
	}

	logger.WithFields(log.Fields{
		"accounts": summary.Accounts,
		"objects":  summary.Objects,
		"facts":    summary.Facts,
	}).Info("syncing: pedaço sincronizado")

	if err := o.publisher.PublishChunkSynced(ctx, *summary); err != nil {
		logger.WithError(err).Warn("syncing: falha ao publicar evento de sincronização")
	}

	return summary, nil
}

func (o *Orchestrator) syncAccount(
	ctx context.Context,
	conn *domain.Connection,
	remote *domain.AdAccount,
	r daterange.Range,
	collectedAt time.Time,
) (int, int, error) {
	account := *remote
	account.ConnectionID = conn.ID

	accountID, err := o.accounts.Upsert(ctx, &account)
	if err != nil {
		return 0, 0, fmt.Errorf("erro ao salvar conta: %w", err)
	}
	account.ID = accountID

	loc := daterange.LoadAccountLocation(account.TimezoneName, account.TimezoneOffsetHours)
	window := daterange.AccountWindow(r, loc)

	rows := make([]*domain.PerformanceRow, 0)
	for _, level := range domain.Levels {
		levelRows, err := o.integrator.ListPerformanceRows(ctx, account.ExternalID, level, window)
		if err != nil {
			return 0, 0, fmt.Errorf("erro ao buscar linhas de %s: %w", level, err)
		}
		rows = append(rows, levelRows...)
	}

	if len(rows) == 0 {
		return 0, 0, nil
	}

	objects, links := DeriveObjects(account.ID, rows)

	objectIDs, err := o.objects.UpsertObjects(ctx, objects)
	if err != nil {
		return 0, 0, fmt.Errorf("erro ao salvar objetos: %w", err)
	}

	if _, err := o.objects.LinkParents(ctx, account.ID, links); err != nil {
		return 0, 0, fmt.Errorf("erro ao vincular objetos: %w", err)
	}

	facts, err := DeriveFacts(rows, objectIDs, &account, collectedAt, loc)
	if err != nil {
		return 0, 0, err
	}

	batchSize := o.cfg.FactBatchSize
	if batchSize <= 0 {
		batchSize = defaultFactBatchSize
	}

	appended, err := o.facts.Append(ctx, facts, batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("erro ao gravar fatos: %w", err)
	}
	metrics.FactsAppended.Add(float64(appended))

	log.ForContext(ctx).WithFields(log.Fields{
		"account_id": account.ID,
		"external":   account.ExternalID,
		"objects":    len(objects),
		"facts":      appended,
	}).Debug("syncing: conta sincronizada")

	return len(objects), appended, nil
}

func (o *Orchestrator) wait(ctx context.Context) error {
	if o.cfg.AccountDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(o.cfg.AccountDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CredentialFingerprint identifica a credencial sem armazenar o token
func CredentialFingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return "sha256:" + hex.EncodeToString(sum[:])
}
