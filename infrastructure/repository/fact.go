package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/vfg2006/traffic-ledger/infrastructure/database/postgres"
	"github.com/vfg2006/traffic-ledger/internal/domain"
)

const (
	factsTable = "facts f"
	factsCols  = "f.id, f.object_id, f.account_id, f.collected_at, f.period_start, f.period_end, f.amount_minor, f.currency, f.impressions, f.clicks, f.conversions, f.metrics, o.level"

	defaultFactBatchSize = 100
	dateLayout           = "2006-01-02"
)

// FactRepository é somente de anexação: não existe UPDATE nem DELETE de fatos
type FactRepository interface {
	Append(ctx context.Context, facts []*domain.Fact, batchSize int) (int, error)
	ListCurrentFacts(ctx context.Context, q domain.FactQuery) ([]*domain.Fact, error)
}

type factRepository struct {
	conn *postgres.Connection
}

func NewFactRepository(conn *postgres.Connection) FactRepository {
	return &factRepository{
		conn: conn,
	}
}

// Append grava os fatos em INSERTs de no máximo batchSize linhas e retorna quantos foram gravados.
// Um erro no meio deixa os lotes anteriores gravados; a próxima passada os supera por collected_at.
func (r *factRepository) Append(ctx context.Context, facts []*domain.Fact, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultFactBatchSize
	}

	written := 0
	for start := 0; start < len(facts); start += batchSize {
		end := min(start+batchSize, len(facts))

		query := squirrel.StatementBuilder.
			Insert("facts").
			Columns(
				"object_id", "account_id", "collected_at", "period_start", "period_end",
				"amount_minor", "currency", "impressions", "clicks", "conversions", "metrics",
			).
			Suffix("RETURNING id").
			PlaceholderFormat(squirrel.Dollar)

		for _, f := range facts[start:end] {
			var metrics []byte
			if len(f.Metrics) > 0 {
				metrics = f.Metrics
			}

			query = query.Values(
				f.ObjectID,
				f.AccountID,
				f.CollectedAt,
				f.PeriodStart.Format(dateLayout),
				f.PeriodEnd.Format(dateLayout),
				f.AmountMinor,
				f.Currency,
				f.Impressions,
				f.Clicks,
				f.Conversions,
				metrics,
			)
		}

		sqlQuery, args, err := query.ToSql()
		if err != nil {
			return written, fmt.Errorf("erro ao construir a query: %w", err)
		}

		rows, err := r.conn.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				return written, fmt.Errorf("erro no banco de dados: %w (código: %s)", pqErr, pqErr.Code)
			}
			return written, fmt.Errorf("erro ao executar a query: %w", err)
		}

		i := start
		for rows.Next() {
			if err := rows.Scan(&facts[i].ID); err != nil {
				rows.Close()
				return written, fmt.Errorf("erro ao ler id do fato: %w", err)
			}
			i++
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return written, fmt.Errorf("erro durante a iteração de linhas: %w", err)
		}

		written += end - start
	}

	return written, nil
}

// ListCurrentFacts devolve apenas a versão atual de cada (object_id, period_start):
// maior collected_at, com desempate pelo maior id
func (r *factRepository) ListCurrentFacts(ctx context.Context, q domain.FactQuery) ([]*domain.Fact, error) {
	builder := squirrel.
		Select(factsCols).
		Options("DISTINCT ON (f.object_id, f.period_start)").
		From(factsTable).
		Join("hierarchy_objects o ON o.id = f.object_id").
		OrderBy("f.object_id", "f.period_start", "f.collected_at DESC", "f.id DESC").
		PlaceholderFormat(squirrel.Dollar)

	if !q.Start.IsZero() {
		builder = builder.Where(squirrel.GtOrEq{"f.period_start": q.Start.Format(dateLayout)})
	}
	if !q.End.IsZero() {
		builder = builder.Where(squirrel.LtOrEq{"f.period_start": q.End.Format(dateLayout)})
	}
	if len(q.AccountIDs) > 0 {
		builder = builder.Where(squirrel.Eq{"f.account_id": q.AccountIDs})
	}
	if len(q.ObjectIDs) > 0 {
		builder = builder.Where(squirrel.Eq{"f.object_id": q.ObjectIDs})
	}
	if q.Level != "" {
		builder = builder.Where(squirrel.Eq{"o.level": q.Level})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	facts := make([]*domain.Fact, 0)
	for rows.Next() {
		f := &domain.Fact{}
		var metrics []byte

		if err := rows.Scan(
			&f.ID,
			&f.ObjectID,
			&f.AccountID,
			&f.CollectedAt,
			&f.PeriodStart,
			&f.PeriodEnd,
			&f.AmountMinor,
			&f.Currency,
			&f.Impressions,
			&f.Clicks,
			&f.Conversions,
			&metrics,
			&f.Level,
		); err != nil {
			return nil, fmt.Errorf("erro ao escanear fato: %w", err)
		}

		if len(metrics) > 0 {
			f.Metrics = metrics
		}
		facts = append(facts, f)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return facts, nil
}
