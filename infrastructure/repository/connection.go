package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vfg2006/traffic-ledger/infrastructure/database/postgres"
	"github.com/vfg2006/traffic-ledger/internal/domain"
)

const (
	connectionsTable = "connections"
)

type ConnectionRepository interface {
	GetOrCreate(ctx context.Context, platform domain.Platform, credentialRef string) (*domain.Connection, error)
}

type connectionRepository struct {
	conn *postgres.Connection
}

func NewConnectionRepository(conn *postgres.Connection) ConnectionRepository {
	return &connectionRepository{
		conn: conn,
	}
}

// GetOrCreate busca a conexão da plataforma e a cria se ainda não existir.
// Duas execuções concorrentes convergem para a mesma linha (ON CONFLICT DO NOTHING + releitura).
func (r *connectionRepository) GetOrCreate(ctx context.Context, platform domain.Platform, credentialRef string) (*domain.Connection, error) {
	var connection *domain.Connection

	err := r.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		existing, err := r.getByPlatform(ctx, tx, platform)
		if err != nil {
			return err
		}

		if existing == nil {
			insertSQL, args, err := squirrel.StatementBuilder.
				Insert(connectionsTable).
				Columns("id", "platform", "credential_ref").
				Values(uuid.NewString(), platform, credentialRef).
				Suffix("ON CONFLICT (platform) DO NOTHING").
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build query: %w", err)
			}

			if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
				if pqErr, ok := err.(*pq.Error); ok {
					return fmt.Errorf("database error: %w (code: %s)", pqErr, pqErr.Code)
				}
				return fmt.Errorf("failed to execute query: %w", err)
			}

			existing, err = r.getByPlatform(ctx, tx, platform)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("conexão %s não encontrada após inserção", platform)
			}
		}

		// a credencial pode ter sido trocada desde a última execução
		if credentialRef != "" && existing.CredentialRef != credentialRef {
			updateSQL, args, err := squirrel.
				Update(connectionsTable).
				Set("credential_ref", credentialRef).
				Set("updated_at", squirrel.Expr("NOW()")).
				Where(squirrel.Eq{"id": existing.ID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build query: %w", err)
			}

			if _, err := tx.ExecContext(ctx, updateSQL, args...); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
			existing.CredentialRef = credentialRef
		}

		connection = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return connection, nil
}

func (r *connectionRepository) getByPlatform(ctx context.Context, q postgres.Queryer, platform domain.Platform) (*domain.Connection, error) {
	query, args, err := squirrel.
		Select("id, platform, credential_ref, created_at, updated_at").
		From(connectionsTable).
		Where(squirrel.Eq{"platform": platform}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	c := &domain.Connection{}
	err = q.QueryRowContext(ctx, query, args...).Scan(
		&c.ID,
		&c.Platform,
		&c.CredentialRef,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao buscar conexão: %w", err)
	}

	return c, nil
}
