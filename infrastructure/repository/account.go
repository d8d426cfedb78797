package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vfg2006/traffic-ledger/infrastructure/database/postgres"
	"github.com/vfg2006/traffic-ledger/internal/domain"
)

const (
	accountsTable = "ad_accounts a"
	accountsCols  = "a.id, a.connection_id, a.external_id, a.name, a.currency, a.timezone_name, a.timezone_offset_hours, a.created_at, a.updated_at"
)

type AccountRepository interface {
	GetAccountByID(ctx context.Context, accountID string) (*domain.AdAccount, error)
	ListAccounts(ctx context.Context, accountIDs []string) ([]*domain.AdAccount, error)
	Upsert(ctx context.Context, account *domain.AdAccount) (string, error)
}

type accountRepository struct {
	conn *postgres.Connection
}

func NewAccountRepository(conn *postgres.Connection) AccountRepository {
	return &accountRepository{
		conn: conn,
	}
}

func (a *accountRepository) GetAccountByID(ctx context.Context, accountID string) (*domain.AdAccount, error) {
	accountsSQL, accountsArgs, err := squirrel.
		Select(accountsCols).
		From(accountsTable).
		Where(squirrel.Eq{"a.id": accountID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	row := a.conn.QueryRowContext(ctx, accountsSQL, accountsArgs...)

	acc, err := a.deserializeAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return acc, nil
}

// ListAccounts lista as contas pelos IDs internos. Sem IDs, lista todas.
func (a *accountRepository) ListAccounts(ctx context.Context, accountIDs []string) ([]*domain.AdAccount, error) {
	queryBuilder := squirrel.
		Select(accountsCols).
		From(accountsTable).
		OrderBy("a.name ASC", "a.id ASC").
		PlaceholderFormat(squirrel.Dollar)

	if len(accountIDs) > 0 {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"a.id": accountIDs})
	}

	accountsSQL, accountsArgs, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := a.conn.QueryContext(ctx, accountsSQL, accountsArgs...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	accounts := make([]*domain.AdAccount, 0)
	for rows.Next() {
		acc, err := a.deserializeAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao deserializar a conta: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar sobre os resultados: %w", err)
	}

	return accounts, nil
}

// Upsert insere ou atualiza a conta pela chave natural (connection_id, external_id)
// e retorna o ID interno estável
func (a *accountRepository) Upsert(ctx context.Context, account *domain.AdAccount) (string, error) {
	if account.ConnectionID == "" || account.ExternalID == "" {
		return "", errors.New("connection_id e external_id são obrigatórios")
	}

	query := squirrel.StatementBuilder.
		Insert("ad_accounts").
		Columns("id", "connection_id", "external_id", "name", "currency", "timezone_name", "timezone_offset_hours").
		Values(
			uuid.NewString(),
			account.ConnectionID,
			account.ExternalID,
			account.Name,
			account.Currency,
			account.TimezoneName,
			account.TimezoneOffsetHours,
		).
		Suffix(`
			ON CONFLICT (connection_id, external_id) DO UPDATE SET
				name = EXCLUDED.name,
				currency = EXCLUDED.currency,
				timezone_name = EXCLUDED.timezone_name,
				timezone_offset_hours = EXCLUDED.timezone_offset_hours,
				updated_at = NOW()
			RETURNING id
		`).
		PlaceholderFormat(squirrel.Dollar)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build query: %w", err)
	}

	var id string
	if err := a.conn.QueryRowContext(ctx, sqlQuery, args...).Scan(&id); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return "", fmt.Errorf("database error: %w (code: %s)", pqErr, pqErr.Code)
		}
		return "", fmt.Errorf("failed to execute query: %w", err)
	}

	account.ID = id
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (a *accountRepository) deserializeAccount(row scanner) (*domain.AdAccount, error) {
	acc := &domain.AdAccount{}

	if err := row.Scan(
		&acc.ID,
		&acc.ConnectionID,
		&acc.ExternalID,
		&acc.Name,
		&acc.Currency,
		&acc.TimezoneName,
		&acc.TimezoneOffsetHours,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return acc, nil
}
