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
	hierarchyObjectsTable = "hierarchy_objects o"
	hierarchyObjectsCols  = "o.id, o.account_id, o.external_id, o.level, o.name, o.status, o.parent_id, o.raw"

	// limite de linhas por INSERT multi-valores
	objectUpsertBatchSize = 500
)

type HierarchyObjectRepository interface {
	UpsertObjects(ctx context.Context, objects []*domain.HierarchyObject) (map[string]string, error)
	LinkParents(ctx context.Context, accountID string, links []domain.ParentLink) (int64, error)
	GetObject(ctx context.Context, objectID string) (*domain.HierarchyObject, error)
	ListChildren(ctx context.Context, accountID string, parentID *string) ([]*domain.HierarchyObject, error)
}

type hierarchyObjectRepository struct {
	conn *postgres.Connection
}

func NewHierarchyObjectRepository(conn *postgres.Connection) HierarchyObjectRepository {
	return &hierarchyObjectRepository{
		conn: conn,
	}
}

// UpsertObjects grava os objetos sem tocar em parent_id e retorna external_id -> id.
// Os objetos de uma mesma chamada devem ter external_id distintos.
func (r *hierarchyObjectRepository) UpsertObjects(ctx context.Context, objects []*domain.HierarchyObject) (map[string]string, error) {
	ids := make(map[string]string, len(objects))
	if len(objects) == 0 {
		return ids, nil
	}

	for start := 0; start < len(objects); start += objectUpsertBatchSize {
		end := min(start+objectUpsertBatchSize, len(objects))

		query := squirrel.StatementBuilder.
			Insert("hierarchy_objects").
			Columns("id", "account_id", "external_id", "level", "name", "status", "raw").
			PlaceholderFormat(squirrel.Dollar)

		for _, obj := range objects[start:end] {
			var raw []byte
			if len(obj.Raw) > 0 {
				raw = obj.Raw
			}

			query = query.Values(
				uuid.NewString(),
				obj.AccountID,
				obj.ExternalID,
				obj.Level,
				obj.Name,
				obj.Status,
				raw,
			)
		}

		query = query.Suffix(`
			ON CONFLICT (account_id, external_id) DO UPDATE SET
				level = EXCLUDED.level,
				name = EXCLUDED.name,
				status = EXCLUDED.status,
				raw = COALESCE(EXCLUDED.raw, hierarchy_objects.raw),
				updated_at = NOW()
			RETURNING id, external_id
		`)

		sqlQuery, args, err := query.ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build query: %w", err)
		}

		rows, err := r.conn.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				return nil, fmt.Errorf("database error: %w (code: %s)", pqErr, pqErr.Code)
			}
			return nil, fmt.Errorf("failed to execute query: %w", err)
		}

		for rows.Next() {
			var id, externalID string
			if err := rows.Scan(&id, &externalID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("erro ao ler id do objeto: %w", err)
			}
			ids[externalID] = id
		}

		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("erro ao iterar sobre os resultados: %w", err)
		}
	}

	for _, obj := range objects {
		obj.ID = ids[obj.ExternalID]
	}

	return ids, nil
}

// LinkParents resolve parent_id pelos IDs externos, depois que todos os objetos já existem.
// Vínculos cujo pai não existe na conta são ignorados.
func (r *hierarchyObjectRepository) LinkParents(ctx context.Context, accountID string, links []domain.ParentLink) (int64, error) {
	if len(links) == 0 {
		return 0, nil
	}

	var linked int64

	err := r.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		for _, link := range links {
			if link.ParentExternalID == "" || link.ParentExternalID == link.ChildExternalID {
				continue
			}

			updateSQL, args, err := squirrel.
				Update("hierarchy_objects").
				Set("parent_id", squirrel.Expr(
					"(SELECT p.id FROM hierarchy_objects p WHERE p.account_id = ? AND p.external_id = ?)",
					accountID, link.ParentExternalID,
				)).
				Set("updated_at", squirrel.Expr("NOW()")).
				Where(squirrel.Eq{"account_id": accountID, "external_id": link.ChildExternalID}).
				Where(squirrel.Expr(
					"EXISTS (SELECT 1 FROM hierarchy_objects p WHERE p.account_id = ? AND p.external_id = ?)",
					accountID, link.ParentExternalID,
				)).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build query: %w", err)
			}

			result, err := tx.ExecContext(ctx, updateSQL, args...)
			if err != nil {
				if pqErr, ok := err.(*pq.Error); ok {
					return fmt.Errorf("database error: %w (code: %s)", pqErr, pqErr.Code)
				}
				return fmt.Errorf("failed to execute query: %w", err)
			}

			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("error getting rows affected: %w", err)
			}
			linked += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return linked, nil
}

func (r *hierarchyObjectRepository) GetObject(ctx context.Context, objectID string) (*domain.HierarchyObject, error) {
	query, args, err := squirrel.
		Select(hierarchyObjectsCols).
		From(hierarchyObjectsTable).
		Where(squirrel.Eq{"o.id": objectID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	obj, err := r.scanObject(r.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear objeto: %w", err)
	}

	return obj, nil
}

// ListChildren lista os filhos imediatos de parentID, ou os objetos raiz da conta quando parentID é nil
func (r *hierarchyObjectRepository) ListChildren(ctx context.Context, accountID string, parentID *string) ([]*domain.HierarchyObject, error) {
	where := squirrel.Eq{"o.account_id": accountID, "o.parent_id": nil}
	if parentID != nil {
		where["o.parent_id"] = *parentID
	}

	query, args, err := squirrel.
		Select(hierarchyObjectsCols).
		From(hierarchyObjectsTable).
		Where(where).
		OrderBy("o.name ASC", "o.id ASC").
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

	objects := make([]*domain.HierarchyObject, 0)
	for rows.Next() {
		obj, err := r.scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear objeto: %w", err)
		}
		objects = append(objects, obj)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return objects, nil
}

func (r *hierarchyObjectRepository) scanObject(row scanner) (*domain.HierarchyObject, error) {
	obj := &domain.HierarchyObject{}
	var parentID sql.NullString
	var raw []byte

	if err := row.Scan(
		&obj.ID,
		&obj.AccountID,
		&obj.ExternalID,
		&obj.Level,
		&obj.Name,
		&obj.Status,
		&parentID,
		&raw,
	); err != nil {
		return nil, err
	}

	if parentID.Valid {
		obj.ParentID = &parentID.String
	}
	if len(raw) > 0 {
		obj.Raw = raw
	}

	return obj, nil
}
