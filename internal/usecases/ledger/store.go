package ledger

import (
	"context"

	"github.com/vfg2006/traffic-ledger/internal/domain"
)

// AccountReader, ObjectReader e FactReader são satisfeitos pelos repositórios Postgres
// e pelo MemoryStore.
type AccountReader interface {
	GetAccountByID(ctx context.Context, accountID string) (*domain.AdAccount, error)
	ListAccounts(ctx context.Context, accountIDs []string) ([]*domain.AdAccount, error)
}

type ObjectReader interface {
	GetObject(ctx context.Context, objectID string) (*domain.HierarchyObject, error)
	ListChildren(ctx context.Context, accountID string, parentID *string) ([]*domain.HierarchyObject, error)
}

type FactReader interface {
	ListCurrentFacts(ctx context.Context, q domain.FactQuery) ([]*domain.Fact, error)
}
