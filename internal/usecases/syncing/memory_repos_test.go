package syncing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vfg2006/traffic-ledger/internal/domain"
)

// Repositórios em memória com as mesmas chaves naturais dos ON CONFLICT do Postgres:
// conexão por plataforma, conta por (connection_id, external_id) e objeto por (account_id, external_id).

type memoryConnectionRepository struct {
	mu          sync.Mutex
	connections map[domain.Platform]*domain.Connection
}

func newMemoryConnectionRepository() *memoryConnectionRepository {
	return &memoryConnectionRepository{connections: map[domain.Platform]*domain.Connection{}}
}

func (r *memoryConnectionRepository) GetOrCreate(_ context.Context, platform domain.Platform, credentialRef string) (*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[platform]
	if !ok {
		conn = &domain.Connection{
			ID:            fmt.Sprintf("conn-%d", len(r.connections)+1),
			Platform:      platform,
			CredentialRef: credentialRef,
		}
		r.connections[platform] = conn
	}
	cp := *conn
	return &cp, nil
}

type storedAccountKey struct {
	connectionID string
	externalID   string
}

type memoryAccountRepository struct {
	mu       sync.Mutex
	seq      int
	accounts map[storedAccountKey]*domain.AdAccount
}

func newMemoryAccountRepository() *memoryAccountRepository {
	return &memoryAccountRepository{accounts: map[storedAccountKey]*domain.AdAccount{}}
}

func (r *memoryAccountRepository) Upsert(_ context.Context, account *domain.AdAccount) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.ConnectionID == "" || account.ExternalID == "" {
		return "", errors.New("connection_id e external_id são obrigatórios")
	}

	key := storedAccountKey{account.ConnectionID, account.ExternalID}
	stored, ok := r.accounts[key]
	if !ok {
		r.seq++
		stored = &domain.AdAccount{
			ID:           fmt.Sprintf("acc-%d", r.seq),
			ConnectionID: account.ConnectionID,
			ExternalID:   account.ExternalID,
		}
		r.accounts[key] = stored
	}
	stored.Name = account.Name
	stored.Currency = account.Currency
	stored.TimezoneName = account.TimezoneName
	stored.TimezoneOffsetHours = account.TimezoneOffsetHours

	return stored.ID, nil
}

func (r *memoryAccountRepository) GetAccountByID(_ context.Context, accountID string) (*domain.AdAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acc := range r.accounts {
		if acc.ID == accountID {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryAccountRepository) ListAccounts(_ context.Context, _ []string) ([]*domain.AdAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AdAccount, 0, len(r.accounts))
	for _, acc := range r.accounts {
		cp := *acc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type storedObjectKey struct {
	accountID  string
	externalID string
}

type memoryObjectRepository struct {
	mu      sync.Mutex
	seq     int
	objects map[storedObjectKey]*domain.HierarchyObject
}

func newMemoryObjectRepository() *memoryObjectRepository {
	return &memoryObjectRepository{objects: map[storedObjectKey]*domain.HierarchyObject{}}
}

// UpsertObjects não altera parent_id, igual ao upsert SQL
func (r *memoryObjectRepository) UpsertObjects(_ context.Context, objects []*domain.HierarchyObject) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make(map[string]string, len(objects))
	for _, obj := range objects {
		key := storedObjectKey{obj.AccountID, obj.ExternalID}
		stored, ok := r.objects[key]
		if !ok {
			r.seq++
			stored = &domain.HierarchyObject{
				ID:         fmt.Sprintf("obj-%d", r.seq),
				AccountID:  obj.AccountID,
				ExternalID: obj.ExternalID,
			}
			r.objects[key] = stored
		}
		stored.Level = obj.Level
		stored.Name = obj.Name
		stored.Status = obj.Status
		if len(obj.Raw) > 0 {
			stored.Raw = obj.Raw
		}

		obj.ID = stored.ID
		ids[obj.ExternalID] = stored.ID
	}
	return ids, nil
}

func (r *memoryObjectRepository) LinkParents(_ context.Context, accountID string, links []domain.ParentLink) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var linked int64
	for _, link := range links {
		if link.ParentExternalID == "" || link.ParentExternalID == link.ChildExternalID {
			continue
		}
		child, ok := r.objects[storedObjectKey{accountID, link.ChildExternalID}]
		if !ok {
			continue
		}
		parent, ok := r.objects[storedObjectKey{accountID, link.ParentExternalID}]
		if !ok {
			continue
		}
		parentID := parent.ID
		child.ParentID = &parentID
		linked++
	}
	return linked, nil
}

func (r *memoryObjectRepository) GetObject(_ context.Context, objectID string) (*domain.HierarchyObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, obj := range r.objects {
		if obj.ID == objectID {
			cp := *obj
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryObjectRepository) ListChildren(_ context.Context, accountID string, parentID *string) ([]*domain.HierarchyObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.HierarchyObject, 0)
	for _, obj := range r.objects {
		if obj.AccountID != accountID {
			continue
		}
		if (parentID == nil) != (obj.ParentID == nil) {
			continue
		}
		if parentID != nil && *parentID != *obj.ParentID {
			continue
		}
		cp := *obj
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// objectRow é a forma comparável de um objeto gravado
type objectRow struct {
	ID         string
	AccountID  string
	ExternalID string
	Level      domain.ObjectLevel
	ParentID   string
}

func (r *memoryObjectRepository) snapshot() []objectRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]objectRow, 0, len(r.objects))
	for _, obj := range r.objects {
		row := objectRow{ID: obj.ID, AccountID: obj.AccountID, ExternalID: obj.ExternalID, Level: obj.Level}
		if obj.ParentID != nil {
			row.ParentID = *obj.ParentID
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memoryFactRepository struct {
	mu    sync.Mutex
	facts []*domain.Fact
}

func (r *memoryFactRepository) Append(_ context.Context, facts []*domain.Fact, _ int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range facts {
		cp := *f
		cp.ID = int64(len(r.facts) + 1)
		r.facts = append(r.facts, &cp)
	}
	return len(facts), nil
}

func (r *memoryFactRepository) ListCurrentFacts(_ context.Context, _ domain.FactQuery) ([]*domain.Fact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Fact, 0, len(r.facts))
	for _, f := range r.facts {
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}
