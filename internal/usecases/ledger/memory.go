package ledger

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/vfg2006/traffic-ledger/internal/domain"
)

// MemoryStore guarda contas, objetos e o histórico completo de fatos em memória.
// ListCurrentFacts devolve todas as versões; quem resolve a versão atual é o Engine.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.AdAccount
	objects  map[string]*domain.HierarchyObject
	facts    []*domain.Fact
	seq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*domain.AdAccount),
		objects:  make(map[string]*domain.HierarchyObject),
	}
}

func (m *MemoryStore) AddAccount(acc *domain.AdAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acc.ID] = acc
}

func (m *MemoryStore) AddObject(obj *domain.HierarchyObject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.ID] = obj
}

// AppendFact só acrescenta; fatos existentes nunca são alterados
func (m *MemoryStore) AppendFact(f *domain.Fact) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	cp := *f
	if cp.ID == 0 {
		cp.ID = m.seq
	}
	if obj, ok := m.objects[cp.ObjectID]; ok {
		cp.Level = obj.Level
	}
	m.facts = append(m.facts, &cp)
}

func (m *MemoryStore) GetAccountByID(_ context.Context, accountID string) (*domain.AdAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accounts[accountID], nil
}

func (m *MemoryStore) ListAccounts(_ context.Context, accountIDs []string) ([]*domain.AdAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.AdAccount, 0, len(m.accounts))
	for _, acc := range m.accounts {
		if len(accountIDs) > 0 && !slices.Contains(accountIDs, acc.ID) {
			continue
		}
		out = append(out, acc)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) GetObject(_ context.Context, objectID string) (*domain.HierarchyObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[objectID], nil
}

func (m *MemoryStore) ListChildren(_ context.Context, accountID string, parentID *string) ([]*domain.HierarchyObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.HierarchyObject, 0)
	for _, obj := range m.objects {
		if obj.AccountID != accountID {
			continue
		}
		switch {
		case parentID == nil && obj.ParentID == nil:
		case parentID != nil && obj.ParentID != nil && *obj.ParentID == *parentID:
		default:
			continue
		}
		out = append(out, obj)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) ListCurrentFacts(_ context.Context, q domain.FactQuery) ([]*domain.Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Fact, 0)
	for _, f := range m.facts {
		if !q.Start.IsZero() && f.PeriodStart.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && f.PeriodStart.After(q.End) {
			continue
		}
		if len(q.AccountIDs) > 0 && !slices.Contains(q.AccountIDs, f.AccountID) {
			continue
		}
		if len(q.ObjectIDs) > 0 && !slices.Contains(q.ObjectIDs, f.ObjectID) {
			continue
		}
		if q.Level != "" && f.Level != q.Level {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}
