package ledger

import (
	"sort"

	"github.com/vfg2006/traffic-ledger/internal/domain"
)

// ResolveCurrent mantém, para cada (objeto, início do período), apenas o fato com maior
// collected_at. Empates são decididos pelo maior ID, que reflete a ordem de inserção.
func ResolveCurrent(facts []*domain.Fact) []*domain.Fact {
	current := make(map[domain.FactKey]*domain.Fact, len(facts))

	for _, f := range facts {
		key := f.Key()
		best, ok := current[key]
		if !ok || newer(f, best) {
			current[key] = f
		}
	}

	out := make([]*domain.Fact, 0, len(current))
	for _, f := range current {
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ObjectID != out[j].ObjectID {
			return out[i].ObjectID < out[j].ObjectID
		}
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})

	return out
}

func newer(a, b *domain.Fact) bool {
	if !a.CollectedAt.Equal(b.CollectedAt) {
		return a.CollectedAt.After(b.CollectedAt)
	}
	return a.ID > b.ID
}
