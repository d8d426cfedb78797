package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/pkg/daterange"
)

var (
	day1 = daterange.Date(2024, 3, 1)
	day2 = daterange.Date(2024, 3, 2)
	t0   = time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)
	t1   = t0.Add(24 * time.Hour)
)

func ptr(s string) *string { return &s }

func fact(objectID, accountID string, day, collected time.Time, spend, impressions, clicks int64) *domain.Fact {
	return &domain.Fact{
		ObjectID:    objectID,
		AccountID:   accountID,
		CollectedAt: collected,
		PeriodStart: day,
		PeriodEnd:   day,
		AmountMinor: spend,
		Currency:    "BRL",
		Impressions: impressions,
		Clicks:      clicks,
	}
}

// fixture: acc-1 com c1 > s1 > (a1, a2) e uma campanha c2 sem gasto; acc-2 sem fatos
func newFixture() *MemoryStore {
	m := NewMemoryStore()

	m.AddAccount(&domain.AdAccount{ID: "acc-1", ExternalID: "act_1", Name: "Loja A", Currency: "BRL"})
	m.AddAccount(&domain.AdAccount{ID: "acc-2", ExternalID: "act_2", Name: "Loja B", Currency: "USD"})

	m.AddObject(&domain.HierarchyObject{ID: "c1", AccountID: "acc-1", ExternalID: "x-c1", Level: domain.LevelCampaign, Name: "Campanha 1"})
	m.AddObject(&domain.HierarchyObject{ID: "c2", AccountID: "acc-1", ExternalID: "x-c2", Level: domain.LevelCampaign, Name: "Campanha 2"})
	m.AddObject(&domain.HierarchyObject{ID: "s1", AccountID: "acc-1", ExternalID: "x-s1", Level: domain.LevelAdSet, Name: "Conjunto", ParentID: ptr("c1")})
	m.AddObject(&domain.HierarchyObject{ID: "a1", AccountID: "acc-1", ExternalID: "x-a1", Level: domain.LevelAd, Name: "Anúncio 1", ParentID: ptr("s1")})
	m.AddObject(&domain.HierarchyObject{ID: "a2", AccountID: "acc-1", ExternalID: "x-a2", Level: domain.LevelAd, Name: "Anúncio 2", ParentID: ptr("s1")})

	// níveis intermediários repetem o gasto das folhas
	m.AppendFact(fact("c1", "acc-1", day1, t0, 1100, 2000, 44))
	m.AppendFact(fact("s1", "acc-1", day1, t0, 1100, 2000, 44))

	m.AppendFact(fact("a1", "acc-1", day1, t0, 600, 1000, 20))
	m.AppendFact(fact("a1", "acc-1", day1, t1, 700, 1000, 24)) // correção
	m.AppendFact(fact("a2", "acc-1", day1, t0, 400, 1000, 20))

	// fora da janela consultada
	m.AppendFact(fact("a2", "acc-1", day2, t0, 99999, 1, 1))

	return m
}

func newTestEngine(m *MemoryStore) *Engine {
	return NewEngine(config.Ledger{DefaultPageSize: 20, MaxPageSize: 100}, m, m, m)
}

func TestResolveCurrent(t *testing.T) {
	facts := []*domain.Fact{
		{ID: 1, ObjectID: "a", PeriodStart: day1, CollectedAt: t0, AmountMinor: 1},
		{ID: 2, ObjectID: "a", PeriodStart: day1, CollectedAt: t1, AmountMinor: 2},
		{ID: 3, ObjectID: "a", PeriodStart: day1, CollectedAt: t0, AmountMinor: 3},
		{ID: 4, ObjectID: "a", PeriodStart: day2, CollectedAt: t0, AmountMinor: 4},
		{ID: 6, ObjectID: "b", PeriodStart: day1, CollectedAt: t0, AmountMinor: 6},
		{ID: 5, ObjectID: "b", PeriodStart: day1, CollectedAt: t0, AmountMinor: 5},
	}

	current := ResolveCurrent(facts)
	require.Len(t, current, 3)

	assert.Equal(t, int64(2), current[0].AmountMinor) // maior collected_at
	assert.Equal(t, int64(4), current[1].AmountMinor)
	assert.Equal(t, int64(6), current[2].AmountMinor) // empate: maior id

	assert.Empty(t, ResolveCurrent(nil))
}

func TestResolveCurrent_OrderIndependent(t *testing.T) {
	a := &domain.Fact{ID: 1, ObjectID: "a", PeriodStart: day1, CollectedAt: t1, AmountMinor: 10}
	b := &domain.Fact{ID: 2, ObjectID: "a", PeriodStart: day1, CollectedAt: t0, AmountMinor: 20}

	assert.Equal(t, int64(10), ResolveCurrent([]*domain.Fact{a, b})[0].AmountMinor)
	assert.Equal(t, int64(10), ResolveCurrent([]*domain.Fact{b, a})[0].AmountMinor)
}

func TestComputeRatios(t *testing.T) {
	tests := []struct {
		name        string
		spend       int64
		currency    string
		impressions int64
		clicks      int64
		expected    domain.Ratios
	}{
		{name: "all zero", expected: domain.Ratios{}},
		{name: "spend without impressions or clicks", spend: 1000, currency: "BRL", expected: domain.Ratios{}},
		{name: "clicks without impressions", spend: 1000, currency: "BRL", clicks: 5, expected: domain.Ratios{CPC: 2}},
		{name: "impressions without clicks", spend: 1000, currency: "BRL", impressions: 2000, expected: domain.Ratios{CPM: 5}},
		{name: "full", spend: 1100, currency: "BRL", impressions: 2000, clicks: 44, expected: domain.Ratios{CTR: 2.2, CPC: 0.25, CPM: 5.5}},
		{name: "zero decimal currency", spend: 5000, currency: "JPY", impressions: 1000, clicks: 10, expected: domain.Ratios{CTR: 1, CPC: 500, CPM: 5000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeRatios(tt.spend, tt.currency, tt.impressions, tt.clicks))
		})
	}
}

func TestAccountRollup_LeafOnlyLatestWins(t *testing.T) {
	e := newTestEngine(newFixture())

	rollups, err := e.AccountRollup(context.Background(), RollupQuery{Start: day1, End: day1})
	require.NoError(t, err)
	require.Len(t, rollups, 2)

	acc := rollups[0]
	assert.Equal(t, "acc-1", acc.AccountID)
	// só anúncios: 700 (versão corrigida de a1) + 400
	assert.Equal(t, int64(1100), acc.SpendMinor)
	assert.Equal(t, 11.0, acc.Spend)
	assert.Equal(t, int64(2000), acc.Impressions)
	assert.Equal(t, int64(44), acc.Clicks)
	assert.Equal(t, domain.Ratios{CTR: 2.2, CPC: 0.25, CPM: 5.5}, acc.Ratios)

	empty := rollups[1]
	assert.Equal(t, "acc-2", empty.AccountID)
	assert.Equal(t, domain.Totals{}, empty.Totals)
	assert.Equal(t, domain.Ratios{}, empty.Ratios)
}

func TestAccountRollup_Filters(t *testing.T) {
	e := newTestEngine(newFixture())

	rollups, err := e.AccountRollup(context.Background(), RollupQuery{Start: day1, End: day2, AccountIDs: []string{"acc-1"}})
	require.NoError(t, err)
	require.Len(t, rollups, 1)
	assert.Equal(t, int64(1100+99999), rollups[0].SpendMinor)

	_, err = e.AccountRollup(context.Background(), RollupQuery{Start: day2, End: day1})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = e.AccountRollup(context.Background(), RollupQuery{})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestAccountRollup_CorrectionAfterRead(t *testing.T) {
	m := newFixture()
	e := newTestEngine(m)

	before, err := e.AccountRollup(context.Background(), RollupQuery{Start: day1, End: day1, AccountIDs: []string{"acc-1"}})
	require.NoError(t, err)

	m.AppendFact(fact("a2", "acc-1", day1, t1.Add(time.Hour), 0, 0, 0))

	after, err := e.AccountRollup(context.Background(), RollupQuery{Start: day1, End: day1, AccountIDs: []string{"acc-1"}})
	require.NoError(t, err)

	assert.Equal(t, int64(1100), before[0].SpendMinor)
	assert.Equal(t, int64(700), after[0].SpendMinor)
}

func TestListObjects_Roots(t *testing.T) {
	e := newTestEngine(newFixture())

	page, err := e.ListObjects(context.Background(), ObjectQuery{AccountID: "acc-1", Start: day1, End: day1})
	require.NoError(t, err)

	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	require.Len(t, page.Items, 2)

	assert.Equal(t, "c1", page.Items[0].ID)
	assert.Equal(t, int64(1100), page.Items[0].SpendMinor)
	assert.Equal(t, "", page.Items[0].ParentName)
	assert.Equal(t, "c2", page.Items[1].ID)
	assert.Equal(t, domain.Ratios{}, page.Items[1].Ratios)
}

func TestListObjects_ChildrenWithBreadcrumbAndPaging(t *testing.T) {
	e := newTestEngine(newFixture())
	ctx := context.Background()

	page, err := e.ListObjects(ctx, ObjectQuery{AccountID: "acc-1", ParentID: ptr("s1"), Start: day1, End: day1})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	assert.Equal(t, "a1", page.Items[0].ID)
	assert.Equal(t, int64(700), page.Items[0].SpendMinor)
	assert.Equal(t, "a2", page.Items[1].ID)
	for _, item := range page.Items {
		assert.Equal(t, "Conjunto", item.ParentName)
		assert.Equal(t, domain.LevelAdSet, item.ParentLevel)
		assert.Equal(t, "BRL", item.Currency)
	}

	second, err := e.ListObjects(ctx, ObjectQuery{AccountID: "acc-1", ParentID: ptr("s1"), Start: day1, End: day1, Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Total)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "a2", second.Items[0].ID)

	beyond, err := e.ListObjects(ctx, ObjectQuery{AccountID: "acc-1", ParentID: ptr("s1"), Start: day1, End: day1, Page: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)

	capped, err := e.ListObjects(ctx, ObjectQuery{AccountID: "acc-1", Start: day1, End: day1, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, capped.PageSize)
}

func TestListObjects_TieBreakByName(t *testing.T) {
	m := NewMemoryStore()
	m.AddAccount(&domain.AdAccount{ID: "acc", Currency: "BRL"})
	m.AddObject(&domain.HierarchyObject{ID: "z", AccountID: "acc", Level: domain.LevelCampaign, Name: "Beta"})
	m.AddObject(&domain.HierarchyObject{ID: "y", AccountID: "acc", Level: domain.LevelCampaign, Name: "Alfa"})
	m.AddObject(&domain.HierarchyObject{ID: "x", AccountID: "acc", Level: domain.LevelCampaign, Name: "Gama"})
	m.AppendFact(fact("x", "acc", day1, t0, 10, 0, 0))

	page, err := newTestEngine(m).ListObjects(context.Background(), ObjectQuery{AccountID: "acc", Start: day1, End: day1})
	require.NoError(t, err)

	ids := []string{}
	for _, item := range page.Items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"x", "y", "z"}, ids)
}

func TestListObjects_NotFound(t *testing.T) {
	m := newFixture()
	m.AddObject(&domain.HierarchyObject{ID: "other", AccountID: "acc-2", Level: domain.LevelCampaign})
	e := newTestEngine(m)
	ctx := context.Background()

	_, err := e.ListObjects(ctx, ObjectQuery{AccountID: "missing", Start: day1, End: day1})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = e.ListObjects(ctx, ObjectQuery{AccountID: "acc-1", ParentID: ptr("other"), Start: day1, End: day1})
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = e.ListObjects(ctx, ObjectQuery{AccountID: "acc-1", ParentID: ptr("nope"), Start: day1, End: day1})
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
