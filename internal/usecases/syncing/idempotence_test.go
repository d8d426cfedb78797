package syncing

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	metamocks "github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta/mocks"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/pkg/daterange"
)

func TestRunChunk_TwiceOnSameDataKeepsDimensions(t *testing.T) {
	ctrl := gomock.NewController(t)
	integrator := metamocks.NewMockIntegrator(ctrl)
	connections := newMemoryConnectionRepository()
	accounts := newMemoryAccountRepository()
	objects := newMemoryObjectRepository()
	facts := &memoryFactRepository{}

	cfg := &config.Config{
		Sync: config.Sync{FactBatchSize: 2},
		Meta: config.Meta{AccessToken: "EAAB-secret"},
	}
	o := NewOrchestrator(cfg, integrator, connections, accounts, objects, facts, nil)

	// as duas contas repetem os mesmos IDs externos de objetos
	integrator.EXPECT().ListAccounts(gomock.Any()).Times(2).
		DoAndReturn(func(context.Context) ([]*domain.AdAccount, error) {
			return []*domain.AdAccount{
				{ExternalID: "act_1", Name: "Loja A", Currency: "BRL", TimezoneName: "America/Sao_Paulo"},
				{ExternalID: "act_2", Name: "Loja B", Currency: "USD", TimezoneName: "America/New_York"},
			}, nil
		})
	integrator.EXPECT().ListPerformanceRows(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(12).
		DoAndReturn(func(_ context.Context, _ string, level domain.ObjectLevel, _ daterange.Window) ([]*domain.PerformanceRow, error) {
			return sampleRows()[level], nil
		})

	ctx := context.Background()
	r := daterange.Range{Start: daterange.Date(2024, 3, 1), End: daterange.Date(2024, 3, 1)}

	o.now = func() time.Time { return collectedAt }
	first, err := o.RunChunk(ctx, "batch-1", r)
	require.NoError(t, err)

	accountsAfterFirst, _ := accounts.ListAccounts(ctx, nil)
	objectsAfterFirst := objects.snapshot()
	factsAfterFirst := len(facts.facts)

	o.now = func() time.Time { return collectedAt.Add(time.Hour) }
	second, err := o.RunChunk(ctx, "batch-2", r)
	require.NoError(t, err)

	accountsAfterSecond, _ := accounts.ListAccounts(ctx, nil)
	objectsAfterSecond := objects.snapshot()

	require.Len(t, accountsAfterFirst, 2)
	require.Len(t, objectsAfterFirst, 6)
	assert.Equal(t, accountsAfterFirst, accountsAfterSecond)
	assert.Equal(t, objectsAfterFirst, objectsAfterSecond)
	assert.Equal(t, first.Objects, second.Objects)

	// vínculos: conjunto -> campanha e anúncio -> conjunto, sempre dentro da mesma conta
	byID := map[string]objectRow{}
	for _, row := range objectsAfterSecond {
		byID[row.ID] = row
	}
	for _, row := range objectsAfterSecond {
		switch row.Level {
		case domain.LevelCampaign:
			assert.Empty(t, row.ParentID)
		default:
			parent, ok := byID[row.ParentID]
			require.True(t, ok, "objeto %s sem pai", row.ExternalID)
			assert.Equal(t, row.AccountID, parent.AccountID)
			assert.Equal(t, row.Level.ParentLevel(), parent.Level)
		}
	}

	// fatos são só acrescentados: a segunda passada grava uma nova versão para os mesmos objetos
	require.Equal(t, 6, factsAfterFirst)
	require.Len(t, facts.facts, 12)
	objectIDs := func(fs []*domain.Fact) []string {
		ids := make([]string, 0, len(fs))
		for _, f := range fs {
			ids = append(ids, f.ObjectID)
		}
		sort.Strings(ids)
		return ids
	}
	assert.Equal(t, objectIDs(facts.facts[:6]), objectIDs(facts.facts[6:]))
	assert.True(t, facts.facts[11].CollectedAt.After(facts.facts[0].CollectedAt))
}
