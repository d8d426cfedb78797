package syncing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	eventmocks "github.com/vfg2006/traffic-ledger/infrastructure/events/mocks"
	metamocks "github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta/mocks"
	"github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta/metaclient"
	repomocks "github.com/vfg2006/traffic-ledger/infrastructure/repository/mocks"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/internal/jobqueue"
	"github.com/vfg2006/traffic-ledger/pkg/daterange"
	"github.com/vfg2006/traffic-ledger/pkg/log"
)

func init() {
	log.SetupTestLogger()
}

type orchestratorMocks struct {
	integrator  *metamocks.MockIntegrator
	connections *repomocks.MockConnectionRepository
	accounts    *repomocks.MockAccountRepository
	objects     *repomocks.MockHierarchyObjectRepository
	facts       *repomocks.MockFactRepository
	publisher   *eventmocks.MockPublisher
}

var collectedAt = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *orchestratorMocks) {
	ctrl := gomock.NewController(t)
	m := &orchestratorMocks{
		integrator:  metamocks.NewMockIntegrator(ctrl),
		connections: repomocks.NewMockConnectionRepository(ctrl),
		accounts:    repomocks.NewMockAccountRepository(ctrl),
		objects:     repomocks.NewMockHierarchyObjectRepository(ctrl),
		facts:       repomocks.NewMockFactRepository(ctrl),
		publisher:   eventmocks.NewMockPublisher(ctrl),
	}

	cfg := &config.Config{
		Sync: config.Sync{FactBatchSize: 100, MaxAttempts: 3},
		Meta: config.Meta{AccessToken: "EAAB-secret"},
	}

	o := NewOrchestrator(cfg, m.integrator, m.connections, m.accounts, m.objects, m.facts, m.publisher)
	o.now = func() time.Time { return collectedAt }

	return o, m
}

func sampleRows() map[domain.ObjectLevel][]*domain.PerformanceRow {
	return map[domain.ObjectLevel][]*domain.PerformanceRow{
		domain.LevelCampaign: {
			{Level: domain.LevelCampaign, Date: "2024-03-01", Spend: "10.50", Impressions: 1000, Clicks: 10, CampaignID: "c1", CampaignName: "Campanha"},
		},
		domain.LevelAdSet: {
			{Level: domain.LevelAdSet, Date: "2024-03-01", Spend: "10.50", Impressions: 1000, Clicks: 10, CampaignID: "c1", CampaignName: "Campanha", AdSetID: "s1", AdSetName: "Conjunto"},
		},
		domain.LevelAd: {
			{
				Level: domain.LevelAd, Date: "2024-03-01", Spend: "10.505", Impressions: 1000, Clicks: 10, Conversions: 2,
				CampaignID: "c1", CampaignName: "Campanha", AdSetID: "s1", AdSetName: "Conjunto", AdID: "ad1", AdName: "Anúncio",
				Extra: map[string]any{"reach": int64(800)},
			},
		},
	}
}

func TestRunChunk_FullPass(t *testing.T) {
	o, m := newTestOrchestrator(t)
	ctx := context.Background()
	rows := sampleRows()
	r := daterange.Range{Start: daterange.Date(2024, 3, 1), End: daterange.Date(2024, 3, 1)}

	m.connections.EXPECT().
		GetOrCreate(gomock.Any(), domain.PlatformMeta, CredentialFingerprint("EAAB-secret")).
		Return(&domain.Connection{ID: "conn-1", Platform: domain.PlatformMeta}, nil)

	m.integrator.EXPECT().ListAccounts(gomock.Any()).Return([]*domain.AdAccount{
		{ExternalID: "act_1", Name: "Loja", Currency: "BRL", TimezoneName: "America/Sao_Paulo"},
	}, nil)

	m.accounts.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, acc *domain.AdAccount) (string, error) {
			assert.Equal(t, "conn-1", acc.ConnectionID)
			assert.Equal(t, "act_1", acc.ExternalID)
			return "acc-1", nil
		})

	m.integrator.EXPECT().
		ListPerformanceRows(gomock.Any(), "act_1", gomock.Any(), gomock.Any()).
		Times(3).
		DoAndReturn(func(_ context.Context, _ string, level domain.ObjectLevel, w daterange.Window) ([]*domain.PerformanceRow, error) {
			// dia local de São Paulo (UTC-3), e não o dia UTC
			assert.Equal(t, time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC), w.Since.UTC())
			assert.Equal(t, time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC), w.Until.UTC())
			assert.Equal(t, "2024-03-01", w.SinceDate())
			assert.Equal(t, "2024-03-01", w.UntilDate())
			return rows[level], nil
		})

	gomock.InOrder(
		m.objects.EXPECT().
			UpsertObjects(gomock.Any(), gomock.Len(3)).
			DoAndReturn(func(_ context.Context, objs []*domain.HierarchyObject) (map[string]string, error) {
				for _, obj := range objs {
					assert.Nil(t, obj.ParentID)
					assert.Equal(t, "acc-1", obj.AccountID)
				}
				return map[string]string{"c1": "o-c1", "s1": "o-s1", "ad1": "o-ad1"}, nil
			}),
		m.objects.EXPECT().
			LinkParents(gomock.Any(), "acc-1", []domain.ParentLink{
				{ChildExternalID: "s1", ParentExternalID: "c1"},
				{ChildExternalID: "ad1", ParentExternalID: "s1"},
			}).
			Return(int64(2), nil),
		m.facts.EXPECT().
			Append(gomock.Any(), gomock.Len(3), 100).
			DoAndReturn(func(_ context.Context, facts []*domain.Fact, _ int) (int, error) {
				ad := facts[2]
				assert.Equal(t, "o-ad1", ad.ObjectID)
				assert.Equal(t, "acc-1", ad.AccountID)
				assert.Equal(t, int64(1050), ad.AmountMinor)
				assert.Equal(t, "BRL", ad.Currency)
				assert.Equal(t, daterange.Date(2024, 3, 1), ad.PeriodStart)
				assert.Equal(t, ad.PeriodStart, ad.PeriodEnd)
				assert.JSONEq(t, `{"reach":800}`, string(ad.Metrics))
				for _, f := range facts {
					assert.Equal(t, collectedAt, f.CollectedAt)
				}
				return len(facts), nil
			}),
	)

	m.publisher.EXPECT().
		PublishChunkSynced(gomock.Any(), domain.ChunkSummary{
			BatchID: "b1", Start: "2024-03-01", End: "2024-03-01", Accounts: 1, Objects: 3, Facts: 3,
		}).
		Return(errors.New("broker down"))

	summary, err := o.RunChunk(ctx, "b1", r)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Facts)
}

func TestRunChunk_FetchErrorAbortsChunk(t *testing.T) {
	o, m := newTestOrchestrator(t)
	r := daterange.Range{Start: daterange.Date(2024, 3, 1), End: daterange.Date(2024, 3, 31)}

	m.connections.EXPECT().GetOrCreate(gomock.Any(), domain.PlatformMeta, gomock.Any()).
		Return(&domain.Connection{ID: "conn-1"}, nil)
	m.integrator.EXPECT().ListAccounts(gomock.Any()).
		Return([]*domain.AdAccount{{ExternalID: "act_1", Currency: "BRL"}}, nil)
	m.accounts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return("acc-1", nil)

	apiErr := &metaclient.APIError{StatusCode: 500, Body: "boom"}
	m.integrator.EXPECT().
		ListPerformanceRows(gomock.Any(), "act_1", domain.LevelCampaign, gomock.Any()).
		Return(nil, apiErr)

	summary, err := o.RunChunk(context.Background(), "b1", r)
	assert.Nil(t, summary)
	var target *metaclient.APIError
	assert.True(t, errors.As(err, &target))
	assert.False(t, jobqueue.IsPermanent(err))
}

func TestRunChunk_NoRowsSkipsWrites(t *testing.T) {
	o, m := newTestOrchestrator(t)
	r := daterange.Range{Start: daterange.Date(2024, 3, 1), End: daterange.Date(2024, 3, 1)}

	m.connections.EXPECT().GetOrCreate(gomock.Any(), domain.PlatformMeta, gomock.Any()).
		Return(&domain.Connection{ID: "conn-1"}, nil)
	m.integrator.EXPECT().ListAccounts(gomock.Any()).Return([]*domain.AdAccount{
		{ExternalID: "act_1", Currency: "BRL"},
		{ExternalID: "act_2", Currency: "USD"},
	}, nil)
	m.accounts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return("acc", nil).Times(2)
	m.integrator.EXPECT().ListPerformanceRows(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*domain.PerformanceRow{}, nil).Times(6)
	m.publisher.EXPECT().PublishChunkSynced(gomock.Any(), gomock.Any()).Return(nil)

	summary, err := o.RunChunk(context.Background(), "b1", r)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Accounts)
	assert.Equal(t, 0, summary.Facts)
}

func TestRunChunk_AccountDelayHonoursContext(t *testing.T) {
	o, m := newTestOrchestrator(t)
	o.cfg.AccountDelay = time.Hour
	r := daterange.Range{Start: daterange.Date(2024, 3, 1), End: daterange.Date(2024, 3, 1)}

	ctx, cancel := context.WithCancel(context.Background())

	m.connections.EXPECT().GetOrCreate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&domain.Connection{ID: "conn-1"}, nil)
	m.integrator.EXPECT().ListAccounts(gomock.Any()).Return([]*domain.AdAccount{
		{ExternalID: "act_1"}, {ExternalID: "act_2"},
	}, nil)
	m.accounts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return("acc", nil)
	m.integrator.EXPECT().ListPerformanceRows(gomock.Any(), "act_1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, domain.ObjectLevel, daterange.Window) ([]*domain.PerformanceRow, error) {
			cancel()
			return nil, nil
		}).Times(3)

	_, err := o.RunChunk(ctx, "b1", r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandle_InvalidPayloadIsPermanent(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	payloads := []string{
		`not json`,
		`{"start_date":"2024-03-10","end_date":"2024-03-01"}`,
		`{"start_date":"10/03/2024","end_date":"2024-03-11"}`,
		`{"platform":"google","start_date":"2024-03-01","end_date":"2024-03-01"}`,
	}

	for _, p := range payloads {
		err := o.Handle(context.Background(), &domain.Job{ID: "j1", Payload: []byte(p)})
		assert.True(t, jobqueue.IsPermanent(err), p)
		assert.ErrorIs(t, err, ErrInvalidPayload, p)
	}
}

func TestTaskOptions(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	opts := o.TaskOptions()

	assert.Equal(t, "meta-sync:meta", opts.SerializationKey(nil))
	assert.Equal(t, 3, opts.MaxAttempts)
}

func TestCredentialFingerprint(t *testing.T) {
	fp := CredentialFingerprint("EAAB-secret")

	assert.True(t, strings.HasPrefix(fp, "sha256:"))
	assert.NotContains(t, fp, "EAAB-secret")
	assert.Equal(t, fp, CredentialFingerprint("EAAB-secret"))
	assert.NotEqual(t, fp, CredentialFingerprint("other"))
	assert.Equal(t, "", CredentialFingerprint(""))
}
