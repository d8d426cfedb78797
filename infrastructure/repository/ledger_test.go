package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/traffic-ledger/internal/domain"
)

func TestConnectionRepository_GetOrCreate(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"id", "platform", "credential_ref", "created_at", "updated_at"}

	t.Run("Cria quando não existe", func(t *testing.T) {
		conn, mock := newMockConn(t)
		repo := NewConnectionRepository(conn)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, platform, credential_ref, created_at, updated_at FROM connections")).
			WithArgs("meta").
			WillReturnRows(sqlmock.NewRows(cols))
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (platform) DO NOTHING")).
			WithArgs(sqlmock.AnyArg(), "meta", "fp-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM connections")).
			WithArgs("meta").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("conn-1", "meta", "fp-1", now, now))
		mock.ExpectCommit()

		c, err := repo.GetOrCreate(context.Background(), domain.PlatformMeta, "fp-1")
		require.NoError(t, err)
		assert.Equal(t, "conn-1", c.ID)
		assert.Equal(t, domain.PlatformMeta, c.Platform)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Reaproveita a existente", func(t *testing.T) {
		conn, mock := newMockConn(t)
		repo := NewConnectionRepository(conn)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM connections")).
			WithArgs("meta").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("conn-1", "meta", "fp-1", now, now))
		mock.ExpectCommit()

		c, err := repo.GetOrCreate(context.Background(), domain.PlatformMeta, "fp-1")
		require.NoError(t, err)
		assert.Equal(t, "conn-1", c.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Upsert_IsIdempotent(t *testing.T) {
	conn, mock := newMockConn(t)
	repo := NewAccountRepository(conn)

	account := &domain.AdAccount{
		ConnectionID:        "conn-1",
		ExternalID:          "act_1",
		Name:                "Loja Centro",
		Currency:            "BRL",
		TimezoneName:        "America/Sao_Paulo",
		TimezoneOffsetHours: -3,
	}

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`ON CONFLICT \(connection_id, external_id\) DO UPDATE .* RETURNING id`).
			WithArgs(sqlmock.AnyArg(), "conn-1", "act_1", "Loja Centro", "BRL", "America/Sao_Paulo", -3.0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("acc-1"))
	}

	first, err := repo.Upsert(context.Background(), account)
	require.NoError(t, err)
	second, err := repo.Upsert(context.Background(), account)
	require.NoError(t, err)

	assert.Equal(t, "acc-1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, "acc-1", account.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Upsert_RequiresNaturalKey(t *testing.T) {
	conn, _ := newMockConn(t)
	repo := NewAccountRepository(conn)

	_, err := repo.Upsert(context.Background(), &domain.AdAccount{ExternalID: "act_1"})
	require.Error(t, err)
}

func TestHierarchyObjectRepository_UpsertObjects(t *testing.T) {
	conn, mock := newMockConn(t)
	repo := NewHierarchyObjectRepository(conn)

	objects := []*domain.HierarchyObject{
		{AccountID: "acc-1", ExternalID: "c1", Level: domain.LevelCampaign, Name: "Campanha"},
		{AccountID: "acc-1", ExternalID: "s1", Level: domain.LevelAdSet, Name: "Conjunto"},
	}

	mock.ExpectQuery(`INSERT INTO hierarchy_objects .* ON CONFLICT \(account_id, external_id\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id"}).
			AddRow("obj-c1", "c1").
			AddRow("obj-s1", "s1"))

	ids, err := repo.UpsertObjects(context.Background(), objects)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c1": "obj-c1", "s1": "obj-s1"}, ids)
	assert.Equal(t, "obj-c1", objects[0].ID)
	assert.Equal(t, "obj-s1", objects[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHierarchyObjectRepository_LinkParents(t *testing.T) {
	conn, mock := newMockConn(t)
	repo := NewHierarchyObjectRepository(conn)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE hierarchy_objects SET parent_id = (SELECT p.id FROM hierarchy_objects p")).
		WithArgs("acc-1", "c1", "acc-1", "s1", "acc-1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE hierarchy_objects SET parent_id")).
		WithArgs("acc-1", "s1", "acc-1", "a1", "acc-1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	linked, err := repo.LinkParents(context.Background(), "acc-1", []domain.ParentLink{
		{ChildExternalID: "s1", ParentExternalID: "c1"},
		{ChildExternalID: "a1", ParentExternalID: "s1"},
		{ChildExternalID: "x1", ParentExternalID: "x1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), linked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFactRepository_Append_Batches(t *testing.T) {
	conn, mock := newMockConn(t)
	repo := NewFactRepository(conn)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	facts := make([]*domain.Fact, 0, 250)
	for i := 0; i < 250; i++ {
		facts = append(facts, &domain.Fact{
			ObjectID:    "obj-1",
			AccountID:   "acc-1",
			CollectedAt: day,
			PeriodStart: day.AddDate(0, 0, i),
			PeriodEnd:   day.AddDate(0, 0, i),
			AmountMinor: 100,
			Currency:    "BRL",
		})
	}

	var nextID int64
	for _, size := range []int{100, 100, 50} {
		rows := sqlmock.NewRows([]string{"id"})
		for i := 0; i < size; i++ {
			nextID++
			rows.AddRow(nextID)
		}
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO facts")).WillReturnRows(rows)
	}

	written, err := repo.Append(context.Background(), facts, 100)
	require.NoError(t, err)
	assert.Equal(t, 250, written)
	assert.Equal(t, int64(1), facts[0].ID)
	assert.Equal(t, int64(250), facts[249].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFactRepository_ListCurrentFacts(t *testing.T) {
	conn, mock := newMockConn(t)
	repo := NewFactRepository(conn)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	collected := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (f.object_id, f.period_start)")).
		WithArgs("2024-01-01", "2024-01-31", "acc-1", domain.LevelAd).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "object_id", "account_id", "collected_at", "period_start", "period_end",
			"amount_minor", "currency", "impressions", "clicks", "conversions", "metrics", "level",
		}).AddRow(int64(7), "obj-1", "acc-1", collected, day, day, int64(1234), "BRL",
			int64(1000), int64(10), int64(1), nil, "ad"))

	facts, err := repo.ListCurrentFacts(context.Background(), domain.FactQuery{
		Start:      day,
		End:        time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		AccountIDs: []string{"acc-1"},
		Level:      domain.LevelAd,
	})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, int64(1234), facts[0].AmountMinor)
	assert.Equal(t, domain.LevelAd, facts[0].Level)
	assert.Nil(t, facts[0].Metrics)
	require.NoError(t, mock.ExpectationsWereMet())
}
