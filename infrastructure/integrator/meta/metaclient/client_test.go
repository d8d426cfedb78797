package metaclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/traffic-ledger/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *MetaClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&config.Meta{
		URL:            server.URL + "/v22.0",
		AccessToken:    "token-123",
		RequestTimeout: timeout,
		PageSize:       2,
	}).(*MetaClient)
}

func TestGetAdAccounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v22.0/me/adaccounts", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "cursor-1", r.URL.Query().Get("after"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`{
			"data": [{"id": "act_1", "account_id": "1", "name": "Loja", "currency": "BRL",
				"timezone_name": "America/Sao_Paulo", "timezone_offset_hours_utc": -3}],
			"paging": {"cursors": {"before": "a", "after": "b"}}
		}`))
	}, time.Second)

	resp, err := client.GetAdAccounts(context.Background(), "cursor-1")
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "act_1", resp.Data[0].ID)
	assert.Equal(t, -3.0, resp.Data[0].TimezoneOffsetHoursUTC)
	assert.False(t, resp.Paging.HasNext())
}

func TestGetInsights(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v22.0/act_1/insights", r.URL.Path)
		assert.Equal(t, "adset", q.Get("level"))
		assert.Equal(t, "1", q.Get("time_increment"))
		assert.Equal(t, `{"since":"2024-01-01","until":"2024-01-31"}`, q.Get("time_range"))
		assert.Contains(t, q.Get("fields"), "adset_id")

		_, _ = w.Write([]byte(`{
			"data": [{"campaign_id": "c1", "adset_id": "s1", "date_start": "2024-01-01", "spend": "10.50",
				"impressions": "1000", "clicks": "12"}],
			"paging": {"cursors": {"after": "next-cursor"}, "next": "https://graph.facebook.com/next"}
		}`))
	}, time.Second)

	resp, err := client.GetInsights(context.Background(), InsightsParams{
		AccountID: "1",
		Level:     "adset",
		Since:     "2024-01-01",
		Until:     "2024-01-31",
	})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "10.50", resp.Data[0].Spend)
	assert.True(t, resp.Paging.HasNext())
	assert.Equal(t, "next-cursor", resp.Paging.Cursors.After)
}

func TestGetInsights_InvalidLevel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("não deveria chamar a API")
	}, time.Second)

	_, err := client.GetInsights(context.Background(), InsightsParams{AccountID: "act_1", Level: "account"})
	require.Error(t, err)
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid parameter", "type": "OAuthException", "code": 100, "fbtrace_id": "x"}}`))
	}, time.Second)

	_, err := client.GetAdAccounts(context.Background(), "")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, 100, apiErr.Meta.Code)
	assert.Equal(t, "Invalid parameter", apiErr.Meta.Message)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := client.GetAdAccounts(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestAccountPath(t *testing.T) {
	assert.Equal(t, "act_123", accountPath("123"))
	assert.Equal(t, "act_123", accountPath("act_123"))
}
