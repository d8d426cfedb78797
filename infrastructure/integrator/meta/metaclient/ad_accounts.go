package metaclient

import (
	"context"
	"net/url"
	"strconv"

	metadomain "github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta/domain"
)

const adAccountFields = "id,account_id,name,currency,timezone_name,timezone_offset_hours_utc,account_status"

// GetAdAccounts busca uma página das contas acessíveis pelo token a partir do cursor after
func (c *MetaClient) GetAdAccounts(ctx context.Context, after string) (*metadomain.AdAccountsResponse, error) {
	params := url.Values{}
	params.Add("fields", adAccountFields)
	params.Add("limit", strconv.Itoa(c.pageSize()))
	if after != "" {
		params.Add("after", after)
	}

	var response metadomain.AdAccountsResponse
	if err := c.get(ctx, "ad_accounts", "me/adaccounts", params, &response); err != nil {
		return nil, err
	}

	return &response, nil
}
