package metaclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	metadomain "github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta/domain"
)

var levelFields = map[string]string{
	"campaign": "campaign_id,campaign_name",
	"adset":    "campaign_id,campaign_name,adset_id,adset_name",
	"ad":       "campaign_id,campaign_name,adset_id,adset_name,ad_id,ad_name",
}

const metricFields = "account_id,date_start,date_stop,spend,impressions,clicks,reach,frequency,objective,actions,cost_per_action_type"

// InsightsParams descreve uma página de insights diários de uma conta em um nível.
// Since e Until são datas civis inclusivas no fuso da conta (YYYY-MM-DD).
type InsightsParams struct {
	AccountID string
	Level     string
	Since     string
	Until     string
	After     string
}

func (c *MetaClient) GetInsights(ctx context.Context, p InsightsParams) (*metadomain.InsightsResponse, error) {
	fields, ok := levelFields[p.Level]
	if !ok {
		return nil, fmt.Errorf("nível de insights inválido: %q", p.Level)
	}

	timeRange := fmt.Sprintf("{\"since\":\"%s\",\"until\":\"%s\"}", p.Since, p.Until)

	params := url.Values{}
	params.Add("level", p.Level)
	params.Add("fields", fields+","+metricFields)
	params.Add("time_range", timeRange)
	params.Add("time_increment", "1")
	params.Add("limit", strconv.Itoa(c.pageSize()))
	if p.After != "" {
		params.Add("after", p.After)
	}

	var response metadomain.InsightsResponse
	if err := c.get(ctx, "insights_"+p.Level, accountPath(p.AccountID)+"/insights", params, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// accountPath garante o prefixo act_ exigido pela Graph API
func accountPath(accountID string) string {
	if len(accountID) > 4 && accountID[:4] == "act_" {
		return accountID
	}
	return "act_" + accountID
}
