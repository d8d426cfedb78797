package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/pkg/money"
	"github.com/vfg2006/traffic-ledger/pkg/utils"
)

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// ComputeRatios deriva CTR (%), CPC e CPM (unidade principal) dos totais.
// Qualquer razão com denominador zero vale 0.
func ComputeRatios(spendMinor int64, currency string, impressions, clicks int64) domain.Ratios {
	spend := money.FromMinorUnits(spendMinor, currency)
	ratios := domain.Ratios{}

	if impressions > 0 {
		imp := decimal.NewFromInt(impressions)
		ratios.CTR = utils.RoundWithTwoDecimalPlace(decimal.NewFromInt(clicks).Mul(hundred).Div(imp))
		ratios.CPM = utils.RoundWithTwoDecimalPlace(spend.Mul(thousand).Div(imp))
	}

	if clicks > 0 {
		ratios.CPC = utils.RoundWithTwoDecimalPlace(spend.Div(decimal.NewFromInt(clicks)))
	}

	return ratios
}

func spendOf(t domain.Totals, currency string) float64 {
	return money.FromMinorUnits(t.SpendMinor, currency).InexactFloat64()
}
