package domain

// Totals são os agregados brutos de fatos atuais. Razões são sempre derivadas na leitura.
type Totals struct {
	SpendMinor  int64 `json:"spend_minor"`
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
	Conversions int64 `json:"conversions"`
}

func (t *Totals) Add(f *Fact) {
	t.SpendMinor += f.AmountMinor
	t.Impressions += f.Impressions
	t.Clicks += f.Clicks
	t.Conversions += f.Conversions
}

// Ratios derivadas dos totais. CTR em percentual, CPC e CPM na unidade principal da moeda.
type Ratios struct {
	CTR float64 `json:"ctr"`
	CPC float64 `json:"cpc"`
	CPM float64 `json:"cpm"`
}

type AccountRollup struct {
	AccountID  string  `json:"account_id"`
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	Currency   string  `json:"currency"`
	Spend      float64 `json:"spend"`
	Totals
	Ratios
}

type ObjectRow struct {
	ID          string      `json:"id"`
	ExternalID  string      `json:"external_id"`
	Level       ObjectLevel `json:"level"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	ParentID    *string     `json:"parent_id"`
	ParentName  string      `json:"parent_name,omitempty"`
	ParentLevel ObjectLevel `json:"parent_level,omitempty"`
	Currency    string      `json:"currency"`
	Spend       float64     `json:"spend"`
	Totals
	Ratios
}

type ObjectPage struct {
	Items    []*ObjectRow `json:"items"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Total    int          `json:"total"`
}
