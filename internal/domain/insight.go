package domain

// PerformanceRow é uma linha diária de desempenho devolvida pela plataforma para um nível da hierarquia.
// Linhas de anúncio carregam também os IDs do conjunto e da campanha; linhas de conjunto, o da campanha.
type PerformanceRow struct {
	Level        ObjectLevel    `json:"level"`
	Date         string         `json:"date"`
	Spend        string         `json:"spend"`
	Impressions  int64          `json:"impressions"`
	Clicks       int64          `json:"clicks"`
	Conversions  int64          `json:"conversions"`
	Objective    string         `json:"objective,omitempty"`
	Status       string         `json:"status,omitempty"`
	CampaignID   string         `json:"campaign_id"`
	CampaignName string         `json:"campaign_name"`
	AdSetID      string         `json:"adset_id,omitempty"`
	AdSetName    string         `json:"adset_name,omitempty"`
	AdID         string         `json:"ad_id,omitempty"`
	AdName       string         `json:"ad_name,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// EntityID retorna o ID externo do objeto no nível da linha
func (r *PerformanceRow) EntityID() string {
	switch r.Level {
	case LevelAd:
		return r.AdID
	case LevelAdSet:
		return r.AdSetID
	default:
		return r.CampaignID
	}
}

func (r *PerformanceRow) EntityName() string {
	switch r.Level {
	case LevelAd:
		return r.AdName
	case LevelAdSet:
		return r.AdSetName
	default:
		return r.CampaignName
	}
}

// ParentID retorna o ID externo do pai imediato, inferido dos IDs presentes na mesma linha
func (r *PerformanceRow) ParentID() string {
	switch r.Level {
	case LevelAd:
		return r.AdSetID
	case LevelAdSet:
		return r.CampaignID
	default:
		return ""
	}
}
