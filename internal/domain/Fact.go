package domain

import (
	"encoding/json"
	"time"
)

// Fact é um registro imutável de desempenho de um objeto em um único dia.
// Correções são novas linhas com CollectedAt maior para a mesma chave (ObjectID, PeriodStart).
type Fact struct {
	ID          int64           `json:"id"`
	ObjectID    string          `json:"object_id"`
	AccountID   string          `json:"account_id"`
	CollectedAt time.Time       `json:"collected_at"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	AmountMinor int64           `json:"amount_minor"`
	Currency    string          `json:"currency"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	Conversions int64           `json:"conversions"`
	Metrics     json.RawMessage `json:"metrics,omitempty"`

	// Preenchido apenas na leitura, a partir do objeto dono do fato
	Level ObjectLevel `json:"level,omitempty"`
}

// FactKey identifica a versão "atual" de um fato
type FactKey struct {
	ObjectID    string
	PeriodStart time.Time
}

func (f *Fact) Key() FactKey {
	return FactKey{ObjectID: f.ObjectID, PeriodStart: f.PeriodStart}
}

// FactQuery filtra fatos por janela de datas civis (inclusiva)
type FactQuery struct {
	Start      time.Time
	End        time.Time
	AccountIDs []string
	ObjectIDs  []string
	Level      ObjectLevel
}
