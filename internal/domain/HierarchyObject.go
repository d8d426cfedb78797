package domain

import (
	"encoding/json"
	"fmt"
)

// ObjectLevel é o nível de um objeto na árvore campanha > conjunto de anúncios > anúncio
type ObjectLevel string

const (
	LevelCampaign ObjectLevel = "campaign"
	LevelAdSet    ObjectLevel = "adset"
	LevelAd       ObjectLevel = "ad"
)

// Levels na ordem em que são buscados na plataforma (topo até folha)
var Levels = []ObjectLevel{LevelCampaign, LevelAdSet, LevelAd}

func ParseObjectLevel(s string) (ObjectLevel, error) {
	switch l := ObjectLevel(s); l {
	case LevelCampaign, LevelAdSet, LevelAd:
		return l, nil
	default:
		return "", fmt.Errorf("nível de objeto inválido: %q", s)
	}
}

// ParentLevel retorna o nível imediatamente acima, ou vazio para campanhas
func (l ObjectLevel) ParentLevel() ObjectLevel {
	switch l {
	case LevelAd:
		return LevelAdSet
	case LevelAdSet:
		return LevelCampaign
	default:
		return ""
	}
}

// IsLeaf indica se o nível é terminal (anúncio). Apenas fatos de folhas entram no total da conta.
func (l ObjectLevel) IsLeaf() bool {
	return l == LevelAd
}

type HierarchyObject struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	ExternalID string          `json:"external_id"`
	Level      ObjectLevel     `json:"level"`
	Name       string          `json:"name"`
	Status     string          `json:"status"`
	ParentID   *string         `json:"parent_id"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// ParentLink liga um objeto ao seu pai pelos IDs externos. Resolvido numa segunda etapa,
// depois que todos os objetos do lote já existem.
type ParentLink struct {
	ChildExternalID  string
	ParentExternalID string
}
