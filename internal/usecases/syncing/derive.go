package syncing

import (
	"fmt"
	"time"

	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/pkg/daterange"
	"github.com/vfg2006/traffic-ledger/pkg/money"
)

const dateLayout = time.DateOnly

type objectKey struct {
	level      domain.ObjectLevel
	externalID string
}

// DeriveObjects extrai os objetos distintos da hierarquia a partir das linhas de desempenho.
// IDs que aparecem juntos numa linha definem os vínculos: anúncio > conjunto > campanha.
// Os objetos saem sem ParentID; os vínculos são aplicados depois, em LinkParents.
func DeriveObjects(accountID string, rows []*domain.PerformanceRow) ([]*domain.HierarchyObject, []domain.ParentLink) {
	objects := make([]*domain.HierarchyObject, 0)
	index := make(map[objectKey]*domain.HierarchyObject)
	links := make([]domain.ParentLink, 0)
	linked := make(map[string]struct{})

	add := func(level domain.ObjectLevel, externalID, name, status string, raw []byte) {
		if externalID == "" {
			return
		}
		key := objectKey{level: level, externalID: externalID}
		if obj, ok := index[key]; ok {
			if name != "" {
				obj.Name = name
			}
			if status != "" {
				obj.Status = status
			}
			if raw != nil {
				obj.Raw = raw
			}
			return
		}

		obj := &domain.HierarchyObject{
			AccountID:  accountID,
			ExternalID: externalID,
			Level:      level,
			Name:       name,
			Status:     status,
			Raw:        raw,
		}
		index[key] = obj
		objects = append(objects, obj)
	}

	link := func(child, parent string) {
		if child == "" || parent == "" || child == parent {
			return
		}
		if _, ok := linked[child]; ok {
			return
		}
		linked[child] = struct{}{}
		links = append(links, domain.ParentLink{ChildExternalID: child, ParentExternalID: parent})
	}

	for _, row := range rows {
		raw, _ := json.Marshal(rawObject(row))

		// ancestrais presentes na linha também viram objetos, mesmo sem linhas próprias
		add(domain.LevelCampaign, row.CampaignID, row.CampaignName, "", nil)
		if row.Level == domain.LevelAd {
			add(domain.LevelAdSet, row.AdSetID, row.AdSetName, "", nil)
		}
		add(row.Level, row.EntityID(), row.EntityName(), row.Status, raw)

		if row.Level == domain.LevelAd {
			link(row.AdID, row.AdSetID)
			link(row.AdSetID, row.CampaignID)
		}
		if row.Level == domain.LevelAdSet {
			link(row.AdSetID, row.CampaignID)
		}
	}

	return objects, links
}

func rawObject(row *domain.PerformanceRow) map[string]any {
	raw := map[string]any{
		"id":    row.EntityID(),
		"name":  row.EntityName(),
		"level": row.Level,
	}
	if row.Objective != "" {
		raw["objective"] = row.Objective
	}
	if row.Status != "" {
		raw["status"] = row.Status
	}
	if parent := row.ParentID(); parent != "" {
		raw["parent_id"] = parent
	}
	return raw
}

// DeriveFacts converte cada linha em um fato de um único dia local da conta.
// objectIDs mapeia o ID externo para o ID interno devolvido por UpsertObjects.
func DeriveFacts(
	rows []*domain.PerformanceRow,
	objectIDs map[string]string,
	account *domain.AdAccount,
	collectedAt time.Time,
	loc *time.Location,
) ([]*domain.Fact, error) {
	facts := make([]*domain.Fact, 0, len(rows))

	for _, row := range rows {
		objectID, ok := objectIDs[row.EntityID()]
		if !ok {
			return nil, fmt.Errorf("%w: %s %s", ErrUnknownObject, row.Level, row.EntityID())
		}

		day, _, err := daterange.DayIn(row.Date, loc)
		if err != nil {
			return nil, err
		}

		amount, err := money.ToMinorUnits(row.Spend, account.Currency)
		if err != nil {
			return nil, fmt.Errorf("linha %s %s: %w", row.EntityID(), row.Date, err)
		}

		var metrics []byte
		if len(row.Extra) > 0 {
			metrics, err = json.Marshal(row.Extra)
			if err != nil {
				return nil, err
			}
		}

		facts = append(facts, &domain.Fact{
			ObjectID:    objectID,
			AccountID:   account.ID,
			CollectedAt: collectedAt,
			PeriodStart: day,
			PeriodEnd:   day,
			AmountMinor: amount,
			Currency:    account.Currency,
			Impressions: row.Impressions,
			Clicks:      row.Clicks,
			Conversions: row.Conversions,
			Metrics:     metrics,
			Level:       row.Level,
		})
	}

	return facts, nil
}
