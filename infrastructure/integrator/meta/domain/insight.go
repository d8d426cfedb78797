package metadomain

import (
	"strconv"

	"github.com/sirupsen/logrus"
)

type Action struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// InsightRow é uma linha de /insights com time_increment=1. Números chegam como string.
type InsightRow struct {
	AccountID      string   `json:"account_id"`
	CampaignID     string   `json:"campaign_id"`
	CampaignName   string   `json:"campaign_name"`
	AdSetID        string   `json:"adset_id,omitempty"`
	AdSetName      string   `json:"adset_name,omitempty"`
	AdID           string   `json:"ad_id,omitempty"`
	AdName         string   `json:"ad_name,omitempty"`
	DateStart      string   `json:"date_start"`
	DateStop       string   `json:"date_stop"`
	Spend          string   `json:"spend"`
	Impressions    string   `json:"impressions"`
	Clicks         string   `json:"clicks"`
	Reach          string   `json:"reach,omitempty"`
	Frequency      string   `json:"frequency,omitempty"`
	Objective      string   `json:"objective,omitempty"`
	Actions        []Action `json:"actions,omitempty"`
	CostPerActions []Action `json:"cost_per_action_type,omitempty"`
}

type InsightsResponse struct {
	Data   []InsightRow `json:"data"`
	Paging Paging       `json:"paging"`
}

// Mapeamento de "objective" -> "action_type" que conta como resultado
var MetaObjectiveToActionType = map[string]string{
	"LINK_CLICKS":           "link_click",
	"POST_ENGAGEMENT":       "post_engagement",
	"PAGE_LIKES":            "like",
	"VIDEO_VIEWS":           "video_view",
	"LEAD_GENERATION":       "lead",
	"CONVERSIONS":           "offsite_conversion",
	"APP_INSTALLS":          "app_install",
	"PRODUCT_CATALOG_SALES": "offsite_conversion.fb_pixel_purchase",
	"MESSAGES":              "onsite_conversion.messaging_first_reply",
	"BRAND_AWARENESS":       "brand_awareness",
	"REACH":                 "reach",
	"STORE_TRAFFIC":         "store_visit",
	"EVENT_RESPONSES":       "rsvp",
	"ADD_TO_CART":           "offsite_conversion.fb_pixel_add_to_cart",
	"PURCHASE":              "offsite_conversion.fb_pixel_purchase",
	"OUTCOME_ENGAGEMENT":    "onsite_conversion.messaging_conversation_started_7d",
	"OUTCOME_LEADS":         "lead",
	"OUTCOME_SALES":         "offsite_conversion.fb_pixel_purchase",
	"OUTCOME_TRAFFIC":       "link_click",
}

// GetResult retorna a quantidade de conversões do objetivo da linha.
// Objetivos sem mapeamento contam zero.
func (r *InsightRow) GetResult() int64 {
	actionType, ok := MetaObjectiveToActionType[r.Objective]
	if !ok {
		if r.Objective != "" {
			logrus.WithField("objective", r.Objective).Debug("Objective not mapped")
		}
		return 0
	}

	for _, action := range r.Actions {
		if action.ActionType != actionType {
			continue
		}

		value, err := strconv.ParseFloat(action.Value, 64)
		if err != nil {
			logrus.WithError(err).WithField("action_type", action.ActionType).Error("Erro ao converter valor da ação")
			return 0
		}

		return int64(value)
	}

	return 0
}

// ActionsMap achata a lista de ações para o blob de métricas extras
func (r *InsightRow) ActionsMap() map[string]float64 {
	if len(r.Actions) == 0 {
		return nil
	}

	actions := make(map[string]float64, len(r.Actions))
	for _, action := range r.Actions {
		value, err := strconv.ParseFloat(action.Value, 64)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"action_type":  action.ActionType,
				"action_value": action.Value,
			}).Warn("insights: error converting action value to float")
			continue
		}
		actions[action.ActionType] = value
	}

	return actions
}
