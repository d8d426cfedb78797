package meta

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	metadomain "github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta/domain"
	"github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta/metaclient"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/pkg/daterange"
)

// ErrPaginationLimit indica que a paginação passou de META_MAX_PAGES
var ErrPaginationLimit = errors.New("meta: limite de páginas excedido")

type Integrator interface {
	ListAccounts(ctx context.Context) ([]*domain.AdAccount, error)
	ListPerformanceRows(ctx context.Context, accountExternalID string, level domain.ObjectLevel, window daterange.Window) ([]*domain.PerformanceRow, error)
}

type MetaIntegrator struct {
	cfg    *config.Meta
	Client metaclient.Client
}

func New(cfg *config.Meta, client metaclient.Client) *MetaIntegrator {
	return &MetaIntegrator{
		cfg:    cfg,
		Client: client,
	}
}

// checkPage retorna ErrPaginationLimit quando page ultrapassa o limite configurado (0 = sem limite)
func (s *MetaIntegrator) checkPage(page int) error {
	if s.cfg.MaxPages > 0 && page > s.cfg.MaxPages {
		return fmt.Errorf("%w: %d páginas", ErrPaginationLimit, s.cfg.MaxPages)
	}
	return nil
}

// ListAccounts segue os cursores até a última página de contas
func (s *MetaIntegrator) ListAccounts(ctx context.Context) ([]*domain.AdAccount, error) {
	accounts := make([]*domain.AdAccount, 0)
	after := ""

	for page := 1; ; page++ {
		if err := s.checkPage(page); err != nil {
			return nil, err
		}

		resp, err := s.Client.GetAdAccounts(ctx, after)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"page":  page,
				"error": err.Error(),
			}).Error("insights: failed to get ad accounts")
			return nil, err
		}

		for _, acc := range resp.Data {
			accounts = append(accounts, &domain.AdAccount{
				ExternalID:          acc.ID,
				Name:                acc.Name,
				Currency:            acc.Currency,
				TimezoneName:        acc.TimezoneName,
				TimezoneOffsetHours: acc.TimezoneOffsetHoursUTC,
			})
		}

		if !resp.Paging.HasNext() || len(resp.Data) == 0 {
			break
		}
		after = resp.Paging.Cursors.After
	}

	logrus.WithField("total_accounts", len(accounts)).Info("insights: successfully retrieved all ad accounts")

	return accounts, nil
}

// ListPerformanceRows busca as linhas diárias de um nível da conta dentro da janela local
func (s *MetaIntegrator) ListPerformanceRows(
	ctx context.Context,
	accountExternalID string,
	level domain.ObjectLevel,
	window daterange.Window,
) ([]*domain.PerformanceRow, error) {
	params := metaclient.InsightsParams{
		AccountID: accountExternalID,
		Level:     string(level),
		Since:     window.SinceDate(),
		Until:     window.UntilDate(),
	}

	rows := make([]*domain.PerformanceRow, 0)

	for page := 1; ; page++ {
		if err := s.checkPage(page); err != nil {
			return nil, err
		}

		resp, err := s.Client.GetInsights(ctx, params)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"account_id": accountExternalID,
				"level":      level,
				"page":       page,
				"error":      err.Error(),
			}).Error("insights: failed to get insights from API")
			return nil, err
		}

		for i := range resp.Data {
			row, err := FactoryPerformanceRow(level, &resp.Data[i])
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}

		if !resp.Paging.HasNext() || len(resp.Data) == 0 {
			break
		}
		params.After = resp.Paging.Cursors.After
	}

	logrus.WithFields(logrus.Fields{
		"account_id": accountExternalID,
		"level":      level,
		"since":      params.Since,
		"until":      params.Until,
		"rows":       len(rows),
	}).Debug("insights: successfully retrieved performance rows")

	return rows, nil
}

// FactoryPerformanceRow converte uma linha da Graph API para o formato neutro de plataforma
func FactoryPerformanceRow(level domain.ObjectLevel, in *metadomain.InsightRow) (*domain.PerformanceRow, error) {
	impressions, err := parseCount(in.Impressions)
	if err != nil {
		return nil, fmt.Errorf("impressions inválido na linha %s/%s: %w", in.CampaignID, in.DateStart, err)
	}

	clicks, err := parseCount(in.Clicks)
	if err != nil {
		return nil, fmt.Errorf("clicks inválido na linha %s/%s: %w", in.CampaignID, in.DateStart, err)
	}

	extra := make(map[string]any)
	if in.Reach != "" {
		if reach, err := strconv.ParseInt(in.Reach, 10, 64); err == nil {
			extra["reach"] = reach
		}
	}
	if in.Frequency != "" {
		if frequency, err := strconv.ParseFloat(in.Frequency, 64); err == nil {
			extra["frequency"] = frequency
		}
	}
	if actions := in.ActionsMap(); actions != nil {
		extra["actions"] = actions
	}
	if len(extra) == 0 {
		extra = nil
	}

	return &domain.PerformanceRow{
		Level:        level,
		Date:         in.DateStart,
		Spend:        in.Spend,
		Impressions:  impressions,
		Clicks:       clicks,
		Conversions:  in.GetResult(),
		Objective:    in.Objective,
		CampaignID:   in.CampaignID,
		CampaignName: in.CampaignName,
		AdSetID:      in.AdSetID,
		AdSetName:    in.AdSetName,
		AdID:         in.AdID,
		AdName:       in.AdName,
		Extra:        extra,
	}, nil
}

func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
