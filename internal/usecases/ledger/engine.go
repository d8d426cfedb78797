package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
)

var (
	ErrInvalidRange    = errors.New("ledger: invalid date range")
	ErrAccountNotFound = errors.New("ledger: account not found")
	ErrObjectNotFound  = errors.New("ledger: object not found")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type RollupQuery struct {
	Start      time.Time
	End        time.Time
	AccountIDs []string
}

// ObjectQuery lista os filhos imediatos de ParentID dentro da conta; nil lista as campanhas
type ObjectQuery struct {
	AccountID string
	ParentID  *string
	Start     time.Time
	End       time.Time
	Page      int
	PageSize  int
}

type Reader interface {
	AccountRollup(ctx context.Context, q RollupQuery) ([]*domain.AccountRollup, error)
	ListObjects(ctx context.Context, q ObjectQuery) (*domain.ObjectPage, error)
}

// Engine agrega os fatos atuais sob demanda. Nada é pré-calculado na escrita.
type Engine struct {
	cfg      config.Ledger
	accounts AccountReader
	objects  ObjectReader
	facts    FactReader
}

func NewEngine(cfg config.Ledger, accounts AccountReader, objects ObjectReader, facts FactReader) *Engine {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = maxPageSize
	}

	return &Engine{
		cfg:      cfg,
		accounts: accounts,
		objects:  objects,
		facts:    facts,
	}
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start e end são obrigatórios", ErrInvalidRange)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end anterior a start", ErrInvalidRange)
	}
	return nil
}

// AccountRollup soma apenas fatos de folhas (anúncios) por conta.
// Somar também campanhas e conjuntos contaria o mesmo gasto mais de uma vez.
func (e *Engine) AccountRollup(ctx context.Context, q RollupQuery) ([]*domain.AccountRollup, error) {
	if err := validateRange(q.Start, q.End); err != nil {
		return nil, err
	}

	accounts, err := e.accounts.ListAccounts(ctx, q.AccountIDs)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar contas: %w", err)
	}
	if len(accounts) == 0 {
		return []*domain.AccountRollup{}, nil
	}

	ids := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		ids = append(ids, acc.ID)
	}

	facts, err := e.facts.ListCurrentFacts(ctx, domain.FactQuery{
		Start:      q.Start,
		End:        q.End,
		AccountIDs: ids,
		Level:      domain.LevelAd,
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar fatos: %w", err)
	}

	totals := make(map[string]*domain.Totals, len(accounts))
	for _, f := range ResolveCurrent(facts) {
		if !f.Level.IsLeaf() {
			continue
		}
		t, ok := totals[f.AccountID]
		if !ok {
			t = &domain.Totals{}
			totals[f.AccountID] = t
		}
		t.Add(f)
	}

	rollups := make([]*domain.AccountRollup, 0, len(accounts))
	for _, acc := range accounts {
		t := domain.Totals{}
		if found, ok := totals[acc.ID]; ok {
			t = *found
		}

		rollups = append(rollups, &domain.AccountRollup{
			AccountID:  acc.ID,
			ExternalID: acc.ExternalID,
			Name:       acc.Name,
			Currency:   acc.Currency,
			Spend:      spendOf(t, acc.Currency),
			Totals:     t,
			Ratios:     ComputeRatios(t.SpendMinor, acc.Currency, t.Impressions, t.Clicks),
		})
	}

	sort.SliceStable(rollups, func(i, j int) bool {
		if rollups[i].SpendMinor != rollups[j].SpendMinor {
			return rollups[i].SpendMinor > rollups[j].SpendMinor
		}
		if rollups[i].Name != rollups[j].Name {
			return rollups[i].Name < rollups[j].Name
		}
		return rollups[i].AccountID < rollups[j].AccountID
	})

	return rollups, nil
}

// ListObjects devolve uma página dos filhos imediatos com os agregados dos fatos atuais
// de cada filho, ordenada por gasto decrescente.
func (e *Engine) ListObjects(ctx context.Context, q ObjectQuery) (*domain.ObjectPage, error) {
	if err := validateRange(q.Start, q.End); err != nil {
		return nil, err
	}

	page, pageSize := e.normalizePage(q.Page, q.PageSize)

	account, err := e.accounts.GetAccountByID(ctx, q.AccountID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar conta: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	var parent *domain.HierarchyObject
	if q.ParentID != nil {
		parent, err = e.objects.GetObject(ctx, *q.ParentID)
		if err != nil {
			return nil, fmt.Errorf("erro ao buscar objeto pai: %w", err)
		}
		if parent == nil || parent.AccountID != account.ID {
			return nil, ErrObjectNotFound
		}
	}

	children, err := e.objects.ListChildren(ctx, account.ID, q.ParentID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar objetos: %w", err)
	}

	result := &domain.ObjectPage{
		Items:    []*domain.ObjectRow{},
		Page:     page,
		PageSize: pageSize,
		Total:    len(children),
	}
	if len(children) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(children))
	for _, child := range children {
		ids = append(ids, child.ID)
	}

	facts, err := e.facts.ListCurrentFacts(ctx, domain.FactQuery{
		Start:      q.Start,
		End:        q.End,
		AccountIDs: []string{account.ID},
		ObjectIDs:  ids,
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar fatos: %w", err)
	}

	totals := make(map[string]*domain.Totals, len(children))
	for _, f := range ResolveCurrent(facts) {
		t, ok := totals[f.ObjectID]
		if !ok {
			t = &domain.Totals{}
			totals[f.ObjectID] = t
		}
		t.Add(f)
	}

	rows := make([]*domain.ObjectRow, 0, len(children))
	for _, child := range children {
		t := domain.Totals{}
		if found, ok := totals[child.ID]; ok {
			t = *found
		}

		row := &domain.ObjectRow{
			ID:         child.ID,
			ExternalID: child.ExternalID,
			Level:      child.Level,
			Name:       child.Name,
			Status:     child.Status,
			ParentID:   child.ParentID,
			Currency:   account.Currency,
			Spend:      spendOf(t, account.Currency),
			Totals:     t,
			Ratios:     ComputeRatios(t.SpendMinor, account.Currency, t.Impressions, t.Clicks),
		}
		if parent != nil {
			row.ParentName = parent.Name
			row.ParentLevel = parent.Level
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SpendMinor != rows[j].SpendMinor {
			return rows[i].SpendMinor > rows[j].SpendMinor
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ID < rows[j].ID
	})

	from := (page - 1) * pageSize
	if from >= len(rows) {
		return result, nil
	}
	to := from + pageSize
	if to > len(rows) {
		to = len(rows)
	}
	result.Items = rows[from:to]

	return result, nil
}

func (e *Engine) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = e.cfg.DefaultPageSize
	}
	if pageSize > e.cfg.MaxPageSize {
		pageSize = e.cfg.MaxPageSize
	}
	return page, pageSize
}
