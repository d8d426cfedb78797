package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/vfg2006/traffic-ledger/internal/usecases/ledger"
	"github.com/vfg2006/traffic-ledger/pkg/apiErrors"
	"github.com/vfg2006/traffic-ledger/pkg/daterange"
	"github.com/vfg2006/traffic-ledger/pkg/log"
)

// AccountRollup devolve os totais por conta somando apenas anúncios
func AccountRollup(reader ledger.Reader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		start, end, ok := parsePeriod(w, query.Get("start"), query.Get("end"))
		if !ok {
			return
		}

		var accountIDs []string
		if raw := query.Get("account_id"); raw != "" {
			accountIDs = strings.Split(raw, ",")
		}

		rollups, err := reader.AccountRollup(r.Context(), ledger.RollupQuery{
			Start:      start,
			End:        end,
			AccountIDs: accountIDs,
		})
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("Erro ao consolidar contas")
			writeLedgerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, rollups)
	})
}

// ListObjects devolve uma página dos filhos de parent_id; sem parent_id lista as campanhas
func ListObjects(reader ledger.Reader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		accountID := httprouter.ParamsFromContext(r.Context()).ByName("id")

		start, end, ok := parsePeriod(w, query.Get("start"), query.Get("end"))
		if !ok {
			return
		}

		page, err := parseOptionalInt(query.Get("page"))
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "page deve ser numérico", nil)
			return
		}
		pageSize, err := parseOptionalInt(query.Get("page_size"))
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "page_size deve ser numérico", nil)
			return
		}

		var parentID *string
		if raw := query.Get("parent_id"); raw != "" {
			parentID = &raw
		}

		result, err := reader.ListObjects(r.Context(), ledger.ObjectQuery{
			AccountID: accountID,
			ParentID:  parentID,
			Start:     start,
			End:       end,
			Page:      page,
			PageSize:  pageSize,
		})
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("Erro ao listar objetos")
			writeLedgerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func parsePeriod(w http.ResponseWriter, rawStart, rawEnd string) (time.Time, time.Time, bool) {
	if rawStart == "" || rawEnd == "" {
		apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "start e end são obrigatórios", nil)
		return time.Time{}, time.Time{}, false
	}

	start, err := daterange.ParseDate(rawStart)
	if err != nil {
		apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "start deve estar no formato YYYY-MM-DD", nil)
		return time.Time{}, time.Time{}, false
	}

	end, err := daterange.ParseDate(rawEnd)
	if err != nil {
		apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "end deve estar no formato YYYY-MM-DD", nil)
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}

func parseOptionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidRange):
		apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
	case errors.Is(err, ledger.ErrAccountNotFound):
		apiErrors.WriteError(w, apiErrors.ErrAccountNotFound, "Conta não encontrada", nil)
	case errors.Is(err, ledger.ErrObjectNotFound):
		apiErrors.WriteError(w, apiErrors.ErrObjectNotFound, "Objeto não encontrado", nil)
	default:
		apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao consultar o ledger", nil)
	}
}
