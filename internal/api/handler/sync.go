package handler

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/internal/jobqueue"
	"github.com/vfg2006/traffic-ledger/internal/usecases/syncing"
	"github.com/vfg2006/traffic-ledger/pkg/apiErrors"
	"github.com/vfg2006/traffic-ledger/pkg/log"
)

// StartSync recebe o intervalo, divide em pedaços e devolve o lote enfileirado
func StartSync(syncer syncing.Syncer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())
		logger.Info("INIT - StartSync")

		var request domain.SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Corpo da requisição inválido", nil)
			return
		}

		resp, err := syncer.StartSync(r.Context(), &request)
		if err != nil {
			logger.WithError(err).Error("Erro ao iniciar sincronização")

			var syncErr *syncing.SyncError
			if errors.As(err, &syncErr) {
				apiErrors.WriteError(w, syncErr.Code, syncErr.Error(), nil)
				return
			}

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao iniciar sincronização", nil)
			return
		}

		logger.WithFields(log.Fields{
			"batch_id": resp.BatchID,
			"chunks":   resp.Chunks,
		}).Info("Sincronização enfileirada")

		writeJSON(w, http.StatusAccepted, resp)
	})
}

// ListBatchJobs lista os jobs de um lote na ordem de submissão
func ListBatchJobs(jobs jobqueue.Enqueuer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		batchID := httprouter.ParamsFromContext(r.Context()).ByName("batch_id")
		if batchID == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "batch_id é obrigatório", nil)
			return
		}

		list, err := jobs.ListByBatch(r.Context(), batchID)
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("Erro ao listar jobs do lote")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao listar jobs do lote", nil)
			return
		}

		if list == nil {
			list = []*domain.Job{}
		}

		writeJSON(w, http.StatusOK, list)
	})
}
