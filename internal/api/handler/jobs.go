package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/vfg2006/traffic-ledger/internal/jobqueue"
	"github.com/vfg2006/traffic-ledger/pkg/apiErrors"
	"github.com/vfg2006/traffic-ledger/pkg/log"
)

func GetJob(jobs jobqueue.Enqueuer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jobID := httprouter.ParamsFromContext(r.Context()).ByName("id")

		job, err := jobs.Get(r.Context(), jobID)
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("Erro ao buscar job")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao buscar job", nil)
			return
		}
		if job == nil {
			apiErrors.WriteError(w, apiErrors.ErrJobNotFound, "Job não encontrado", nil)
			return
		}

		writeJSON(w, http.StatusOK, job)
	})
}
