package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vfg2006/traffic-ledger/internal/api/handler/router"
	"github.com/vfg2006/traffic-ledger/internal/jobqueue"
	"github.com/vfg2006/traffic-ledger/internal/usecases/ledger"
	"github.com/vfg2006/traffic-ledger/internal/usecases/syncing"
)

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
	}
}

func Metrics() []router.Route {
	return []router.Route{
		{
			Path:    "/metrics",
			Method:  http.MethodGet,
			Handler: promhttp.Handler(),
		},
	}
}

func Sync(syncer syncing.Syncer, jobs jobqueue.Enqueuer) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/sync",
			Method:  http.MethodPost,
			Handler: StartSync(syncer),
		},
		{
			Path:    "/v1/sync/:batch_id/jobs",
			Method:  http.MethodGet,
			Handler: ListBatchJobs(jobs),
		},
	}
}

func Jobs(jobs jobqueue.Enqueuer) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/jobs/:id",
			Method:  http.MethodGet,
			Handler: GetJob(jobs),
		},
	}
}

func Ledger(reader ledger.Reader) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/ledger/accounts",
			Method:  http.MethodGet,
			Handler: AccountRollup(reader),
		},
		{
			Path:    "/v1/ledger/accounts/:id/objects",
			Method:  http.MethodGet,
			Handler: ListObjects(reader),
		},
	}
}

func CronJobs(services CronJobServices) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/cron/:type/run",
			Method:  http.MethodPost,
			Handler: RunCronJob(services),
		},
		{
			Path:    "/v1/cron/status",
			Method:  http.MethodGet,
			Handler: GetCronStatus(services),
		},
	}
}
