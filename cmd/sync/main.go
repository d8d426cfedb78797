package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/vfg2006/traffic-ledger/infrastructure/database/postgres"
	"github.com/vfg2006/traffic-ledger/infrastructure/repository"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/internal/jobqueue"
	"github.com/vfg2006/traffic-ledger/internal/usecases/syncing"
	"github.com/vfg2006/traffic-ledger/pkg/log"
	"github.com/vfg2006/traffic-ledger/pkg/utils"
)

// Enfileira um lote de sincronização para o intervalo informado.
// Os jobs são executados pelos workers do processo da API.
func main() {
	start := pflag.String("start", "", "data inicial (YYYY-MM-DD)")
	end := pflag.String("end", "", "data final (YYYY-MM-DD), inclusiva")
	pflag.Parse()

	if *start == "" || *end == "" {
		fmt.Fprintln(os.Stderr, "uso: sync --start YYYY-MM-DD --end YYYY-MM-DD")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}
	log.Setup(cfg.App.LogLevel)

	ctx := context.Background()

	conn, err := postgres.NewConnection(ctx, cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}
	defer conn.Close()

	queue := jobqueue.New(repository.NewJobRepository(conn), jobqueue.OptionsFromConfig(cfg.JobQueue))
	service := syncing.NewService(cfg.Sync, queue)

	resp, err := service.StartSync(ctx, &domain.SyncRequest{StartDate: *start, EndDate: *end})
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao iniciar sincronização")
	}

	fmt.Println(utils.PrettyJson(resp))
}
