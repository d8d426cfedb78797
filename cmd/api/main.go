package main

import (
	"context"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/traffic-ledger/infrastructure/database/postgres"
	"github.com/vfg2006/traffic-ledger/infrastructure/events"
	"github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta"
	"github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta/metaclient"
	"github.com/vfg2006/traffic-ledger/infrastructure/migration"
	"github.com/vfg2006/traffic-ledger/infrastructure/repository"
	"github.com/vfg2006/traffic-ledger/internal/api"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/jobqueue"
	"github.com/vfg2006/traffic-ledger/internal/scheduler"
	"github.com/vfg2006/traffic-ledger/internal/usecases/ledger"
	"github.com/vfg2006/traffic-ledger/internal/usecases/syncing"
	"github.com/vfg2006/traffic-ledger/pkg/log"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	log.Setup(cfg.App.LogLevel)
	logrus.Infof("Nível de log configurado para: %s", logrus.GetLevel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	if cfg.Database.MigrateOnStart {
		if err := migration.Up(pgConn.DB); err != nil {
			logrus.WithError(err).Fatal("Erro ao aplicar migrações")
		}
	}

	connectionRepo := repository.NewConnectionRepository(pgConn)
	accountRepo := repository.NewAccountRepository(pgConn)
	objectRepo := repository.NewHierarchyObjectRepository(pgConn)
	factRepo := repository.NewFactRepository(pgConn)
	jobRepo := repository.NewJobRepository(pgConn)

	metaClient := metaclient.NewClient(&cfg.Meta)
	metaIntegrator := meta.New(&cfg.Meta, metaClient)

	publisher := events.NewPublisher(cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			logrus.WithError(err).Warn("Erro ao fechar publicador de eventos")
		}
	}()

	queue := jobqueue.New(jobRepo, jobqueue.OptionsFromConfig(cfg.JobQueue))

	orchestrator := syncing.NewOrchestrator(cfg, metaIntegrator, connectionRepo, accountRepo, objectRepo, factRepo, publisher)
	queue.Register(syncing.TaskChunkSync, orchestrator.Handle, orchestrator.TaskOptions())

	if cfg.JobQueue.Enabled {
		go func() {
			if err := queue.Run(ctx); err != nil {
				logrus.WithError(err).Error("Erro ao executar a fila de jobs")
			}
		}()
	} else {
		logrus.Info("Workers da fila desabilitados; jobs apenas enfileirados")
	}

	syncService := syncing.NewService(cfg.Sync, queue)
	ledgerEngine := ledger.NewEngine(cfg.Ledger, accountRepo, objectRepo, factRepo)

	// Desabilitado por configuração, o agendador ainda aceita execução manual
	dailySyncService := scheduler.NewDailySyncService(syncService, cfg)
	if err := dailySyncService.Start(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar o agendador de sincronização diária")
	}

	server, err := api.New(cfg, syncService, queue, ledgerEngine, dailySyncService)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// pgconn cria uma conexão com o banco de dados
func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}

	err = conn.Ping(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao testar conexão com PostgreSQL")
	}

	logrus.Info("Conexão com PostgreSQL estabelecida com sucesso")
	return conn
}
