package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/internal/usecases/syncing"
)

// DailySyncConfig representa a configuração da sincronização incremental diária
type DailySyncConfig struct {
	CronSchedule string
	LookbackDays int
	SyncEnabled  bool
}

// DailySyncService enfileira, no horário configurado, um lote de sincronização
// cobrindo os últimos LookbackDays dias já encerrados em todos os fusos. Reprocessar dias já
// sincronizados é intencional: correções da plataforma viram novos fatos.
type DailySyncService struct {
	scheduler           *gocron.Scheduler
	config              DailySyncConfig
	syncer              syncing.Syncer
	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
	lastBatchID         string
	lastError           string
	now                 func() time.Time
}

func NewDailySyncService(syncer syncing.Syncer, appConfig *config.Config) *DailySyncService {
	syncConfig := DailySyncConfig{
		CronSchedule: appConfig.DailySync.CronSchedule,
		LookbackDays: appConfig.DailySync.LookbackDays,
		SyncEnabled:  appConfig.DailySync.Enabled,
	}
	if syncConfig.LookbackDays < 1 {
		syncConfig.LookbackDays = 1
	}

	logrus.WithFields(logrus.Fields{
		"cron_schedule": syncConfig.CronSchedule,
		"lookback_days": syncConfig.LookbackDays,
		"sync_enabled":  syncConfig.SyncEnabled,
	}).Info("Configuração da sincronização diária carregada")

	return &DailySyncService{
		scheduler: gocron.NewScheduler(time.Local),
		config:    syncConfig,
		syncer:    syncer,
		now:       time.Now,
	}
}

// Start inicia o agendador
func (s *DailySyncService) Start(ctx context.Context) error {
	if !s.config.SyncEnabled {
		logrus.Info("Sincronização diária desabilitada por configuração")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Iniciando agendador de sincronização diária")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		s.runDailySync(ctx)
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar sincronização diária: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador de sincronização diária")
		s.scheduler.Stop()
	}()

	return nil
}

// latestClosedZone é o fuso mais atrasado em uso (UTC-12). O dia anterior nele
// já terminou em qualquer conta, independente do fuso do servidor.
var latestClosedZone = time.FixedZone("UTC-12", -12*60*60)

// Window devolve o intervalo de datas civis da próxima execução. O último dia é o
// último dia civil encerrado em todos os fusos.
func (s *DailySyncService) Window() (string, string) {
	local := s.now().In(latestClosedZone)
	end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(s.config.LookbackDays - 1))
	return start.Format(time.DateOnly), end.Format(time.DateOnly)
}

func (s *DailySyncService) runDailySync(ctx context.Context) {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Info("Sincronização diária já em andamento, ignorando")
		return
	}
	s.syncRunning = true
	s.lastSyncStartedAt = s.now()
	s.syncMutex.Unlock()

	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.syncMutex.Unlock()
	}()

	startDate, endDate := s.Window()
	logrus.WithFields(logrus.Fields{
		"start_date": startDate,
		"end_date":   endDate,
	}).Info("Enfileirando sincronização diária")

	resp, err := s.syncer.StartSync(ctx, &domain.SyncRequest{StartDate: startDate, EndDate: endDate})

	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	if err != nil {
		s.lastError = err.Error()
		logrus.WithError(err).Error("Erro ao enfileirar sincronização diária")
		return
	}

	s.lastError = ""
	s.lastBatchID = resp.BatchID
	s.lastSyncCompletedAt = s.now()

	logrus.WithFields(logrus.Fields{
		"batch_id": resp.BatchID,
		"chunks":   resp.Chunks,
	}).Info("Sincronização diária enfileirada")
}

// TriggerManualSync inicia manualmente a sincronização diária
func (s *DailySyncService) TriggerManualSync(ctx context.Context) {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Info("Sincronização diária já em andamento, ignorando solicitação manual")
		return
	}
	s.syncMutex.Unlock()

	logrus.Info("Iniciando sincronização diária manual")
	go s.runDailySync(context.WithoutCancel(ctx))
}

// GetStatus retorna o status atual do agendador
func (s *DailySyncService) GetStatus() map[string]any {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	return map[string]any{
		"sync_enabled":           s.config.SyncEnabled,
		"sync_cron":              s.config.CronSchedule,
		"sync_lookback_days":     s.config.LookbackDays,
		"sync_running":           s.syncRunning,
		"last_sync_started_at":   s.lastSyncStartedAt,
		"last_sync_completed_at": s.lastSyncCompletedAt,
		"last_batch_id":          s.lastBatchID,
		"last_error":             s.lastError,
	}
}
