package syncing

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
	"github.com/vfg2006/traffic-ledger/internal/jobqueue"
	"github.com/vfg2006/traffic-ledger/pkg/apiErrors"
	"github.com/vfg2006/traffic-ledger/pkg/daterange"
	"github.com/vfg2006/traffic-ledger/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TaskChunkSync é o tipo de tarefa que sincroniza um pedaço do intervalo
const TaskChunkSync = "meta.chunk_sync"

// SerializationKey garante que os pedaços de uma mesma integração rodem um de cada vez
func SerializationKey(platform domain.Platform) string {
	return "meta-sync:" + string(platform)
}

type Syncer interface {
	StartSync(ctx context.Context, request *domain.SyncRequest) (*domain.SyncResponse, error)
}

type Service struct {
	cfg        config.Sync
	enqueuer   jobqueue.Enqueuer
	newBatchID func() (string, error)
}

func NewService(cfg config.Sync, enqueuer jobqueue.Enqueuer) *Service {
	return &Service{
		cfg:        cfg,
		enqueuer:   enqueuer,
		newBatchID: utils.GenerateID,
	}
}

// StartSync divide o intervalo em pedaços e enfileira um job por pedaço, todos no mesmo lote
func (s *Service) StartSync(ctx context.Context, request *domain.SyncRequest) (*domain.SyncResponse, error) {
	if request == nil || request.StartDate == "" || request.EndDate == "" {
		return nil, NewSyncError(ErrInvalidRange, apiErrors.ErrMissingRequiredData, "start_date e end_date são obrigatórios")
	}

	start, err := daterange.ParseDate(request.StartDate)
	if err != nil {
		return nil, NewSyncError(ErrInvalidRange, apiErrors.ErrInvalidFormat, err.Error())
	}
	end, err := daterange.ParseDate(request.EndDate)
	if err != nil {
		return nil, NewSyncError(ErrInvalidRange, apiErrors.ErrInvalidFormat, err.Error())
	}

	granularity, err := daterange.ParseGranularity(s.cfg.ChunkGranularity)
	if err != nil {
		return nil, NewSyncError(err, apiErrors.ErrInternalServer, "granularidade configurada inválida")
	}

	chunks, err := daterange.Chunk(start, end, granularity)
	if err != nil {
		if errors.Is(err, daterange.ErrInvalidRange) {
			return nil, NewSyncError(ErrInvalidRange, apiErrors.ErrInvalidRequest, "end_date anterior a start_date")
		}
		return nil, NewSyncError(err, apiErrors.ErrInternalServer, "")
	}

	batchID, err := s.newBatchID()
	if err != nil {
		return nil, NewSyncError(ErrGenerateBatchID, apiErrors.ErrInternalServer, err.Error())
	}

	key := SerializationKey(domain.PlatformMeta)
	jobs := make([]*domain.NewJob, 0, len(chunks))
	for _, chunk := range chunks {
		payload, err := json.Marshal(&domain.ChunkPayload{
			BatchID:   batchID,
			Platform:  string(domain.PlatformMeta),
			StartDate: chunk.Start.Format(dateLayout),
			EndDate:   chunk.End.Format(dateLayout),
		})
		if err != nil {
			return nil, NewSyncError(err, apiErrors.ErrInternalServer, "falha ao serializar payload")
		}

		jobs = append(jobs, &domain.NewJob{
			BatchID:          batchID,
			TaskType:         TaskChunkSync,
			Payload:          payload,
			SerializationKey: &key,
			MaxAttempts:      s.cfg.MaxAttempts,
		})
	}

	created, err := s.enqueuer.EnqueueBatch(ctx, jobs)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"batch_id": batchID,
			"chunks":   len(chunks),
			"error":    err.Error(),
		}).Error("syncing: falha ao enfileirar lote")
		return nil, NewSyncError(ErrEnqueue, apiErrors.ErrDatabaseOperation, err.Error())
	}

	jobIDs := make([]string, 0, len(created))
	for _, job := range created {
		jobIDs = append(jobIDs, job.ID)
	}

	logrus.WithFields(logrus.Fields{
		"batch_id":   batchID,
		"start_date": request.StartDate,
		"end_date":   request.EndDate,
		"chunks":     len(chunks),
	}).Info("syncing: sincronização enfileirada")

	return &domain.SyncResponse{
		BatchID: batchID,
		Chunks:  len(chunks),
		JobIDs:  jobIDs,
	}, nil
}
