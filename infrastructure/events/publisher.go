package events

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const ChunkSyncedType = "sync.chunk_synced"

// ChunkSynced é publicado quando um pedaço do intervalo termina de sincronizar
type ChunkSynced struct {
	Type       string              `json:"type"`
	OccurredAt time.Time           `json:"occurred_at"`
	Summary    domain.ChunkSummary `json:"summary"`
}

type Publisher interface {
	PublishChunkSynced(ctx context.Context, summary domain.ChunkSummary) error
	Close() error
}

// NewPublisher escolhe o Kafka quando habilitado e um publicador vazio caso contrário
func NewPublisher(cfg config.Kafka) Publisher {
	if !cfg.Enabled {
		logrus.Info("events: kafka desabilitado, eventos de sincronização não serão publicados")
		return NoopPublisher{}
	}

	return NewKafkaPublisher(NewKafkaWriter(cfg.BrokerURL, cfg.SyncTopic))
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaWriter(brokerURL, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokerURL),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) PublishChunkSynced(ctx context.Context, summary domain.ChunkSummary) error {
	value, err := json.Marshal(ChunkSynced{
		Type:       ChunkSyncedType,
		OccurredAt: time.Now().UTC(),
		Summary:    summary,
	})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(summary.BatchID),
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) PublishChunkSynced(context.Context, domain.ChunkSummary) error { return nil }

func (NoopPublisher) Close() error { return nil }
