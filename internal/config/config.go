package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App       App       `mapstructure:",squash"`
	Server    Server    `mapstructure:",squash"`
	Database  Database  `mapstructure:",squash"`
	Meta      Meta      `mapstructure:",squash"`
	Sync      Sync      `mapstructure:",squash"`
	JobQueue  JobQueue  `mapstructure:",squash"`
	DailySync DailySync `mapstructure:",squash"`
	Ledger    Ledger    `mapstructure:",squash"`
	Kafka     Kafka     `mapstructure:",squash"`
}

type Server struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

type Database struct {
	DSN            string `mapstructure:"-"`
	Driver         string `mapstructure:"database_driver"`
	Password       string `mapstructure:"database_password"`
	URL            string `mapstructure:"database_url"`
	User           string `mapstructure:"database_user"`
	MigrateOnStart bool   `mapstructure:"database_migrate_on_start"`
}

type Meta struct {
	BaseURL        string        `mapstructure:"meta_base_url"`
	URL            string        `mapstructure:"meta_url"`
	Version        string        `mapstructure:"meta_version"`
	AccessToken    string        `mapstructure:"meta_access_token"`
	RequestTimeout time.Duration `mapstructure:"meta_request_timeout"`
	PageSize       int           `mapstructure:"meta_page_size"`
	MaxPages       int           `mapstructure:"meta_max_pages"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Sync struct {
	ChunkGranularity string        `mapstructure:"sync_chunk_granularity"`
	FactBatchSize    int           `mapstructure:"sync_fact_batch_size"`
	AccountDelay     time.Duration `mapstructure:"sync_account_delay"`
	MaxAttempts      int           `mapstructure:"sync_max_attempts"`
}

type JobQueue struct {
	Concurrency  int           `mapstructure:"job_queue_concurrency"`
	PollInterval time.Duration `mapstructure:"job_queue_poll_interval"`
	MaxAttempts  int           `mapstructure:"job_queue_max_attempts"`
	BackoffBase  time.Duration `mapstructure:"job_queue_backoff_base"`
	BackoffMax   time.Duration `mapstructure:"job_queue_backoff_max"`
	Lease        time.Duration `mapstructure:"job_queue_lease"`
	Enabled      bool          `mapstructure:"job_queue_enabled"`
}

type DailySync struct {
	CronSchedule string `mapstructure:"daily_sync_cron"`
	LookbackDays int    `mapstructure:"daily_sync_lookback_days"`
	Enabled      bool   `mapstructure:"daily_sync_enabled"`
}

type Ledger struct {
	DefaultPageSize int `mapstructure:"ledger_default_page_size"`
	MaxPageSize     int `mapstructure:"ledger_max_page_size"`
}

type Kafka struct {
	Enabled   bool   `mapstructure:"kafka_enabled"`
	BrokerURL string `mapstructure:"kafka_broker_url"`
	SyncTopic string `mapstructure:"kafka_sync_topic"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/traffic?sslmode=disable")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")
	viper.SetDefault("DATABASE_MIGRATE_ON_START", true)

	viper.SetDefault("META_BASE_URL", "https://graph.facebook.com")
	viper.SetDefault("META_VERSION", "v22.0")
	viper.SetDefault("META_ACCESS_TOKEN", "")
	viper.SetDefault("META_REQUEST_TIMEOUT", "30s") // requisições abandonadas após 30s
	viper.SetDefault("META_PAGE_SIZE", 100)
	viper.SetDefault("META_MAX_PAGES", 1000) // 0 desativa o limite de páginas

	// Defaults para sincronização
	viper.SetDefault("SYNC_CHUNK_GRANULARITY", "month")
	viper.SetDefault("SYNC_FACT_BATCH_SIZE", 100)
	viper.SetDefault("SYNC_ACCOUNT_DELAY", "2s") // pausa entre contas para respeitar o rate limit
	viper.SetDefault("SYNC_MAX_ATTEMPTS", 5)

	// Defaults para a fila de jobs
	viper.SetDefault("JOB_QUEUE_CONCURRENCY", 4)
	viper.SetDefault("JOB_QUEUE_POLL_INTERVAL", "2s")
	viper.SetDefault("JOB_QUEUE_MAX_ATTEMPTS", 5)
	viper.SetDefault("JOB_QUEUE_BACKOFF_BASE", "30s")
	viper.SetDefault("JOB_QUEUE_BACKOFF_MAX", "30m")
	viper.SetDefault("JOB_QUEUE_LEASE", "30m")
	viper.SetDefault("JOB_QUEUE_ENABLED", true)

	viper.SetDefault("DAILY_SYNC_CRON", "0 3 * * *") // Todos os dias às 3h da manhã
	viper.SetDefault("DAILY_SYNC_LOOKBACK_DAYS", 7)  // 7 dias para reprocessar correções
	viper.SetDefault("DAILY_SYNC_ENABLED", false)

	viper.SetDefault("LEDGER_DEFAULT_PAGE_SIZE", 20)
	viper.SetDefault("LEDGER_MAX_PAGE_SIZE", 100)

	viper.SetDefault("KAFKA_ENABLED", false)
	viper.SetDefault("KAFKA_BROKER_URL", "localhost:9092")
	viper.SetDefault("KAFKA_SYNC_TOPIC", "traffic.sync.chunks")

	viper.SetDefault("LOG_LEVEL", "debug")
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv() // Isso permite que o Viper leia variáveis de ambiente

	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	} else {
		logrus.Info("Arquivo .env lido pelo Viper com sucesso")
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.Meta.URL = fmt.Sprintf("%s/%s", config.Meta.BaseURL, config.Meta.Version)

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// Validate garante limites mínimos para valores que controlam concorrência e lotes
func (c *Config) Validate() error {
	if c.JobQueue.Concurrency < 1 {
		return fmt.Errorf("JOB_QUEUE_CONCURRENCY deve ser maior que zero: %d", c.JobQueue.Concurrency)
	}

	if c.Sync.FactBatchSize < 1 {
		return fmt.Errorf("SYNC_FACT_BATCH_SIZE deve ser maior que zero: %d", c.Sync.FactBatchSize)
	}

	if c.Meta.RequestTimeout <= 0 {
		return fmt.Errorf("META_REQUEST_TIMEOUT deve ser positivo: %s", c.Meta.RequestTimeout)
	}

	if c.Ledger.MaxPageSize < 1 {
		c.Ledger.MaxPageSize = 100
	}

	if c.Ledger.DefaultPageSize < 1 || c.Ledger.DefaultPageSize > c.Ledger.MaxPageSize {
		c.Ledger.DefaultPageSize = c.Ledger.MaxPageSize
	}

	return nil
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),               // Diretório atual
		filepath.Join(filepath.Dir(cwd), ".env"), // Diretório pai
		filepath.Join(cwd, "../../.env"),         // Dois diretórios acima
	}

	for _, location := range locations {
		logrus.Debug("Tentando carregar .env de:", location)
		if err := godotenv.Load(location); err == nil {
			logrus.Info("Arquivo .env carregado com sucesso de:", location)
			return
		}
	}

	logrus.Warn("Não foi possível carregar o arquivo .env de nenhuma localização conhecida")
}
