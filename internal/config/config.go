package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	ClickCountStored  = "stored"
	ClickCountDerived = "derived"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Shortener ShortenerConfig
	Resolver  ResolverConfig
	Security  SecurityConfig
	Breaker   BreakerConfig
	OTel      OTelConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Backend string
	// ClickCount selects how clickCount is maintained: "stored" bumps the
	// counter in the same transaction as the event insert, "derived" counts
	// events on read.
	ClickCount string
}

type MongoDBConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type PostgresConfig struct {
	DSN      string
	MaxConns int
}

type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	Topic            string
	GroupID          string
	WriteTimeout     time.Duration
	FetchMaxWait     time.Duration
	OperationTimeout time.Duration
	ConsumeBackoff   time.Duration
}

type ShortenerConfig struct {
	BaseURL        string
	SlugLength     int
	RedirectStatus int // 301 or 302
}

type ResolverConfig struct {
	AsyncAccounting   bool
	AccountingTimeout time.Duration
	VisitorHeader     string
	VisitorCookie     string
	ParseUserAgent    bool
}

type SecurityConfig struct {
	APIKeys                   []string
	CORSOrigins               []string
	CreateRate                RateConfig
	PasswordAttemptsPerMinute int
}

type RateConfig struct {
	RequestsPerMinute int
}

type BreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenRequests int
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "linkhive"),
			Version:  GetEnv("APP_VERSION", "0.1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:            GetEnv("APP_PORT", "8080"),
			Host:            GetEnv("APP_HOST", "localhost"),
			ReadTimeout:     GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    GetEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     GetEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: GetEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Backend:    GetEnv("STORAGE_BACKEND", StorageMongo),
			ClickCount: GetEnv("CLICK_COUNT_MODE", ClickCountStored),
		},
		MongoDB: MongoDBConfig{
			URI:            GetEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			Database:       GetEnv("MONGODB_DATABASE", "linkhive"),
			ConnectTimeout: GetEnvDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:      GetEnv("POSTGRES_DSN", DefaultPostgresDSN()),
			MaxConns: GetEnvInt("POSTGRES_MAX_CONNS", 20),
		},
		Kafka: KafkaConfig{
			Enabled:          GetEnvBool("KAFKA_ENABLED", false),
			Brokers:          SplitCSV(GetEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:            GetEnv("KAFKA_CLICK_TOPIC", "links.clicks"),
			GroupID:          GetEnv("KAFKA_CLICK_GROUP_ID", "click-accounting"),
			WriteTimeout:     GetEnvDuration("KAFKA_WRITE_TIMEOUT", 2*time.Second),
			FetchMaxWait:     GetEnvDuration("KAFKA_CONSUMER_MAX_WAIT", 500*time.Millisecond),
			OperationTimeout: GetEnvDuration("KAFKA_CONSUMER_OPERATION_TIMEOUT", 5*time.Second),
			ConsumeBackoff:   GetEnvDuration("KAFKA_CONSUMER_BACKOFF", 500*time.Millisecond),
		},
		Shortener: ShortenerConfig{
			BaseURL:        GetEnv("SHORTENER_BASE_URL", "http://localhost:8080"),
			SlugLength:     GetEnvInt("SLUG_LENGTH", 6),
			RedirectStatus: GetEnvInt("REDIRECT_STATUS", 302),
		},
		Resolver: ResolverConfig{
			AsyncAccounting:   GetEnvBool("ACCOUNTING_ASYNC", true),
			AccountingTimeout: GetEnvDuration("ACCOUNTING_TIMEOUT", 2*time.Second),
			VisitorHeader:     GetEnv("VISITOR_ID_HEADER", "X-Visitor-Id"),
			VisitorCookie:     GetEnv("VISITOR_ID_COOKIE", "lh_vid"),
			ParseUserAgent:    GetEnvBool("PARSE_USER_AGENT", true),
		},
		Security: SecurityConfig{
			APIKeys:     SplitCSV(GetEnv("API_KEYS", "")),
			CORSOrigins: SplitCSV(GetEnv("CORS_ALLOWED_ORIGINS", "")),
			CreateRate: RateConfig{
				RequestsPerMinute: GetEnvInt("CREATE_RATE_PER_MINUTE", 60),
			},
			PasswordAttemptsPerMinute: GetEnvInt("PASSWORD_ATTEMPTS_PER_MINUTE", 10),
		},
		Breaker: BreakerConfig{
			Enabled:          GetEnvBool("LOOKUP_BREAKER_ENABLED", true),
			FailureThreshold: GetEnvInt("LOOKUP_BREAKER_FAILURES", 5),
			OpenTimeout:      GetEnvDuration("LOOKUP_BREAKER_OPEN_TIMEOUT", 10*time.Second),
			HalfOpenRequests: GetEnvInt("LOOKUP_BREAKER_HALF_OPEN_REQUESTS", 1),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Shortener.RedirectStatus != 301 && c.Shortener.RedirectStatus != 302 {
		return fmt.Errorf("REDIRECT_STATUS must be 301 or 302 (got %d)", c.Shortener.RedirectStatus)
	}
	if c.Shortener.SlugLength < 4 || c.Shortener.SlugLength > 32 {
		return fmt.Errorf("SLUG_LENGTH must be between 4 and 32 (got %d)", c.Shortener.SlugLength)
	}

	switch c.Storage.Backend {
	case StorageMongo, StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of mongo, postgres, memory (got %q)", c.Storage.Backend)
	}
	switch c.Storage.ClickCount {
	case ClickCountStored, ClickCountDerived:
	default:
		return fmt.Errorf("CLICK_COUNT_MODE must be stored or derived (got %q)", c.Storage.ClickCount)
	}

	if c.Resolver.AccountingTimeout <= 0 {
		return errors.New("ACCOUNTING_TIMEOUT must be > 0")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("KAFKA_BROKERS must contain at least one broker")
		}
		if c.Kafka.Topic == "" {
			return errors.New("KAFKA_CLICK_TOPIC must not be empty")
		}
		if c.Kafka.GroupID == "" {
			return errors.New("KAFKA_CLICK_GROUP_ID must not be empty")
		}
		if c.Kafka.OperationTimeout <= 0 {
			return errors.New("KAFKA_CONSUMER_OPERATION_TIMEOUT must be > 0")
		}
		if c.Storage.Backend == StorageMemory {
			return errors.New("KAFKA_ENABLED requires a shared storage backend (mongo or postgres)")
		}
	}

	if c.Breaker.Enabled && c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("LOOKUP_BREAKER_FAILURES must be > 0 (got %d)", c.Breaker.FailureThreshold)
	}

	return nil
}

// DerivedClickCount reports whether clickCount is computed from events.
func (c *Config) DerivedClickCount() bool {
	return c.Storage.ClickCount == ClickCountDerived
}
