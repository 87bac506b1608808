package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"cheflife-sync"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`

	// PostgreSQL (member store)
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"cheflife"`
	DatabaseSSLMode             string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Redis (save locks + wage cache)
	RedisHost        string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort        int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB          int           `env:"REDIS_DB" env-default:"0"`
	WageCacheTTL     time.Duration `env:"WAGE_CACHE_TTL" env-default:"5m"`
	WageFetchWorkers int           `env:"WAGE_FETCH_WORKERS" env-default:"4"`

	// Kafka Producer (link audit events)
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"true"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"member-link-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Workforce provider API
	ProviderName           string        `env:"PROVIDER_NAME" env-default:"7shifts"`
	ProviderBaseURL        string        `env:"PROVIDER_BASE_URL" env-default:"https://api.7shifts.com"`
	ProviderAPIKey         string        `env:"PROVIDER_API_KEY" env-default:""`
	ProviderCompanyID      string        `env:"PROVIDER_COMPANY_ID" env-default:""`
	ProviderRequestTimeout time.Duration `env:"PROVIDER_REQUEST_TIMEOUT" env-default:"30s"`

	// Matching
	MatchFirstNameWeight  float64 `env:"MATCH_FIRST_NAME_WEIGHT" env-default:"0.4"`
	MatchLastNameWeight   float64 `env:"MATCH_LAST_NAME_WEIGHT" env-default:"0.6"`
	MatchSuggestThreshold float64 `env:"MATCH_SUGGEST_THRESHOLD" env-default:"60"`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingExporter string `env:"TRACING_EXPORTER" env-default:"console"` // console, grpc, http
	OTLPEndpoint    string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
}
