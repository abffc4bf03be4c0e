package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "config").Logger()

type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	MongoURI      string
	MongoDatabase string

	RedisAddr string
	CacheTTL  time.Duration

	KafkaBrokers    []string
	KafkaSalesTopic string
	KafkaGroupID    string

	ImportLogDSN string

	UploadDir        string
	UploadMaxRows    int
	UploadMaxBytes   int64
	IngestBatchSize  int
	SalesMaxPageSize int

	RateLimit float64
	RateBurst int
}

var requiredFields = []string{"mongodb.uri", "port"}

var defaults = map[string]any{
	"app.env":             "development",
	"port":                "5000",
	"log.level":           "info",
	"mongodb.database":    "retail",
	"redis.addr":          "",
	"cache.ttl":           "5m",
	"kafka.brokers":       "",
	"kafka.sales_topic":   "sales-topic",
	"kafka.group_id":      "retail-inventory-group",
	"import_log.dsn":      "",
	"upload.dir":          os.TempDir(),
	"upload.max_rows":     1000,
	"upload.max_bytes":    10 << 20,
	"ingest.batch_size":   5000,
	"sales.max_page_size": 0,
	"rate.limit":          20,
	"rate.burst":          40,
}

// Load reads configuration from the environment, after loading a .env file when one exists. Keys map to
// variables by upper-casing and replacing dots, so mongodb.uri is MONGODB_URI.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg("Failed to load .env file")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	for _, key := range requiredFields {
		if v.GetString(key) == "" {
			return nil, fmt.Errorf("missing required config %s (%s)", key, envName(key))
		}
	}

	cfg := &Config{
		AppEnv:           v.GetString("app.env"),
		Port:             v.GetString("port"),
		LogLevel:         v.GetString("log.level"),
		MongoURI:         v.GetString("mongodb.uri"),
		MongoDatabase:    v.GetString("mongodb.database"),
		RedisAddr:        v.GetString("redis.addr"),
		CacheTTL:         v.GetDuration("cache.ttl"),
		KafkaBrokers:     splitList(v.GetString("kafka.brokers")),
		KafkaSalesTopic:  v.GetString("kafka.sales_topic"),
		KafkaGroupID:     v.GetString("kafka.group_id"),
		ImportLogDSN:     v.GetString("import_log.dsn"),
		UploadDir:        v.GetString("upload.dir"),
		UploadMaxRows:    v.GetInt("upload.max_rows"),
		UploadMaxBytes:   v.GetInt64("upload.max_bytes"),
		IngestBatchSize:  v.GetInt("ingest.batch_size"),
		SalesMaxPageSize: v.GetInt("sales.max_page_size"),
		RateLimit:        v.GetFloat64("rate.limit"),
		RateBurst:        v.GetInt("rate.burst"),
	}

	return cfg, nil
}

func (c *Config) Production() bool { return c.AppEnv == "production" }

// ApplyLogLevel sets the global zerolog level, falling back to info.
func (c *Config) ApplyLogLevel() {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
