package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	LogLevel   string

	BackendOrigin  string
	BackendTimeout time.Duration

	CacheFetchTimeout time.Duration
	CacheMaxAge       time.Duration
	ItemsPerPage      int
	WarmKeys          []string

	MongoURI               string
	MongoDBName            string
	MongoSessionCollection string
	SessionTTL             time.Duration

	KafkaBrokers           []string
	KafkaInvalidationTopic string
	KafkaGroupPrefix       string
	InstanceID             string

	OTelServiceName string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		BackendOrigin:          getEnv("BACKEND_ORIGIN", "http://localhost:4000"),
		BackendTimeout:         getDurationEnv("BACKEND_TIMEOUT", 10*time.Second),
		CacheFetchTimeout:      getDurationEnv("CACHE_FETCH_TIMEOUT", 10*time.Second),
		CacheMaxAge:            getDurationEnv("CACHE_MAX_AGE", 0),
		ItemsPerPage:           getIntEnv("ITEMS_PER_PAGE", 10),
		WarmKeys:               getListEnv("WARM_KEYS", []string{"news", "categories"}),
		MongoURI:               getEnv("MONGO_URI", "mongodb://mongodb:27017"),
		MongoDBName:            getEnv("MONGO_DB_NAME", "news_portal"),
		MongoSessionCollection: getEnv("MONGO_SESSION_COLLECTION", "sessions"),
		SessionTTL:             getDurationEnv("SESSION_TTL", 24*time.Hour),
		KafkaBrokers:           getListEnv("KAFKA_BROKERS", nil),
		KafkaInvalidationTopic: getEnv("KAFKA_INVALIDATION_TOPIC", "portal_invalidations"),
		KafkaGroupPrefix:       getEnv("KAFKA_GROUP_PREFIX", "news-portal"),
		InstanceID:             getEnv("INSTANCE_ID", ""),
		OTelServiceName:        getEnv("OTEL_SERVICE_NAME", "news-portal"),
	}
}

// InvalidationEnabled reports whether writes are fanned out over Kafka.
func (c *Config) InvalidationEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		// Try parsing as duration string (e.g. "1m", "60s")
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Try parsing as integer seconds
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

// getListEnv splits a comma-separated value, dropping empty items.
func getListEnv(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
