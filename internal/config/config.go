package config

import (
	"time"

	pkgconfig "github.com/Devdarshananandhan/campusconnect-sub000/pkg/config"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Search        SearchConfig
	Elasticsearch ElasticsearchConfig
	Meilisearch   MeilisearchConfig
	Bleve         BleveConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Reconciler    ReconcilerConfig
	Log           LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// SearchConfig tunes the unified search service.
type SearchConfig struct {
	Backend         string        `mapstructure:"backend"` // elasticsearch, meilisearch, bleve, none
	IndexPrefix     string        `mapstructure:"index_prefix"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"`
	FanOutSize      int           `mapstructure:"fan_out_size"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
	MaxWindow       int           `mapstructure:"max_window"`
	ReprobeInterval time.Duration `mapstructure:"reprobe_interval"`
	PromoteAfter    int           `mapstructure:"promote_after"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type MeilisearchConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

type BleveConfig struct {
	// Path is the directory holding one index per category. Empty keeps
	// the indexes in memory.
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	Driver string        `mapstructure:"driver"` // redis, memory, none
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
	Size   int           `mapstructure:"size"`
	// Broadcast relays generation bumps between replicas over Redis
	// pub/sub. Only meaningful for the memory driver.
	Broadcast bool   `mapstructure:"broadcast"`
	Channel   string `mapstructure:"channel"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig configures the Debezium change feed. Leaving Brokers empty
// disables the consumer.
type KafkaConfig struct {
	Brokers        string `mapstructure:"brokers"`
	GroupID        string `mapstructure:"group_id"`
	TopicUsers     string `mapstructure:"topic_users"`
	TopicGroups    string `mapstructure:"topic_groups"`
	TopicEvents    string `mapstructure:"topic_events"`
	TopicKnowledge string `mapstructure:"topic_knowledge"`
}

type ReconcilerConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8096)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "campusconnect")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/campusconnect.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("search.backend", "elasticsearch")
	v.SetDefault("search.index_prefix", "campus")
	v.SetDefault("search.call_timeout", "5s")
	v.SetDefault("search.fan_out_size", 5)
	v.SetDefault("search.default_page_size", 20)
	v.SetDefault("search.max_page_size", 100)
	v.SetDefault("search.max_window", 10000)
	v.SetDefault("search.reprobe_interval", "10s")
	v.SetDefault("search.promote_after", 3)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("meilisearch.url", "http://localhost:7700")
	v.SetDefault("bleve.path", "")
	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.prefix", "search")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.broadcast", false)
	v.SetDefault("cache.channel", "search:invalidate")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.group_id", "campus-search-mirror")
	v.SetDefault("kafka.topic_users", "campus.public.user_profiles")
	v.SetDefault("kafka.topic_groups", "campus.public.groups")
	v.SetDefault("kafka.topic_events", "campus.public.events")
	v.SetDefault("kafka.topic_knowledge", "campus.public.knowledge_posts")
	v.SetDefault("reconciler.interval", "15m")
	v.SetDefault("reconciler.batch_size", 500)
	v.SetDefault("log.level", "info")

	err = pkgconfig.BindEnvs(v, map[string]string{
		"server.port":             "PORT",
		"database.driver":         "DB_DRIVER",
		"database.host":           "DB_HOST",
		"database.port":           "DB_PORT",
		"database.user":           "DB_USER",
		"database.password":       "DB_PASSWORD",
		"database.dbname":         "DB_NAME",
		"database.sslmode":        "DB_SSLMODE",
		"database.file_path":      "DB_FILE_PATH",
		"search.backend":          "SEARCH_BACKEND",
		"search.index_prefix":     "SEARCH_INDEX_PREFIX",
		"search.call_timeout":     "SEARCH_CALL_TIMEOUT",
		"search.reprobe_interval": "SEARCH_REPROBE_INTERVAL",
		"search.promote_after":    "SEARCH_PROMOTE_AFTER",
		"search.max_window":       "SEARCH_MAX_WINDOW",
		"elasticsearch.addresses": "ES_ADDRESSES",
		"elasticsearch.username":  "ES_USERNAME",
		"elasticsearch.password":  "ES_PASSWORD",
		"meilisearch.url":         "MEILI_URL",
		"meilisearch.api_key":     "MEILI_MASTER_KEY",
		"bleve.path":              "BLEVE_PATH",
		"cache.driver":            "CACHE_DRIVER",
		"cache.ttl":               "CACHE_TTL",
		"cache.broadcast":         "CACHE_BROADCAST",
		"redis.address":           "REDIS_ADDRESS",
		"redis.password":          "REDIS_PASSWORD",
		"redis.db":                "REDIS_DB",
		"kafka.brokers":           "KAFKA_BROKERS",
		"kafka.group_id":          "KAFKA_GROUP_ID",
		"reconciler.interval":     "RECONCILER_INTERVAL",
		"reconciler.batch_size":   "RECONCILER_BATCH_SIZE",
		"log.level":               "LOG_LEVEL",
	})
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
