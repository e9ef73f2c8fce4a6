// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Reconcile     ReconcileConfig     `mapstructure:"reconcile"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
// DSN 指向管理库（cache_group、messages 等），DataDSN 指向法规切片所在的数据库。
type DatabaseConfig struct {
	Driver       string      `mapstructure:"driver"`
	DSN          string      `mapstructure:"dsn"`
	DataDSN      string      `mapstructure:"data_dsn"`
	MaxIdleConns int         `mapstructure:"max_idle_conns"`
	MaxOpenConns int         `mapstructure:"max_open_conns"`
	AutoMigrate  bool        `mapstructure:"auto_migrate"`
	Redis        RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用缓存。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	AllowedEmailDomain string `mapstructure:"allowed_email_domain"`
	ExpireHours        int    `mapstructure:"expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时事件发布退化为 no-op。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey          string              `mapstructure:"api_key"`
	BaseURL         string              `mapstructure:"base_url"`
	Model           string              `mapstructure:"model"`
	CompletionModel string              `mapstructure:"completion_model"`
	Generation      LLMGenerationConfig `mapstructure:"generation"`
	Prompt          LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature        float64 `mapstructure:"temperature"`
	TopP               float64 `mapstructure:"top_p"`
	MaxTokens          int     `mapstructure:"max_tokens"`
	SummaryTemperature float64 `mapstructure:"summary_temperature"`
	// MaxConcurrency 限制一次起草中同时进行的 LLM 调用数。
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// LLMPromptConfig 配置起草答案时使用的提示词。
// Summarize 中的 {content_docs} 与 {q} 会被替换。
type LLMPromptConfig struct {
	System    string `mapstructure:"system"`
	Summarize string `mapstructure:"summarize"`
}

// NotificationConfig 配置通知服务。
type NotificationConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Level         string        `mapstructure:"level"`
	Type          string        `mapstructure:"type"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	// Timezone 用于格式化通知中的提问日期。
	Timezone string `mapstructure:"timezone"`
}

// ReconcileConfig 配置历史提问者的通知派发策略。
// Dispatch 取值 concurrent（默认，汇总全部失败）或 sequential（首个失败即停止）。
type ReconcileConfig struct {
	Dispatch       string `mapstructure:"dispatch"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
}

// CatalogConfig 配置目录类查询。
type CatalogConfig struct {
	ChunkTTL        time.Duration `mapstructure:"chunk_ttl"`
	RegionTTL       time.Duration `mapstructure:"region_ttl"`
	KBFolderID      int           `mapstructure:"kb_folder_id"`
	DefaultTrack    string        `mapstructure:"default_track"`
	PageSize        int           `mapstructure:"page_size"`
	DefaultMsgType  string        `mapstructure:"default_message_type"`
	SimilarityLimit int           `mapstructure:"similarity_limit"`
}

const (
	DispatchConcurrent = "concurrent"
	DispatchSequential = "sequential"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "cache_group.saved")
	v.SetDefault("elasticsearch.index_name", "cache_groups")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("llm.model", "gpt-4-1106-preview")
	v.SetDefault("llm.completion_model", "gpt-3.5-turbo-instruct")
	v.SetDefault("llm.generation.summary_temperature", 0.5)
	v.SetDefault("llm.generation.max_concurrency", 4)
	v.SetDefault("notification.level", "warning")
	v.SetDefault("notification.type", "la bot")
	v.SetDefault("notification.timeout", 10*time.Second)
	v.SetDefault("notification.rate_per_second", 10)
	v.SetDefault("notification.burst", 5)
	v.SetDefault("notification.timezone", "Europe/Madrid")
	v.SetDefault("reconcile.dispatch", DispatchConcurrent)
	v.SetDefault("reconcile.max_concurrency", 4)
	v.SetDefault("catalog.chunk_ttl", 24*time.Hour)
	v.SetDefault("catalog.region_ttl", time.Hour)
	v.SetDefault("catalog.kb_folder_id", 5)
	v.SetDefault("catalog.default_track", "infantil")
	v.SetDefault("catalog.page_size", 50)
	v.SetDefault("catalog.default_message_type", "qa")
	v.SetDefault("catalog.similarity_limit", 5)
}

// Load 从指定路径读取 YAML 配置，并允许 LABOT_ 前缀的环境变量覆盖（"." 替换为 "_"）。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LABOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查互相依赖的配置项。
func (c *Config) Validate() error {
	switch c.Reconcile.Dispatch {
	case DispatchConcurrent, DispatchSequential:
	default:
		return fmt.Errorf("reconcile.dispatch 取值无效: %q", c.Reconcile.Dispatch)
	}
	if c.Reconcile.MaxConcurrency < 1 {
		return fmt.Errorf("reconcile.max_concurrency 必须大于 0")
	}
	if c.LLM.Generation.MaxConcurrency < 1 {
		return fmt.Errorf("llm.generation.max_concurrency 必须大于 0")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions 必须大于 0")
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver 取值无效: %q", c.Database.Driver)
	}
	return nil
}
