// Package config loads matchd configuration from defaults, an optional config file,
// MATCHD_* environment variables and bound command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/resume-matcher/internal/queue"
	"github.com/jonathan/resume-matcher/internal/ranking"
)

// EnvPrefix prefixes every environment variable, e.g. MATCHD_HTTP_PORT.
const EnvPrefix = "MATCHD"

// Queue and cache backends
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config is the complete matchd configuration.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`

	HTTP      HTTPConfig      `mapstructure:"http"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Skills    SkillsConfig    `mapstructure:"skills"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Log       LogConfig       `mapstructure:"log"`
}

// HTTPConfig configures the REST listener.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GRPCConfig configures the health service listener. Port 0 disables it.
type GRPCConfig struct {
	Port int `mapstructure:"port"`
}

// QueueConfig selects the task backend and per-type queue settings.
type QueueConfig struct {
	Backend string                       `mapstructure:"backend"`
	Prefix  string                       `mapstructure:"prefix"`
	Queues  map[string]queue.QueueConfig `mapstructure:"queues"`
}

// CacheConfig configures the match result cache.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
}

// MatchingConfig configures ranking.
type MatchingConfig struct {
	Weights ranking.Weights `mapstructure:"weights"`
	TopN    int             `mapstructure:"top_n"`
}

// SkillsConfig configures the dictionary skill extractor.
type SkillsConfig struct {
	Confidence float64 `mapstructure:"confidence"`
}

// LLMConfig enables the model-backed skill extractor when APIKey is set.
type LLMConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// NotifyConfig selects AMQP publishing when AMQPURL is set.
type NotifyConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

// SchedulerConfig holds cron specs. An empty spec disables the job.
type SchedulerConfig struct {
	PurgeSpec     string `mapstructure:"purge_spec"`
	SweepSpec     string `mapstructure:"sweep_spec"`
	AnalyticsSpec string `mapstructure:"analytics_spec"`
}

// SourcesConfig controls which sourceRef schemes documents may use.
type SourcesConfig struct {
	AllowFiles bool `mapstructure:"allow_files"`
}

// LogConfig configures the logger.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// SetDefaults registers every key with its default so environment variables
// are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	w := ranking.DefaultWeights()

	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("grpc.port", 0)
	v.SetDefault("queue.backend", BackendRedis)
	v.SetDefault("queue.prefix", queue.DefaultRedisPrefix)
	v.SetDefault("queue.queues", map[string]any{})
	v.SetDefault("cache.backend", BackendRedis)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.prefix", "matchd:cache:")
	v.SetDefault("matching.weights.skills", w.Skills)
	v.SetDefault("matching.weights.experience", w.Experience)
	v.SetDefault("matching.weights.location", w.Location)
	v.SetDefault("matching.weights.salary", w.Salary)
	v.SetDefault("matching.weights.education", w.Education)
	v.SetDefault("matching.top_n", 20)
	v.SetDefault("skills.confidence", 0.8)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("notify.amqp_url", "")
	v.SetDefault("notify.exchange", "matchd.events")
	v.SetDefault("scheduler.purge_spec", "@every 1h")
	v.SetDefault("scheduler.sweep_spec", "@every 5m")
	v.SetDefault("scheduler.analytics_spec", "")
	v.SetDefault("sources.allow_files", false)
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// Load reads configuration into a Config. path may be empty, in which case only
// defaults, environment and flags already bound to v apply.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges, backend names and the weight sum.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	if c.GRPC.Port < 0 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Errorf("grpc.port out of range: %d", c.GRPC.Port))
	}
	if !validBackend(c.Queue.Backend) {
		errs = append(errs, fmt.Errorf("queue.backend must be redis, memory or none, got %q", c.Queue.Backend))
	}
	if !validBackend(c.Cache.Backend) {
		errs = append(errs, fmt.Errorf("cache.backend must be redis, memory or none, got %q", c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must be non-negative"))
	}
	if c.Matching.TopN < 0 {
		errs = append(errs, errors.New("matching.top_n must be non-negative"))
	}
	if c.Skills.Confidence < 0 || c.Skills.Confidence > 1 {
		errs = append(errs, errors.New("skills.confidence must be within [0, 1]"))
	}
	if err := c.Matching.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("matching.weights: %w", err))
	}
	for name, q := range c.Queue.Queues {
		if q.Workers < 0 || q.MaxAttempts < 0 || q.BackoffBase < 0 || q.BackoffMax < 0 || q.Timeout < 0 {
			errs = append(errs, fmt.Errorf("queue.queues.%s: values must be non-negative", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config error: %w", errors.Join(errs...))
	}
	return nil
}

func validBackend(b string) bool {
	switch b {
	case BackendRedis, BackendMemory, BackendNone:
		return true
	}
	return false
}
