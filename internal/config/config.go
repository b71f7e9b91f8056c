package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	Gate      GateConfig      `mapstructure:"gate"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
	Path      string `mapstructure:"path"` // sqlite 文件路径
}

// LogConfig 日志文件与 logger 名称
type LogConfig struct {
	File       string `mapstructure:"file"`
	Name       string `mapstructure:"name"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// GateConfig 游戏准入与题目网关配置
type GateConfig struct {
	Timezone           string `mapstructure:"timezone"`
	QuestionTTLSeconds int    `mapstructure:"question_ttl_seconds"`
	Cache              string `mapstructure:"cache"` // memory, redis
	PolicySeedFile     string `mapstructure:"policy_seed_file"`
}

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"

	DefaultQuestionTTL = 5 * time.Minute
)

// QuestionTTL 返回题目缓存有效期，未配置时为 5 分钟
func (g GateConfig) QuestionTTL() time.Duration {
	if g.QuestionTTLSeconds <= 0 {
		return DefaultQuestionTTL
	}
	return time.Duration(g.QuestionTTLSeconds) * time.Second
}

// Location 解析站点时区，空值按 UTC 处理
func (g GateConfig) Location() (*time.Location, error) {
	if g.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(g.Timezone)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("GAME_GATE")
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("gate.timezone", "UTC")
	v.SetDefault("gate.question_ttl_seconds", int(DefaultQuestionTTL/time.Second))
	v.SetDefault("gate.cache", CacheMemory)
	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("log.file", "logs/game_gate.log")
	v.SetDefault("log.name", "game_gate")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")
	v.BindEnv("database.path", "DATABASE_PATH")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Gate
	v.BindEnv("gate.timezone", "GATE_TIMEZONE")
	v.BindEnv("gate.cache", "GATE_CACHE")
	v.BindEnv("gate.question_ttl_seconds", "GATE_QUESTION_TTL_SECONDS")
	v.BindEnv("gate.policy_seed_file", "GATE_POLICY_SEED_FILE")

	// Log
	v.BindEnv("log.file", "LOG_FILE")
	v.BindEnv("log.name", "LOG_NAME")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验加载后的配置
func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}

	if _, err := c.Gate.Location(); err != nil {
		return fmt.Errorf("invalid gate.timezone %q: %w", c.Gate.Timezone, err)
	}

	switch c.Gate.Cache {
	case "", CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("invalid gate.cache %q, expected %q or %q", c.Gate.Cache, CacheMemory, CacheRedis)
	}

	return nil
}
