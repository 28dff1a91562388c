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
	Redis     RedisConfig
	Evaluator EvaluatorConfig `mapstructure:"evaluator"`
	Answers   AnswersConfig   `mapstructure:"answers"`
	Content   ContentConfig   `mapstructure:"content"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

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
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// Enabled 为 false 时仅在本进程内广播（单机部署）
	Enabled bool
}

// EvaluatorConfig 沙箱求值器池配置，按语言族分别限定容量
type EvaluatorConfig struct {
	JvmPoolSize       int           `mapstructure:"jvm_pool_size"`
	PythonPoolSize    int           `mapstructure:"python_pool_size"`
	AcquireTimeout    time.Duration `mapstructure:"acquire_timeout_ms"`
	PythonInterpreter string        `mapstructure:"python_interpreter"`
}

type AnswersConfig struct {
	MaxHistoryLength int `mapstructure:"max_history_length"`
}

type ContentConfig struct {
	Path string `mapstructure:"path"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("READCODE")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Evaluator
	viper.BindEnv("evaluator.jvm_pool_size", "EVALUATOR_JVM_POOL_SIZE")
	viper.BindEnv("evaluator.python_pool_size", "EVALUATOR_PYTHON_POOL_SIZE")
	viper.BindEnv("evaluator.python_interpreter", "EVALUATOR_PYTHON_INTERPRETER")

	// Content
	viper.BindEnv("content.path", "CONTENT_PATH")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	viper.SetDefault("evaluator.jvm_pool_size", 5)
	viper.SetDefault("evaluator.python_pool_size", 5)
	viper.SetDefault("evaluator.acquire_timeout_ms", 2000)
	viper.SetDefault("evaluator.python_interpreter", "python3")
	viper.SetDefault("answers.max_history_length", 10)
	viper.SetDefault("content.path", "configs/content.yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.Evaluator.AcquireTimeout = cfg.Evaluator.AcquireTimeout * time.Millisecond

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}
