package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Session   SessionConfig   `mapstructure:"session"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	Expiry        time.Duration `mapstructure:"expiry"`
	RefreshExpiry time.Duration `mapstructure:"refresh_expiry"`
}

// SessionConfig governs the hard-expiry session layer. Lifetime is the fixed
// wall-clock deadline set at login; it is never extended by token refresh.
type SessionConfig struct {
	Lifetime         time.Duration `mapstructure:"lifetime"`
	GuardTimeout     time.Duration `mapstructure:"guard_timeout"`
	ResolverCacheTTL time.Duration `mapstructure:"resolver_cache_ttl"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type WorkerConfig struct {
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	LowStockInterval time.Duration `mapstructure:"low_stock_interval"`
	AlertRecipient   string        `mapstructure:"alert_recipient"`
}

// envOverrides are the deployment-critical settings that may come from the
// environment instead of the config file.
type envOverrides struct {
	DBHost        string `envconfig:"DB_HOST"`
	DBPort        int    `envconfig:"DB_PORT"`
	DBPassword    string `envconfig:"DB_PASSWORD"`
	RedisURL      string `envconfig:"REDIS_URL"`
	JWTSecret     string `envconfig:"JWT_SECRET"`
	RefreshSecret string `envconfig:"JWT_REFRESH_SECRET"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("medicura", &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if env.DBHost != "" {
		config.Database.Host = env.DBHost
	}
	if env.DBPort != 0 {
		config.Database.Port = env.DBPort
	}
	if env.DBPassword != "" {
		config.Database.Password = env.DBPassword
	}
	if env.RedisURL != "" {
		config.Redis.URL = env.RedisURL
	}
	if env.JWTSecret != "" {
		config.JWT.Secret = env.JWTSecret
	}
	if env.RefreshSecret != "" {
		config.JWT.RefreshSecret = env.RefreshSecret
	}
	if env.SMTPPassword != "" {
		config.SMTP.Password = env.SMTPPassword
	}

	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownGrace == 0 {
		c.Server.ShutdownGrace = 5 * time.Second
	}
	if c.JWT.Expiry == 0 {
		c.JWT.Expiry = 15 * time.Minute
	}
	if c.JWT.RefreshExpiry == 0 {
		c.JWT.RefreshExpiry = 24 * time.Hour
	}
	if c.Session.Lifetime == 0 {
		c.Session.Lifetime = time.Hour
	}
	if c.Session.GuardTimeout == 0 {
		c.Session.GuardTimeout = 3 * time.Second
	}
	if c.Session.ResolverCacheTTL == 0 {
		c.Session.ResolverCacheTTL = time.Minute
	}
	if c.Worker.SweepInterval == 0 {
		c.Worker.SweepInterval = 30 * time.Second
	}
	if c.Worker.LowStockInterval == 0 {
		c.Worker.LowStockInterval = time.Hour
	}
}
