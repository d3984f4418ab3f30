package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	MFA           MFAConfig           `mapstructure:"mfa"`
	Orchestration OrchestrationConfig `mapstructure:"orchestration"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Security      SecurityConfig      `mapstructure:"security"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	HTTPS           bool          `mapstructure:"https"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	SSLRootCert     string        `mapstructure:"ssl_root_cert"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MFAConfig holds MFA challenge policy settings
type MFAConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts"`
	Issuer      string `mapstructure:"issuer"`
}

// OrchestrationConfig holds workflow runtime settings
type OrchestrationConfig struct {
	ActivityResultTTL time.Duration `mapstructure:"activity_result_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	InternalServiceSecret string `mapstructure:"internal_service_secret"` // JWT secret for internal service-to-service calls
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/login-orchestrator/")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LOGIN_ORCH")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("security.internal_service_secret", "INTERNAL_SERVICE_SECRET")

	// Set defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.shutdown_timeout", 15*time.Second)
	viper.SetDefault("mfa.max_attempts", 5)
	viper.SetDefault("mfa.issuer", "AcmeID")
	viper.SetDefault("orchestration.activity_result_ttl", time.Hour)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Load from env if not in config
	if cfg.Database.Password == "" {
		cfg.Database.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Redis.Password == "" {
		cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
	if cfg.Security.InternalServiceSecret == "" {
		cfg.Security.InternalServiceSecret = os.Getenv("INTERNAL_SERVICE_SECRET")
	}

	// CRITICAL: Validate required credentials
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is required")
	}
	if cfg.Redis.Password == "" {
		return nil, fmt.Errorf("REDIS_PASSWORD environment variable is required")
	}

	// Default SSL mode
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "require"
	}

	if cfg.MFA.MaxAttempts <= 0 {
		cfg.MFA.MaxAttempts = 5
	}

	// Generate internal service secret if not provided (dev only)
	if cfg.Security.InternalServiceSecret == "" {
		cfg.Security.InternalServiceSecret = "dev-internal-secret-change-in-production"
	}

	return &cfg, nil
}

// DSN returns PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
	if c.SSLRootCert != "" {
		dsn += "&sslrootcert=" + c.SSLRootCert
	}
	return dsn
}
