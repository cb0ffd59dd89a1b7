package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Port int
		// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers are honoured.
		TrustedProxies []string
	}
	Database struct {
		URL string
	}
	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}
	RateLimit struct {
		PerMinute int
		Burst     int
	}
	CORS struct {
		AllowedOrigins []string
	}
	Log struct {
		Level string
	}
	Storage struct {
		Bucket   string
		Prefix   string
		Region   string
		Endpoint string
	}
	AWS struct {
		Profile string
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// a missing .env is fine; variables already in the environment win
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TOPICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// conventional names used by hosting platforms
	_ = v.BindEnv("server.port", "TOPICS_SERVER_PORT", "PORT")
	_ = v.BindEnv("database.url", "TOPICS_DATABASE_URL", "DATABASE_URL")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.trustedproxies", []string{})
	v.SetDefault("database.url", "data/topics.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", "24h")
	v.SetDefault("ratelimit.perminute", 10)
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("cors.allowedorigins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "catalog")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	for _, proxy := range cfg.Server.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return Config{}, fmt.Errorf("invalid trusted proxy %q", proxy)
			}
		}
	}
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return Config{}, fmt.Errorf("database url is required")
	}
	return cfg, nil
}
