package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading API.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	DatabaseMaxConns    int
	AutoMigrate         bool
	RedisURL            string
	NATSURL             string
	EventsChannel       string
	JWTSecret           string
	StatsCacheTTL       time.Duration
	SubmissionRateLimit int
	AllowOrigins        string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Grading API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("events.channel", "gema")
	v.SetDefault("stats.cache_ttl", "30s")
	v.SetDefault("submission.rate_limit", 20)
	v.SetDefault("cors.allow_origins", "*")

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	ttlString := v.GetString("stats.cache_ttl")
	if ttlString == "" {
		ttlString = "30s"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stats cache ttl: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		DatabaseMaxConns:    v.GetInt("database.max_conns"),
		AutoMigrate:         v.GetBool("database.auto_migrate"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		EventsChannel:       v.GetString("events.channel"),
		JWTSecret:           v.GetString("jwt.secret"),
		StatsCacheTTL:       ttl,
		SubmissionRateLimit: v.GetInt("submission.rate_limit"),
		AllowOrigins:        v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.SubmissionRateLimit <= 0 {
		cfg.SubmissionRateLimit = 20
	}

	return cfg, nil
}
