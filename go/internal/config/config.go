package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/liftcontrol/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

// Config is the process configuration assembled from the environment and the
// competition file.
type Config struct {
	Port            string
	LogLevel        string
	InstanceName    string
	CompetitionFile string

	NATSURL      string
	NATSEnabled  bool
	DisplayTopic string

	DatabaseEnabled bool
	Database        dbconfig.Config

	ShutdownTimeout time.Duration

	Competition *Competition
}

// Load reads .env (if present), the environment and the competition file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	hostname, _ := os.Hostname()
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		InstanceName:    getEnv("INSTANCE_NAME", hostname),
		CompetitionFile: getEnv("COMPETITION_FILE", "competition.yaml"),
		NATSURL:         getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		NATSEnabled:     getEnvAsBool("NATS_ENABLED", false),
		DisplayTopic:    getEnv("DISPLAY_TOPIC", "display"),
		DatabaseEnabled: getEnvAsBool("DB_ENABLED", false),
		Database:        dbconfig.NewConfigFromEnv(),
		ShutdownTimeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
	}
	if cfg.InstanceName == "" {
		cfg.InstanceName = "liftcontrol"
	}

	comp, err := LoadCompetition(cfg.CompetitionFile)
	if err != nil {
		return nil, err
	}
	cfg.Competition = comp

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Validate reports the first inconsistency of the loaded configuration.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Competition == nil {
		return fmt.Errorf("no competition loaded")
	}
	return c.Competition.Validate()
}
