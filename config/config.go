package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	postgres_wrapper "github.com/peertrade/tradecore/pkg/infra/postgres"
	redis_wrapper "github.com/peertrade/tradecore/pkg/infra/redis"
)

type AppConfig struct {
	ServiceName    string                           `yaml:"service_name"`
	TraderID       string                           `yaml:"trader_id"`
	PublishChannel string                           `yaml:"publish_channel"`
	JournalDB      *postgres_wrapper.PostgresConfig `yaml:"journal_db"`
	Redis          *redis_wrapper.RedisConfig       `yaml:"redis"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)
	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
