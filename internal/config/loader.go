package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"streambridge/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyDefaults(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.inbound_topic", "BROKER_KAFKA_INBOUND_TOPIC")
	viper.BindEnv("broker.kafka.outbound_topic", "BROKER_KAFKA_OUTBOUND_TOPIC")
	viper.BindEnv("broker.kafka.event_topic", "BROKER_KAFKA_EVENT_TOPIC")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	// Credentials normally arrive through the environment, not the file.
	viper.BindEnv("account.screen_name", "ACCOUNT_SCREEN_NAME")
	viper.BindEnv("account.consumer_key", "ACCOUNT_CONSUMER_KEY")
	viper.BindEnv("account.consumer_secret", "ACCOUNT_CONSUMER_SECRET")
	viper.BindEnv("account.access_token", "ACCOUNT_ACCESS_TOKEN")
	viper.BindEnv("account.access_token_secret", "ACCOUNT_ACCESS_TOKEN_SECRET")
	viper.BindEnv("account.allow_post", "ACCOUNT_ALLOW_POST")
	viper.BindEnv("account.addressing", "ACCOUNT_ADDRESSING")
}

func applyDefaults(cfg *Config) {
	if cfg.Broker.Kafka.InboundTopic == "" {
		cfg.Broker.Kafka.InboundTopic = constants.DefaultInboundTopic
	}
	if cfg.Broker.Kafka.OutboundTopic == "" {
		cfg.Broker.Kafka.OutboundTopic = constants.DefaultOutboundTopic
	}
	if cfg.Broker.Kafka.EventTopic == "" {
		cfg.Broker.Kafka.EventTopic = constants.DefaultEventTopic
	}
	if cfg.Account.Addressing == "" {
		cfg.Account.Addressing = "plain"
	}
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	return nil
}
