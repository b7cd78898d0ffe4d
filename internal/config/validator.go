package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic checks the process-lifetime configuration. Any failure here
// is fatal at startup; no session may start on a partially valid config.
func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateRedis(cfg.Database.Redis); err != nil {
		errors = append(errors, err)
	}

	if err := validateAccount(cfg.Account); err != nil {
		errors = append(errors, err)
	}

	if err := validateStream(cfg.Stream, cfg.Account); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Type == "" {
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	}

	switch cfg.Type {
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.InboundTopic == "" || cfg.OutboundTopic == "" || cfg.EventTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka",
			Message: "inbound_topic, outbound_topic and event_topic are required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.InitialInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateAccount(cfg AccountConfig) error {
	if cfg.ScreenName == "" {
		return &ValidationError{
			Field:   "account.screen_name",
			Message: "account screen name is required",
		}
	}

	required := map[string]string{
		"account.consumer_key":        cfg.ConsumerKey,
		"account.consumer_secret":     cfg.ConsumerSecret,
		"account.access_token":        cfg.AccessToken,
		"account.access_token_secret": cfg.AccessTokenSecret,
	}
	for field, value := range required {
		if value == "" {
			return &ValidationError{
				Field:   field,
				Message: "credential is required",
			}
		}
	}

	switch cfg.Addressing {
	case "plain", "mention":
	default:
		return &ValidationError{
			Field:   "account.addressing",
			Message: fmt.Sprintf("unknown addressing strategy: %s (supported: plain, mention)", cfg.Addressing),
		}
	}

	return nil
}

func validateStream(cfg StreamConfig, account AccountConfig) error {
	for i, term := range cfg.Terms {
		if strings.TrimSpace(term) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("stream.terms[%d]", i),
				Message: "tracked term cannot be empty",
			}
		}
	}

	if cfg.CheckRepliesInterval < 0 {
		return &ValidationError{
			Field:   "stream.check_replies_interval",
			Message: "interval must be non-negative (0 disables polling)",
		}
	}

	if cfg.UserStream && account.Addressing != "mention" {
		return &ValidationError{
			Field:   "stream.user_stream",
			Message: "user stream requires the mention addressing strategy",
		}
	}

	if len(cfg.Terms) == 0 && !cfg.UserStream && cfg.CheckRepliesInterval == 0 {
		return &ValidationError{
			Field:   "stream",
			Message: "at least one subscription is required (terms, user_stream or check_replies_interval)",
		}
	}

	if cfg.PostRate.RPS < 0 {
		return &ValidationError{
			Field:   "stream.post_rate.rps",
			Message: "rps must be non-negative",
		}
	}

	return nil
}
