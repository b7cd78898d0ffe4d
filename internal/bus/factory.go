package bus

import (
	"fmt"

	"streambridge/internal/config"
	"streambridge/internal/logger"
)

func NewPublisher(cfg config.BrokerConfig, log logger.Logger) (Publisher, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaConsumer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
