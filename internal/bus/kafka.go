package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"streambridge/internal/config"
	"streambridge/internal/constants"
	"streambridge/internal/logger"
	"streambridge/pkg/errors"
	"streambridge/pkg/logging"
	"streambridge/pkg/metrics"
	"streambridge/pkg/models"
	"streambridge/pkg/retry"
)

type KafkaPublisher struct {
	writer *kafka.Writer
	cfg    config.KafkaConfig
	logger logger.Logger
}

func NewKafkaPublisher(cfg config.KafkaConfig, log logger.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaPublisher{writer: w, cfg: cfg, logger: log}
}

func (p *KafkaPublisher) PublishInbound(ctx context.Context, msg models.CanonicalMessage) error {
	return p.publish(ctx, p.cfg.InboundTopic, msg.MessageID, msg)
}

func (p *KafkaPublisher) PublishAck(ctx context.Context, userMessageID, sentMessageID string) error {
	return p.publish(ctx, p.cfg.EventTopic, userMessageID, models.DeliveryReport{
		Status:        models.ReportAck,
		UserMessageID: userMessageID,
		SentMessageID: sentMessageID,
		Timestamp:     time.Now().UTC(),
	})
}

func (p *KafkaPublisher) PublishNack(ctx context.Context, userMessageID, sentMessageID, reason string) error {
	return p.publish(ctx, p.cfg.EventTopic, userMessageID, models.DeliveryReport{
		Status:        models.ReportNack,
		UserMessageID: userMessageID,
		SentMessageID: sentMessageID,
		Reason:        reason,
		Timestamp:     time.Now().UTC(),
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: body,
			Time:  time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	reader      *kafka.Reader
	logger      logger.Logger
	serviceName string
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: "bridge-service",
	}
}

func (c *KafkaConsumer) ConsumeOutbound(ctx context.Context, handler HandlerFunc) error {
	topic := c.cfg.OutboundTopic
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
	)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		consumeCtx := logging.WithServiceName(ctx, c.serviceName)
		c.logger.InfowCtx(consumeCtx, "Started consuming outbound messages",
			"topic", topic,
		)

		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(consumeCtx, "Stopped consuming",
						"topic", topic,
						"reason", "context canceled",
					)
					return
				}
				c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
					"error", err,
					"topic", topic,
				)
				time.Sleep(time.Second)
				continue
			}

			if !c.handleMessage(consumeCtx, m.Value, handler, topic) {
				continue
			}
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				c.logger.ErrorwCtx(consumeCtx, "Failed to commit message",
					"error", err,
					"topic", topic,
				)
			}
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) Close() error {
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	c.wg.Wait()
	return err
}

// handleMessage reports whether the message's offset may be committed.
// Undecodable messages commit: redelivery cannot fix them. A processing
// failure does not commit: the handler reports outbound failures through
// nacks, so an error here means the report channel itself is down, and the
// uncommitted offset lets a restarted consumer produce the missing report.
func (c *KafkaConsumer) handleMessage(ctx context.Context, value []byte, handler HandlerFunc, topic string) bool {
	var msg models.CanonicalMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		c.logger.ErrorwCtx(ctx, "Failed to unmarshal outbound message",
			"error", err,
			"topic", topic,
		)
		return true
	}

	msgCtx := logging.WithMessageID(ctx, msg.MessageID)
	if msg.TraceID != "" {
		msgCtx = logging.WithTraceID(msgCtx, msg.TraceID)
	}

	if err := c.processMessageWithRetry(msgCtx, msg, handler, topic); err != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to process outbound message after retries",
			"error", err,
			"topic", topic,
		)
		return false
	}
	return true
}

func (c *KafkaConsumer) processMessageWithRetry(ctx context.Context, msg models.CanonicalMessage, handler HandlerFunc, topic string) error {
	policy := retry.DefaultPolicy()
	policy.MaxElapsedTime = 0

	if c.cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = c.cfg.Retry.MaxAttempts
	}
	if c.cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = c.cfg.Retry.InitialInterval
	}
	if c.cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = c.cfg.Retry.MaxInterval
	}
	if c.cfg.Retry.Multiplier > 0 {
		policy.Multiplier = c.cfg.Retry.Multiplier
	}
	if c.cfg.Retry.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = c.cfg.Retry.MaxElapsedTime
	}

	return retry.Do(ctx, policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, msg)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying outbound message processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}
