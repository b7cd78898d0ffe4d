package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Account        AccountConfig
	Stream         StreamConfig
	CircuitBreaker CircuitBreakerConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Redis RedisConfig
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers       []string    `mapstructure:"brokers"`
	GroupID       string      `mapstructure:"group_id"`
	InboundTopic  string      `mapstructure:"inbound_topic"`
	OutboundTopic string      `mapstructure:"outbound_topic"`
	EventTopic    string      `mapstructure:"event_topic"`
	Retry         RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AccountConfig identifies the single bridged account. One account per
// process; bridging a second account means running a second instance.
type AccountConfig struct {
	ScreenName        string `mapstructure:"screen_name"`
	ConsumerKey       string `mapstructure:"consumer_key"`
	ConsumerSecret    string `mapstructure:"consumer_secret"`
	AccessToken       string `mapstructure:"access_token"`
	AccessTokenSecret string `mapstructure:"access_token_secret"`
	AllowPost         bool   `mapstructure:"allow_post"`
	Addressing        string `mapstructure:"addressing"`
}

type StreamConfig struct {
	Terms                []string       `mapstructure:"terms"`
	UserStream           bool           `mapstructure:"user_stream"`
	CheckRepliesInterval time.Duration  `mapstructure:"check_replies_interval"`
	PostRate             PostRateConfig `mapstructure:"post_rate"`
}

type PostRateConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
