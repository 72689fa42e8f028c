package kafka

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

type Config struct {
	cfg     *sarama.Config
	brokers []string
	topics  []string
	groupID string
	sync    bool
	// rejoinBackoff is the pause between consumer group sessions.
	rejoinBackoff time.Duration
	log           zerolog.Logger
}

const DefaultRejoinBackoff = 2 * time.Second

type ConfigOpts func(*Config)

func WithSyncProducer() ConfigOpts {
	return func(c *Config) {
		c.sync = true
		c.cfg.Producer.RequiredAcks = sarama.WaitForAll
	}
}

func WithRetry(maxRetries int, backoff time.Duration) ConfigOpts {
	return func(c *Config) {
		c.cfg.Producer.Retry.Max = maxRetries
		c.cfg.Producer.Retry.Backoff = backoff
	}
}

func WithBrokers(brokers ...string) ConfigOpts {
	return func(c *Config) {
		c.brokers = brokers
	}
}

func WithTopics(topics ...string) ConfigOpts {
	return func(c *Config) {
		c.topics = topics
	}
}

// WithGroupID sets the consumer group shared by all service replicas.
func WithGroupID(groupID string) ConfigOpts {
	return func(c *Config) {
		c.groupID = groupID
	}
}

func WithConsumeOldest() ConfigOpts {
	return func(c *Config) {
		c.cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
}

func WithRejoinBackoff(backoff time.Duration) ConfigOpts {
	return func(c *Config) {
		c.rejoinBackoff = backoff
	}
}

func WithLogger(log zerolog.Logger) ConfigOpts {
	return func(c *Config) {
		c.log = log
	}
}

func NewConfig(opts ...ConfigOpts) *Config {
	s := sarama.NewConfig()
	s.Version = sarama.V2_8_0_0
	s.Producer.RequiredAcks = sarama.WaitForLocal
	s.Producer.Partitioner = sarama.NewHashPartitioner
	s.Producer.Return.Successes = true
	s.Producer.Return.Errors = true
	cfg := &Config{
		cfg:           s,
		rejoinBackoff: DefaultRejoinBackoff,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *Config) IsSync() bool {
	return c.sync
}

func (c *Config) GetTopics() []string {
	return c.topics
}

func (c *Config) AddTopics(topics ...string) {
	c.topics = append(c.topics, topics...)
}

func (c *Config) GetBrokers() []string {
	return c.brokers
}

// GetGroupID falls back to the topic name when no group is configured.
func (c *Config) GetGroupID(topic string) string {
	if c.groupID != "" {
		return c.groupID
	}
	return topic
}

func (c *Config) GetRejoinBackoff() time.Duration {
	return c.rejoinBackoff
}

func (c *Config) GetConfig() *sarama.Config {
	return c.cfg
}
