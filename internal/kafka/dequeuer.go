package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/BRO3886/sitesearch/internal/queue"
)

type KafkaDequeuer struct {
	mu             sync.Mutex
	consumerGroups map[string]sarama.ConsumerGroup
	cfg            *Config
	log            zerolog.Logger
}

func NewDequeuer(ctx context.Context, c *Config) (queue.Dequeuer, error) {
	d := &KafkaDequeuer{
		consumerGroups: make(map[string]sarama.ConsumerGroup),
		cfg:            c,
		log:            c.log.With().Str("component", "kafka").Logger(),
	}
	for _, topic := range c.GetTopics() {
		if _, err := d.group(topic); err != nil {
			_ = d.Close()
			return nil, err
		}
	}
	return d, nil
}

func (k *KafkaDequeuer) group(topic string) (sarama.ConsumerGroup, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if g, ok := k.consumerGroups[topic]; ok {
		return g, nil
	}
	g, err := sarama.NewConsumerGroup(k.cfg.GetBrokers(), k.cfg.GetGroupID(topic), k.cfg.GetConfig())
	if err != nil {
		return nil, err
	}
	k.consumerGroups[topic] = g
	return g, nil
}

// Dequeue consumes topic until ctx is done. Consume returns on every
// rebalance and whenever a handler fails, so it is called in a loop with a
// pause between sessions.
func (k *KafkaDequeuer) Dequeue(ctx context.Context, topic string, handler queue.MessageHandler) error {
	consumerGroup, err := k.group(topic)
	if err != nil {
		return err
	}

	h := NewConsumerGroupHandler(handler, k.log)
	return consumeLoop(ctx, k.cfg.GetRejoinBackoff(), func() error {
		return consumerGroup.Consume(ctx, []string{topic}, h)
	})
}

func consumeLoop(ctx context.Context, backoff time.Duration, consume func() error) error {
	for {
		if err := consume(); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil
		}
	}
}

func (k *KafkaDequeuer) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	var errs []error
	for topic, g := range k.consumerGroups {
		if err := g.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(k.consumerGroups, topic)
	}
	return errors.Join(errs...)
}
