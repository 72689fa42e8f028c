package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/BRO3886/sitesearch/internal/queue"
)

type KafkaEnqueuer struct {
	syncProducer  sarama.SyncProducer
	asyncProducer sarama.AsyncProducer
	cfg           *Config
	log           zerolog.Logger
	// async results are read back in send order, one caller at a time.
	asyncMu sync.Mutex
}

func NewEnqueuer(ctx context.Context, c *Config) (queue.Enqueuer, error) {
	if c.IsSync() {
		p, err := sarama.NewSyncProducer(c.GetBrokers(), c.GetConfig())
		if err != nil {
			return nil, err
		}
		return newEnqueuer(c, p, nil), nil
	}
	p, err := sarama.NewAsyncProducer(c.GetBrokers(), c.GetConfig())
	if err != nil {
		return nil, err
	}
	return newEnqueuer(c, nil, p), nil
}

func newEnqueuer(c *Config, syncProducer sarama.SyncProducer, asyncProducer sarama.AsyncProducer) *KafkaEnqueuer {
	return &KafkaEnqueuer{
		syncProducer:  syncProducer,
		asyncProducer: asyncProducer,
		cfg:           c,
		log:           c.log.With().Str("component", "kafka").Logger(),
	}
}

// Enqueue publishes data keyed by key so that every change to one record
// lands on the same partition, in order.
func (k *KafkaEnqueuer) Enqueue(ctx context.Context, topic, key string, data []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	if k.syncProducer != nil {
		return k.enqueueSync(msg)
	}
	return k.enqueueAsync(ctx, msg)
}

func (k *KafkaEnqueuer) enqueueSync(msg *sarama.ProducerMessage) error {
	partition, offset, err := k.syncProducer.SendMessage(msg)
	if err != nil {
		return err
	}
	k.log.Debug().
		Str("topic", msg.Topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("message sent")
	return nil
}

func (k *KafkaEnqueuer) enqueueAsync(ctx context.Context, msg *sarama.ProducerMessage) error {
	k.asyncMu.Lock()
	defer k.asyncMu.Unlock()

	select {
	case k.asyncProducer.Input() <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case sent := <-k.asyncProducer.Successes():
		k.log.Debug().
			Str("topic", sent.Topic).
			Int32("partition", sent.Partition).
			Int64("offset", sent.Offset).
			Msg("message sent")
		return nil
	case perr := <-k.asyncProducer.Errors():
		if perr == nil {
			return errors.New("async producer closed")
		}
		return perr.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *KafkaEnqueuer) Close() error {
	if k.syncProducer != nil {
		if err := k.syncProducer.Close(); err != nil {
			return err
		}
	}
	if k.asyncProducer != nil {
		if err := k.asyncProducer.Close(); err != nil {
			return err
		}
	}
	return nil
}
