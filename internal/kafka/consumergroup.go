package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/BRO3886/sitesearch/internal/queue"
)

type ConsumerGroupHandler struct {
	handler queue.MessageHandler
	log     zerolog.Logger
}

func NewConsumerGroupHandler(handler queue.MessageHandler, log zerolog.Logger) sarama.ConsumerGroupHandler {
	return &ConsumerGroupHandler{
		handler: handler,
		log:     log,
	}
}

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *ConsumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim implements sarama.ConsumerGroupHandler. A message is marked
// only after the handler accepted it or reported it unprocessable.
func (c *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) (err error) {
	log := c.log.With().Str("topic", claim.Topic()).Int32("partition", claim.Partition()).Logger()
	log.Info().Msg("consuming claim")
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("handler panicked")
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.handler(session.Context(), message.Value); err != nil {
				if !errors.Is(err, queue.ErrUnprocessable) {
					log.Error().Err(err).Int64("offset", message.Offset).Msg("error handling message")
					return err
				}
				log.Warn().Err(err).Int64("offset", message.Offset).Msg("skipping message")
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *ConsumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	return nil
}
