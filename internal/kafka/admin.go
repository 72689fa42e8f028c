package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"
)

type topicCreator interface {
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
	Close() error
}

// EnsureTopic creates topic with the given partition count unless it
// already exists.
func EnsureTopic(c *Config, topic string, partitions int) error {
	admin, err := sarama.NewClusterAdmin(c.GetBrokers(), c.GetConfig())
	if err != nil {
		return fmt.Errorf("cluster admin: %w", err)
	}
	defer admin.Close()
	return ensureTopic(admin, topic, partitions)
}

func ensureTopic(admin topicCreator, topic string, partitions int) error {
	if partitions <= 0 {
		partitions = 1
	}
	err := admin.CreateTopic(topic, &sarama.TopicDetail{
		NumPartitions:     int32(partitions),
		ReplicationFactor: 1,
	}, false)
	if err == nil || errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return nil
	}
	var topicErr *sarama.TopicError
	if errors.As(err, &topicErr) && topicErr.Err == sarama.ErrTopicAlreadyExists {
		return nil
	}
	return fmt.Errorf("create topic %s: %w", topic, err)
}
