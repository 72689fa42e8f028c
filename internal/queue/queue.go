// Package queue abstracts the transport that carries content change events
// from the CMS to the search service.
package queue

import (
	"context"
	"errors"
)

// ErrUnprocessable marks a message that will fail on every delivery. Handlers
// wrap it so consumers can commit past the message instead of retrying it.
var ErrUnprocessable = errors.New("unprocessable message")

type Enqueuer interface {
	Enqueue(ctx context.Context, topic, key string, data []byte) error
	Close() error
}

// MessageHandler processes one message. An error wrapping ErrUnprocessable
// skips the message; any other error stops consumption of the current claim
// without committing the message.
type MessageHandler func(ctx context.Context, data []byte) error

type Dequeuer interface {
	Dequeue(ctx context.Context, topic string, handler MessageHandler) error
	Close() error
}
