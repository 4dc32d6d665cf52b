// Package kafka wraps segmentio/kafka-go with the producer, consumer and
// topic administration used by the batch worker.
package kafka

import (
	"context"
	"time"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish.  Partition is ignored unless the
// writer uses a manual balancer.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// MessageHandler processes one consumed message.
type MessageHandler func(ctx context.Context, msg *Message) error
