// Package kafkabridge connects the bridge's internal queues to Kafka: a
// dedicated goroutine subscribes to the inbound topic and feeds the
// inbound queue, and a dedicated goroutine drains the outbound queue
// onto the outbound topic.
package kafkabridge

import (
	"context"
	"errors"
	"log"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"github.com/johnjansen/lootopia-bridge/internal/queue"
)

// ConsumerConfig configures the broker connection: bootstrap servers, a
// single topic with broker-driven partition assignment (kafka-go does
// this automatically whenever GroupID is set), a consumer group id, and
// a poll interval.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// messageReader is the slice of *kafka.Reader that Consumer depends on,
// narrowed so tests can substitute a fake broker connection.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer owns a message reader and pushes every message it receives
// into an inbound queue.Queue.
type Consumer struct {
	reader messageReader
	topic  string
	group  string
	queue  *queue.Queue
	poll   time.Duration
}

// NewConsumer creates a Consumer. The reader subscribes to exactly one
// topic as a member of GroupID, letting the broker assign partitions
// and starting from the group's committed offset (or the end of the
// topic for a brand-new group).
func NewConsumer(cfg ConsumerConfig, q *queue.Queue) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     cfg.PollTimeout,
	})
	return newConsumer(reader, cfg, q)
}

func newConsumer(r messageReader, cfg ConsumerConfig, q *queue.Queue) *Consumer {
	return &Consumer{reader: r, topic: cfg.Topic, group: cfg.GroupID, queue: q, poll: cfg.PollTimeout}
}

// Run reads one message at a time and pushes its payload to the inbound
// queue, auto-committing offsets as it goes. Run returns once ctx is
// canceled; any other read error is logged and the loop continues.
func (c *Consumer) Run(ctx context.Context) {
	log.Printf("bridge/consumer: started for topic %s (group %s)", c.topic, c.group)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			log.Printf("bridge/consumer: read error: %v", err)
			continue
		}

		if len(msg.Value) == 0 {
			continue
		}

		// Bound the push so a permanently full inbound queue (no
		// connected clients ever draining it) degrades to a dropped,
		// logged message instead of wedging this goroutine forever.
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout(c.poll))
		ok := c.queue.Push(pushCtx, msg.Value)
		cancel()
		if !ok {
			log.Printf("bridge/consumer: dropping message; inbound queue unavailable or full")
		}
	}

	log.Printf("bridge/consumer: shutting down")
	if err := c.reader.Close(); err != nil {
		log.Printf("bridge/consumer: error closing reader: %v", err)
	}
}

func pushTimeout(poll time.Duration) time.Duration {
	if poll <= 0 {
		return 5 * time.Second
	}
	return poll * 10
}
