package kafkabridge

import (
	"context"
	"log"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"github.com/johnjansen/lootopia-bridge/internal/queue"
)

// ProducerConfig configures the broker connection the producer writes
// to.
type ProducerConfig struct {
	Brokers     []string
	Topic       string
	PollTimeout time.Duration
}

// messageWriter is the slice of *kafka.Writer that Producer depends on,
// narrowed so tests can substitute a fake broker connection.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer drains an outbound queue.Queue and writes every payload to
// Kafka as its own message.
type Producer struct {
	writer messageWriter
	topic  string
	queue  *queue.Queue
	poll   time.Duration
}

// NewProducer creates a Producer. BatchSize: 1 forces every WriteMessages
// call to flush immediately rather than wait to accumulate a larger
// batch, optimizing for low latency over throughput.
func NewProducer(cfg ProducerConfig, q *queue.Queue) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    1,
		BatchTimeout: time.Millisecond,
		Async:        false,
	}
	return newProducer(writer, cfg, q)
}

func newProducer(w messageWriter, cfg ProducerConfig, q *queue.Queue) *Producer {
	return &Producer{writer: w, topic: cfg.Topic, queue: q, poll: cfg.PollTimeout}
}

// Run drains the outbound queue in a loop, writing each payload as its
// own Kafka message; when the queue is empty, it paces the next drain
// attempt with the configured poll interval rather than busy-spinning.
// Run returns once ctx is canceled and the outbound queue has been
// drained of whatever was already buffered.
func (p *Producer) Run(ctx context.Context) {
	log.Printf("bridge/producer: started for topic %s", p.topic)

	ticker := time.NewTicker(pollInterval(p.poll))
	defer ticker.Stop()

loop:
	for {
		for ctx.Err() == nil {
			payload, ok := p.queue.TryPop()
			if !ok {
				break
			}
			p.write(ctx, payload)
		}

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
	}

	// Drain whatever was buffered before the shutdown signal arrived.
	for {
		payload, ok := p.queue.TryPop()
		if !ok {
			break
		}
		p.write(context.Background(), payload)
	}

	log.Printf("bridge/producer: shutting down")
	if err := p.writer.Close(); err != nil {
		log.Printf("bridge/producer: error closing writer: %v", err)
	}
}

func (p *Producer) write(ctx context.Context, payload []byte) {
	err := p.writer.WriteMessages(ctx, kafka.Message{Value: payload})
	if err != nil {
		log.Printf("bridge/producer: write error: %v", err)
	}
}

func pollInterval(poll time.Duration) time.Duration {
	if poll <= 0 {
		return 100 * time.Millisecond
	}
	return poll
}
