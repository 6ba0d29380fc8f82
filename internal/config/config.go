// Package config loads the settings the bridge needs to start: the
// WebSocket listener address, the Kafka topics/brokers, and the sizing of
// the internal message queues. Loading goes through envy so a sibling
// .env file is picked up the same way the rest of the Buffkit family of
// tools expects it to be.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gobuffalo/envy"
)

// Config holds every setting the bridge needs at startup. Every field
// except Interface is required; Load returns an error naming the first missing or
// unparseable variable rather than starting in a partially-configured
// state.
type Config struct {
	// Port is the TCP port the WebSocket listener binds to.
	Port int

	// Interface is the bind address for the listener. Empty means all
	// interfaces.
	Interface string

	// KafkaBrokers is the bootstrap.servers-style comma-separated list of
	// broker addresses.
	KafkaBrokers []string

	// KafkaConsumerTopic is the inbound topic: broker -> clients.
	KafkaConsumerTopic string

	// KafkaProducerTopic is the outbound topic: clients -> broker.
	KafkaProducerTopic string

	// KafkaGroupID is the consumer group identifier for the inbound
	// reader.
	KafkaGroupID string

	// MsgQueueCap is the capacity of each of the two internal bounded
	// queues.
	MsgQueueCap int

	// KafkaPollMillis is the poll/service timeout, in milliseconds, used
	// by both the consumer and the producer loops.
	KafkaPollMillis int
}

// requiredVars lists every environment variable Load needs, in the order
// spec'd. Keeping this as a slice (rather than reflecting over struct
// tags) matches the teacher repo's habit of favoring a short explicit
// list over a generalized loader for a fixed, small set of settings.
var requiredVars = []string{
	"PORT",
	"KAFKA_BROKERS",
	"KAFKA_CONSUMER_TOPIC",
	"KAFKA_PRODUCER_TOPIC",
	"KAFKA_GROUP_ID",
	"MSG_QUEUE_CAP",
	"KAFKA_POLL",
}

// Load reads and validates the bridge configuration from the process
// environment, after giving envy a chance to load a sibling .env file.
// INTERFACE is the only variable allowed to be empty (it means "bind to
// all interfaces"); every other variable in requiredVars must be present
// and, where numeric, must parse.
func Load() (*Config, error) {
	envy.Load()
	// envy.Get reads envy's own copy of the environment; refresh it so
	// variables set after the process started are seen too.
	envy.Reload()

	for _, name := range requiredVars {
		if strings.TrimSpace(envy.Get(name, "")) == "" {
			return nil, fmt.Errorf("config: missing required environment variable %s", name)
		}
	}

	port, err := strconv.Atoi(envy.Get("PORT", ""))
	if err != nil {
		return nil, fmt.Errorf("config: PORT must be an integer: %w", err)
	}

	queueCap, err := strconv.Atoi(envy.Get("MSG_QUEUE_CAP", ""))
	if err != nil {
		return nil, fmt.Errorf("config: MSG_QUEUE_CAP must be an integer: %w", err)
	}
	if queueCap <= 0 {
		return nil, fmt.Errorf("config: MSG_QUEUE_CAP must be > 0, got %d", queueCap)
	}

	pollMillis, err := strconv.Atoi(envy.Get("KAFKA_POLL", ""))
	if err != nil {
		return nil, fmt.Errorf("config: KAFKA_POLL must be an integer: %w", err)
	}

	brokers := splitBrokers(envy.Get("KAFKA_BROKERS", ""))
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config: KAFKA_BROKERS must name at least one broker")
	}

	return &Config{
		Port:               port,
		Interface:          envy.Get("INTERFACE", ""),
		KafkaBrokers:       brokers,
		KafkaConsumerTopic: envy.Get("KAFKA_CONSUMER_TOPIC", ""),
		KafkaProducerTopic: envy.Get("KAFKA_PRODUCER_TOPIC", ""),
		KafkaGroupID:       envy.Get("KAFKA_GROUP_ID", ""),
		MsgQueueCap:        queueCap,
		KafkaPollMillis:    pollMillis,
	}, nil
}

func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
