// Command bridge runs the Kafka-to-WebSocket bridge daemon: it consumes
// one Kafka topic and fans every message out to connected WebSocket
// clients, and forwards every client-originated message back onto a
// (possibly different) Kafka topic.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/johnjansen/lootopia-bridge/internal/config"
	"github.com/johnjansen/lootopia-bridge/internal/hub"
	"github.com/johnjansen/lootopia-bridge/internal/kafkabridge"
	"github.com/johnjansen/lootopia-bridge/internal/queue"
)

func main() {
	if err := run(); err != nil {
		log.Printf("bridge: fatal: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	inbound := queue.New(cfg.MsgQueueCap)
	outbound := queue.New(cfg.MsgQueueCap)

	h := hub.New(outbound)

	consumer := kafkabridge.NewConsumer(kafkabridge.ConsumerConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaConsumerTopic,
		GroupID:     cfg.KafkaGroupID,
		PollTimeout: time.Duration(cfg.KafkaPollMillis) * time.Millisecond,
	}, inbound)

	producer := kafkabridge.NewProducer(kafkabridge.ProducerConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaProducerTopic,
		PollTimeout: time.Duration(cfg.KafkaPollMillis) * time.Millisecond,
	}, outbound)

	router := mux.NewRouter()
	router.Handle("/ws", h)
	router.HandleFunc("/healthz", healthz(h)).Methods(http.MethodGet)

	addr := fmt.Sprintf("%s:%d", cfg.Interface, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		consumer.Run(gctx)
		return nil
	})
	group.Go(func() error {
		producer.Run(gctx)
		return nil
	})
	group.Go(func() error {
		h.RunDispatcher(gctx, inbound)
		return nil
	})
	group.Go(func() error {
		log.Printf("bridge: listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	<-gctx.Done()
	log.Printf("bridge: shutdown signal received")

	// Shutdown sequence: stop accepting new connections, close both
	// queues so the consumer and producer unblock, tear down every live
	// session, then let the worker goroutines above observe ctx.Done()
	// and exit.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("bridge: http server shutdown error: %v", err)
	}

	inbound.Close()
	outbound.Close()
	h.Shutdown()

	if err := group.Wait(); err != nil {
		return err
	}

	inbound.Destroy()
	outbound.Destroy()

	log.Printf("bridge: clean shutdown complete")
	return nil
}

func healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, h.SessionCount())
	}
}
