package kafkabridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"github.com/johnjansen/lootopia-bridge/internal/queue"
)

// fakeReader replays a fixed slice of messages, then blocks until ctx is
// canceled -- the shape of a real kafka.Reader once a partition is
// caught up.
type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.messages) > 0 {
		m := f.messages[0]
		f.messages = f.messages[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestConsumer_PushesMessagesToQueue(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Value: []byte("one")},
		{Value: []byte("two")},
	}}
	q := queue.New(4)
	c := newConsumer(reader, ConsumerConfig{Topic: "t", GroupID: "g", PollTimeout: 10 * time.Millisecond}, q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	seen := map[string]bool{}
	for len(seen) < 2 {
		if payload, ok := q.TryPop(); ok {
			seen[string(payload)] = true
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for messages; saw %v", seen)
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !seen["one"] || !seen["two"] {
		t.Fatalf("unexpected message set: %v", seen)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	reader.mu.Lock()
	closed := reader.closed
	reader.mu.Unlock()
	if !closed {
		t.Error("reader was not closed on shutdown")
	}
}

func TestConsumer_IgnoresEmptyPayloads(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Value: nil},
		{Value: []byte("real")},
	}}
	q := queue.New(4)
	c := newConsumer(reader, ConsumerConfig{PollTimeout: 10 * time.Millisecond}, q)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	deadline := time.After(2 * time.Second)
	for {
		if payload, ok := q.TryPop(); ok {
			if string(payload) != "real" {
				t.Fatalf("payload = %q; want real", payload)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the non-empty message")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

var errBoom = errors.New("boom")

type erroringReader struct{ calls int }

func (e *erroringReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	e.calls++
	if e.calls == 1 {
		return kafka.Message{}, errBoom
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (e *erroringReader) Close() error { return nil }

func TestConsumer_TransientErrorDoesNotStopTheLoop(t *testing.T) {
	reader := &erroringReader{}
	q := queue.New(4)
	c := newConsumer(reader, ConsumerConfig{PollTimeout: 10 * time.Millisecond}, q)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context deadline")
	}

	if reader.calls < 2 {
		t.Errorf("expected the loop to keep calling ReadMessage after a transient error, got %d calls", reader.calls)
	}
}
