package queue

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New(4)
	ctx := context.Background()

	want := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, p := range want {
		if !q.Push(ctx, p) {
			t.Fatalf("Push(%q) = false; want true", p)
		}
	}

	for _, w := range want {
		got, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() ok = false; want true")
		}
		if string(got) != string(w) {
			t.Errorf("TryPop() = %q; want %q", got, w)
		}
	}
}

func TestQueue_BoundRespected(t *testing.T) {
	q := New(2)
	ctx := context.Background()

	if !q.Push(ctx, []byte("a")) {
		t.Fatal("first push should succeed")
	}
	if !q.Push(ctx, []byte("b")) {
		t.Fatal("second push should succeed")
	}

	if q.Len() > q.Cap() {
		t.Fatalf("Len() = %d exceeds Cap() = %d", q.Len(), q.Cap())
	}

	done := make(chan bool, 1)
	go func() {
		done <- q.Push(ctx, []byte("c"))
	}()

	select {
	case <-done:
		t.Fatal("Push on a full queue should block until space or close")
	case <-time.After(50 * time.Millisecond):
		// expected: still blocked
	}

	q.TryPop()
	if ok := <-done; !ok {
		t.Fatal("Push should have succeeded once space freed up")
	}
}

func TestQueue_CloseUnblocksPush(t *testing.T) {
	q := New(1)
	ctx := context.Background()

	if !q.Push(ctx, []byte("fills it")) {
		t.Fatal("first push should succeed")
	}

	result := make(chan bool, 1)
	go func() {
		result <- q.Push(ctx, []byte("blocked"))
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-result:
		if ok {
			t.Error("Push after Close should return false")
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Push did not wake up after Close")
	}

	if ok := q.Push(ctx, []byte("after close")); ok {
		t.Error("Push after Close should always return false")
	}
}

func TestQueue_PopOnClosedEmptyReturnsAbsent(t *testing.T) {
	q := New(2)
	q.Close()

	_, ok := q.TryPop()
	if ok {
		t.Error("TryPop on closed, empty queue should report absent, not panic or error")
	}
}

func TestQueue_PopDrainsResidualAfterClose(t *testing.T) {
	q := New(2)
	ctx := context.Background()
	q.Push(ctx, []byte("leftover"))
	q.Close()

	got, ok := q.TryPop()
	if !ok {
		t.Fatal("closed queue should still drain buffered payloads")
	}
	if string(got) != "leftover" {
		t.Errorf("TryPop() = %q; want leftover", got)
	}

	_, ok = q.TryPop()
	if ok {
		t.Error("queue should be empty after draining the one residual payload")
	}
}

func TestQueue_DestroyReleasesResidualPayloads(t *testing.T) {
	q := New(8)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		q.Push(ctx, []byte{byte(i)})
	}

	q.Destroy()

	if q.Len() != 0 {
		t.Errorf("Len() after Destroy = %d; want 0", q.Len())
	}
	if ok := q.Push(ctx, []byte("x")); ok {
		t.Error("Push after Destroy should return false")
	}
}

func TestQueue_ConcurrentPushPop(t *testing.T) {
	q := New(16)
	ctx := context.Background()
	const n = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Push(ctx, []byte{byte(i)})
		}
	}()

	received := 0
	for received < n {
		if _, ok := q.TryPop(); ok {
			received++
		}
	}
	wg.Wait()

	if q.Len() != 0 {
		t.Errorf("Len() after draining all pushes = %d; want 0", q.Len())
	}
}
