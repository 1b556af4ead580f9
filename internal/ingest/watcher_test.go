package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestWatcher(window time.Duration) (*Watcher, *[]string, *sync.Mutex) {
	var mu sync.Mutex
	var ingested []string
	w := &Watcher{
		window: window,
		ingest: func(_ context.Context, path string) error {
			mu.Lock()
			defer mu.Unlock()
			ingested = append(ingested, path)
			return nil
		},
		timers: make(map[string]*time.Timer),
	}
	return w, &ingested, &mu
}

func TestDebounceCoalescesRapidEvents(t *testing.T) {
	w, ingested, mu := newTestWatcher(30 * time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		w.enqueue(ctx, "a.md")
	}
	w.enqueue(ctx, "b.md")

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a.md", "b.md"}, *ingested)
}

func TestDebounceResetsWindowPerEvent(t *testing.T) {
	w, ingested, mu := newTestWatcher(50 * time.Millisecond)
	ctx := context.Background()

	w.enqueue(ctx, "a.md")
	time.Sleep(20 * time.Millisecond)
	w.enqueue(ctx, "a.md")
	time.Sleep(20 * time.Millisecond)

	// Two resets inside the window: nothing fired yet.
	mu.Lock()
	assert.Empty(t, *ingested)
	mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a.md"}, *ingested)
}

func TestCancelPendingStopsTimers(t *testing.T) {
	w, ingested, mu := newTestWatcher(30 * time.Millisecond)

	w.enqueue(context.Background(), "a.md")
	w.cancelPending()

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, *ingested)
}

func TestCancelledContextSkipsIngest(t *testing.T) {
	w, ingested, mu := newTestWatcher(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	w.enqueue(ctx, "a.md")
	cancel()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, *ingested)
}

func TestIsMarkdown(t *testing.T) {
	assert.True(t, isMarkdown("a.md"))
	assert.True(t, isMarkdown("b.MD"))
	assert.True(t, isMarkdown("c.markdown"))
	assert.False(t, isMarkdown("d.txt"))
	assert.False(t, isMarkdown("e"))
}
