package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingPurger struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (p *countingPurger) PurgeStale(ctx context.Context) (int64, error) {
	p.calls.Add(1)
	return p.n, p.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanupManager_RunsImmediatelyAndOnTick(t *testing.T) {
	purger := &countingPurger{n: 3}
	var mu sync.Mutex
	var purged int64
	cm := NewCleanupManager(purger, func(n int64) {
		mu.Lock()
		purged += n
		mu.Unlock()
	}, discard(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return purger.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cm.Stop()
	cm.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, purged, int64(9))
}

func TestCleanupManager_ErrorsAreNotObserved(t *testing.T) {
	purger := &countingPurger{err: errors.New("db down")}
	observed := false
	cm := NewCleanupManager(purger, func(int64) { observed = true }, discard(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cm.Start(ctx)

	assert.Equal(t, int32(1), purger.calls.Load())
	assert.False(t, observed)
}
