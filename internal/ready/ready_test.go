package ready

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateReleasesAllWaiters(t *testing.T) {
	g := NewGate()

	var released atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Wait()
			released.Add(1)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), released.Load())
	assert.False(t, g.IsReady())

	g.MarkReady()
	require.Eventually(t, func() bool {
		return released.Load() == 3
	}, time.Second, time.Millisecond)
	wg.Wait()
}

func TestGateWaitAfterReady(t *testing.T) {
	g := NewGate()
	g.MarkReady()
	g.MarkReady()
	assert.True(t, g.IsReady())

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked after MarkReady")
	}
}

func TestGateDoneSelectsWithStop(t *testing.T) {
	g := NewGate()
	stop := make(chan struct{})

	result := make(chan string, 1)
	go func() {
		select {
		case <-g.Done():
			result <- "ready"
		case <-stop:
			result <- "stopped"
		}
	}()

	close(stop)
	select {
	case r := <-result:
		assert.Equal(t, "stopped", r)
	case <-time.After(time.Second):
		t.Fatal("waiter not released by stop")
	}
	assert.False(t, g.IsReady())

	g.MarkReady()
	select {
	case <-g.Done():
	default:
		t.Fatal("Done not closed after MarkReady")
	}
}
