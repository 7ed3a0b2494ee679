package regionwatch

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjzar/regionwatch/internal/errors"
	"github.com/sjzar/regionwatch/internal/event"
	"github.com/sjzar/regionwatch/internal/model"
	"github.com/sjzar/regionwatch/internal/ready"
)

type fakeWatcher struct {
	ch       chan model.ProcessState
	running  atomic.Bool
	started  atomic.Bool
	startErr error
}

func newFakeWatcher() *fakeWatcher {
	w := &fakeWatcher{ch: make(chan model.ProcessState, 8)}
	w.running.Store(true)
	return w
}

func (w *fakeWatcher) Start() (<-chan model.ProcessState, error) {
	w.started.Store(true)
	if w.startErr != nil {
		return nil, w.startErr
	}
	return w.ch, nil
}

func (w *fakeWatcher) IsRunning() bool {
	return w.running.Load()
}

type fakeProcessor struct {
	mu     sync.Mutex
	starts []string
	stops  int
}

func (p *fakeProcessor) Start(region string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts = append(p.starts, region)
}

func (p *fakeProcessor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return nil
}

func (p *fakeProcessor) snapshot() ([]string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.starts...), p.stops
}

func nextCheck(t *testing.T, ch <-chan event.Event) model.ProcessCheckResult {
	t.Helper()
	for {
		select {
		case e := <-ch:
			if e.Name == event.ProcessCheck {
				return e.Payload.(model.ProcessCheckResult)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no process-check heartbeat")
		}
	}
}

func readyGate() *ready.Gate {
	g := ready.NewGate()
	g.MarkReady()
	return g
}

func TestWorkerHeartbeatWithSilentWatcher(t *testing.T) {
	bus := event.NewBus()
	ch, cancel := bus.Subscribe(32)
	defer cancel()

	w := NewWorker(readyGate(), newFakeWatcher(), &fakeProcessor{}, bus, nil, 10*time.Millisecond)
	w.Start()
	defer w.Stop()

	prev := nextCheck(t, ch)
	assert.Equal(t, model.StateUnknown, prev.State)
	for i := 0; i < 3; i++ {
		next := nextCheck(t, ch)
		assert.Equal(t, model.StateUnknown, next.State)
		assert.True(t, next.CheckedOn.After(prev.CheckedOn))
		prev = next
	}
}

func TestWorkerTransitions(t *testing.T) {
	bus := event.NewBus()
	ch, cancel := bus.Subscribe(32)
	defer cancel()

	watcher := newFakeWatcher()
	proc := &fakeProcessor{}
	w := NewWorker(readyGate(), watcher, proc, bus, nil, 20*time.Millisecond)
	w.Start()
	defer w.Stop()

	watcher.ch <- model.Listening("EU")
	check := nextCheck(t, ch)
	for check.State != model.Listening("EU") {
		check = nextCheck(t, ch)
	}

	// heartbeats keep the last real state and do not restart the processor
	assert.Equal(t, model.Listening("EU"), nextCheck(t, ch).State)
	assert.Equal(t, model.Listening("EU"), nextCheck(t, ch).State)
	starts, stops := proc.snapshot()
	assert.Equal(t, []string{"EU"}, starts)
	assert.Equal(t, 0, stops)

	watcher.ch <- model.StateStopped
	check = nextCheck(t, ch)
	for check.State != model.StateStopped {
		check = nextCheck(t, ch)
	}
	require.Eventually(t, func() bool {
		_, stops := proc.snapshot()
		return stops == 1
	}, time.Second, time.Millisecond)

	watcher.ch <- model.StateNotListening
	check = nextCheck(t, ch)
	for check.State != model.StateNotListening {
		check = nextCheck(t, ch)
	}
	starts, stops = proc.snapshot()
	assert.Equal(t, []string{"EU"}, starts)
	assert.Equal(t, 1, stops)
}

func TestWorkerExitsWhenWatcherStops(t *testing.T) {
	watcher := newFakeWatcher()
	w := NewWorker(readyGate(), watcher, &fakeProcessor{}, event.NewBus(), nil, 5*time.Millisecond)
	w.Start()

	watcher.running.Store(false)
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit")
	}
	assert.NoError(t, w.Stop())
}

func TestWorkerExitsWhenChannelCloses(t *testing.T) {
	watcher := newFakeWatcher()
	w := NewWorker(readyGate(), watcher, &fakeProcessor{}, event.NewBus(), nil, time.Hour)
	w.Start()

	require.Eventually(t, watcher.started.Load, time.Second, time.Millisecond)
	close(watcher.ch)
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestWorkerWaitsForGate(t *testing.T) {
	gate := ready.NewGate()
	watcher := newFakeWatcher()
	w := NewWorker(gate, watcher, &fakeProcessor{}, event.NewBus(), nil, 10*time.Millisecond)
	w.Start()
	defer w.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, watcher.started.Load())

	gate.MarkReady()
	require.Eventually(t, watcher.started.Load, time.Second, time.Millisecond)
}

func TestWorkerStopBeforeReady(t *testing.T) {
	w := NewWorker(ready.NewGate(), newFakeWatcher(), &fakeProcessor{}, event.NewBus(), nil, time.Second)
	w.Start()
	assert.NoError(t, w.Stop())

	w = NewWorker(ready.NewGate(), newFakeWatcher(), &fakeProcessor{}, event.NewBus(), nil, time.Second)
	assert.NoError(t, w.Stop())
	w.Start()
}

func TestWorkerStopBeforeReadyReleasesGoroutines(t *testing.T) {
	gate := ready.NewGate()
	base := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		w := NewWorker(gate, newFakeWatcher(), &fakeProcessor{}, event.NewBus(), nil, time.Second)
		w.Start()
		require.NoError(t, w.Stop())
	}

	// 闸门从未打开，不应残留阻塞的 goroutine
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= base
	}, time.Second, 10*time.Millisecond)
	assert.False(t, gate.IsReady())
}

func TestWorkerWatcherStartError(t *testing.T) {
	watcher := newFakeWatcher()
	watcher.startErr = errors.WatcherAlreadyStarted()
	w := NewWorker(readyGate(), watcher, &fakeProcessor{}, event.NewBus(), nil, time.Second)
	w.Start()

	<-w.Done()
	err := w.Stop()
	assert.True(t, errors.Is(err, errors.ErrTypeWatcher))
}
