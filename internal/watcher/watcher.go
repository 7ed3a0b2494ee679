package watcher

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/errors"
	"github.com/sjzar/regionwatch/internal/iprange"
	"github.com/sjzar/regionwatch/internal/metrics"
	"github.com/sjzar/regionwatch/internal/model"
)

const (
	DefaultInterval = 5 * time.Second

	// stateBuffer bounds how far the watcher can run ahead of its consumer
	stateBuffer = 16
)

type Config struct {
	ProcessName string
	Port        uint32
	Interval    time.Duration
}

type Option func(*Watcher)

func WithFinder(f ProcessFinder) Option {
	return func(w *Watcher) { w.finder = f }
}

func WithResolver(r SocketResolver) Option {
	return func(w *Watcher) { w.resolver = r }
}

func WithMetrics(m metrics.Collector) Option {
	return func(w *Watcher) { w.metrics = m }
}

// Watcher polls the process and socket tables and emits deduplicated
// process states on the channel returned by Start.
type Watcher struct {
	config   Config
	source   iprange.Source
	finder   ProcessFinder
	resolver SocketResolver
	metrics  metrics.Collector
	sleep    func(time.Duration)

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	closed   atomic.Bool
	exited   atomic.Bool
	stopCh   chan struct{}
	done     chan struct{}
	err      error
}

func New(config Config, source iprange.Source, opts ...Option) *Watcher {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	w := &Watcher{
		config:   config,
		source:   source,
		finder:   NewSystemFinder(),
		resolver: NewSystemResolver(),
		metrics:  metrics.Nop{},
		sleep:    time.Sleep,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start 启动监视线程，返回状态变化通道
// 通道在监视线程退出时关闭，退出时不会再发出任何状态
func (w *Watcher) Start() (<-chan model.ProcessState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil, errors.WatcherAlreadyStarted()
	}
	w.started = true

	out := make(chan model.ProcessState, stateBuffer)
	go w.run(out)
	log.Info().Msgf("watching process %s on port %d every %s", w.config.ProcessName, w.config.Port, w.config.Interval)
	return out, nil
}

// IsRunning reports whether the loop has been started and has neither been
// asked to stop nor exited on its own.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	return started && !w.closed.Load() && !w.exited.Load()
}

// Stop sets the close flag and blocks until the loop goroutine exits.
// The flag is checked once per tick, so Stop can take up to one interval plus
// one poll. It returns the error that ended the loop, including a recovered panic.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	w.stopOnce.Do(func() {
		w.closed.Store(true)
		close(w.stopCh)
	})
	if !started {
		return nil
	}
	<-w.done
	return w.err
}

func (w *Watcher) run(out chan<- model.ProcessState) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)
	defer w.exited.Store(true)
	defer close(out)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("watcher panicked: %v", r)
			w.err = errors.WatcherPanic(r)
		}
	}()

	if err := w.loop(out); err != nil {
		log.Err(err).AnErr("cause", errors.RootCause(err)).Msg("watcher stopped")
		log.Debug().Msg(errors.FormatErrorChain(err))
		w.err = err
	}
}

type loopState struct {
	last   model.ProcessState
	pid    int32
	hasPid bool
}

func (w *Watcher) loop(out chan<- model.ProcessState) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ranges, err := w.source.Get(ctx)
	if err != nil {
		return err
	}
	w.metrics.RegionTableLoaded(ranges.Len())
	log.Debug().Msgf("region table loaded, %d prefixes", ranges.Len())

	st := &loopState{last: model.StateUnknown}
	for !w.closed.Load() {
		if err := w.poll(ctx, ranges, st, out); err != nil {
			return err
		}
		w.sleep(w.config.Interval)
	}
	return nil
}

func (w *Watcher) poll(ctx context.Context, ranges *iprange.IPRanges, st *loopState, out chan<- model.ProcessState) error {
	if st.hasPid && !w.finder.Exists(ctx, st.pid) {
		log.Debug().Msgf("process %d is gone", st.pid)
		st.hasPid = false
	}
	if !st.hasPid {
		st.pid, st.hasPid = w.finder.Find(ctx, w.config.ProcessName)
	}
	w.metrics.WatcherPoll(st.hasPid)

	if !st.hasPid {
		if resolved, ok := ResolveStopped(st.last); ok {
			w.emit(st, resolved, out)
		}
		return nil
	}

	w.emit(st, model.StateRunning, out)

	addrs := w.resolver.RemoteAddrs(ctx, st.pid, w.config.Port)
	if len(addrs) == 0 {
		w.emit(st, model.StateNotListening, out)
		return nil
	}

	for _, ip := range addrs {
		region, ok, err := ranges.Match(ip)
		if err != nil {
			return err
		}
		if ok {
			w.emit(st, model.Listening(region), out)
		} else {
			w.emit(st, model.StateNotListening, out)
		}
	}
	return nil
}

func (w *Watcher) emit(st *loopState, observed model.ProcessState, out chan<- model.ProcessState) {
	next, ok := Reduce(st.last, observed)
	if !ok {
		return
	}
	w.metrics.StateTransition(st.last, next)
	log.Debug().Msgf("process state %s -> %s", st.last, next)
	st.last = next
	if out == nil {
		return
	}

	select {
	case out <- next:
	case <-w.stopCh:
	}
}

// Probe runs a single detection pass outside the loop and returns the state
// the loop would hold after its first tick. It does not require Start.
func (w *Watcher) Probe(ctx context.Context) (model.ProcessState, error) {
	ranges, err := w.source.Get(ctx)
	if err != nil {
		return model.StateUnknown, err
	}
	st := &loopState{last: model.StateUnknown}
	if err := w.poll(ctx, ranges, st, nil); err != nil {
		return model.StateUnknown, err
	}
	return st.last, nil
}
