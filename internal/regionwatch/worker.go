package regionwatch

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/event"
	"github.com/sjzar/regionwatch/internal/metrics"
	"github.com/sjzar/regionwatch/internal/model"
	"github.com/sjzar/regionwatch/internal/ready"
)

type Watcher interface {
	Start() (<-chan model.ProcessState, error)
	IsRunning() bool
}

type Processor interface {
	Start(region string)
	Stop() error
}

// Worker 后台工作线程：等待前端就绪后启动进程监视，
// 把状态变化转成处理器的启停，并按固定间隔发布 process-check 心跳
type Worker struct {
	gate      *ready.Gate
	watcher   Watcher
	processor Processor
	sink      event.Sink
	metrics   metrics.Collector
	timeout   time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
	err       error
}

func NewWorker(gate *ready.Gate, watcher Watcher, processor Processor, sink event.Sink, m metrics.Collector, timeout time.Duration) *Worker {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Worker{
		gate:      gate,
		watcher:   watcher,
		processor: processor,
		sink:      sink,
		metrics:   m,
		timeout:   timeout,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

// Stop asks the drive loop to exit and waits for it.
func (w *Worker) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	started := true
	w.startOnce.Do(func() {
		started = false
		close(w.done)
	})
	if started {
		<-w.done
	}
	return w.err
}

// Done is closed once the drive loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run() {
	defer close(w.done)

	log.Info().Msg("waiting for load")
	select {
	case <-w.gate.Done():
	case <-w.stopCh:
		return
	}

	states, err := w.watcher.Start()
	if err != nil {
		log.Err(err).Msg("start watcher failed")
		w.err = err
		return
	}

	w.drive(states)
	log.Info().Msg("background worker stopped")
}

func (w *Worker) drive(states <-chan model.ProcessState) {
	displayed := model.StateUnknown
	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	for {
		timer.Reset(w.timeout)

		// a timeout tick counts as Unknown for transitions and keeps the displayed state
		action := model.StateUnknown
		select {
		case <-w.stopCh:
			return
		case state, ok := <-states:
			if !ok {
				log.Info().Msg("watcher channel closed")
				return
			}
			displayed = state
			action = state
		case <-timer.C:
			if !w.watcher.IsRunning() {
				log.Info().Msg("watcher is not running")
				return
			}
		}

		w.sink.Emit(event.ProcessCheck, model.ProcessCheckResult{
			CheckedOn: time.Now(),
			State:     displayed,
		})
		w.metrics.Heartbeat(displayed)

		switch action.Status {
		case model.ProcessListening:
			w.processor.Start(action.Region)
		case model.ProcessStopped:
			if err := w.processor.Stop(); err != nil {
				log.Err(err).Msg("stop processor failed")
			}
		}
	}
}
