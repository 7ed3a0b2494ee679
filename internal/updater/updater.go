package updater

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/errors"
	"github.com/sjzar/regionwatch/internal/event"
	"github.com/sjzar/regionwatch/internal/metrics"
	"github.com/sjzar/regionwatch/internal/model"
)

const DefaultInterval = 60 * time.Second

type Option func(*AppUpdater)

// WithRestart sets the callback used once an update has been installed.
func WithRestart(fn func()) Option {
	return func(u *AppUpdater) { u.restart = fn }
}

func WithInterval(d time.Duration) Option {
	return func(u *AppUpdater) {
		if d > 0 {
			u.interval = d
		}
	}
}

func WithMetrics(m metrics.Collector) Option {
	return func(u *AppUpdater) { u.metrics = m }
}

// AppUpdater schedules update checks.
//
// mu is held for every check and install. The manual trigger only tries to
// acquire it, so a check that is already running is reported instead of queued.
type AppUpdater struct {
	source    Source
	installer Installer
	sink      event.Sink
	metrics   metrics.Collector
	restart   func()
	interval  time.Duration

	mu         sync.Mutex
	pending    atomic.Pointer[Release]
	downloaded atomic.Bool
	written    atomic.Int64

	wake chan struct{}

	bgMu     sync.Mutex
	bgCancel context.CancelFunc
	bgDone   chan struct{}
	stopped  bool
}

func New(source Source, installer Installer, sink event.Sink, opts ...Option) *AppUpdater {
	u := &AppUpdater{
		source:    source,
		installer: installer,
		sink:      sink,
		metrics:   metrics.Nop{},
		restart:   func() { log.Info().Msg("update installed, restart required") },
		interval:  DefaultInterval,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Check 检查更新，已有待安装的版本时直接返回 NewVersion
func (u *AppUpdater) Check(ctx context.Context) model.UpdaterState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.checkLocked(ctx)
}

func (u *AppUpdater) checkLocked(ctx context.Context) model.UpdaterState {
	if u.pending.Load() != nil {
		return model.UpdaterStateNewVersion
	}

	var state model.UpdaterState
	release, err := u.source.Check(ctx)
	switch {
	case err != nil:
		state = model.UpdaterFailed(err.Error())
	case release == nil:
		state = model.UpdaterStateUnknown
	default:
		log.Info().Msgf("new version available: %s", release.Version)
		u.pending.Store(release)
		state = model.UpdaterStateNewVersion
	}
	u.metrics.UpdateCheck(state)
	return state
}

// DownloadAndInstall installs the pending release at most once.
func (u *AppUpdater) DownloadAndInstall(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.downloaded.Load() {
		return nil
	}
	release := u.pending.Load()
	if release == nil {
		return errors.UpdateNotAvailable()
	}

	// 每次安装重新计数，失败重试不累加
	u.written.Store(0)
	err := u.installer.Install(ctx, release, func(n int64) {
		u.written.Add(n)
	})
	if err != nil {
		return err
	}
	u.downloaded.Store(true)
	return nil
}

// Setup runs the startup sequence: one check, then either install and
// restart, or fall back to periodic checks. Nothing is scheduled once ctx
// is cancelled.
func (u *AppUpdater) Setup(ctx context.Context) {
	state := u.Check(ctx)
	if ctx.Err() != nil {
		return
	}

	switch state.Status {
	case model.UpdaterNewVersion:
		u.publish(state)
		if err := u.DownloadAndInstall(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Err(err).Msg("could not download and install update")
			u.RunPeriodically()
			return
		}
		if ctx.Err() != nil {
			return
		}
		u.restart()
	case model.UpdaterError:
		log.Error().Msgf("update check: %s", state.Message)
		fallthrough
	default:
		u.RunPeriodically()
	}
}

// RunPeriodically 启动后台定时检查，已在运行或已 Stop 时不做任何事
func (u *AppUpdater) RunPeriodically() {
	u.bgMu.Lock()
	defer u.bgMu.Unlock()
	if u.bgCancel != nil || u.stopped {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	u.bgCancel = cancel
	u.bgDone = done

	go u.loop(ctx, done)
}

func (u *AppUpdater) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(u.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-u.wake:
			log.Debug().Msg("manual update check")
		}

		state := u.Check(ctx)
		if ctx.Err() != nil {
			return
		}
		u.publish(state)
		timer.Reset(u.interval)
	}
}

// IsBackgroundCheckerRunning reports whether periodic checks are scheduled.
func (u *AppUpdater) IsBackgroundCheckerRunning() bool {
	u.bgMu.Lock()
	defer u.bgMu.Unlock()
	return u.bgCancel != nil
}

// ForcePeriodicCheck cuts the current wait of the periodic loop short.
// At most one wake is kept pending.
func (u *AppUpdater) ForcePeriodicCheck() {
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

// CheckNow 处理手动检查更新请求
// 已有检查在进行时发布 "already running" 错误状态而不是排队
func (u *AppUpdater) CheckNow() error {
	if !u.mu.TryLock() {
		u.publish(model.UpdaterFailed(errors.ErrCheckRunning.Message))
		return errors.ErrCheckRunning
	}
	defer u.mu.Unlock()

	if u.IsBackgroundCheckerRunning() {
		u.ForcePeriodicCheck()
	} else {
		log.Debug().Msg("update checker is not running, manual check ignored")
	}
	return nil
}

// Stop cancels the periodic loop and waits for it to exit. The loop cannot
// be started again afterwards.
func (u *AppUpdater) Stop() error {
	u.bgMu.Lock()
	cancel, done := u.bgCancel, u.bgDone
	u.bgCancel, u.bgDone = nil, nil
	u.stopped = true
	u.bgMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Pending returns the release waiting to be installed, if any.
func (u *AppUpdater) Pending() *Release {
	return u.pending.Load()
}

// Progress reports the number of downloaded bytes and whether the install finished.
func (u *AppUpdater) Progress() (int64, bool) {
	return u.written.Load(), u.downloaded.Load()
}

func (u *AppUpdater) publish(state model.UpdaterState) {
	u.sink.Emit(event.Updater, model.UpdaterResult{
		CheckedOn: time.Now(),
		State:     state,
	})
}
