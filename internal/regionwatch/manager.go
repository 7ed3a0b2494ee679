package regionwatch

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/errors"
	"github.com/sjzar/regionwatch/internal/event"
	"github.com/sjzar/regionwatch/internal/iprange"
	"github.com/sjzar/regionwatch/internal/metrics"
	"github.com/sjzar/regionwatch/internal/model"
	"github.com/sjzar/regionwatch/internal/processor"
	"github.com/sjzar/regionwatch/internal/ready"
	"github.com/sjzar/regionwatch/internal/regionwatch/conf"
	"github.com/sjzar/regionwatch/internal/regionwatch/http"
	"github.com/sjzar/regionwatch/internal/regionwatch/webhook"
	"github.com/sjzar/regionwatch/internal/updater"
	"github.com/sjzar/regionwatch/internal/watcher"
	"github.com/sjzar/regionwatch/pkg/config"
	"github.com/sjzar/regionwatch/pkg/version"
)

// Manager 组装并管理所有后台服务
type Manager struct {
	conf *conf.Config
	cm   *config.Manager

	bus       *event.Bus
	gate      *ready.Gate
	metrics   *metrics.Prometheus
	watcher   *watcher.Watcher
	processor *processor.Processor
	installer *updater.Downloader
	updater   *updater.AppUpdater
	worker    *Worker
	webhook   *webhook.Service
	http      *http.Service

	mu       sync.Mutex
	cancel   context.CancelFunc
	restart  atomic.Bool
	stopOnce sync.Once
	stopErr  error

	// reexec starts the replacement process after shutdown
	reexec func(path string) error
}

func New() *Manager {
	return &Manager{
		reexec: reexec,
	}
}

// Run 加载配置，启动所有服务并阻塞到 ctx 取消或收到重启请求
func (m *Manager) Run(ctx context.Context, configPath string, cmdConf map[string]any) error {
	if err := m.Init(configPath, cmdConf); err != nil {
		return err
	}
	return m.Serve(ctx)
}

// Init builds every service from the loaded configuration without starting any of them.
func (m *Manager) Init(configPath string, cmdConf map[string]any, opts ...watcher.Option) error {
	c, cm, err := conf.Load(configPath, cmdConf)
	if err != nil {
		return err
	}
	m.conf, m.cm = c, cm

	source, err := iprange.NewSource(c.Region.Source, c.Region.URL, c.GetCacheFile())
	if err != nil {
		return err
	}

	m.bus = event.NewBus()
	m.gate = ready.NewGate()
	m.metrics = metrics.NewPrometheus("")

	opts = append([]watcher.Option{watcher.WithMetrics(m.metrics)}, opts...)
	m.watcher = watcher.New(watcher.Config{
		ProcessName: c.Sniffer.ProcessName,
		Port:        uint32(c.Sniffer.Port),
		Interval:    c.Sniffer.CheckInterval,
	}, source, opts...)

	m.processor = processor.New(m.bus, processor.DefaultTick)

	m.installer = updater.NewDownloader(c.GetDownloadDir())
	m.updater = updater.New(
		updater.NewHTTPSource(c.Updater.Endpoint, version.Version, c.Updater.Target),
		m.installer,
		m.bus,
		updater.WithRestart(m.requestRestart),
		updater.WithInterval(c.Updater.Interval),
		updater.WithMetrics(m.metrics),
	)

	m.worker = NewWorker(m.gate, m.watcher, m.processor, m.bus, m.metrics, c.GetRecvTimeout())
	m.webhook = webhook.New(c, m.bus)
	m.http = http.NewService(c, m, m.bus, m.metrics.Handler())
	return nil
}

// Serve starts the services built by Init and blocks until ctx is cancelled
// or a restart is requested, then stops them in reverse order.
func (m *Manager) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	// 按依赖顺序启动服务
	if err := m.http.Start(); err != nil {
		return err
	}
	if err := m.webhook.Start(); err != nil {
		m.http.Stop()
		return err
	}
	m.worker.Start()

	if m.conf.Headless {
		log.Info().Msg("headless mode, skip waiting for the frontend")
		m.gate.MarkReady()
	}

	switch {
	case !m.conf.Updater.Enabled:
	case m.conf.Updater.Endpoint == "":
		log.Info().Msg("updater endpoint not configured, update checks disabled")
	default:
		go func() {
			select {
			case <-m.gate.Done():
			case <-ctx.Done():
				return
			}
			m.updater.Setup(ctx)
		}()
	}

	if m.cm.Watch(m.onConfigChange) {
		log.Debug().Msgf("watching config file in %s", m.cm.Path)
	}

	<-ctx.Done()
	err := m.Stop()

	if m.restart.Load() {
		if rerr := m.reexec(m.restartPath()); rerr != nil {
			log.Err(rerr).Msg("restart failed")
			err = errors.JoinErrors(err, rerr)
		}
	}
	return err
}

// Stop 按依赖的反序停止服务，只执行一次
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		var errs []error

		if err := m.updater.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := m.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := m.worker.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := m.processor.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := m.webhook.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := m.http.Stop(); err != nil {
			errs = append(errs, err)
		}

		m.stopErr = errors.JoinErrors(errs...)
		log.Info().Msg("all services stopped")
	})
	return m.stopErr
}

// Load 前端加载完成，打开就绪闸门
func (m *Manager) Load() model.LoadResult {
	m.gate.MarkReady()
	return model.LoadResult{
		Version:  version.Version,
		Settings: m.conf.Settings(),
	}
}

func (m *Manager) State() model.Snapshot {
	s := model.Snapshot{Ready: m.gate.IsReady()}
	if e, ok := m.bus.Last(event.ProcessCheck); ok {
		if r, ok := e.Payload.(model.ProcessCheckResult); ok {
			s.Process = &r
		}
	}
	if e, ok := m.bus.Last(event.Updater); ok {
		if r, ok := e.Payload.(model.UpdaterResult); ok {
			s.Updater = &r
		}
	}
	if region, ok := m.processor.Running(); ok {
		s.Processing = region
	}
	if r := m.updater.Pending(); r != nil {
		s.Pending = r.Version
	}
	s.Downloaded, s.Installed = m.updater.Progress()
	return s
}

// CheckUpdate 手动检查更新
func (m *Manager) CheckUpdate() error {
	return m.updater.CheckNow()
}

// InstallUpdate stops the checks and the watcher, installs the pending
// release and restarts into it.
func (m *Manager) InstallUpdate(ctx context.Context) error {
	if m.updater.Pending() == nil {
		return errors.UpdateNotAvailable()
	}

	if err := m.updater.Stop(); err != nil {
		return err
	}
	if err := m.watcher.Stop(); err != nil {
		log.Err(err).Msg("stop watcher failed")
	}

	if err := m.updater.DownloadAndInstall(ctx); err != nil {
		return err
	}
	m.requestRestart()
	return nil
}

func (m *Manager) Settings() model.Settings {
	return m.conf.Settings()
}

// SaveSettings 保存设置，重启后生效
func (m *Manager) SaveSettings(s model.Settings) error {
	if err := conf.Save(m.cm, s); err != nil {
		return err
	}
	m.bus.Emit(event.Settings, s)
	return nil
}

func (m *Manager) onConfigChange(e fsnotify.Event) {
	c := &conf.Config{}
	if err := m.cm.Load(c); err != nil {
		log.Err(err).Msgf("reload config %s failed", e.Name)
		return
	}
	log.Info().Msgf("config file changed: %s", e.Name)
	m.bus.Emit(event.Settings, c.Settings())
}

func (m *Manager) requestRestart() {
	m.restart.Store(true)
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// restartPath prefers the freshly installed binary over the running one.
func (m *Manager) restartPath() string {
	if _, installed := m.updater.Progress(); installed {
		if r := m.updater.Pending(); r != nil {
			return m.installer.Path(r)
		}
	}
	exe, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return exe
}

func reexec(path string) error {
	cmd := exec.Command(path, os.Args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return errors.Internal("restart failed", err)
	}
	log.Info().Msgf("restarted as pid %d", cmd.Process.Pid)
	return cmd.Process.Release()
}
