package conf

import (
	"path/filepath"
	"time"

	"github.com/sjzar/regionwatch/internal/model"
)

const (
	DefaultHTTPAddr    = "127.0.0.1:5040"
	DefaultProcessName = "LOSTARK.exe"
	DefaultPort        = 6040
	DefaultRecvTimeout = 2 * time.Second
)

type Config struct {
	Sniffer   Sniffer  `mapstructure:"sniffer" json:"sniffer"`
	Region    Region   `mapstructure:"region" json:"region"`
	Updater   Updater  `mapstructure:"updater" json:"updater"`
	Webhook   *Webhook `mapstructure:"webhook" json:"webhook,omitempty"`
	HTTPAddr  string   `mapstructure:"http_addr" json:"http_addr"`
	Headless  bool     `mapstructure:"headless" json:"headless"`
	ConfigDir string   `mapstructure:"-" json:"config_dir"`
}

// Sniffer 目标进程与端口
type Sniffer struct {
	ProcessName   string        `mapstructure:"process_name" json:"process_name"`
	Port          int           `mapstructure:"port" json:"port"`
	CheckInterval time.Duration `mapstructure:"check_interval" json:"check_interval"`
	RecvTimeout   time.Duration `mapstructure:"recv_timeout" json:"recv_timeout"`
}

// Region 区域表来源
type Region struct {
	Source    string `mapstructure:"source" json:"source"`
	URL       string `mapstructure:"url" json:"url"`
	CacheFile string `mapstructure:"cache_file" json:"cache_file"`
}

type Updater struct {
	Enabled     bool          `mapstructure:"enabled" json:"enabled"`
	Endpoint    string        `mapstructure:"endpoint" json:"endpoint"`
	Interval    time.Duration `mapstructure:"interval" json:"interval"`
	DownloadDir string        `mapstructure:"download_dir" json:"download_dir"`
	Target      string        `mapstructure:"target" json:"target"`
}

// Webhook 事件转发
type Webhook struct {
	DelayMs int64          `mapstructure:"delay_ms" json:"delay_ms"`
	Items   []*WebhookItem `mapstructure:"items" json:"items"`
}

// WebhookItem forwards one kind of event to URL.
// Type is one of "state", "updater", "encounter" or "settings".
type WebhookItem struct {
	Type     string `mapstructure:"type" json:"type"`
	URL      string `mapstructure:"url" json:"url"`
	Disabled bool   `mapstructure:"disabled" json:"disabled"`
}

// Defaults are stored as strings where the value is a duration, so a config
// file written from them stays human readable.
var Defaults = map[string]any{
	"sniffer.process_name":   DefaultProcessName,
	"sniffer.port":           DefaultPort,
	"sniffer.check_interval": "5s",
	"sniffer.recv_timeout":   "2s",
	"region.source":          "aws",
	"region.url":             "https://ip-ranges.amazonaws.com/ip-ranges.json",
	"updater.enabled":        true,
	"updater.interval":       "60s",
	"http_addr":              DefaultHTTPAddr,
	"headless":               false,
}

func (c *Config) GetHTTPAddr() string {
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	return c.HTTPAddr
}

func (c *Config) GetWebhook() *Webhook {
	return c.Webhook
}

func (c *Config) GetRecvTimeout() time.Duration {
	if c.Sniffer.RecvTimeout <= 0 {
		return DefaultRecvTimeout
	}
	return c.Sniffer.RecvTimeout
}

// GetCacheFile 区域表缓存文件，默认放在配置目录下
func (c *Config) GetCacheFile() string {
	if c.Region.CacheFile != "" {
		return c.Region.CacheFile
	}
	return filepath.Join(c.ConfigDir, "ip-ranges.json")
}

func (c *Config) GetDownloadDir() string {
	if c.Updater.DownloadDir != "" {
		return c.Updater.DownloadDir
	}
	return filepath.Join(c.ConfigDir, "updates")
}

// Settings returns the user facing part of the configuration.
func (c *Config) Settings() model.Settings {
	return model.Settings{
		ProcessName:   c.Sniffer.ProcessName,
		Port:          c.Sniffer.Port,
		CheckInterval: c.Sniffer.CheckInterval,
		RegionSource:  c.Region.Source,
		UpdateEnabled: c.Updater.Enabled,
	}
}
