package conf

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/errors"
	"github.com/sjzar/regionwatch/internal/model"
	"github.com/sjzar/regionwatch/pkg/config"
)

const (
	AppName      = "regionwatch"
	EnvPrefix    = "REGIONWATCH"
	EnvConfigDir = "REGIONWATCH_DIR"
)

// Load 加载配置，命令行参数优先于配置文件
func Load(configPath string, cmdConf map[string]any) (*Config, *config.Manager, error) {
	if configPath == "" {
		configPath = os.Getenv(EnvConfigDir)
	}

	cm, err := config.New(AppName, configPath, "", EnvPrefix, true)
	if err != nil {
		log.Error().Err(err).Msg("load config failed")
		return nil, nil, errors.Config("load config failed", err)
	}

	conf := &Config{}
	config.SetDefaults(cm.Viper, conf, Defaults)

	if err := cm.Load(conf); err != nil {
		log.Error().Err(err).Msg("load config failed")
		return nil, nil, errors.Config("load config failed", err)
	}

	// command line flags are not persisted
	for key, value := range cmdConf {
		cm.Viper.Set(key, value)
	}
	if len(cmdConf) > 0 {
		conf = &Config{}
		if err := cm.Load(conf); err != nil {
			return nil, nil, errors.Config("load config failed", err)
		}
	}
	conf.ConfigDir = cm.Path

	if err := conf.Validate(); err != nil {
		return nil, nil, err
	}

	b, _ := json.Marshal(conf)
	log.Info().Msgf("config: %s", string(b))

	return conf, cm, nil
}

// Validate checks the values the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Sniffer.ProcessName == "" {
		return errors.ConfigMissing("sniffer.process_name")
	}
	if c.Sniffer.Port <= 0 || c.Sniffer.Port > 65535 {
		return errors.ConfigInvalid("sniffer.port", nil)
	}
	if c.Sniffer.CheckInterval <= 0 {
		return errors.ConfigInvalid("sniffer.check_interval", nil)
	}
	switch c.Region.Source {
	case "aws", "static":
	default:
		return errors.ConfigInvalid("region.source", nil)
	}
	return nil
}

// Save 持久化前端修改的设置，下次启动生效
func Save(cm *config.Manager, s model.Settings) error {
	values := map[string]any{
		"sniffer.process_name":   s.ProcessName,
		"sniffer.port":           s.Port,
		"sniffer.check_interval": s.CheckInterval.String(),
		"region.source":          s.RegionSource,
		"updater.enabled":        s.UpdateEnabled,
	}
	for key, value := range values {
		cm.Viper.Set(key, value)
	}
	if err := cm.Viper.WriteConfig(); err != nil {
		return errors.Config("save settings failed", err)
	}
	return nil
}
