package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		DefaultLanguage  string   `env:"LANG,default=en"`
		EnabledHandlers  []string `env:"HANDLERS,default=admin,gatekeeper,sentry,tribunal"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.imperator"`
		MetricsAddr      string   `env:"METRICS_ADDR,default=:2112"`

		Admission AdmissionConfig
		Antispam  AntispamConfig
		Tribunal  TribunalConfig
	}

	AdmissionConfig struct {
		CaptchaTimeout   time.Duration `env:"CAPTCHA_TIMEOUT,default=120s"`
		ForceJoinChannel string        `env:"FORCE_JOIN_CHANNEL"`
	}

	AntispamConfig struct {
		FloodWindow    time.Duration `env:"FLOOD_WINDOW,default=6s"`
		FloodThreshold int           `env:"FLOOD_THRESHOLD,default=4"`
		FloodMute      time.Duration `env:"FLOOD_MUTE,default=2m"`
		WindowCapacity int           `env:"FLOOD_WINDOW_CAPACITY,default=4096"`
	}

	TribunalConfig struct {
		WarnLimit   int           `env:"WARN_LIMIT,default=3"`
		DefaultMute time.Duration `env:"DEFAULT_MUTE,default=10m"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("IMP_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		dotPath, err := homedir.Expand(cfg.DotPath)
		if err != nil {
			globalErr = fmt.Errorf("expand dot path: %w", err)
			return
		}
		cfg.DotPath = dotPath
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
