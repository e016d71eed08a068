package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RecoveryConfig carries the operational tunables of the reconciliation
// engine. The allocation tolerance is the rounding slack accepted when a
// manually supplied breakdown is checked against the payment amount.
type RecoveryConfig struct {
	AllocationTolerance float64 `mapstructure:"allocationTolerance"`
	ImportMaxRows       int     `mapstructure:"importMaxRows"`
	StampRemarkAppends  bool    `mapstructure:"stampRemarkAppends"`
}

func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		AllocationTolerance: 0.01,
		ImportMaxRows:       5000,
		StampRemarkAppends:  true,
	}
}

// RecoveryConfigHolder serves the current settings and hot-reloads them when
// the mounted config file changes.
type RecoveryConfigHolder struct {
	current atomic.Value // holds RecoveryConfig
}

func NewRecoveryConfigHolder() (*RecoveryConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("wagedesk")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/wagedesk/config")
	v.AddConfigPath("/etc/wagedesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WAGEDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRecoveryConfig()
	v.SetDefault("recovery.allocationTolerance", defaults.AllocationTolerance)
	v.SetDefault("recovery.importMaxRows", defaults.ImportMaxRows)
	v.SetDefault("recovery.stampRemarkAppends", defaults.StampRemarkAppends)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg RecoveryConfig
	if err := v.UnmarshalKey("recovery", &cfg); err != nil {
		return nil, err
	}
	if err := validateRecoveryConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RecoveryConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RecoveryConfig
		if err := v.UnmarshalKey("recovery", &updated); err != nil {
			log.Printf("[recovery-config] reload failed: %v", err)
			return
		}
		if err := validateRecoveryConfig(updated); err != nil {
			log.Printf("[recovery-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[recovery-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticRecoveryConfigHolder returns a holder pinned to the given settings.
// Test seam; production wiring uses NewRecoveryConfigHolder.
func NewStaticRecoveryConfigHolder(cfg RecoveryConfig) *RecoveryConfigHolder {
	holder := &RecoveryConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *RecoveryConfigHolder) Get() RecoveryConfig {
	return h.current.Load().(RecoveryConfig)
}

func validateRecoveryConfig(cfg RecoveryConfig) error {
	if cfg.AllocationTolerance <= 0 {
		return errors.New("recovery.allocationTolerance must be positive")
	}
	if cfg.ImportMaxRows <= 0 {
		return errors.New("recovery.importMaxRows must be positive")
	}
	return nil
}
