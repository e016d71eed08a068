package observability

import (
	"strings"

	"github.com/wagedesk/wagedesk/internal/config"
)

// Config holds observability configuration derived from app config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	MetricsEnabled   bool
	ExporterEndpoint string
	ExporterProtocol string
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "wagedesk"
	}
	return Config{
		ServiceName:      serviceName,
		Environment:      strings.TrimSpace(cfg.Environment),
		Version:          strings.TrimSpace(cfg.AppVersion),
		MetricsEnabled:   cfg.MetricsEnabled,
		ExporterEndpoint: strings.TrimSpace(cfg.MetricsEndpoint),
		ExporterProtocol: strings.ToLower(strings.TrimSpace(cfg.MetricsProtocol)),
	}
}

func (c Config) Debug() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	switch env {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
