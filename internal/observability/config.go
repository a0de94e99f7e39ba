package observability

import (
	"strings"

	"github.com/smallbiznis/parcella/internal/config"
)

// Config is the observability view of the application configuration.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	SentryDSN string
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "parcella"
	}
	tel := cfg.Telemetry

	ratio := tel.SamplingRatio
	if ratio < 0 || ratio > 1 {
		ratio = 1
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             tel.LogLevel,
		LogFormat:            tel.LogFormat,
		OtelEnabled:          tel.OTLPEnabled && tel.OTLPEndpoint != "",
		OtelExporterEndpoint: tel.OTLPEndpoint,
		OtelExporterProtocol: tel.OTLPProtocol,
		OtelSamplingRatio:    ratio,
		SentryDSN:            tel.SentryDSN,
	}
}

// Debug is true for an explicit debug log level or a development environment.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
