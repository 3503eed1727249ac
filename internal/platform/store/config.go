package store

import (
	"time"

	"crossposter/internal/platform/config"
)

// Config aggregates backend settings
type Config struct {
	PG PGConfig
}

// PGConfig configures the postgres pool and its boot guard
type PGConfig struct {
	Enabled     bool
	URL         string
	AppName     string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int
	PingTimeout    time.Duration
}

// PGFromConfig reads <prefix>DBURL, MAX_CONNS, SLOW_MS, LOG_SQL from cfg
func PGFromConfig(cfg config.Conf, enabled bool) PGConfig {
	pc := PGConfig{
		Enabled:        enabled,
		AppName:        "crossposter",
		MaxConns:       int32(cfg.MayInt("MAX_CONNS", 4)),
		LogSQL:         cfg.MayBool("LOG_SQL", false),
		SlowQueryMs:    cfg.MayInt("SLOW_MS", 200),
		ConnectRetries: cfg.MayInt("CONNECT_RETRIES", 6),
		PingTimeout:    cfg.MayDuration("PING_TIMEOUT", 3*time.Second),
	}
	if enabled {
		pc.URL = cfg.MustString("DBURL")
	}
	return pc
}
