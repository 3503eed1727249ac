package module

import (
	"time"

	"crossposter/internal/core/dispatch"
	"crossposter/internal/core/tagtext"
	"crossposter/internal/platform/config"
)

// Options controls the engine constants and the module surface
type Options struct {
	Threshold     int           `validate:"min=1"`
	ExpiryWindow  time.Duration `validate:"gt=0"`
	SweepInterval time.Duration `validate:"gt=0"`
	Retention     time.Duration `validate:"min=0"`
	Publishers    []string
	ReasonMax     int    `validate:"min=1"`
	Tag           string `validate:"required"`
	Concurrent    bool

	// Ledger records every dispatch report to Postgres
	Ledger        bool
	LedgerTimeout time.Duration

	// APIToken guards /api/v1; empty leaves it open
	APIToken string
}

// FromConfig reads CROSSPOST_* values from process config/env
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CROSSPOST_")
	return Options{
		Threshold:     c.MayInt("APPROVAL_THRESHOLD", 1),
		ExpiryWindow:  c.MayDuration("EXPIRY_WINDOW", 2*time.Hour),
		SweepInterval: c.MayDuration("SWEEP_INTERVAL", 5*time.Minute),
		Retention:     c.MayDuration("PUBLISHED_RETENTION", 24*time.Hour),
		Publishers:    c.MayCSV("PUBLISHERS", nil),
		ReasonMax:     c.MayInt("FAILURE_REASON_MAX", dispatch.DefaultReasonMax),
		Tag:           c.MayString("TAG", tagtext.DefaultTag),
		Concurrent:    c.MayBool("CONCURRENT_FANOUT", true),
		Ledger:        c.MayBool("LEDGER", false),
		LedgerTimeout: c.MayDuration("LEDGER_TIMEOUT", 5*time.Second),
		APIToken:      c.MayString("API_TOKEN", ""),
	}
}
