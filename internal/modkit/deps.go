// Package modkit provides module wiring and core deps
package modkit

import (
	"time"

	"crossposter/internal/modkit/repokit"
	"crossposter/internal/platform/config"
	"crossposter/internal/platform/logger"
	"crossposter/internal/platform/metrics"
	ptime "crossposter/internal/platform/time"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	// PG is nil when the dispatch ledger is disabled
	PG      repokit.TxRunner
	Metrics *metrics.Metrics
	Clock   ptime.Clock
}

// Now reads Clock, falling back to the system clock
func (d Deps) Now() time.Time {
	if d.Clock == nil {
		return ptime.System()
	}
	return d.Clock()
}

// HasPG reports whether a postgres runner was wired
func (d Deps) HasPG() bool { return d.PG != nil }
