package module

import "crossposter/internal/services/crosspost/domain"

// Ports is the crosspost port bundle
type Ports struct {
	Ingest domain.IngestPort
	Query  domain.QueryPort
	Worker domain.WorkerPort
	Ledger domain.LedgerPort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
