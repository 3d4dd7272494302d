// Package marker records which source files have already been ingested.
package marker

import (
	"fmt"
	"path/filepath"

	"docrag/internal/domain"
)

// Policy names accepted by New.
const (
	PolicyLedger = "ledger"
	PolicyRename = "rename"
	PolicyNone   = "none"
)

const DefaultPrefix = "_"

// New builds the marker for policy. The ledger lives in persistDir.
func New(policy, persistDir, prefix string) (domain.Marker, error) {
	switch policy {
	case PolicyLedger, "":
		return OpenLedger(filepath.Join(persistDir, LedgerFile))
	case PolicyRename:
		return NewRename(prefix), nil
	case PolicyNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown marker policy: %s", policy)
	}
}
