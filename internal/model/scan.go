package model

import "time"

// ScanID identifies a scan in the ledger
type ScanID string

// ScanMethod records how a code was entered
type ScanMethod string

const (
	MethodQR     ScanMethod = "qr"
	MethodManual ScanMethod = "manual"
)

// Valid reports whether m is a known method
func (m ScanMethod) Valid() bool {
	return m == MethodQR || m == MethodManual
}

// Scan is an immutable ledger entry for one accepted code submission
type Scan struct {
	ID           ScanID
	EventID      EventID
	PlayerID     PlayerID
	CodeID       CodeID
	CodeValue    string // normalized
	CodeType     CodeType
	Points       int
	IsValid      bool
	Method       ScanMethod
	ScannedAt    time.Time
	ScanDuration time.Duration // since the previous valid scan, or the player's start
}

// ScanCommit is a conditional ledger append. It only applies while the event's
// config is still at ConfigVersion.
type ScanCommit struct {
	Scan             Scan
	ConfigVersion    int64
	CompletionTarget int
}
