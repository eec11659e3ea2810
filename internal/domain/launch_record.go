package domain

import "time"

// LaunchOutcome is what the coordinator did with a detected launch.
type LaunchOutcome string

const (
	OutcomeDispatched     LaunchOutcome = "DISPATCHED"
	OutcomeSkippedNoMint  LaunchOutcome = "SKIPPED_NO_MINT"
	OutcomeGuardRejected  LaunchOutcome = "GUARD_REJECTED"
	OutcomeRouteFailed    LaunchOutcome = "ROUTE_FAILED"
	OutcomeDispatchFailed LaunchOutcome = "DISPATCH_FAILED"
	OutcomeDryRun         LaunchOutcome = "DRY_RUN"
)

// LaunchRecord is one row of the launch journal.
type LaunchRecord struct {
	ID             string // uuid
	Kind           LaunchKind
	Signature      string // signature of the launch transaction
	Mint           string // empty when unresolved
	BaseIsSOL      bool
	DetectedAtSlot uint64
	Outcome        LaunchOutcome
	DispatchSig    string // signature of our buy, if any
	Error          string
	RecordedAt     time.Time
}
