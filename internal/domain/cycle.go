package domain

// CycleOutcome classifies how a redistribution cycle ended.
type CycleOutcome string

const (
	OutcomeCompleted   CycleOutcome = "COMPLETED"
	OutcomeSkipped     CycleOutcome = "SKIPPED"
	OutcomeFailed      CycleOutcome = "FAILED"
	OutcomePartialBurn CycleOutcome = "PARTIAL_BURN" // send landed, burn did not
)

// CycleRecord is the per-cycle event emitted for downstream consumers.
// Corresponds to cycles table in PostgreSQL.
type CycleRecord struct {
	CycleNumber    int64
	Outcome        CycleOutcome
	Recipient      string  // empty on skip
	PnLAtSelection float64 // SOL, negative for a loss recipient
	ReserveSpent   uint64  // lamports handed to the aggregator
	TokensSent     uint64  // raw units
	TokensBurned   uint64  // raw units
	SendSignature  string
	BurnSignature  string
	Detail         string // skip reason or step failure
	Timestamp      int64  // Unix timestamp in milliseconds
}

// HolderSnapshot is one ranked holder as seen at selection time.
// Corresponds to holder_snapshots table in ClickHouse.
type HolderSnapshot struct {
	CycleNumber int64
	Rank        int // 0 = worst PnL
	Wallet      string
	Balance     float64
	SwapBought  float64
	SwapSpent   float64
	PnL         float64
	Timestamp   int64 // Unix timestamp in milliseconds
}
