package domain

// SweepRun is the registry record of one two-phase experiment.
type SweepRun struct {
	RunID          string
	StartedAt      int64 // unix ms
	FinishedAt     int64 // unix ms, 0 while running
	GridSize       int
	InSampleSeeds  int
	OutSampleSeeds int
	Threshold      float64
	Metric         string
	Survivors      int // parameter sets passing the significance filter
	FrontSize      int
	Failures       int // parameter sets with failed trials across both phases
	Status         string
}

// Run status constants
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusPartial   = "PARTIAL"
	RunStatusFailed    = "FAILED"
)
