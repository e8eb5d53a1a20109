package domain

// TrialOutcome is the result of one simulation run for (Params, Seed).
type TrialOutcome struct {
	Params        ParameterSet
	Seed          int64
	InvVol        float64 // inventory risk: volatility of the held inventory
	ControlledPnL float64 // PnL after inventory control (skew + hedging)
}

// TrialFailure records a parameter set whose trials could not be completed.
// No summary row is emitted for it.
type TrialFailure struct {
	Params ParameterSet
	Seed   int64  // first seed that failed
	Reason string // error text
}
