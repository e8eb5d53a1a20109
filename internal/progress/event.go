// Package progress streams sweep progress to websocket clients.
package progress

import (
	"time"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/sweep"
)

// Event types
const (
	EventRunStarted    = "run_started"
	EventRow           = "row"
	EventPhaseFinished = "phase_finished"
	EventRunFinished   = "run_finished"
)

// Event is one progress message. Fields not relevant to Type are omitted.
type Event struct {
	Type      string               `json:"type"`
	RunID     string               `json:"run_id"`
	Phase     domain.Phase         `json:"phase,omitempty"`
	Index     int                  `json:"index,omitempty"`
	Total     int                  `json:"total,omitempty"`
	Params    *domain.ParameterSet `json:"params,omitempty"`
	InvVol    *float64             `json:"mean_inv_vol,omitempty"`
	PnL       *float64             `json:"mean_controlled_pnl,omitempty"`
	TStat     *float64             `json:"t_stat,omitempty"` // nil when undefined
	Failure   string               `json:"failure,omitempty"`
	Rows      int                  `json:"rows,omitempty"`
	Survivors int                  `json:"survivors,omitempty"`
	FrontSize int                  `json:"front_size,omitempty"`
	Status    string               `json:"status,omitempty"`
	TimeMs    int64                `json:"time_ms"`
}

// Publisher accepts progress events.
type Publisher interface {
	Publish(ev Event)
}

// RowObserver adapts a Publisher into a sweep observer for one phase of a run.
func RowObserver(p Publisher, runID string, phase domain.Phase) sweep.Observer {
	if p == nil {
		return nil
	}
	return func(re sweep.RowEvent) {
		ev := Event{
			Type:   EventRow,
			RunID:  runID,
			Phase:  phase,
			Index:  re.Index,
			Total:  re.Total,
			TimeMs: time.Now().UnixMilli(),
		}
		switch {
		case re.Row != nil:
			params := re.Row.Params
			inv, pnl := re.Row.MeanInvVol, re.Row.MeanControlledPnL
			ev.Params, ev.InvVol, ev.PnL = &params, &inv, &pnl
			if re.Row.TStatDefined {
				t := re.Row.TStat
				ev.TStat = &t
			}
		case re.Failure != nil:
			params := re.Failure.Params
			ev.Params = &params
			ev.Failure = re.Failure.Reason
		}
		p.Publish(ev)
	}
}
