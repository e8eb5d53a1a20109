package strategy

import (
	"fmt"

	"inventory-sweep-lab/internal/domain"
)

// InventoryControl is the quoting/hedging policy parameterised by a
// domain.ParameterSet. It is stateless; callers carry the smoothed signal.
type InventoryControl struct {
	k     float64
	alpha float64
	hth   float64
	hsz   float64
}

// Quotes holds the bid and ask the policy posts around the mid price.
type Quotes struct {
	Bid float64
	Ask float64
}

// NewInventoryControl creates a policy without validation. Use FromParams
// for validated construction.
func NewInventoryControl(p domain.ParameterSet) *InventoryControl {
	return &InventoryControl{k: p.K, alpha: p.Alpha, hth: p.HTh, hsz: p.HSz}
}

// ID returns policy identifier (includes parameters).
func (c *InventoryControl) ID() string {
	return fmt.Sprintf("INVENTORY_CONTROL_%s", c.Params())
}

// Params returns the parameter set the policy was built from.
func (c *InventoryControl) Params() domain.ParameterSet {
	return domain.ParameterSet{K: c.k, Alpha: c.alpha, HTh: c.hth, HSz: c.hsz}
}

// Smooth folds the current inventory into the signal.
// alpha is the weight kept from the previous signal: 0 tracks inventory exactly.
func (c *InventoryControl) Smooth(prevSignal, inventory float64) float64 {
	return c.alpha*prevSignal + (1-c.alpha)*inventory
}

// Quote returns bid/ask around mid, skewed against the signal.
// A long signal lowers both quotes so the next fill is more likely a sale.
func (c *InventoryControl) Quote(mid, halfSpread, signal float64) Quotes {
	skew := c.k * signal * halfSpread / c.hth
	return Quotes{
		Bid: mid - halfSpread - skew,
		Ask: mid + halfSpread - skew,
	}
}

// Hedge returns the signed quantity to trade at mid (negative sells).
// No hedge is placed while |signal| is within the threshold; otherwise up to
// hsz units are traded towards flat, never past it.
func (c *InventoryControl) Hedge(signal, inventory float64) float64 {
	if signal <= c.hth && signal >= -c.hth {
		return 0
	}
	qty := c.hsz
	if abs(inventory) < qty {
		qty = abs(inventory)
	}
	if inventory > 0 {
		return -qty
	}
	return qty
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
