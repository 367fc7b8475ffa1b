package lifecycle

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/bft-labs/workclock/pkg/timelog"
)

// Variant names.
const (
	KindMaintenance = "maintenance"
	KindProduction  = "production"
)

// Checkpoint validation errors.
var (
	ErrQuantityRequired = errors.New("quantity must be a positive number")
	ErrUnitRequired     = errors.New("unit is required")
)

// Variant adapts the shared machine to one kind of work order. Capture is
// optional; a nil Capture records no checkpoint.
type Variant struct {
	Name    string
	Capture CaptureFunc
}

// Maintenance is the ticket variant. A note may be attached when the timer
// pauses or stops; nothing is required.
var Maintenance = Variant{
	Name: KindMaintenance,
	Capture: func(_ context.Context, _ timelog.Action, payload *Checkpoint) (*Checkpoint, error) {
		if payload == nil {
			return nil, nil
		}
		note := strings.TrimSpace(payload.Note)
		if note == "" {
			return nil, nil
		}
		return &Checkpoint{Note: note}, nil
	},
}

// Production is the production-task variant. Every pause and stop must
// record how much was produced since the last checkpoint.
var Production = Variant{
	Name: KindProduction,
	Capture: func(_ context.Context, _ timelog.Action, payload *Checkpoint) (*Checkpoint, error) {
		if payload == nil || payload.Quantity <= 0 || math.IsNaN(payload.Quantity) || math.IsInf(payload.Quantity, 0) {
			return nil, ErrQuantityRequired
		}
		unit := strings.TrimSpace(payload.Unit)
		if unit == "" {
			return nil, ErrUnitRequired
		}
		return &Checkpoint{
			Quantity: payload.Quantity,
			Unit:     unit,
			Note:     strings.TrimSpace(payload.Note),
		}, nil
	},
}

// VariantFor returns the variant registered for kind. Unknown and empty
// kinds get the maintenance variant.
func VariantFor(kind string) Variant {
	if kind == KindProduction {
		return Production
	}
	return Maintenance
}
