package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// InterventionType says whether a part was swapped or fixed.
type InterventionType string

const (
	InterventionReplacement InterventionType = "replacement"
	InterventionRepair      InterventionType = "repair"
)

// PartUsageEntry is a part consumed by a work order.
type PartUsageEntry struct {
	Designation      string           `json:"designation"`
	Quantity         int              `json:"quantity"`
	UnitPrice        float64          `json:"unit_price"`
	Supplier         string           `json:"supplier,omitempty"`
	InterventionType InterventionType `json:"intervention_type"`
	// Recorded is set once the entry has been propagated to its PartRecord.
	Recorded bool `json:"recorded,omitempty"`
}

// IsEmpty reports whether the entry has no designation and is skipped.
func (p PartUsageEntry) IsEmpty() bool {
	return strings.TrimSpace(p.Designation) == ""
}

// Validate checks the entry. Empty entries are always valid.
func (p PartUsageEntry) Validate() error {
	if p.IsEmpty() {
		return nil
	}
	if p.Quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	if p.UnitPrice < 0 {
		return errors.New("unit price must not be negative")
	}
	switch p.InterventionType {
	case InterventionReplacement, InterventionRepair, "":
		return nil
	default:
		return fmt.Errorf("unknown intervention type %q", p.InterventionType)
	}
}

// PartHistoryEntry is one usage of a part.
type PartHistoryEntry struct {
	Price       float64   `json:"price"`
	Supplier    string    `json:"supplier,omitempty"`
	Quantity    int       `json:"quantity"`
	WorkOrderID string    `json:"work_order_id"`
	At          time.Time `json:"at"`
}

// PartRecord is the inventory record for a part designation.
type PartRecord struct {
	ID               string             `json:"id"`
	Designation      string             `json:"designation"`
	CurrentPrice     float64            `json:"current_price"`
	CurrentSupplier  string             `json:"current_supplier,omitempty"`
	History          []PartHistoryEntry `json:"history"`
	ReplacementCount int                `json:"replacement_count"`
	RepairCount      int                `json:"repair_count"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewPartRecord creates a record from its first usage.
func NewPartRecord(entry PartUsageEntry, workOrderID string, at time.Time) *PartRecord {
	p := &PartRecord{
		Designation: strings.TrimSpace(entry.Designation),
		CreatedAt:   at,
	}
	p.Record(entry, workOrderID, at)
	return p
}

// Record applies one usage: current price and supplier are replaced, the
// usage is appended to the history and the matching counter increments.
func (p *PartRecord) Record(entry PartUsageEntry, workOrderID string, at time.Time) {
	p.CurrentPrice = entry.UnitPrice
	if entry.Supplier != "" {
		p.CurrentSupplier = entry.Supplier
	}
	p.History = append(p.History, PartHistoryEntry{
		Price:       entry.UnitPrice,
		Supplier:    entry.Supplier,
		Quantity:    entry.Quantity,
		WorkOrderID: workOrderID,
		At:          at,
	})
	switch entry.InterventionType {
	case InterventionRepair:
		p.RepairCount++
	default:
		p.ReplacementCount++
	}
	p.UpdatedAt = at
}
