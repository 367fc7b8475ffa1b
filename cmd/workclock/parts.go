package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bft-labs/workclock/internal/domain"
)

// parseParts turns --part values of the form
// "designation=Bearing 6204,qty=2,price=4.5,supplier=SKF,type=repair"
// into usage entries. Quantity defaults to 1 and type to replacement.
func parseParts(specs []string) ([]domain.PartUsageEntry, error) {
	out := make([]domain.PartUsageEntry, 0, len(specs))
	for _, spec := range specs {
		entry := domain.PartUsageEntry{Quantity: 1, InterventionType: domain.InterventionReplacement}
		for _, field := range strings.Split(spec, ",") {
			key, value, ok := strings.Cut(field, "=")
			if !ok {
				return nil, partErr(spec, fmt.Sprintf("field %q is not key=value", field))
			}
			key = strings.ToLower(strings.TrimSpace(key))
			value = strings.TrimSpace(value)

			switch key {
			case "designation", "name":
				entry.Designation = value
			case "qty", "quantity":
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, partErr(spec, "quantity must be an integer")
				}
				entry.Quantity = n
			case "price":
				f, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, partErr(spec, "price must be a number")
				}
				entry.UnitPrice = f
			case "supplier":
				entry.Supplier = value
			case "type":
				entry.InterventionType = domain.InterventionType(strings.ToLower(value))
			default:
				return nil, partErr(spec, fmt.Sprintf("unknown field %q", key))
			}
		}
		if entry.IsEmpty() {
			return nil, partErr(spec, "designation is required")
		}
		if err := entry.Validate(); err != nil {
			return nil, partErr(spec, err.Error())
		}
		out = append(out, entry)
	}
	return out, nil
}

func partErr(spec, msg string) error {
	return domain.E(domain.ErrValidationFailed, "parse part", fmt.Sprintf("%q: %s", spec, msg))
}
