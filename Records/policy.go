package Records

import (
	"context"
	"fmt"
	"log"
	"strings"

	"Maintenance/Models"
	"Maintenance/Sheets"
)

// FieldPolicy decides what happens to checklist keys the sheet header lacks.
type FieldPolicy string

const (
	PolicyDrop   FieldPolicy = "drop"
	PolicyReject FieldPolicy = "reject"
	PolicyExtend FieldPolicy = "extend"
)

// ParsePolicy validates a policy name.
func ParsePolicy(name string) (FieldPolicy, error) {
	switch p := FieldPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case PolicyDrop, PolicyReject, PolicyExtend:
		return p, nil
	case "":
		return PolicyDrop, nil
	default:
		return "", fmt.Errorf("unknown field policy %q", name)
	}
}

// Joined display fields are never treated as schema drift.
var displayOnly = map[string]bool{
	Models.FieldCustomerName:   true,
	Models.FieldTechnicianName: true,
	Models.FieldMachineType:    true,
	Models.FieldSerialNo:       true,
	Models.FieldCountry:        true,
}

type rowWriter struct {
	store  Sheets.Store
	policy FieldPolicy
}

// prepare turns fields into a row aligned with the sheet header. An empty
// sheet gets the default header first. The snapshot header is updated in
// place when the policy extends it.
func (w rowWriter) prepare(ctx context.Context, snap *Sheets.Snapshot, fields map[string]string, defaults []string) ([]string, []string, error) {
	if len(snap.Header) == 0 {
		if len(defaults) == 0 {
			return nil, nil, &HeaderError{Sheet: snap.Sheet, Column: "header"}
		}
		if err := w.store.SetHeader(ctx, snap.Sheet, defaults); err != nil {
			return nil, nil, fmt.Errorf("initialize %s header: %w", snap.Sheet, err)
		}
		snap.Header = append([]string(nil), defaults...)
		log.Printf("[records] initialized %s header with %d columns", snap.Sheet, len(defaults))
	}

	var unknown []string
	for _, key := range Sheets.UnknownFields(snap.Header, fields) {
		if displayOnly[key] || strings.TrimSpace(fields[key]) == "" {
			continue
		}
		unknown = append(unknown, key)
	}

	var dropped []string
	if len(unknown) > 0 {
		switch w.policy {
		case PolicyReject:
			return nil, nil, &UnknownFieldsError{Sheet: snap.Sheet, Fields: unknown}
		case PolicyExtend:
			header := append(append([]string(nil), snap.Header...), unknown...)
			if err := w.store.SetHeader(ctx, snap.Sheet, header); err != nil {
				return nil, nil, fmt.Errorf("extend %s header: %w", snap.Sheet, err)
			}
			snap.Header = header
			log.Printf("[records] added column(s) %s to %s", strings.Join(unknown, ", "), snap.Sheet)
		default:
			dropped = unknown
			log.Printf("[records] %s has no column for %s; value(s) not stored", snap.Sheet, strings.Join(unknown, ", "))
		}
	}
	return Sheets.ToRow(snap.Header, fields), dropped, nil
}
