package Notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"Maintenance/Models"
)

// Notifier is told about every completed checklist.
type Notifier interface {
	ChecklistSubmitted(ctx context.Context, cl Models.Checklist) error
}

// Multi fans a notice out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) ChecklistSubmitted(ctx context.Context, cl Models.Checklist) error {
	var errs []error
	for _, n := range m {
		if err := n.ChecklistSubmitted(ctx, cl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatch notifies in the background. prepare, when set, runs on the
// background context first so display lookups stay off the request path. A
// failed notice is logged and never reaches the submitter.
func Dispatch(n Notifier, cl Models.Checklist, prepare func(context.Context, Models.Checklist) Models.Checklist) {
	if n == nil {
		return
	}
	if m, ok := n.(Multi); ok && len(m) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if prepare != nil {
			cl = prepare(ctx, cl)
		}
		if err := n.ChecklistSubmitted(ctx, cl); err != nil {
			log.Printf("[notify] checklist %s: %v", cl.Get(Models.FieldChecklistID), err)
		}
	}()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// Subject is the one-line title of a submission notice.
func Subject(cl Models.Checklist) string {
	return fmt.Sprintf("Checklist %s completed for %s",
		cl.Get(Models.FieldChecklistID),
		orUnknown(cl.Get(Models.FieldCustomerName, Models.FieldCustomerID)))
}

// Summary is the plain-text body of a submission notice.
func Summary(cl Models.Checklist) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Checklist: %s\n", cl.Get(Models.FieldChecklistID))
	fmt.Fprintf(&b, "Customer: %s\n", orUnknown(cl.Get(Models.FieldCustomerName, Models.FieldCustomerID)))
	if m := cl.Get(Models.FieldMachineType); m != "" {
		fmt.Fprintf(&b, "Machine: %s %s\n", m, cl.Get(Models.FieldSerialNo))
	}
	fmt.Fprintf(&b, "Technician: %s\n", orUnknown(cl.Get(Models.FieldTechnicianName, Models.FieldTechnicianID)))
	fmt.Fprintf(&b, "Inspected: %s\n", orUnknown(cl.Get(Models.FieldInspectedDate, Models.FieldDate)))

	var flagged []string
	for _, key := range cl.Keys() {
		item, ok := Models.ParseItem(cl[key])
		if !ok {
			continue
		}
		for _, code := range Models.StatusCodes(item.Status) {
			if strings.EqualFold(code, "R") {
				flagged = append(flagged, key)
				break
			}
		}
	}
	if len(flagged) > 0 {
		fmt.Fprintf(&b, "Needs replacement: %s\n", strings.Join(flagged, ", "))
	}
	return b.String()
}
