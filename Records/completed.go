package Records

import (
	"context"
	"fmt"
	"strings"

	"Maintenance/Models"
	"Maintenance/Sheets"
)

// Completed manages finalized checklists. Rows are only ever appended.
type Completed struct {
	store   Sheets.Store
	sheet   string
	w       rowWriter
	headers []string
}

// idColumn finds the checklist id column: ChecklistID exactly, then
// case-insensitively, then the first header mentioning "id".
func idColumn(header []string) int {
	if col := Sheets.ColumnIndex(header, Models.FieldChecklistID); col >= 0 {
		return col
	}
	for i, col := range header {
		if strings.Contains(strings.ToLower(col), "id") {
			return i
		}
	}
	return -1
}

// Append writes cl as a new row and returns the fields that were dropped.
func (c *Completed) Append(ctx context.Context, cl Models.Checklist) ([]string, error) {
	snap, err := c.store.Read(ctx, c.sheet)
	if err != nil {
		return nil, err
	}
	row, dropped, err := c.w.prepare(ctx, snap, cl, c.headers)
	if err != nil {
		return nil, err
	}
	if err := c.store.Append(ctx, c.sheet, row); err != nil {
		return nil, fmt.Errorf("append checklist %s: %w", cl.Get(Models.FieldChecklistID), err)
	}
	return dropped, nil
}

// Find returns the completed checklist with id.
func (c *Completed) Find(ctx context.Context, id string) (Models.Checklist, error) {
	snap, err := c.store.Read(ctx, c.sheet)
	if err != nil {
		return nil, err
	}
	col := idColumn(snap.Header)
	if col < 0 {
		return nil, &HeaderError{Sheet: c.sheet, Column: Models.FieldChecklistID}
	}
	rowNumber, ok := snap.IndexBy(col)[strings.TrimSpace(id)]
	if !ok {
		return nil, &NotFoundError{Kind: "checklist", ID: id, Known: snap.Values(col)}
	}
	rec, _ := snap.RecordAt(rowNumber)
	return Models.Checklist(rec), nil
}

// List returns every completed checklist, optionally limited to one technician.
func (c *Completed) List(ctx context.Context, technicianID string) ([]Models.Checklist, error) {
	snap, err := c.store.Read(ctx, c.sheet)
	if err != nil {
		return nil, err
	}
	return filterByTechnician(snap, technicianID), nil
}

// Summary is the lightweight listing shape of a completed checklist.
type Summary struct {
	ID         string `json:"id"`
	Customer   string `json:"customer"`
	Technician string `json:"technician"`
	Date       string `json:"date"`
	Status     string `json:"status"`
}

// Summaries lists completed checklists with display names joined from the
// given lookups. Rows without an id are skipped.
func (c *Completed) Summaries(ctx context.Context, customers map[string]Models.Customer, techNames map[string]string) ([]Summary, error) {
	snap, err := c.store.Read(ctx, c.sheet)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, snap.Len())
	for i := 0; i < snap.Len(); i++ {
		cl := Enrich(Models.Checklist(snap.Record(i)), customers, techNames)
		id := cl.Get(Models.FieldChecklistID, "checklistId")
		if id == "" {
			id = strings.TrimSpace(snap.Cell(i, 0))
		}
		if id == "" {
			continue
		}
		out = append(out, Summary{
			ID:         id,
			Customer:   orDefault(cl.Get(Models.FieldCustomerName, "Customer"), "Unknown"),
			Technician: orDefault(cl.Get(Models.FieldTechnicianName, "Technician"), "Unknown"),
			Date:       orDefault(cl.Get(Models.FieldDate, "date", Models.FieldInspectedDate), "Unknown"),
			Status:     "Completed",
		})
	}
	return out, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
