package Records

import (
	"context"
	"fmt"
	"sync"

	"Maintenance/Models"
	"Maintenance/Sheets"
)

// Drafts manages in-progress checklists.
type Drafts struct {
	store   Sheets.Store
	sheet   string
	w       rowWriter
	headers []string

	// mu is held from the snapshot read to the row write, for every draft id.
	mu sync.Mutex
}

// SaveResult describes the outcome of a draft save.
type SaveResult struct {
	DraftID string
	Created bool
	Dropped []string
}

// Save updates the draft row carrying the same DraftID, or appends a new row
// with a fresh id when the draft has none or it is not in the sheet.
func (d *Drafts) Save(ctx context.Context, draft Models.Checklist) (SaveResult, error) {
	if err := requireFields(draft, Models.FieldCustomerID, Models.FieldTechnicianID); err != nil {
		return SaveResult{}, err
	}
	fields := draft.Clone()
	if fields.Get(Models.FieldInspectedDate) == "" {
		fields[Models.FieldInspectedDate] = today()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id := fields.Get(Models.FieldDraftID)
	snap, err := d.store.Read(ctx, d.sheet)
	if err != nil {
		return SaveResult{}, err
	}
	col := snap.Column(Models.FieldDraftID)
	if len(snap.Header) > 0 && col < 0 {
		return SaveResult{}, &HeaderError{Sheet: d.sheet, Column: Models.FieldDraftID}
	}

	rowNumber, found := 0, false
	if id != "" {
		rowNumber, found = snap.IndexBy(col)[id]
	}
	if !found {
		id = newID("DRAFT")
	}
	fields[Models.FieldDraftID] = id

	row, dropped, err := d.w.prepare(ctx, snap, fields, d.headers)
	if err != nil {
		return SaveResult{}, err
	}
	if found {
		if err := d.store.Update(ctx, d.sheet, rowNumber, row); err != nil {
			return SaveResult{}, fmt.Errorf("update draft %s: %w", id, err)
		}
		return SaveResult{DraftID: id, Dropped: dropped}, nil
	}
	if err := d.store.Append(ctx, d.sheet, row); err != nil {
		return SaveResult{}, fmt.Errorf("append draft %s: %w", id, err)
	}
	return SaveResult{DraftID: id, Created: true, Dropped: dropped}, nil
}

// Delete removes the draft row with id. It reports false when no row matched.
func (d *Drafts) Delete(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap, err := d.store.Read(ctx, d.sheet)
	if err != nil {
		return false, err
	}
	rowNumber, ok := snap.IndexBy(snap.Column(Models.FieldDraftID))[id]
	if !ok {
		return false, nil
	}
	if err := d.store.DeleteRow(ctx, d.sheet, rowNumber); err != nil {
		return false, fmt.Errorf("delete draft %s: %w", id, err)
	}
	return true, nil
}

// Find returns the draft with id.
func (d *Drafts) Find(ctx context.Context, id string) (Models.Checklist, error) {
	snap, err := d.store.Read(ctx, d.sheet)
	if err != nil {
		return nil, err
	}
	col := snap.Column(Models.FieldDraftID)
	rowNumber, ok := snap.IndexBy(col)[id]
	if !ok {
		return nil, &NotFoundError{Kind: "draft", ID: id, Known: snap.Values(col)}
	}
	rec, _ := snap.RecordAt(rowNumber)
	return Models.Checklist(rec), nil
}

// List returns every draft, optionally limited to one technician.
func (d *Drafts) List(ctx context.Context, technicianID string) ([]Models.Checklist, error) {
	snap, err := d.store.Read(ctx, d.sheet)
	if err != nil {
		return nil, err
	}
	return filterByTechnician(snap, technicianID), nil
}

func filterByTechnician(snap *Sheets.Snapshot, technicianID string) []Models.Checklist {
	out := make([]Models.Checklist, 0, snap.Len())
	for _, rec := range snap.Records() {
		cl := Models.Checklist(rec)
		if technicianID != "" && cl.Get(Models.FieldTechnicianID) != technicianID {
			continue
		}
		out = append(out, cl)
	}
	return out
}
