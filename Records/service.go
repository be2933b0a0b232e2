package Records

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"Maintenance/Config"
	"Maintenance/Models"
	"Maintenance/Sheets"
)

// Service groups the collections behind the HTTP handlers.
type Service struct {
	Customers   *Customers
	Technicians *Technicians
	Drafts      *Drafts
	Completed   *Completed

	store  Sheets.Store
	sheets Config.SheetNames
}

// NewService wires every collection to one sheet store. The template supplies
// the item columns used when a draft or completed sheet starts out empty.
func NewService(store Sheets.Store, names Config.SheetNames, policy FieldPolicy, tmpl *Models.ChecklistTemplate) *Service {
	w := rowWriter{store: store, policy: policy}
	return &Service{
		Customers:   &Customers{store: store, sheet: names.Customers, w: w, locks: newKeyedMutex()},
		Technicians: &Technicians{store: store, sheet: names.Technicians},
		Drafts:      &Drafts{store: store, sheet: names.Drafts, w: w, headers: DraftHeader(tmpl)},
		Completed:   &Completed{store: store, sheet: names.Completed, w: w, headers: CompletedHeader(tmpl)},
		store:       store,
		sheets:      names,
	}
}

func itemColumns(tmpl *Models.ChecklistTemplate) []string {
	if tmpl == nil {
		return nil
	}
	return tmpl.ItemIDs()
}

// DraftHeader is the default header of an empty draft sheet.
func DraftHeader(tmpl *Models.ChecklistTemplate) []string {
	h := []string{Models.FieldDraftID, Models.FieldCustomerID, Models.FieldTechnicianID, Models.FieldInspectedDate}
	h = append(h, itemColumns(tmpl)...)
	return append(h, Models.FieldReview, Models.FieldPhotos)
}

// CompletedHeader is the default header of an empty completed sheet.
func CompletedHeader(tmpl *Models.ChecklistTemplate) []string {
	h := []string{Models.FieldChecklistID, Models.FieldCustomerID, Models.FieldTechnicianID, Models.FieldInspectedDate}
	h = append(h, itemColumns(tmpl)...)
	return append(h, Models.FieldReview, Models.FieldPhotos)
}

// Bootstrap creates any missing sheet with its default header. Only local
// backends call it; a Google spreadsheet is provisioned by hand.
func (s *Service) Bootstrap(ensure func(sheet string, header []string) error) error {
	sheets := []struct {
		name   string
		header []string
	}{
		{s.sheets.Customers, CustomerHeader},
		{s.sheets.Technicians, TechnicianHeader},
		{s.sheets.Drafts, s.Drafts.headers},
		{s.sheets.Completed, s.Completed.headers},
	}
	for _, sh := range sheets {
		if err := ensure(sh.name, sh.header); err != nil {
			return fmt.Errorf("bootstrap %s: %w", sh.name, err)
		}
	}
	return nil
}

// SubmitResult describes a submitted checklist.
type SubmitResult struct {
	ChecklistID  string
	DraftID      string
	DraftDeleted bool
	Dropped      []string
	Checklist    Models.Checklist
}

// Submit appends cl to the completed collection and then removes its draft.
// Draft cleanup is best effort; the submission stands even if it fails.
func (s *Service) Submit(ctx context.Context, cl Models.Checklist) (SubmitResult, error) {
	if err := requireFields(cl, Models.FieldCustomerID, Models.FieldTechnicianID); err != nil {
		return SubmitResult{}, err
	}
	fields := cl.Clone()
	if fields.Get(Models.FieldChecklistID) == "" {
		fields[Models.FieldChecklistID] = newID("CHK")
	}
	if fields.Get(Models.FieldInspectedDate) == "" {
		fields[Models.FieldInspectedDate] = today()
	}
	draftID := fields.Get(Models.FieldDraftID)
	// The draft id is lifecycle state, not part of the completed record.
	delete(fields, Models.FieldDraftID)

	dropped, err := s.Completed.Append(ctx, fields)
	if err != nil {
		return SubmitResult{}, err
	}
	res := SubmitResult{
		ChecklistID: fields[Models.FieldChecklistID],
		DraftID:     draftID,
		Dropped:     dropped,
		Checklist:   fields,
	}
	if draftID != "" {
		deleted, err := s.Drafts.Delete(ctx, draftID)
		if err != nil {
			log.Printf("[records] checklist %s stored but draft %s was not removed: %v", res.ChecklistID, draftID, err)
		}
		res.DraftDeleted = deleted
	}
	return res, nil
}

// Enrich fills the display fields of cl from the customer and technician
// collections. Values already present are kept.
func Enrich(cl Models.Checklist, customers map[string]Models.Customer, techNames map[string]string) Models.Checklist {
	out := cl.Clone()
	if cust, ok := customers[cl.Get(Models.FieldCustomerID)]; ok {
		setIfEmpty(out, Models.FieldCustomerName, cust.CustomerName)
		setIfEmpty(out, Models.FieldCountry, cust.Country)
		setIfEmpty(out, Models.FieldMachineType, cust.MachineType)
		setIfEmpty(out, Models.FieldSerialNo, cust.SerialNo)
	}
	if name, ok := techNames[cl.Get(Models.FieldTechnicianID)]; ok {
		setIfEmpty(out, Models.FieldTechnicianName, name)
	}
	setIfEmpty(out, Models.FieldDate, cl.Get(Models.FieldInspectedDate))
	return out
}

func setIfEmpty(cl Models.Checklist, key, value string) {
	if strings.TrimSpace(cl[key]) == "" && value != "" {
		cl[key] = value
	}
}

func (s *Service) lookups(ctx context.Context) (map[string]Models.Customer, map[string]string) {
	customers, err := s.Customers.ByID(ctx)
	if err != nil {
		log.Printf("[records] customer lookup failed: %v", err)
	}
	names, err := s.Technicians.Names(ctx)
	if err != nil {
		log.Printf("[records] technician lookup failed: %v", err)
	}
	return customers, names
}

// EnrichOne joins display fields onto a single checklist. Lookup failures
// leave the checklist as it is.
func (s *Service) EnrichOne(ctx context.Context, cl Models.Checklist) Models.Checklist {
	customers, names := s.lookups(ctx)
	return Enrich(cl, customers, names)
}

// Summaries lists every completed checklist with customer and technician
// names resolved where possible.
func (s *Service) Summaries(ctx context.Context) ([]Summary, error) {
	customers, names := s.lookups(ctx)
	return s.Completed.Summaries(ctx, customers, names)
}

// CompletedFor returns the completed checklists of one technician, or of
// everyone when technicianID is empty, with display fields joined.
func (s *Service) CompletedFor(ctx context.Context, technicianID string) ([]Models.Checklist, error) {
	list, err := s.Completed.List(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	customers, names := s.lookups(ctx)
	for i, cl := range list {
		list[i] = Enrich(cl, customers, names)
	}
	return list, nil
}

// Stats are the homepage counters of one technician.
type Stats struct {
	CustomersVisited int `json:"customersVisited"`
	MachinesChecked  int `json:"machinesChecked"`
	DraftsMade       int `json:"draftsMade"`
}

// HomepageData is everything the technician landing page shows.
type HomepageData struct {
	Customers []Models.Customer  `json:"customers"`
	Drafts    []Models.Checklist `json:"drafts"`
	Completed []Models.Checklist `json:"completed"`
	Stats     Stats              `json:"stats"`
}

// Homepage reads customers, drafts and completed checklists in parallel and
// returns the technician's share of them.
func (s *Service) Homepage(ctx context.Context, technicianID string) (HomepageData, error) {
	var data HomepageData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Customers, err = s.Customers.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Drafts, err = s.Drafts.List(gctx, technicianID)
		return err
	})
	g.Go(func() (err error) {
		data.Completed, err = s.Completed.List(gctx, technicianID)
		return err
	})
	if err := g.Wait(); err != nil {
		return HomepageData{}, err
	}

	byID := make(map[string]Models.Customer, len(data.Customers))
	for _, c := range data.Customers {
		byID[c.CustomerID] = c
	}
	for i, cl := range data.Drafts {
		data.Drafts[i] = withDisplayDefaults(Enrich(cl, byID, nil))
	}
	visited := map[string]bool{}
	for i, cl := range data.Completed {
		data.Completed[i] = withDisplayDefaults(Enrich(cl, byID, nil))
		if id := cl.Get(Models.FieldCustomerID); id != "" {
			visited[id] = true
		}
	}
	data.Stats = Stats{
		CustomersVisited: len(visited),
		MachinesChecked:  len(data.Completed),
		DraftsMade:       len(data.Drafts),
	}
	return data, nil
}

func withDisplayDefaults(cl Models.Checklist) Models.Checklist {
	setIfEmpty(cl, Models.FieldCustomerName, "Unknown Customer")
	setIfEmpty(cl, Models.FieldMachineType, "N/A")
	setIfEmpty(cl, Models.FieldSerialNo, "N/A")
	return cl
}

// SheetInfo describes the header of one collection for diagnostics.
type SheetInfo struct {
	Sheet            string   `json:"sheet"`
	Length           int      `json:"length"`
	Rows             int      `json:"rows"`
	First10          []string `json:"first10"`
	HasDraftID       bool     `json:"hasDraftID"`
	HasChecklistID   bool     `json:"hasChecklistID"`
	HasCustomerID    bool     `json:"hasCustomerID"`
	HasTechnicianID  bool     `json:"hasTechnicianID"`
	HasInspectedDate bool     `json:"hasInspectedDate"`
	Error            string   `json:"error,omitempty"`
}

// Diagnostics reports the header shape of every collection. A sheet that
// cannot be read is reported, not returned as an error.
func (s *Service) Diagnostics(ctx context.Context) []SheetInfo {
	names := []string{s.sheets.Customers, s.sheets.Drafts, s.sheets.Completed, s.sheets.Technicians}
	out := make([]SheetInfo, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			out[i] = SheetInfo{Sheet: name}
			snap, err := s.store.Read(gctx, name)
			if err != nil {
				out[i].Error = err.Error()
				return nil
			}
			h := snap.Header
			first := h
			if len(first) > 10 {
				first = first[:10]
			}
			has := func(col string) bool { return Sheets.ColumnIndex(h, col) >= 0 }
			out[i] = SheetInfo{
				Sheet:            name,
				Length:           len(h),
				Rows:             snap.Len(),
				First10:          append([]string{}, first...),
				HasDraftID:       has(Models.FieldDraftID),
				HasChecklistID:   has(Models.FieldChecklistID),
				HasCustomerID:    has(Models.FieldCustomerID),
				HasTechnicianID:  has(Models.FieldTechnicianID),
				HasInspectedDate: has(Models.FieldInspectedDate),
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
