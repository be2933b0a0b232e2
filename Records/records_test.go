package Records

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"Maintenance/Config"
	"Maintenance/Models"
	"Maintenance/Sheets"
)

var testSheets = Config.SheetNames{
	Customers:   "CustomerList",
	Drafts:      "Drafts",
	Completed:   "FilterTester",
	Technicians: "TechnicianDetails",
}

func newTestService(t *testing.T, policy FieldPolicy) (*Service, *Sheets.MemoryStore) {
	t.Helper()
	store := Sheets.NewMemoryStore()
	svc := NewService(store, testSheets, policy, Models.DefaultTemplate())
	require.NoError(t, svc.Bootstrap(store.EnsureSheet))
	return svc, store
}

func read(t *testing.T, store Sheets.Store, sheet string) *Sheets.Snapshot {
	t.Helper()
	snap, err := store.Read(context.Background(), sheet)
	require.NoError(t, err)
	return snap
}

func TestCustomerCreateIsIdempotentUnderNormalization(t *testing.T) {
	svc, store := newTestService(t, PolicyDrop)
	ctx := context.Background()

	first, created, err := svc.Customers.Create(ctx, Models.Customer{
		CustomerName: "Acme Café", Country: "Egypt", MachineType: "FT-200", SerialNo: "sn 001",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Regexp(t, regexp.MustCompile(`^CUST-\d+$`), first.CustomerID)

	again, created, err := svc.Customers.Create(ctx, Models.Customer{
		CustomerName: "ACME CAFE", Country: "egypt", MachineType: "ft200", SerialNo: "SN-001",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.CustomerID, again.CustomerID)
	assert.Equal(t, 1, read(t, store, testSheets.Customers).Len())
}

func TestCustomerCreateRequiresEveryField(t *testing.T) {
	svc, _ := newTestService(t, PolicyDrop)

	_, _, err := svc.Customers.Create(context.Background(), Models.Customer{CustomerName: "Acme", Country: " "})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Country", "MachineType", "SerialNo"}, verr.Fields)
}

func TestDraftSavedTwiceLeavesOneRow(t *testing.T) {
	svc, store := newTestService(t, PolicyDrop)
	ctx := context.Background()

	first, err := svc.Drafts.Save(ctx, Models.Checklist{
		"CustomerID":   "CUST-1",
		"TechnicianID": "T-9",
		"Motor_Check":  `{"status":"N"}`,
	})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Regexp(t, regexp.MustCompile(`^DRAFT-\d+$`), first.DraftID)

	second, err := svc.Drafts.Save(ctx, Models.Checklist{
		"DraftID":      first.DraftID,
		"CustomerID":   "CUST-1",
		"TechnicianID": "T-9",
		"Motor_Check":  `{"status":"R","result":"bearing noise"}`,
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.DraftID, second.DraftID)

	snap := read(t, store, testSheets.Drafts)
	require.Equal(t, 1, snap.Len())
	rec := snap.Record(0)
	assert.Equal(t, `{"status":"R","result":"bearing noise"}`, rec["Motor_Check"])
	assert.NotEmpty(t, rec["InspectedDate"])
}

func TestDraftSaveWithUnknownIDCreatesNewDraft(t *testing.T) {
	svc, _ := newTestService(t, PolicyDrop)

	res, err := svc.Drafts.Save(context.Background(), Models.Checklist{
		"DraftID": "DRAFT-404", "CustomerID": "CUST-1", "TechnicianID": "T-9",
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotEqual(t, "DRAFT-404", res.DraftID)
}

func TestConcurrentSavesOfOneDraftDoNotDuplicate(t *testing.T) {
	svc, store := newTestService(t, PolicyDrop)
	ctx := context.Background()

	res, err := svc.Drafts.Save(ctx, Models.Checklist{"CustomerID": "CUST-1", "TechnicianID": "T-9"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Drafts.Save(ctx, Models.Checklist{
				"DraftID":      res.DraftID,
				"CustomerID":   "CUST-1",
				"TechnicianID": "T-9",
				"Review":       fmt.Sprintf("pass %d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, read(t, store, testSheets.Drafts).Len())
}

// gatedStore holds the first Update until release is closed.
type gatedStore struct {
	*Sheets.MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Update(ctx context.Context, sheet string, rowNumber int, row []string) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.MemoryStore.Update(ctx, sheet, rowNumber, row)
}

func TestDeleteWaitsForSaveOfAnotherDraft(t *testing.T) {
	mem := Sheets.NewMemoryStore()
	mem.Seed(testSheets.Drafts, []string{"DraftID", "CustomerID", "TechnicianID", "Review"},
		[]string{"DRAFT-A", "CUST-1", "T-1", ""},
		[]string{"DRAFT-B", "CUST-2", "T-2", ""},
		[]string{"DRAFT-C", "CUST-3", "T-3", ""},
	)
	store := &gatedStore{MemoryStore: mem, entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(store, testSheets, PolicyDrop, Models.DefaultTemplate())
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Drafts.Save(ctx, Models.Checklist{
			"DraftID": "DRAFT-B", "CustomerID": "CUST-2", "TechnicianID": "T-2", "Review": "done",
		})
		assert.NoError(t, err)
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		deleted, err := svc.Drafts.Delete(ctx, "DRAFT-A")
		assert.NoError(t, err)
		assert.True(t, deleted)
	}()
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	snap := read(t, mem, testSheets.Drafts)
	col := snap.Column("DraftID")
	assert.Equal(t, []string{"DRAFT-B", "DRAFT-C"}, snap.Values(col))
	b, err := svc.Drafts.Find(ctx, "DRAFT-B")
	require.NoError(t, err)
	assert.Equal(t, "done", b.Get("Review"))
}

func TestSubmitAppendsAndDeletesDraft(t *testing.T) {
	svc, store := newTestService(t, PolicyDrop)
	ctx := context.Background()

	draft, err := svc.Drafts.Save(ctx, Models.Checklist{"CustomerID": "CUST-1", "TechnicianID": "T-9"})
	require.NoError(t, err)

	res, err := svc.Submit(ctx, Models.Checklist{
		"DraftID":      draft.DraftID,
		"CustomerID":   "CUST-1",
		"TechnicianID": "T-9",
		"Motor_Check":  `{"status":"N","result":"ok"}`,
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^CHK-\d+$`), res.ChecklistID)
	assert.True(t, res.DraftDeleted)

	assert.Equal(t, 0, read(t, store, testSheets.Drafts).Len())
	completed := read(t, store, testSheets.Completed)
	require.Equal(t, 1, completed.Len())
	rec := completed.Record(0)
	assert.Equal(t, "CUST-1", rec["CustomerID"])
	assert.Equal(t, "T-9", rec["TechnicianID"])
	assert.Equal(t, res.ChecklistID, rec["ChecklistID"])
}

func TestSubmitSucceedsWhenDraftIsGone(t *testing.T) {
	svc, store := newTestService(t, PolicyDrop)

	res, err := svc.Submit(context.Background(), Models.Checklist{
		"DraftID": "DRAFT-1", "CustomerID": "CUST-1", "TechnicianID": "T-9",
	})
	require.NoError(t, err)
	assert.False(t, res.DraftDeleted)
	assert.Equal(t, 1, read(t, store, testSheets.Completed).Len())
}

func TestSubmitValidatesRequiredFields(t *testing.T) {
	svc, _ := newTestService(t, PolicyDrop)

	_, err := svc.Submit(context.Background(), Models.Checklist{"CustomerID": "CUST-1"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"TechnicianID"}, verr.Fields)
}

func TestUnknownFieldPolicies(t *testing.T) {
	draft := Models.Checklist{
		"CustomerID":   "CUST-1",
		"TechnicianID": "T-9",
		"Mystery":      "value",
		"CustomerName": "Acme",
	}

	t.Run("drop", func(t *testing.T) {
		svc, store := newTestService(t, PolicyDrop)
		res, err := svc.Drafts.Save(context.Background(), draft)
		require.NoError(t, err)
		assert.Equal(t, []string{"Mystery"}, res.Dropped)
		assert.NotContains(t, read(t, store, testSheets.Drafts).Record(0), "Mystery")
	})

	t.Run("reject", func(t *testing.T) {
		svc, store := newTestService(t, PolicyReject)
		_, err := svc.Drafts.Save(context.Background(), draft)
		var uerr *UnknownFieldsError
		require.True(t, errors.As(err, &uerr))
		assert.Equal(t, []string{"Mystery"}, uerr.Fields)
		assert.Equal(t, 0, read(t, store, testSheets.Drafts).Len())
	})

	t.Run("extend", func(t *testing.T) {
		svc, store := newTestService(t, PolicyExtend)
		res, err := svc.Drafts.Save(context.Background(), draft)
		require.NoError(t, err)
		assert.Empty(t, res.Dropped)
		snap := read(t, store, testSheets.Drafts)
		assert.Contains(t, snap.Header, "Mystery")
		assert.NotContains(t, snap.Header, "CustomerName")
		assert.Equal(t, "value", snap.Record(0)["Mystery"])
	})
}

func TestEmptySheetGetsDefaultHeader(t *testing.T) {
	store := Sheets.NewMemoryStore()
	store.Seed(testSheets.Drafts, nil)
	svc := NewService(store, testSheets, PolicyDrop, Models.DefaultTemplate())

	_, err := svc.Drafts.Save(context.Background(), Models.Checklist{"CustomerID": "CUST-1", "TechnicianID": "T-9"})
	require.NoError(t, err)
	snap := read(t, store, testSheets.Drafts)
	assert.Equal(t, "DraftID", snap.Header[0])
	assert.Contains(t, snap.Header, "Emergency_Stop")
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	svc, store := newTestService(t, PolicyDrop)
	store.Seed(testSheets.Technicians, TechnicianHeader,
		[]string{"T-9", "Sam Adel", "https://example.com/sam.jpg", "sam", "secret"},
		[]string{"T-10", "Mona", "", "mona", string(hash)},
	)
	ctx := context.Background()

	tech, err := svc.Technicians.Authenticate(ctx, "sam", "secret")
	require.NoError(t, err)
	assert.Equal(t, "T-9", tech.TechnicianID)
	assert.Equal(t, "https://example.com/sam.jpg", tech.PhotoURL)

	tech, err = svc.Technicians.Authenticate(ctx, "mona", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "T-10", tech.TechnicianID)

	for _, c := range []struct{ user, pass string }{
		{"Sam", "secret"},
		{"sam", "Secret"},
		{"mona", string(hash)},
		{"nobody", "secret"},
		{"", ""},
	} {
		_, err := svc.Technicians.Authenticate(ctx, c.user, c.pass)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "%s/%s", c.user, c.pass)
	}
}

func TestAuthenticateFallsBackToFixedColumns(t *testing.T) {
	svc, store := newTestService(t, PolicyDrop)
	store.Seed(testSheets.Technicians, []string{"Id", "Full name", "Picture", "Login", "Pass"},
		[]string{"T-1", "Ali", "", "ali", "pw"},
	)

	tech, err := svc.Technicians.Authenticate(context.Background(), "ali", "pw")
	require.NoError(t, err)
	assert.Equal(t, "T-1", tech.TechnicianID)
	assert.Equal(t, "Ali", tech.Name)
}

func TestCompletedFind(t *testing.T) {
	svc, store := newTestService(t, PolicyDrop)
	store.Seed(testSheets.Completed, []string{"Checklist Id", "CustomerID"},
		[]string{"CHK-1", "CUST-1"},
		[]string{"CHK-2", "CUST-2"},
	)
	ctx := context.Background()

	cl, err := svc.Completed.Find(ctx, "CHK-2")
	require.NoError(t, err)
	assert.Equal(t, "CUST-2", cl["CustomerID"])

	_, err = svc.Completed.Find(ctx, "CHK-3")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"CHK-1", "CHK-2"}, nf.Known)
}

func TestHomepage(t *testing.T) {
	svc, store := newTestService(t, PolicyDrop)
	store.Seed(testSheets.Customers, CustomerHeader,
		[]string{"CUST-1", "Acme", "Egypt", "FT-200", "SN1"},
		[]string{"CUST-2", "Globex", "Jordan", "FT-300", "SN2"},
	)
	store.Seed(testSheets.Completed, []string{"ChecklistID", "CustomerID", "TechnicianID"},
		[]string{"CHK-1", "CUST-1", "T-9"},
		[]string{"CHK-2", "CUST-1", "T-9"},
		[]string{"CHK-3", "CUST-2", "T-1"},
		[]string{"CHK-4", "CUST-X", "T-9"},
	)
	store.Seed(testSheets.Drafts, []string{"DraftID", "CustomerID", "TechnicianID"},
		[]string{"DRAFT-1", "CUST-2", "T-9"},
	)

	data, err := svc.Homepage(context.Background(), "T-9")
	require.NoError(t, err)
	assert.Len(t, data.Customers, 2)
	require.Len(t, data.Completed, 3)
	assert.Equal(t, "Acme", data.Completed[0]["CustomerName"])
	assert.Equal(t, "Unknown Customer", data.Completed[2]["CustomerName"])
	assert.Equal(t, "N/A", data.Completed[2]["SerialNo"])
	assert.Equal(t, "FT-300", data.Drafts[0]["MachineType"])
	assert.Equal(t, Stats{CustomersVisited: 2, MachinesChecked: 3, DraftsMade: 1}, data.Stats)
}

func TestSummariesSkipRowsWithoutID(t *testing.T) {
	svc, store := newTestService(t, PolicyDrop)
	store.Seed(testSheets.Customers, CustomerHeader, []string{"CUST-1", "Acme", "Egypt", "FT-200", "SN1"})
	store.Seed(testSheets.Completed, []string{"ChecklistID", "CustomerID", "TechnicianID", "InspectedDate"},
		[]string{"CHK-1", "CUST-1", "T-9", "2024-05-01"},
		[]string{"", "", "", ""},
	)

	list, err := svc.Summaries(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, Summary{ID: "CHK-1", Customer: "Acme", Technician: "Unknown", Date: "2024-05-01", Status: "Completed"}, list[0])
}

func TestDiagnosticsReportsUnreadableSheets(t *testing.T) {
	store := Sheets.NewMemoryStore()
	store.Seed(testSheets.Drafts, []string{"DraftID", "CustomerID", "TechnicianID"})
	svc := NewService(store, testSheets, PolicyDrop, nil)

	info := svc.Diagnostics(context.Background())
	require.Len(t, info, 4)
	assert.NotEmpty(t, info[0].Error)
	assert.Equal(t, "Drafts", info[1].Sheet)
	assert.True(t, info[1].HasDraftID)
	assert.False(t, info[1].HasInspectedDate)
	assert.Equal(t, 3, info[1].Length)
}

func TestNewIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := newID("CHK")
		require.False(t, seen[id], id)
		seen[id] = true
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Extend")
	require.NoError(t, err)
	assert.Equal(t, PolicyExtend, p)

	_, err = ParsePolicy("ignore")
	assert.Error(t, err)
}
