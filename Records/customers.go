package Records

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"Maintenance/Models"
	"Maintenance/Sheets"
)

// CustomerHeader is written to an empty customer sheet.
var CustomerHeader = []string{
	Models.FieldCustomerID,
	Models.FieldCustomerName,
	Models.FieldCountry,
	Models.FieldMachineType,
	Models.FieldSerialNo,
}

// Customers manages the customer collection.
type Customers struct {
	store Sheets.Store
	sheet string
	w     rowWriter
	locks *keyedMutex
}

// CustomerKey is the duplicate-detection key: name, country, machine type and
// serial number with accents folded, uppercased, and reduced to A-Z and 0-9.
func CustomerKey(c Models.Customer) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	raw := c.CustomerName + c.Country + c.MachineType + c.SerialNo
	folded, _, err := transform.String(fold, raw)
	if err != nil {
		folded = raw
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(folded) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// List returns every customer row.
func (c *Customers) List(ctx context.Context) ([]Models.Customer, error) {
	snap, err := c.store.Read(ctx, c.sheet)
	if err != nil {
		return nil, err
	}
	out := make([]Models.Customer, 0, snap.Len())
	for _, rec := range snap.Records() {
		cust := Models.CustomerFromFields(rec)
		if cust.CustomerID == "" {
			continue
		}
		out = append(out, cust)
	}
	return out, nil
}

// ByID indexes customers by CustomerID.
func (c *Customers) ByID(ctx context.Context) (map[string]Models.Customer, error) {
	list, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]Models.Customer, len(list))
	for _, cust := range list {
		if _, seen := idx[cust.CustomerID]; !seen {
			idx[cust.CustomerID] = cust
		}
	}
	return idx, nil
}

// Create stores a new customer unless one with the same key already exists,
// in which case the existing record is returned and created is false.
func (c *Customers) Create(ctx context.Context, in Models.Customer) (cust Models.Customer, created bool, err error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Country = strings.TrimSpace(in.Country)
	in.MachineType = strings.TrimSpace(in.MachineType)
	in.SerialNo = strings.TrimSpace(in.SerialNo)
	fields := in.Fields()
	if err := requireFields(fields, Models.FieldCustomerName, Models.FieldCountry, Models.FieldMachineType, Models.FieldSerialNo); err != nil {
		return Models.Customer{}, false, err
	}

	key := CustomerKey(in)
	unlock := c.locks.Lock(key)
	defer unlock()

	snap, err := c.store.Read(ctx, c.sheet)
	if err != nil {
		return Models.Customer{}, false, err
	}
	for _, rec := range snap.Records() {
		existing := Models.CustomerFromFields(rec)
		if existing.CustomerID != "" && CustomerKey(existing) == key {
			return existing, false, nil
		}
	}

	in.CustomerID = newID("CUST")
	fields[Models.FieldCustomerID] = in.CustomerID
	row, _, err := c.w.prepare(ctx, snap, fields, CustomerHeader)
	if err != nil {
		return Models.Customer{}, false, err
	}
	if err := c.store.Append(ctx, c.sheet, row); err != nil {
		return Models.Customer{}, false, fmt.Errorf("append customer: %w", err)
	}
	return in, true, nil
}
