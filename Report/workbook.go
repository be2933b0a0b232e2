package Report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"Maintenance/Models"
)

var workbookColumns = []struct {
	header string
	keys   []string
}{
	{"Checklist ID", []string{Models.FieldChecklistID}},
	{"Date", []string{Models.FieldDate, Models.FieldInspectedDate}},
	{"Customer", []string{Models.FieldCustomerName, Models.FieldCustomerID}},
	{"Location", []string{Models.FieldCountry}},
	{"Equipment Model", []string{Models.FieldMachineType}},
	{"Serial Number", []string{Models.FieldSerialNo}},
	{"Technician", []string{Models.FieldTechnicianName, Models.FieldTechnicianID}},
}

// Workbook lays out completed checklists as one spreadsheet row each, with a
// status and a result column per checklist item.
func Workbook(checklists []Models.Checklist, tmpl *Models.ChecklistTemplate) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Checklists"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}

	// Item columns: template items first, then anything else seen in the data.
	itemRows := make([][]ItemRow, len(checklists))
	labels := map[string]string{}
	var itemKeys []string
	for i, cl := range checklists {
		itemRows[i] = Items(cl, tmpl)
		for _, row := range itemRows[i] {
			if _, seen := labels[row.Key]; !seen {
				labels[row.Key] = row.Label
				itemKeys = append(itemKeys, row.Key)
			}
		}
	}
	sort.SliceStable(itemKeys, func(a, b int) bool {
		pa, aok := tmpl.Position(itemKeys[a])
		pb, bok := tmpl.Position(itemKeys[b])
		if aok && bok {
			return pa < pb
		}
		if aok != bok {
			return aok
		}
		return itemKeys[a] < itemKeys[b]
	})

	headers := make([]interface{}, 0, len(workbookColumns)+2*len(itemKeys)+1)
	for _, col := range workbookColumns {
		headers = append(headers, col.header)
	}
	for _, key := range itemKeys {
		headers = append(headers, labels[key]+" (Status)", labels[key]+" (Result)")
	}
	headers = append(headers, "Review")
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#2563EB"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(sheetName, 1, 1, headerStyle)
	}

	for i, cl := range checklists {
		byKey := make(map[string]ItemRow, len(itemRows[i]))
		for _, row := range itemRows[i] {
			byKey[row.Key] = row
		}
		values := make([]interface{}, 0, len(headers))
		for _, col := range workbookColumns {
			values = append(values, cl.Get(col.keys...))
		}
		for _, key := range itemKeys {
			row, ok := byKey[key]
			if !ok {
				values = append(values, "", "")
				continue
			}
			values = append(values, row.Status, row.Result)
		}
		values = append(values, cl.Get("review", Models.FieldReview, "notes", Models.FieldNotes))

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, err
		}
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	f.SetColWidth(sheetName, "A", last, 18)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %v", err)
	}
	return &buf, nil
}
