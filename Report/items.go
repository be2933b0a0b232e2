package Report

import (
	"sort"
	"strings"
	"unicode"

	"Maintenance/Models"
)

// Metadata and display keys are never rendered as checklist lines.
var excludedKeys = map[string]bool{
	"ChecklistID": true, "checklistId": true, "DraftID": true, "CustomerID": true, "TechnicianID": true,
	"InspectedDate": true, "CustomerName": true, "MachineType": true, "SerialNo": true,
	"TechnicianName": true, "Date": true, "Country": true, "Review": true, "review": true,
	"Notes": true, "notes": true, "Photos": true, "Photo": true, "Equipment Model": true,
	"Serial Number": true, "Technician": true, "Customer": true, "Location": true, "Model": true,
	"SerialNumber": true,
}

// ItemRow is one rendered line of the checklist table.
type ItemRow struct {
	Key    string
	Label  string
	Status string
	Result string
}

// Items extracts the checklist lines of cl: template items first in template
// order, then any other field alphabetically.
func Items(cl Models.Checklist, tmpl *Models.ChecklistTemplate) []ItemRow {
	var keys []string
	for key, value := range cl {
		if excludedKeys[key] || strings.TrimSpace(value) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, iok := tmpl.Position(keys[i])
		pj, jok := tmpl.Position(keys[j])
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})

	rows := make([]ItemRow, 0, len(keys))
	for _, key := range keys {
		row := ItemRow{Key: key, Label: formatFieldName(key), Status: "N/A", Result: "N/A"}
		if label, ok := tmpl.Label(key); ok {
			row.Label = label
		}
		value := cl[key]
		if item, ok := Models.ParseItem(value); ok {
			if item.Status != "" {
				row.Status = statusText(Models.StatusCodes(item.Status))
			}
			if item.Result != "" {
				row.Result = item.Result
			}
		} else if codes := Models.StatusCodes(value); anyKnown(codes) {
			row.Status = statusText(codes)
		} else {
			row.Result = strings.TrimSpace(value)
		}
		rows = append(rows, row)
	}
	return rows
}

func anyKnown(codes []string) bool {
	for _, c := range codes {
		if Models.IsStatusCode(c) {
			return true
		}
	}
	return false
}

func statusText(codes []string) string {
	labels := make([]string, len(codes))
	for i, c := range codes {
		labels[i] = Models.StatusLabel(c)
	}
	return strings.Join(labels, ", ")
}

// formatFieldName turns an item key such as "Motor_GearOil" into "Motor Gear Oil".
func formatFieldName(key string) string {
	var b strings.Builder
	runes := []rune(key)
	for i, r := range runes {
		if r == '_' || r == '-' {
			b.WriteRune(' ')
			continue
		}
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if out == "" {
		return key
	}
	r := []rune(out)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Photo is one image of the appendix. Path is the local file to embed and
// may be empty when the download failed.
type Photo struct {
	Ref         string
	Description string
	Path        string
}

func (p Photo) key() string {
	if p.Ref != "" {
		return p.Ref
	}
	return p.Path
}

func uniquePhotos(photos []Photo) []Photo {
	seen := map[string]bool{}
	out := make([]Photo, 0, len(photos))
	for _, p := range photos {
		k := p.key()
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}
