package Models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Well-known checklist columns. Everything else is an item field keyed by item code.
const (
	FieldChecklistID    = "ChecklistID"
	FieldDraftID        = "DraftID"
	FieldCustomerID     = "CustomerID"
	FieldTechnicianID   = "TechnicianID"
	FieldInspectedDate  = "InspectedDate"
	FieldCustomerName   = "CustomerName"
	FieldTechnicianName = "TechnicianName"
	FieldCountry        = "Country"
	FieldMachineType    = "MachineType"
	FieldSerialNo       = "SerialNo"
	FieldDate           = "Date"
	FieldReview         = "Review"
	FieldNotes          = "Notes"
	FieldPhotos         = "Photos"
)

// Checklist is a flat draft or completed checklist. Values are stored the way
// they appear in a spreadsheet cell; nested item data is kept as JSON text.
type Checklist map[string]string

// Get returns the first non-empty value among keys.
func (c Checklist) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c[k]); v != "" {
			return v
		}
	}
	return ""
}

// Clone returns a shallow copy.
func (c Checklist) Clone() Checklist {
	out := make(Checklist, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order.
func (c Checklist) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NormalizeFields flattens a decoded JSON object into a Checklist. Strings are
// kept, null becomes empty, and objects or arrays are serialized to JSON text.
func NormalizeFields(raw map[string]interface{}) (Checklist, error) {
	out := make(Checklist, len(raw))
	for k, v := range raw {
		s, err := stringify(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func stringify(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "TRUE", nil
		}
		return "FALSE", nil
	case float64:
		return fmt.Sprintf("%v", t), nil
	default:
		buf, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(buf), nil
	}
}

// DecodeChecklist parses a JSON object body into a Checklist.
func DecodeChecklist(body []byte) (Checklist, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return NormalizeFields(raw)
}

// ItemResult is the structured value of a single checklist line item.
type ItemResult struct {
	Status string   `json:"status"`
	Result string   `json:"result,omitempty"`
	Photos []string `json:"photos,omitempty"`
}

// ParseItem decodes an item value stored as a JSON object. It reports false
// for plain strings and for JSON that is not an object.
func ParseItem(value string) (ItemResult, bool) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "{") {
		return ItemResult{}, false
	}
	var raw struct {
		Status interface{} `json:"status"`
		Result interface{} `json:"result"`
		Photos interface{} `json:"photos"`
	}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return ItemResult{}, false
	}
	item := ItemResult{
		Status: scalar(raw.Status),
		Result: scalar(raw.Result),
	}
	switch p := raw.Photos.(type) {
	case []interface{}:
		for _, ref := range p {
			if s := strings.TrimSpace(scalar(ref)); s != "" {
				item.Photos = append(item.Photos, s)
			}
		}
	case string:
		if s := strings.TrimSpace(p); s != "" {
			item.Photos = append(item.Photos, s)
		}
	}
	return item, true
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]interface{}:
		if u, ok := t["url"].(string); ok {
			return u
		}
		buf, _ := json.Marshal(t)
		return string(buf)
	default:
		return fmt.Sprint(t)
	}
}

var statusLabels = map[string]string{
	"N": "Normal",
	"A": "Adjusted",
	"C": "Clean",
	"R": "Replace",
	"I": "Improve",
}

var codeSeparator = regexp.MustCompile(`[,\s]+`)

// StatusCodes splits a status value such as "N, C" into its codes.
func StatusCodes(status string) []string {
	var codes []string
	for _, code := range codeSeparator.Split(strings.TrimSpace(status), -1) {
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// StatusLabel maps a one-letter status code to its display text. Unknown codes
// are returned unchanged.
func StatusLabel(code string) string {
	if label, ok := statusLabels[strings.ToUpper(code)]; ok {
		return label
	}
	return code
}

// IsStatusCode reports whether code is one of the known inspection outcomes.
func IsStatusCode(code string) bool {
	_, ok := statusLabels[strings.ToUpper(code)]
	return ok
}

// PhotoRefs collects every photo reference embedded in the checklist: the
// photos arrays of item values and a top-level Photos field. Order follows the
// sorted field names; duplicates are removed.
func (c Checklist) PhotoRefs() []string {
	seen := map[string]bool{}
	var refs []string
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	for _, key := range c.Keys() {
		value := c[key]
		if key == FieldPhotos || key == "Photo" {
			var list []string
			if err := json.Unmarshal([]byte(value), &list); err == nil {
				for _, ref := range list {
					add(ref)
				}
				continue
			}
			for _, ref := range strings.Split(value, ",") {
				add(ref)
			}
			continue
		}
		if item, ok := ParseItem(value); ok {
			for _, ref := range item.Photos {
				add(ref)
			}
		}
	}
	return refs
}
