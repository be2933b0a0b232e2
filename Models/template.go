package Models

import (
	"errors"
	"fmt"
	"os"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// TemplateItem is one inspection line shown to technicians.
type TemplateItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// TemplateCategory groups related inspection lines.
type TemplateCategory struct {
	Category string         `json:"category"`
	Items    []TemplateItem `json:"items"`
}

// ChecklistTemplate is the ordered set of inspection lines.
type ChecklistTemplate struct {
	Title      string             `json:"title"`
	Categories []TemplateCategory `json:"categories"`

	labels map[string]string
	order  map[string]int
}

// DefaultTemplate is the filter tester checklist used when no template file exists.
func DefaultTemplate() *ChecklistTemplate {
	t := &ChecklistTemplate{
		Title: "Filter Tester Maintenance",
		Categories: []TemplateCategory{
			{Category: "Pump & Mechanical", Items: []TemplateItem{
				{ID: "Motor_Check", Text: "Check the gear pump motor."},
				{ID: "Motor_Gear_Oil", Text: "Check the oil level of the motor gear."},
				{ID: "Motor_Gear_Condition", Text: "Check the motor gear."},
				{ID: "Pump_Seal", Text: "Check the packing seal at the gear pump."},
				{ID: "Material_Leakage", Text: "Check for material leakage."},
				{ID: "Shaft_Joint", Text: "Check the joint between the pump and drive shaft."},
				{ID: "Pump_Rotation", Text: "Check the gear pump rotation."},
				{ID: "Motor_Mounting", Text: "Check the motor gear mounting."},
				{ID: "Filter_Retainer", Text: "Check the filter screen retainer."},
				{ID: "Pump_Cleanliness", Text: "Check gear pump cleaning/cleanliness."},
				{ID: "Shaft_Safety_Pin", Text: "Check the safety pin on the shaft joint."},
			}},
			{Category: "Heating System", Items: []TemplateItem{
				{ID: "Heater_Condition", Text: "Check the condition of the heater."},
				{ID: "Thermocouple_Check", Text: "Check the thermocouple."},
				{ID: "Temp_Controller", Text: "Check the temperature controller."},
				{ID: "Heater_Cable_Insulation", Text: "Check the insulation for heater cables."},
				{ID: "Heater_Cable_Connection", Text: "Check the heater cable and connection."},
			}},
			{Category: "Electrical & Controls", Items: []TemplateItem{
				{ID: "Motor_Inverter", Text: "Check the inverter of the gear pump motor."},
				{ID: "Pressure_Control_Loop", Text: "Check the closed-loop control for pressure."},
				{ID: "Motor_Overload_Breaker", Text: "Check the motor overload circuit breaker."},
				{ID: "Pressure_Transducer", Text: "Check the pressure transducer."},
				{ID: "Indicator_Lamps", Text: "Check the indicator lamps."},
				{ID: "Switches_Check", Text: "Check all switches."},
				{ID: "PC_Condition", Text: "Check the condition of the PC."},
			}},
			{Category: "Alarms & Safety", Items: []TemplateItem{
				{ID: "Low_Temp_Alarm", Text: "Check the low-temperature alarm."},
				{ID: "Pressure_Alarms", Text: "Check the high/low-pressure alarm."},
				{ID: "Buzzer_Check", Text: "Check the buzzer."},
				{ID: "Emergency_Stop", Text: "Check the emergency stop button."},
			}},
		},
	}
	t.index()
	return t
}

// LoadTemplate reads a JSON5 template file. A missing file yields the default template.
func LoadTemplate(path string) (*ChecklistTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultTemplate(), nil
		}
		return nil, err
	}
	var t ChecklistTemplate
	if err := json5.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse checklist template %s: %w", path, err)
	}
	if len(t.Categories) == 0 {
		return nil, fmt.Errorf("checklist template %s has no categories", path)
	}
	t.index()
	return &t, nil
}

func (t *ChecklistTemplate) index() {
	t.labels = map[string]string{}
	t.order = map[string]int{}
	n := 0
	for _, cat := range t.Categories {
		for _, item := range cat.Items {
			if _, dup := t.order[item.ID]; dup {
				continue
			}
			t.labels[item.ID] = item.Text
			t.order[item.ID] = n
			n++
		}
	}
}

// ItemIDs returns every item id in template order.
func (t *ChecklistTemplate) ItemIDs() []string {
	ids := make([]string, 0, len(t.order))
	for _, cat := range t.Categories {
		for _, item := range cat.Items {
			if t.order[item.ID] == len(ids) {
				ids = append(ids, item.ID)
			}
		}
	}
	return ids
}

// Label returns the display text for an item id.
func (t *ChecklistTemplate) Label(id string) (string, bool) {
	if t == nil {
		return "", false
	}
	label, ok := t.labels[id]
	return label, ok
}

// Position returns the template order of an item id.
func (t *ChecklistTemplate) Position(id string) (int, bool) {
	if t == nil {
		return 0, false
	}
	pos, ok := t.order[id]
	return pos, ok
}
