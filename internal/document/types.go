package document

import (
	"time"
)

// FieldType is the type tag of a field. The catalog of renderable types
// lives with the host; the engine only cares about the choice and file
// families because validation treats them specially.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeEmail       FieldType = "email"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
	FieldTypeRadio       FieldType = "radio"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeFile        FieldType = "file"
	FieldTypeAttachment  FieldType = "attachment"
	FieldTypeImage       FieldType = "image"
)

// IsChoice reports whether the type draws its values from an options list.
func (t FieldType) IsChoice() bool {
	switch t {
	case FieldTypeSelect, FieldTypeMultiSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	}
	return false
}

// IsFile reports whether the type accepts uploaded files.
func (t FieldType) IsFile() bool {
	switch t {
	case FieldTypeFile, FieldTypeAttachment, FieldTypeImage:
		return true
	}
	return false
}

// Option is one entry of a choice field.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// FieldValidation is the optional validation descriptor of a field.
// Min and Max bound numeric values or text length depending on the type.
type FieldValidation struct {
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min       *int64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *int64   `json:"max,omitempty" yaml:"max,omitempty"`
	Accept    []string `json:"accept,omitempty" yaml:"accept,omitempty"`
	MaxSizeKB int64    `json:"max_size_kb,omitempty" yaml:"max_size_kb,omitempty"`
}

// Field is a single configurable input of the document.
type Field struct {
	ID          string           `json:"id" yaml:"id"`
	Type        FieldType        `json:"type" yaml:"type"`
	Label       string           `json:"label" yaml:"label"`
	Placeholder string           `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool             `json:"required" yaml:"required"`
	Order       int              `json:"order" yaml:"order"`
	Options     []Option         `json:"options,omitempty" yaml:"options,omitempty"`
	Validation  *FieldValidation `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// Design holds presentation settings.
type Design struct {
	Theme        string            `json:"theme,omitempty" yaml:"theme,omitempty"`
	PrimaryColor string            `json:"primary_color,omitempty" yaml:"primary_color,omitempty"`
	Layout       string            `json:"layout,omitempty" yaml:"layout,omitempty"`
	Custom       map[string]string `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Delivery is the downstream target that receives submissions, e.g. a
// spreadsheet or a webhook. A document without one is not ready for
// external use.
type Delivery struct {
	Kind   string `json:"kind" yaml:"kind"`
	Target string `json:"target" yaml:"target"`
}

// Behavior holds behavior settings.
type Behavior struct {
	SubmitLabel     string    `json:"submit_label,omitempty" yaml:"submit_label,omitempty"`
	SuccessMessage  string    `json:"success_message,omitempty" yaml:"success_message,omitempty"`
	RedirectEnabled bool      `json:"redirect_enabled,omitempty" yaml:"redirect_enabled,omitempty"`
	RedirectURL     string    `json:"redirect_url,omitempty" yaml:"redirect_url,omitempty"`
	Delivery        *Delivery `json:"delivery,omitempty" yaml:"delivery,omitempty"`
}

// Document is the editable entity under management.
//
// Revision is the logical sequence number of the last change applied in
// the current session. PersistedAt is the wall time of the last successful
// persist and is never part of the content hash.
type Document struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	Fields      []Field   `json:"fields" yaml:"fields"`
	Design      Design    `json:"design" yaml:"design"`
	Behavior    Behavior  `json:"behavior" yaml:"behavior"`
	PersistedAt time.Time `json:"persisted_at" yaml:"persisted_at,omitempty"`
	Revision    int64     `json:"revision" yaml:"revision,omitempty"`
}

// FieldIndex returns the position of the field with the given ID, or -1.
func (d Document) FieldIndex(id string) int {
	for i := range d.Fields {
		if d.Fields[i].ID == id {
			return i
		}
	}
	return -1
}

// Field returns a deep copy of the field with the given ID.
// The copy can be edited and handed back through UpdateField.
func (d Document) Field(id string) (Field, bool) {
	i := d.FieldIndex(id)
	if i < 0 {
		return Field{}, false
	}
	return cloneField(d.Fields[i]), true
}

// HasDelivery reports whether a downstream delivery target is configured.
func (d Document) HasDelivery() bool {
	return d.Behavior.Delivery != nil && d.Behavior.Delivery.Target != ""
}
