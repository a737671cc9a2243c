package document

import (
	"slices"
)

// Kind identifies a mutation.
type Kind string

const (
	KindAddField       Kind = "add_field"
	KindUpdateField    Kind = "update_field"
	KindDeleteField    Kind = "delete_field"
	KindReorderFields  Kind = "reorder_fields"
	KindUpdateDesign   Kind = "update_design"
	KindUpdateBehavior Kind = "update_behavior"
	KindSetDelivery    Kind = "set_delivery"
)

// Change tokens recorded in the pending set. Field edits use the field ID
// itself as the token.
const (
	TokenAddField         = "add_field"
	TokenDeleteField      = "delete_field"
	TokenReorderFields    = "reorder_fields"
	TokenDesignSettings   = "design_settings"
	TokenBehaviorSettings = "behavior_settings"
	TokenDeliverySettings = "delivery_settings"
	TokenRestore          = "restore"
)

// Mutation is a caller-issued edit. Exactly the payload matching Kind is
// read; everything else is ignored.
//
// update_field replaces the whole field value (last value wins); the field
// keeps its ID and position. A nil Delivery on set_delivery clears the
// delivery target.
type Mutation struct {
	Kind     Kind      `json:"kind" yaml:"kind"`
	FieldID  string    `json:"field_id,omitempty" yaml:"field_id,omitempty"`
	Field    *Field    `json:"field,omitempty" yaml:"field,omitempty"`
	From     int       `json:"from,omitempty" yaml:"from,omitempty"`
	To       int       `json:"to,omitempty" yaml:"to,omitempty"`
	Design   *Design   `json:"design,omitempty" yaml:"design,omitempty"`
	Behavior *Behavior `json:"behavior,omitempty" yaml:"behavior,omitempty"`
	Delivery *Delivery `json:"delivery,omitempty" yaml:"delivery,omitempty"`
}

func AddField(f Field) Mutation {
	return Mutation{Kind: KindAddField, Field: &f}
}

func UpdateField(f Field) Mutation {
	return Mutation{Kind: KindUpdateField, FieldID: f.ID, Field: &f}
}

func DeleteField(id string) Mutation {
	return Mutation{Kind: KindDeleteField, FieldID: id}
}

func ReorderFields(from, to int) Mutation {
	return Mutation{Kind: KindReorderFields, From: from, To: to}
}

func UpdateDesign(d Design) Mutation {
	return Mutation{Kind: KindUpdateDesign, Design: &d}
}

func UpdateBehavior(b Behavior) Mutation {
	return Mutation{Kind: KindUpdateBehavior, Behavior: &b}
}

// SetDelivery configures the delivery target; pass nil to clear it.
func SetDelivery(d *Delivery) Mutation {
	return Mutation{Kind: KindSetDelivery, Delivery: d}
}

// applier carries the collaborators a mutation may need.
type applier struct {
	ids      IDGenerator
	sanitize func(string) string
}

// apply builds the post-mutation document and the change tokens it adds.
// doc is never modified.
func (a applier) apply(doc Document, m Mutation) (Document, []string, error) {
	switch m.Kind {
	case KindAddField:
		return a.addField(doc, m)
	case KindUpdateField:
		return a.updateField(doc, m)
	case KindDeleteField:
		return deleteField(doc, m)
	case KindReorderFields:
		return reorderFields(doc, m)
	case KindUpdateDesign:
		if m.Design == nil {
			return doc, nil, malformed(m.Kind, "design payload is required")
		}
		doc.Design = cloneDesign(*m.Design)
		return doc, []string{TokenDesignSettings}, nil
	case KindUpdateBehavior:
		if m.Behavior == nil {
			return doc, nil, malformed(m.Kind, "behavior payload is required")
		}
		// Delivery has its own mutation; keep the current target.
		b := cloneBehavior(*m.Behavior)
		b.Delivery = doc.Behavior.Delivery
		doc.Behavior = b
		return doc, []string{TokenBehaviorSettings}, nil
	case KindSetDelivery:
		b := doc.Behavior
		if m.Delivery == nil {
			b.Delivery = nil
		} else {
			d := *m.Delivery
			b.Delivery = &d
		}
		doc.Behavior = b
		return doc, []string{TokenDeliverySettings}, nil
	case "":
		return doc, nil, malformed(m.Kind, "mutation kind is required")
	default:
		return doc, nil, malformed(m.Kind, "unknown mutation kind %q", m.Kind)
	}
}

func (a applier) addField(doc Document, m Mutation) (Document, []string, error) {
	if m.Field == nil {
		return doc, nil, malformed(m.Kind, "field payload is required")
	}
	f := a.cleanField(cloneField(*m.Field))
	if f.Type == "" {
		return doc, nil, malformed(m.Kind, "field type is required")
	}
	if f.ID == "" {
		f.ID = a.ids.Generate()
	}
	if doc.FieldIndex(f.ID) >= 0 {
		return doc, nil, &MutationError{
			Code:    ErrCodeDuplicateField,
			Kind:    m.Kind,
			FieldID: f.ID,
			Message: "field id already in use",
		}
	}

	fields := make([]Field, len(doc.Fields), len(doc.Fields)+1)
	copy(fields, doc.Fields)
	fields = append(fields, f)
	doc.Fields = renumber(fields)
	return doc, []string{TokenAddField, f.ID}, nil
}

func (a applier) updateField(doc Document, m Mutation) (Document, []string, error) {
	if m.Field == nil {
		return doc, nil, malformed(m.Kind, "field payload is required")
	}
	id := m.FieldID
	if id == "" {
		id = m.Field.ID
	}
	i := doc.FieldIndex(id)
	if i < 0 {
		return doc, nil, unknownField(m.Kind, id)
	}

	f := a.cleanField(cloneField(*m.Field))
	f.ID = id
	f.Order = i
	if f.Type == "" {
		f.Type = doc.Fields[i].Type
	}

	fields := slices.Clone(doc.Fields)
	fields[i] = f
	doc.Fields = fields
	return doc, []string{id}, nil
}

func deleteField(doc Document, m Mutation) (Document, []string, error) {
	i := doc.FieldIndex(m.FieldID)
	if i < 0 {
		return doc, nil, unknownField(m.Kind, m.FieldID)
	}
	fields := make([]Field, 0, len(doc.Fields)-1)
	fields = append(fields, doc.Fields[:i]...)
	fields = append(fields, doc.Fields[i+1:]...)
	doc.Fields = renumber(fields)
	return doc, []string{TokenDeleteField, m.FieldID}, nil
}

func reorderFields(doc Document, m Mutation) (Document, []string, error) {
	n := len(doc.Fields)
	if m.From < 0 || m.From >= n || m.To < 0 || m.To >= n {
		return doc, nil, &MutationError{
			Code:    ErrCodeOutOfRange,
			Kind:    m.Kind,
			Message: "reorder index out of range",
		}
	}
	fields := slices.Clone(doc.Fields)
	moved := fields[m.From]
	fields = slices.Delete(fields, m.From, m.From+1)
	fields = slices.Insert(fields, m.To, moved)
	doc.Fields = renumber(fields)
	return doc, []string{TokenReorderFields}, nil
}

// renumber rewrites Order so indices stay contiguous. fields must already
// be a fresh slice owned by the caller.
func renumber(fields []Field) []Field {
	for i := range fields {
		fields[i].Order = i
	}
	return fields
}

func (a applier) cleanField(f Field) Field {
	if a.sanitize == nil {
		return f
	}
	f.Label = a.sanitize(f.Label)
	f.Placeholder = a.sanitize(f.Placeholder)
	for i := range f.Options {
		f.Options[i].Label = a.sanitize(f.Options[i].Label)
	}
	return f
}
