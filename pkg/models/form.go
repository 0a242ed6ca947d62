package models

import (
	"slices"
	"time"
)

// FieldStageRule overrides a field's behavior at one stage. The zero value
// inherits everything.
type FieldStageRule struct {
	Visible              Visibility  `json:"visible"`
	Editable             Editability `json:"editable"`
	Required             Requirement `json:"required"`
	OnlyApproversCanEdit bool        `json:"onlyApproversCanEdit,omitempty"`
}

// DefaultRule is the rule applied at stages without an explicit entry.
var DefaultRule = FieldStageRule{
	Visible:  VisibilityInherit,
	Editable: EditabilityInherit,
	Required: RequirementInherit,
}

type FieldOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Field is a form input. Key addresses the value in task data; ID is only a
// structural reference inside the form.
type Field struct {
	ID              string                    `json:"id"                     validate:"required"`
	Key             string                    `json:"key"                    validate:"required"`
	Label           string                    `json:"label"`
	Type            FieldType                 `json:"type"                   validate:"required"`
	RequiredDefault bool                      `json:"requiredDefault"`
	Placeholder     string                    `json:"placeholder,omitempty"`
	HelpText        string                    `json:"helpText,omitempty"`
	DefaultValue    any                       `json:"defaultValue,omitempty"`
	Options         []FieldOption             `json:"options,omitempty"`
	RulesByStage    map[string]FieldStageRule `json:"rulesByStage"`
	ColSpan         int                       `json:"colSpan,omitempty"`
}

type Column struct {
	ID       string   `json:"id"`
	Width    int      `json:"width"`
	FieldIDs []string `json:"fieldIds"`
}

// Section groups fields for layout. Either FieldIDs or Columns may carry the
// field references.
type Section struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	FieldIDs    []string `json:"fieldIds,omitempty"`
	Columns     []Column `json:"columns,omitempty"`
}

// OrderedFieldIDs lists FieldIDs followed by column fields, without repeats.
func (s *Section) OrderedFieldIDs() []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0, len(s.FieldIDs))

	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range s.FieldIDs {
		add(id)
	}

	for _, col := range s.Columns {
		for _, id := range col.FieldIDs {
			add(id)
		}
	}

	return ids
}

// Form is a layout of sections and fields bound to one process.
type Form struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"       validate:"required"`
	Version    int               `json:"version"`
	ProcessID  string            `json:"processId"  validate:"required"`
	Sections   []*Section        `json:"sections"`
	FieldsByID map[string]*Field `json:"fieldsById" validate:"dive"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// OrderedFields returns the form's fields in layout order. Fields not placed
// in any section follow, sorted by id.
func (f *Form) OrderedFields() []*Field {
	if f == nil {
		return nil
	}

	placed := make(map[string]struct{}, len(f.FieldsByID))
	fields := make([]*Field, 0, len(f.FieldsByID))

	for _, section := range f.Sections {
		if section == nil {
			continue
		}

		for _, id := range section.OrderedFieldIDs() {
			field, ok := f.FieldsByID[id]
			if !ok || field == nil {
				continue
			}

			if _, dup := placed[id]; dup {
				continue
			}

			placed[id] = struct{}{}
			fields = append(fields, field)
		}
	}

	rest := make([]string, 0)
	for id, field := range f.FieldsByID {
		if _, ok := placed[id]; !ok && field != nil {
			rest = append(rest, id)
		}
	}

	slices.Sort(rest)

	for _, id := range rest {
		fields = append(fields, f.FieldsByID[id])
	}

	return fields
}

// FieldByKey returns the field whose data key is key, or nil.
func (f *Form) FieldByKey(key string) *Field {
	if f == nil {
		return nil
	}

	for _, field := range f.FieldsByID {
		if field != nil && field.Key == key {
			return field
		}
	}

	return nil
}
