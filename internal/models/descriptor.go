package models

import (
	"bytes"
	"encoding/json"
)

// FormMode selects add or edit semantics for descriptors and validation.
type FormMode string

const (
	FormAdd  FormMode = "add"
	FormEdit FormMode = "edit"
)

// Relation cardinalities.
const (
	CardinalityOne  = "one"
	CardinalityMany = "many"
)

// Choice is an option of an enumerated or single relation field.
type Choice struct {
	Value    interface{} `json:"value"`
	Label    string      `json:"label"`
	Selected bool        `json:"selected"`
}

// ManyChoice is an option of a many-to-many field.
type ManyChoice struct {
	ID      interface{} `json:"id"`
	Label   string      `json:"label"`
	Checked bool        `json:"checked"`
}

// RelationInfo names the target of a relation field.
type RelationInfo struct {
	TargetModel string `json:"target_model"`
	Cardinality string `json:"cardinality"`
}

// FieldDescriptor is the runtime view of one field used to render and validate forms.
type FieldDescriptor struct {
	Name              string        `json:"name"`
	Label             string        `json:"label"`
	Type              FieldType     `json:"type"`
	IsPrimaryKey      bool          `json:"is_primary_key"`
	MaxLength         *int          `json:"max_length"`
	Nullable          bool          `json:"nullable"`
	Required          bool          `json:"required"`
	Editable          bool          `json:"editable"`
	AutoCreated       bool          `json:"auto_created"`
	HelpText          string        `json:"help_text"`
	Initial           interface{}   `json:"initial"`
	Choices           []Choice      `json:"choices,omitempty"`
	ForeignKeyChoices []Choice      `json:"foreignkey_choices,omitempty"`
	ManyToManyChoices []ManyChoice  `json:"manytomany_choices,omitempty"`
	Relation          *RelationInfo `json:"relation,omitempty"`
	MinValue          *float64      `json:"min_value,omitempty"`
	MaxValue          *float64      `json:"max_value,omitempty"`
	MaxDigits         *int          `json:"max_digits,omitempty"`
	DecimalPlaces     *int          `json:"decimal_places,omitempty"`
	RegexPattern      string        `json:"regex_pattern,omitempty"`
	RegexMessage      string        `json:"regex_message,omitempty"`
	Identifier        bool          `json:"-"`
	Credential        bool          `json:"-"`
	Unique            bool          `json:"-"`
}

// FieldDescriptors is an ordered descriptor list, serialised as an object keyed by field name.
type FieldDescriptors []FieldDescriptor

// Lookup finds a descriptor by field name.
func (d FieldDescriptors) Lookup(name string) (FieldDescriptor, bool) {
	for _, fd := range d {
		if fd.Name == name {
			return fd, true
		}
	}
	return FieldDescriptor{}, false
}

// MarshalJSON keeps declaration order in the emitted object.
func (d FieldDescriptors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fd := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fd.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(fd)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FieldErrors maps field names to validation messages.
type FieldErrors map[string][]string

// Add appends a message for the field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}
