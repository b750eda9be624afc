package models

import (
	"fmt"
	"strings"
)

// FieldType is the type tag describing how a column is stored and rendered.
type FieldType string

const (
	FieldAuto                 FieldType = "AutoField"
	FieldBigAuto              FieldType = "BigAutoField"
	FieldUUID                 FieldType = "UUIDField"
	FieldChar                 FieldType = "CharField"
	FieldText                 FieldType = "TextField"
	FieldEmail                FieldType = "EmailField"
	FieldHTML                 FieldType = "HTMLField"
	FieldInteger              FieldType = "IntegerField"
	FieldSmallInteger         FieldType = "SmallIntegerField"
	FieldBigInteger           FieldType = "BigIntegerField"
	FieldPositiveInteger      FieldType = "PositiveIntegerField"
	FieldPositiveSmallInteger FieldType = "PositiveSmallIntegerField"
	FieldDecimal              FieldType = "DecimalField"
	FieldFloat                FieldType = "FloatField"
	FieldBoolean              FieldType = "BooleanField"
	FieldDate                 FieldType = "DateField"
	FieldTime                 FieldType = "TimeField"
	FieldDateTime             FieldType = "DateTimeField"
	FieldJSON                 FieldType = "JSONField"
	FieldFile                 FieldType = "FileField"
	FieldImage                FieldType = "ImageField"
	FieldForeignKey           FieldType = "ForeignKey"
	FieldOneToOne             FieldType = "OneToOneField"
	FieldManyToMany           FieldType = "ManyToManyField"
)

// IsAutoKey reports whether the datastore generates the value.
func (t FieldType) IsAutoKey() bool {
	return t == FieldAuto || t == FieldBigAuto
}

// IsInteger reports whether the type belongs to the integer family.
func (t FieldType) IsInteger() bool {
	switch t {
	case FieldAuto, FieldBigAuto, FieldInteger, FieldSmallInteger, FieldBigInteger,
		FieldPositiveInteger, FieldPositiveSmallInteger:
		return true
	}
	return false
}

// IsNumeric reports whether values of the type are numbers.
func (t FieldType) IsNumeric() bool {
	return t.IsInteger() || t == FieldDecimal || t == FieldFloat
}

// IsSingleRelation reports whether the type references exactly one target record.
func (t FieldType) IsSingleRelation() bool {
	return t == FieldForeignKey || t == FieldOneToOne
}

// IsRelation reports whether the type references other records.
func (t FieldType) IsRelation() bool {
	return t.IsSingleRelation() || t == FieldManyToMany
}

// IsFile reports whether the type stores an uploaded object key.
func (t FieldType) IsFile() bool {
	return t == FieldFile || t == FieldImage
}

// ValidatorKind identifies a declarative validator attached to a field.
type ValidatorKind string

const (
	ValidatorRegex    ValidatorKind = "regex"
	ValidatorMinValue ValidatorKind = "min_value"
	ValidatorMaxValue ValidatorKind = "max_value"
	ValidatorDecimal  ValidatorKind = "decimal"
	ValidatorURL      ValidatorKind = "url"
	ValidatorSlug     ValidatorKind = "slug"
)

// FieldValidator is a validator declared on a schema field.
type FieldValidator struct {
	Kind          ValidatorKind
	Pattern       string
	Message       string
	Limit         float64
	MaxDigits     int
	DecimalPlaces int
}

// ChoiceOption is one entry of an enumerated scalar field.
type ChoiceOption struct {
	Value interface{}
	Label string
}

// ThroughTable describes the junction table behind a many-to-many field.
type ThroughTable struct {
	Table        string
	SourceColumn string
	TargetColumn string
}

// FieldSchema is the declarative description of one model field.
type FieldSchema struct {
	Name             string
	Column           string
	Type             FieldType
	PrimaryKey       bool
	Unique           bool
	Null             bool
	Blank            bool
	ReadOnly         bool
	MaxLength        int
	MaxDigits        int
	DecimalPlaces    int
	Default          interface{}
	HelpText         string
	Choices          []ChoiceOption
	Validators       []FieldValidator
	Identifier       bool
	IdentifierPrefix string
	Credential       bool
	AutoNow          bool
	AutoNowAdd       bool
	Target           string
	Through          *ThroughTable
	// CascadeCopy marks a foreign key whose rows are duplicated along with the target record.
	CascadeCopy bool
}

// ColumnName returns the storage column, following the `<name>_id` convention for single relations.
func (f FieldSchema) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	if f.Type.IsSingleRelation() {
		return f.Name + "_id"
	}
	return f.Name
}

// Editable reports whether clients may write the field.
func (f FieldSchema) Editable() bool {
	if f.ReadOnly || f.AutoNow || f.AutoNowAdd {
		return false
	}
	return !(f.PrimaryKey && f.Type.IsAutoKey())
}

// Required mirrors the "blank not allowed" flag of the schema.
func (f FieldSchema) Required() bool {
	return !f.Blank
}

// Stored reports whether the field maps to a column on the model table.
func (f FieldSchema) Stored() bool {
	return f.Type != FieldManyToMany
}

// ModelSchema describes a registered data model.
type ModelSchema struct {
	App        string
	Name       string
	ObjectName string
	Table      string
	Fields     []FieldSchema
	Display    func(Record) string
	// CacheKey names the cache entry invalidated on every write to the model.
	CacheKey string
}

// ID returns the qualified model identifier (`app.model`).
func (m *ModelSchema) ID() string {
	return m.App + "." + m.Name
}

// Field finds a field by name.
func (m *ModelSchema) Field(name string) (FieldSchema, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// PrimaryKey returns the primary key field.
func (m *ModelSchema) PrimaryKey() FieldSchema {
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f
		}
	}
	return FieldSchema{Name: "id", Type: FieldBigAuto, PrimaryKey: true}
}

// IdentifierField returns the external identifier field if the model declares one.
func (m *ModelSchema) IdentifierField() (FieldSchema, bool) {
	for _, f := range m.Fields {
		if f.Identifier {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// StoredFields returns fields that live on the model table.
func (m *ModelSchema) StoredFields() []FieldSchema {
	out := make([]FieldSchema, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f.Stored() {
			out = append(out, f)
		}
	}
	return out
}

// DisplayValue renders the human readable representation of a record.
func (m *ModelSchema) DisplayValue(rec Record) string {
	if m.Display != nil {
		return m.Display(rec)
	}
	name := m.ObjectName
	if name == "" {
		name = m.Name
	}
	return fmt.Sprintf("%s object (%v)", name, rec[m.PrimaryKey().Name])
}

// QualifiedField builds the `app.model.field` key used by copy overrides.
func (m *ModelSchema) QualifiedField(field string) string {
	return strings.ToLower(m.ID() + "." + field)
}

// ReverseRelation is a relation declared on another model that targets this one.
type ReverseRelation struct {
	Model    *ModelSchema
	Field    FieldSchema
	OneToOne bool
}

// Record is a single row keyed by field name. Relation fields hold target primary keys.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
