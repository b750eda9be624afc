package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Operator is a comparison used in a condition triple.
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpGt        Operator = "gt"
	OpGte       Operator = "gte"
	OpLt        Operator = "lt"
	OpLte       Operator = "lte"
)

// Valid reports whether the operator is supported.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// Condition is a single `[field, operator, value]` filter clause.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// MarshalJSON encodes the condition as a three element array.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{c.Field, c.Operator, c.Value})
}

// UnmarshalJSON decodes a three element array.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("condition must be an array: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("condition must have 3 items, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &c.Field); err != nil {
		return fmt.Errorf("condition field: %w", err)
	}
	var op string
	if err := json.Unmarshal(raw[1], &op); err != nil {
		return fmt.Errorf("condition operator: %w", err)
	}
	c.Operator = Operator(op)
	var value interface{}
	if err := json.Unmarshal(raw[2], &value); err != nil {
		return fmt.Errorf("condition value: %w", err)
	}
	c.Value = value
	return nil
}

// QueryDefinition is the stored body of a saved query.
type QueryDefinition struct {
	AppName    string      `json:"app_name" validate:"required"`
	ModelName  string      `json:"model_name" validate:"required"`
	Conditions []Condition `json:"conditions"`
	Orderings  []string    `json:"orderings"`
	QueryLimit *int        `json:"query_limit,omitempty" validate:"omitempty,min=1"`
}

// ModelID returns the `app.model` identifier targeted by the query.
func (q QueryDefinition) ModelID() string {
	return q.AppName + "." + q.ModelName
}

// Value stores the definition as JSON.
func (q QueryDefinition) Value() (driver.Value, error) {
	return json.Marshal(q)
}

// Scan loads the definition from a JSON column.
func (q *QueryDefinition) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*q = QueryDefinition{}
		return nil
	case []byte:
		return json.Unmarshal(v, q)
	case string:
		return json.Unmarshal([]byte(v), q)
	default:
		return fmt.Errorf("unsupported query definition type %T", src)
	}
}

// CacheKeySavedQueries caches the saved query list.
const CacheKeySavedQueries = "SavedQueryBuilder"

// SavedQuery is a named query-builder definition.
type SavedQuery struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Query     QueryDefinition `db:"query" json:"query"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// ListParams carries list view filters, search, ordering and paging.
type ListParams struct {
	Filters map[string][]interface{}
	Search  string
	Limit   int
	Offset  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	TotalCount int  `json:"total_count"`
	Next       *int `json:"next"`
	Previous   *int `json:"previous"`
}

// NewPagination computes next/previous offsets.
func NewPagination(limit, offset, total int) *Pagination {
	p := &Pagination{Limit: limit, Offset: offset, TotalCount: total}
	if limit > 0 && offset+limit < total {
		next := offset + limit
		p.Next = &next
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		p.Previous = &prev
	}
	return p
}

// FieldOverride computes a new value for a copied field from the old one.
type FieldOverride func(old interface{}) interface{}

// FieldOverrides are keyed by `app.model.field`.
type FieldOverrides map[string]FieldOverride

// CopyResult reports the outcome of a record graph copy.
type CopyResult struct {
	NewPK   interface{} `json:"new_pk"`
	Created int         `json:"created"`
	Errors  []string    `json:"errors"`
}

// SavedQueryRequest is the create/update payload of a saved query.
type SavedQueryRequest struct {
	Name  string          `json:"name" validate:"required,max=100"`
	Query QueryDefinition `json:"query"`
}

// QueryResult is the outcome of running a query definition.
type QueryResult struct {
	ModelID string   `json:"model"`
	Count   int      `json:"count"`
	Records []Record `json:"records"`
}
