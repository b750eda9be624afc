package service

import (
	"context"

	"github.com/spf13/cast"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/repository"
)

// ChoiceResolver turns relation targets into selectable options.
type ChoiceResolver struct {
	schemas SchemaProvider
	records recordReader
}

// NewChoiceResolver constructs a choice resolver.
func NewChoiceResolver(schemas SchemaProvider, records recordReader) *ChoiceResolver {
	return &ChoiceResolver{schemas: schemas, records: records}
}

// Resolve lists every record of a single relation's target. The record matching current is
// selected; without a current value the first candidate is.
func (r *ChoiceResolver) Resolve(ctx context.Context, field models.FieldSchema, current interface{}) ([]models.Choice, error) {
	target, candidates, err := r.candidates(ctx, field)
	if err != nil {
		return nil, err
	}
	pkName := target.PrimaryKey().Name
	hasCurrent := !isBlank(current)
	out := make([]models.Choice, 0, len(candidates))
	for i, rec := range candidates {
		pk := rec[pkName]
		selected := i == 0
		if hasCurrent {
			selected = sameValue(pk, current)
		}
		out = append(out, models.Choice{Value: pk, Label: target.DisplayValue(rec), Selected: selected})
	}
	return out, nil
}

// ResolveMany lists every record of a many-to-many target, checking exactly the ids in current.
func (r *ChoiceResolver) ResolveMany(ctx context.Context, field models.FieldSchema, current []interface{}) ([]models.ManyChoice, error) {
	target, candidates, err := r.candidates(ctx, field)
	if err != nil {
		return nil, err
	}
	checked := make(map[string]struct{}, len(current))
	for _, id := range current {
		checked[cast.ToString(id)] = struct{}{}
	}
	pkName := target.PrimaryKey().Name
	out := make([]models.ManyChoice, 0, len(candidates))
	for _, rec := range candidates {
		pk := rec[pkName]
		_, ok := checked[cast.ToString(pk)]
		out = append(out, models.ManyChoice{ID: pk, Label: target.DisplayValue(rec), Checked: ok})
	}
	return out, nil
}

func (r *ChoiceResolver) candidates(ctx context.Context, field models.FieldSchema) (*models.ModelSchema, []models.Record, error) {
	target, err := r.schemas.Model(field.Target)
	if err != nil {
		return nil, nil, err
	}
	records, err := r.records.List(ctx, target, repository.RecordQuery{OrderBy: []string{"pk"}})
	if err != nil {
		return nil, nil, err
	}
	return target, records, nil
}

// scalarChoices renders an enumeration with the same selection rule as relations.
func scalarChoices(options []models.ChoiceOption, current interface{}) []models.Choice {
	hasCurrent := !isBlank(current)
	out := make([]models.Choice, 0, len(options))
	for i, opt := range options {
		selected := i == 0
		if hasCurrent {
			selected = sameValue(opt.Value, current)
		}
		out = append(out, models.Choice{Value: opt.Value, Label: opt.Label, Selected: selected})
	}
	return out
}

func sameValue(a, b interface{}) bool {
	return cast.ToString(a) == cast.ToString(b)
}

func isBlank(v interface{}) bool {
	return v == nil || cast.ToString(v) == ""
}
