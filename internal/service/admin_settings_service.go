package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/repository"
	"github.com/noah-isme/admin-api/pkg/datatransform"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

// SearchNotAvailable replaces the search help text of models without search fields.
const SearchNotAvailable = "Search not available"

type appCatalog interface {
	Apps() map[string][]*models.ModelSchema
	AppOverride(app string) (models.AppOverride, bool)
}

// AdminSettingsService serialises model admin configuration and the app list.
type AdminSettingsService struct {
	schemas         SchemaProvider
	catalog         appCatalog
	records         recordReader
	perms           *PermissionService
	dashboardPrefix string
	logger          *zap.Logger
}

// NewAdminSettingsService constructs the settings service. dashboardPrefix is prepended to
// every generated admin url.
func NewAdminSettingsService(schemas SchemaProvider, catalog appCatalog, records recordReader, perms *PermissionService, dashboardPrefix string, logger *zap.Logger) *AdminSettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminSettingsService{
		schemas:         schemas,
		catalog:         catalog,
		records:         records,
		perms:           perms,
		dashboardPrefix: strings.TrimRight(dashboardPrefix, "/"),
		logger:          logger,
	}
}

// Settings returns the admin settings of a model with defaults filled in.
func (s *AdminSettingsService) Settings(ctx context.Context, modelID string) (*models.AdminSettings, error) {
	schema, err := s.schemas.Model(modelID)
	if err != nil {
		return nil, err
	}
	admin, err := s.schemas.Admin(modelID)
	if err != nil {
		return nil, err
	}

	out := &models.AdminSettings{
		ModelName:          schema.ObjectName,
		AppLabel:           schema.App,
		Fieldsets:          admin.Fieldsets,
		ListDisplay:        admin.ListDisplay,
		ListPerPage:        admin.ListPerPage,
		ListDisplayLinks:   admin.ListDisplayLinks,
		SearchFields:       nonNil(admin.SearchFields),
		SearchHelpText:     admin.SearchHelpText,
		ListFilter:         nonNil(admin.ListFilter),
		ReadonlyFields:     nonNil(admin.ReadonlyFields),
		Ordering:           nonNil(admin.Ordering),
		CustomActions:      admin.CustomActions,
		AutocompleteFields: nonNil(admin.AutocompleteFields),
		TableFilters:       []models.TableFilter{},
		CustomInlines:      make([]models.InlineSettings, 0, len(admin.CustomInlines)),
		ExtraInlines:       nonNil(admin.ExtraInlines),
		CustomChangeLink:   admin.CustomChangeLink,
	}

	pkName := schema.PrimaryKey().Name
	if len(out.ListDisplay) == 0 {
		out.ListDisplay = []string{pkName}
	}
	if len(out.ListDisplayLinks) == 0 {
		if contains(out.ListDisplay, pkName) {
			out.ListDisplayLinks = []string{pkName}
		} else {
			out.ListDisplayLinks = []string{out.ListDisplay[0]}
		}
	}
	if len(admin.SearchFields) == 0 {
		out.SearchHelpText = SearchNotAvailable
	}
	if len(out.Fieldsets) == 0 {
		names := make([]string, 0, len(schema.Fields))
		for _, f := range schema.Fields {
			names = append(names, f.Name)
		}
		out.Fieldsets = []models.Fieldset{{Title: "Fields", Fields: names}}
	}

	for _, name := range admin.ListFilter {
		filter, err := s.tableFilter(ctx, schema, name)
		if err != nil {
			return nil, err
		}
		out.TableFilters = append(out.TableFilters, filter)
	}

	for _, inline := range admin.CustomInlines {
		target, err := s.schemas.Model(inline.Model)
		if err != nil {
			return nil, err
		}
		label := inline.Label
		if label == "" {
			label = objectLabel(target)
		}
		out.CustomInlines = append(out.CustomInlines, models.InlineSettings{
			ClassName:        inline.Name,
			AppLabel:         target.App,
			ModelName:        target.Name,
			ModelNameLabel:   label,
			ListDisplay:      inline.ListDisplay,
			ListDisplayLinks: inline.ListDisplayLinks,
			ListPerPage:      inline.ListPerPage,
			CustomChangeLink: inline.CustomChangeLink,
		})
	}
	return out, nil
}

// tableFilter lists "All" followed by target records, declared choices or distinct stored values.
func (s *AdminSettingsService) tableFilter(ctx context.Context, schema *models.ModelSchema, name string) (models.TableFilter, error) {
	filter := models.TableFilter{Field: name, Values: []models.FilterValue{{Value: nil, Label: "All"}}}
	field, ok := schema.Field(name)
	if !ok {
		return filter, appErrors.Clone(appErrors.ErrExtraction, "list filter "+name+" is not a field of "+schema.ID())
	}

	switch {
	case field.Type.IsSingleRelation():
		target, err := s.schemas.Model(field.Target)
		if err != nil {
			return filter, err
		}
		rows, err := s.records.List(ctx, target, repository.RecordQuery{OrderBy: []string{"pk"}})
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load filter values")
		}
		pk := target.PrimaryKey().Name
		for _, rec := range rows {
			filter.Values = append(filter.Values, models.FilterValue{Value: rec[pk], Label: target.DisplayValue(rec)})
		}
	case len(field.Choices) > 0:
		for _, c := range field.Choices {
			filter.Values = append(filter.Values, models.FilterValue{Value: c.Value, Label: c.Label})
		}
	default:
		values, err := s.records.Distinct(ctx, schema, field)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load filter values")
		}
		for _, v := range values {
			filter.Values = append(filter.Values, models.FilterValue{Value: v, Label: fmt.Sprint(v)})
		}
	}
	return filter, nil
}

// Apps lists apps and models visible to the caller, sorted by app label, honouring overrides.
func (s *AdminSettingsService) Apps(ctx context.Context, claims *models.JWTClaims) ([]models.AppEntry, error) {
	grouped := s.catalog.Apps()
	labels := make([]string, 0, len(grouped))
	all := make([]*models.ModelSchema, 0)
	for app, schemas := range grouped {
		labels = append(labels, app)
		all = append(all, schemas...)
	}
	sort.Strings(labels)

	perms, err := s.perms.ModelPerms(ctx, claims, all)
	if err != nil {
		return nil, err
	}

	out := make([]models.AppEntry, 0, len(labels))
	for _, app := range labels {
		override, hasOverride := s.catalog.AppOverride(app)
		if hasOverride && override.Hidden {
			continue
		}
		entry := models.AppEntry{
			Name:     datatransform.ToLabel(app),
			AppLabel: app,
			AppURL:   s.dashboardPrefix + "/" + app,
			Models:   []models.AppModelEntry{},
		}
		if override.AppURL != "" {
			entry.AppURL = override.AppURL
		}

		for _, schema := range grouped[app] {
			modelPerms := perms[schema.ID()]
			if !anyPerm(modelPerms) {
				continue
			}
			m := models.AppModelEntry{
				Name:       objectLabel(schema),
				ObjectName: schema.ObjectName,
				AdminURL:   s.dashboardPrefix + "/" + app + "/" + schema.Name,
				AddURL:     s.dashboardPrefix + "/" + app + "/" + schema.Name + "/add",
				Perms:      modelPerms,
			}
			if mo, ok := override.Models[schema.Name]; ok {
				if mo.Hidden {
					continue
				}
				if mo.AdminURL != "" {
					m.AdminURL = mo.AdminURL
				}
				if mo.AddURL != "" {
					m.AddURL = mo.AddURL
				}
			}
			entry.Models = append(entry.Models, m)
		}
		if len(entry.Models) > 0 {
			out = append(out, entry)
		}
	}
	return out, nil
}

// objectLabel turns an object name such as CountryProfile into "Country Profile".
func objectLabel(schema *models.ModelSchema) string {
	return datatransform.ToLabel(datatransform.ToSnakeCase(schema.ObjectName))
}

func anyPerm(perms map[string]bool) bool {
	for _, v := range perms {
		if v {
			return true
		}
	}
	return false
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
