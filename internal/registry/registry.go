package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

// Default admin values applied at registration.
const (
	DefaultListPerPage = 20
	DeleteActionLabel  = "Delete selected records"
)

// Registry holds every registered model schema with its admin configuration.
type Registry struct {
	mu        sync.RWMutex
	models    map[string]*entry
	order     []string
	overrides map[string]models.AppOverride
	perPage   int
}

type entry struct {
	schema *models.ModelSchema
	admin  *models.ModelAdmin
}

// New creates an empty registry. perPage is the list page size used when an admin leaves it unset.
func New(perPage int) *Registry {
	if perPage <= 0 {
		perPage = DefaultListPerPage
	}
	return &Registry{
		models:    make(map[string]*entry),
		overrides: make(map[string]models.AppOverride),
		perPage:   perPage,
	}
}

// Register adds a model. A nil admin registers the model with default admin settings.
func (r *Registry) Register(schema *models.ModelSchema, admin *models.ModelAdmin) {
	if admin == nil {
		admin = &models.ModelAdmin{}
	}
	schema.App = strings.ToLower(schema.App)
	schema.Name = strings.ToLower(schema.Name)
	if schema.Table == "" {
		schema.Table = schema.App + "_" + schema.Name
	}
	if schema.ObjectName == "" {
		schema.ObjectName = schema.Name
	}
	if admin.ListPerPage <= 0 {
		admin.ListPerPage = r.perPage
	}
	if admin.ReadonlyFields == nil {
		admin.ReadonlyFields = []string{"created_at", "updated_at"}
	}
	if len(admin.CustomActions) == 0 {
		admin.CustomActions = []models.CustomAction{{Func: models.ActionDelete, Label: DeleteActionLabel}}
	}
	for i := range admin.CustomInlines {
		inline := &admin.CustomInlines[i]
		if len(inline.ListDisplay) == 0 {
			inline.ListDisplay = []string{"pk"}
		}
		if len(inline.ListDisplayLinks) == 0 {
			inline.ListDisplayLinks = []string{"pk"}
		}
		if inline.ListPerPage <= 0 {
			inline.ListPerPage = DefaultListPerPage
		}
		if inline.Name == "" {
			inline.Name = inline.Model
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := schema.ID()
	if _, exists := r.models[id]; !exists {
		r.order = append(r.order, id)
	}
	r.models[id] = &entry{schema: schema, admin: admin}
}

// Override sets app list overrides for an app label.
func (r *Registry) Override(app string, override models.AppOverride) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[strings.ToLower(app)] = override
}

// AppOverride returns the overrides configured for an app.
func (r *Registry) AppOverride(app string) (models.AppOverride, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.overrides[app]
	return o, ok
}

// Model resolves a model by its `app.model` identifier.
func (r *Registry) Model(modelID string) (*models.ModelSchema, error) {
	e, err := r.lookup(modelID)
	if err != nil {
		return nil, err
	}
	return e.schema, nil
}

// Admin returns the admin configuration of a model.
func (r *Registry) Admin(modelID string) (*models.ModelAdmin, error) {
	e, err := r.lookup(modelID)
	if err != nil {
		return nil, err
	}
	return e.admin, nil
}

// DescribeFields returns the declared fields of a model.
func (r *Registry) DescribeFields(modelID string) ([]models.FieldSchema, error) {
	e, err := r.lookup(modelID)
	if err != nil {
		return nil, err
	}
	out := make([]models.FieldSchema, len(e.schema.Fields))
	copy(out, e.schema.Fields)
	return out, nil
}

// ReverseRelations lists single relations on other models that target modelID.
func (r *Registry) ReverseRelations(modelID string) []models.ReverseRelation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modelID = strings.ToLower(modelID)
	var out []models.ReverseRelation
	for _, id := range r.order {
		schema := r.models[id].schema
		for _, f := range schema.Fields {
			if !f.Type.IsSingleRelation() || f.Target != modelID {
				continue
			}
			out = append(out, models.ReverseRelation{
				Model:    schema,
				Field:    f,
				OneToOne: f.Type == models.FieldOneToOne,
			})
		}
	}
	return out
}

// Models returns every registered schema in registration order.
func (r *Registry) Models() []*models.ModelSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.ModelSchema, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id].schema)
	}
	return out
}

// Apps groups registered models by app label; models within an app are sorted by name.
func (r *Registry) Apps() map[string][]*models.ModelSchema {
	out := make(map[string][]*models.ModelSchema)
	for _, schema := range r.Models() {
		out[schema.App] = append(out[schema.App], schema)
	}
	for app := range out {
		list := out[app]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	return out
}

// ModelIDs returns `app - model` labels of every registered model.
func (r *Registry) ModelIDs() []string {
	schemas := r.Models()
	out := make([]string, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, s.App+" - "+s.Name)
	}
	return out
}

func (r *Registry) lookup(modelID string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.models[strings.ToLower(modelID)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "model "+modelID+" is not registered")
	}
	return e, nil
}
