package models

// Built-in bulk action names.
const (
	ActionDelete = "delete"
	ActionCopy   = "copy"
)

// Fieldset groups fields on the edit form.
type Fieldset struct {
	Title  string   `json:"title"`
	Fields []string `json:"fields"`
}

// CustomAction advertises a bulk action to the list view.
type CustomAction struct {
	Func  string `json:"func"`
	Label string `json:"label"`
}

// Inline renders rows of another model beneath a record's change form.
type Inline struct {
	Name             string
	Model            string
	Label            string
	ListDisplay      []string
	ListDisplayLinks []string
	ListPerPage      int
	CustomChangeLink string
	// ForeignKey names the inline model field pointing at the parent; detected when empty.
	ForeignKey string
	// ParentField names the parent field matched by ForeignKey; the parent primary key when empty.
	ParentField string
	// Filter adds equality conditions to the inline query.
	Filter map[string]interface{}
}

// ModelAdmin is the developer-authored admin configuration of a model.
type ModelAdmin struct {
	ListDisplay        []string
	ListDisplayLinks   []string
	ListPerPage        int
	SearchFields       []string
	SearchHelpText     string
	Ordering           []string
	ListFilter         []string
	ReadonlyFields     []string
	Fieldsets          []Fieldset
	AutocompleteFields []string
	CustomActions      []CustomAction
	CustomInlines      []Inline
	ExtraInlines       []string
	CustomChangeLink   string
	CopyOverrides      FieldOverrides
}

// FilterValue is one selectable value of a table filter.
type FilterValue struct {
	Value interface{} `json:"value"`
	Label string      `json:"label"`
}

// TableFilter lists the values offered for a list_filter column.
type TableFilter struct {
	Field  string        `json:"field"`
	Values []FilterValue `json:"values"`
}

// InlineSettings is the serialised form of an Inline.
type InlineSettings struct {
	ClassName        string   `json:"class_name"`
	AppLabel         string   `json:"app_label"`
	ModelName        string   `json:"model_name"`
	ModelNameLabel   string   `json:"model_name_label"`
	ListDisplay      []string `json:"list_display"`
	ListDisplayLinks []string `json:"list_display_links"`
	ListPerPage      int      `json:"list_per_page"`
	CustomChangeLink string   `json:"custom_change_link"`
}

// AdminSettings is the payload returned by the settings endpoint.
type AdminSettings struct {
	ModelName          string           `json:"model_name"`
	AppLabel           string           `json:"app_label"`
	Fieldsets          []Fieldset       `json:"fieldsets"`
	ListDisplay        []string         `json:"list_display"`
	ListPerPage        int              `json:"list_per_page"`
	ListDisplayLinks   []string         `json:"list_display_links"`
	SearchFields       []string         `json:"search_fields"`
	SearchHelpText     string           `json:"search_help_text"`
	ListFilter         []string         `json:"list_filter"`
	ReadonlyFields     []string         `json:"readonly_fields"`
	Ordering           []string         `json:"ordering"`
	CustomActions      []CustomAction   `json:"custom_actions"`
	AutocompleteFields []string         `json:"autocomplete_fields"`
	TableFilters       []TableFilter    `json:"table_filters"`
	CustomInlines      []InlineSettings `json:"custom_inlines"`
	ExtraInlines       []string         `json:"extra_inlines"`
	CustomChangeLink   string           `json:"custom_change_link"`
}

// AppOverride customises how an app appears in the app list.
type AppOverride struct {
	AppURL string
	Hidden bool
	Models map[string]ModelOverride
}

// ModelOverride customises how a model appears in the app list.
type ModelOverride struct {
	AdminURL string
	AddURL   string
	Hidden   bool
}

// AppModelEntry is one model in the app list.
type AppModelEntry struct {
	Name       string          `json:"name"`
	ObjectName string          `json:"object_name"`
	AdminURL   string          `json:"admin_url"`
	AddURL     string          `json:"add_url"`
	Perms      map[string]bool `json:"perms"`
}

// AppEntry is one app in the app list.
type AppEntry struct {
	Name     string          `json:"name"`
	AppLabel string          `json:"app_label"`
	AppURL   string          `json:"app_url"`
	Models   []AppModelEntry `json:"models"`
}
