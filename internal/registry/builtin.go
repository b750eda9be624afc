package registry

import (
	"fmt"

	"github.com/noah-isme/admin-api/internal/models"
)

// PasswordPattern enforces at least 8 characters with one digit. RE2 has no lookahead, so each
// possible position of the first digit is spelled out.
const (
	PasswordPattern = `^(?:\d.{7,}|.\d.{6,}|.{2}\d.{5,}|.{3}\d.{4,}|.{4}\d.{3,}|.{5}\d.{2,}|.{6}\d.+|.{7}\d.*|.{8,}\d.*)$`
	PasswordMessage = "Password must be at least 8 characters long and contain at least one digit."
)

func timestamps() []models.FieldSchema {
	return []models.FieldSchema{
		{Name: "created_at", Type: models.FieldDateTime, AutoNowAdd: true, Blank: true},
		{Name: "updated_at", Type: models.FieldDateTime, AutoNow: true, Blank: true},
	}
}

func displayField(name string) func(models.Record) string {
	return func(rec models.Record) string {
		if v, ok := rec[name]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
}

// RegisterBuiltins registers the models backing the service's own tables. It must run after
// every other registration so documentation choices cover all models.
func RegisterBuiltins(r *Registry) {
	r.Register(&models.ModelSchema{
		App:        "users",
		Name:       "user",
		ObjectName: "User",
		Table:      "users",
		Display:    displayField("email"),
		Fields: append([]models.FieldSchema{
			{Name: "id", Type: models.FieldChar, PrimaryKey: true, Identifier: true, IdentifierPrefix: "user", MaxLength: 64, Blank: true},
			{Name: "email", Type: models.FieldEmail, Unique: true, MaxLength: 254},
			{Name: "full_name", Type: models.FieldChar, MaxLength: 150, Blank: true, Default: ""},
			{Name: "password", Type: models.FieldChar, MaxLength: 128, Credential: true, Validators: []models.FieldValidator{
				{Kind: models.ValidatorRegex, Pattern: PasswordPattern, Message: PasswordMessage},
			}},
			{Name: "is_active", Type: models.FieldBoolean, Default: true, Blank: true},
			{Name: "is_staff", Type: models.FieldBoolean, Default: false, Blank: true},
			{Name: "is_superuser", Type: models.FieldBoolean, Default: false, Blank: true},
			{Name: "last_login", Type: models.FieldDateTime, Null: true, Blank: true, ReadOnly: true},
		}, timestamps()...),
	}, &models.ModelAdmin{
		ListDisplay:      []string{"email", "full_name", "is_active", "is_staff", "is_superuser", "last_login"},
		ListDisplayLinks: []string{"email"},
		SearchFields:     []string{"email", "full_name"},
		SearchHelpText:   "Search by email, full name",
		ListFilter:       []string{"is_active", "is_staff", "is_superuser"},
		Ordering:         []string{"email"},
		ReadonlyFields:   []string{"last_login", "created_at", "updated_at"},
		Fieldsets: []models.Fieldset{
			{Title: "Account", Fields: []string{"email", "full_name", "password"}},
			{Title: "Access", Fields: []string{"is_active", "is_staff", "is_superuser", "last_login"}},
		},
		CustomInlines: []models.Inline{{
			Name:             "permissions",
			Model:            "users.userpermission",
			Label:            "Permissions",
			ListDisplay:      []string{"codename"},
			ListDisplayLinks: []string{"codename"},
		}},
	})

	r.Register(&models.ModelSchema{
		App:        "users",
		Name:       "userpermission",
		ObjectName: "UserPermission",
		Table:      "user_permissions",
		Display:    displayField("codename"),
		Fields: []models.FieldSchema{
			{Name: "id", Type: models.FieldBigAuto, PrimaryKey: true},
			{Name: "user", Type: models.FieldForeignKey, Target: "users.user", CascadeCopy: true},
			{Name: "codename", Type: models.FieldChar, MaxLength: 150},
		},
	}, &models.ModelAdmin{
		ListDisplay:        []string{"user", "codename"},
		SearchFields:       []string{"codename"},
		ListFilter:         []string{"user"},
		AutocompleteFields: []string{"user"},
		ReadonlyFields:     []string{},
	})

	r.Register(&models.ModelSchema{
		App:        "savedqueries",
		Name:       "savedquery",
		ObjectName: "SavedQuery",
		Table:      "saved_queries",
		CacheKey:   models.CacheKeySavedQueries,
		Display:    displayField("name"),
		Fields: append([]models.FieldSchema{
			{Name: "id", Type: models.FieldUUID, PrimaryKey: true, ReadOnly: true, Blank: true},
			{Name: "name", Type: models.FieldChar, Unique: true, MaxLength: 100},
			{Name: "query", Type: models.FieldJSON},
		}, timestamps()...),
	}, &models.ModelAdmin{
		ListDisplay:  []string{"name", "created_at", "updated_at"},
		SearchFields: []string{"name"},
		Ordering:     []string{"-updated_at"},
	})

	docs := &models.ModelSchema{
		App:        "documentation",
		Name:       "modeldocumentation",
		ObjectName: "ModelDocumentation",
		Table:      "model_documentation",
		CacheKey:   models.CacheKeyModelDocs,
		Display:    displayField("app_model_name"),
	}
	labels := append(r.ModelIDs(), docs.App+" - "+docs.Name)
	choices := make([]models.ChoiceOption, 0, len(labels))
	for _, label := range labels {
		choices = append(choices, models.ChoiceOption{Value: label, Label: label})
	}
	docs.Fields = append([]models.FieldSchema{
		{Name: "id", Type: models.FieldBigAuto, PrimaryKey: true},
		{Name: "app_model_name", Type: models.FieldChar, Unique: true, MaxLength: 50, Choices: choices},
		{Name: "content", Type: models.FieldHTML},
	}, timestamps()...)
	r.Register(docs, &models.ModelAdmin{
		ListDisplay:  []string{"app_model_name", "updated_at"},
		SearchFields: []string{"app_model_name"},
	})
}
