package registry

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/pkg/filefield"
)

// CopyActionLabel labels the demo copy action.
const CopyActionLabel = "Copy selected records"

// AmountPattern bounds demo amounts to 8 integer and 2 fractional digits.
const AmountPattern = `^\d{1,8}(\.\d{0,2})?$`

func named(app, name, object string, maxLength int) *models.ModelSchema {
	return &models.ModelSchema{
		App:        app,
		Name:       name,
		ObjectName: object,
		Display:    displayField("name"),
		Fields: append([]models.FieldSchema{
			{Name: "id", Type: models.FieldBigAuto, PrimaryKey: true},
			{Name: "name", Type: models.FieldChar, MaxLength: maxLength},
		}, timestamps()...),
	}
}

// RegisterDemo registers the sample models that showcase every field type.
func RegisterDemo(r *Registry, dashboardPrefix string) {
	countryProfileLink := dashboardPrefix + "/custom-change/country-profile"

	r.Register(named("demo", "type", "Type", 100), &models.ModelAdmin{
		ListDisplay:      []string{"name"},
		ListDisplayLinks: []string{"name"},
		SearchFields:     []string{"name"},
		Fieldsets:        []models.Fieldset{{Title: "Section 1", Fields: []string{"name"}}},
	})
	r.Register(named("demo", "classification", "Classification", 100), &models.ModelAdmin{
		ListDisplay:  []string{"name"},
		SearchFields: []string{"name"},
	})

	r.Register(&models.ModelSchema{
		App:        "demo",
		Name:       "demomodel",
		ObjectName: "DemoModel",
		Display:    displayField("name"),
		Fields: append([]models.FieldSchema{
			{Name: "id", Type: models.FieldBigAuto, PrimaryKey: true},
			{Name: "uid", Type: models.FieldChar, Identifier: true, IdentifierPrefix: "demo", Unique: true, MaxLength: 64, Blank: true},
			{Name: "type", Type: models.FieldForeignKey, Target: "demo.type"},
			{Name: "color", Type: models.FieldChar, MaxLength: 10, Default: "Blue", Choices: []models.ChoiceOption{
				{Value: "Blue", Label: "Blue"},
				{Value: "Red", Label: "Red"},
			}},
			{Name: "name", Type: models.FieldChar, Unique: true, MaxLength: 100},
			{Name: "email", Type: models.FieldEmail, MaxLength: 254},
			{Name: "ordering", Type: models.FieldPositiveInteger, Default: 0},
			{Name: "range_number", Type: models.FieldPositiveSmallInteger, Default: 5, Validators: []models.FieldValidator{
				{Kind: models.ValidatorMinValue, Limit: 5, Message: "Min is 5"},
				{Kind: models.ValidatorMaxValue, Limit: 10, Message: "Max is 10"},
			}},
			{Name: "amount", Type: models.FieldDecimal, MaxDigits: 10, DecimalPlaces: 2, Default: "0", Validators: []models.FieldValidator{
				{Kind: models.ValidatorRegex, Pattern: AmountPattern, Message: "Enter an amount with at most 8 digits and 2 decimal places."},
			}},
			{Name: "comment", Type: models.FieldText, Blank: true, Null: true},
			{Name: "is_active", Type: models.FieldBoolean, Default: true, Blank: true},
			{Name: "date", Type: models.FieldDate},
			{Name: "time", Type: models.FieldTime},
			{Name: "last_log", Type: models.FieldDateTime, Null: true, Blank: true},
			{Name: "classification", Type: models.FieldManyToMany, Target: "demo.classification", Blank: true, Through: &models.ThroughTable{
				Table:        "demo_demomodel_classification",
				SourceColumn: "demomodel_id",
				TargetColumn: "classification_id",
			}},
			{Name: "file", Type: models.FieldFile, MaxLength: 255, Null: true, Blank: true, HelpText: filefield.BuildHelpText(nil, 0)},
			{Name: "image", Type: models.FieldImage, MaxLength: 255, Null: true, Blank: true, HelpText: filefield.BuildHelpText([]string{".jpg", ".jpeg", ".png"}, 2)},
			{Name: "metadata", Type: models.FieldJSON, Null: true, Blank: true},
			{Name: "html", Type: models.FieldHTML, Blank: true, Default: ""},
		}, timestamps()...),
	}, &models.ModelAdmin{
		ListDisplay:        []string{"name", "type", "color", "ordering", "is_active", "email", "date", "metadata", "html"},
		Ordering:           []string{"-name", "type"},
		SearchFields:       []string{"name", "email"},
		SearchHelpText:     "Search by name, email",
		AutocompleteFields: []string{"type"},
		ListFilter:         []string{"color", "type", "is_active"},
		ListPerPage:        5,
		Fieldsets: []models.Fieldset{
			{Title: "Section 1", Fields: []string{"name", "type", "color", "email", "ordering", "range_number", "amount", "is_active"}},
			{Title: "Section 2", Fields: []string{"comment", "date", "time", "last_log", "classification", "file", "image", "metadata", "html"}},
		},
		CustomActions: []models.CustomAction{
			{Func: models.ActionDelete, Label: DeleteActionLabel},
			{Func: models.ActionCopy, Label: CopyActionLabel},
		},
		CustomInlines: []models.Inline{
			{
				Name:             "countryprofile",
				Model:            "demo.countryprofile",
				Label:            "Country profiles",
				ListDisplay:      []string{"country", "level", "type", "area"},
				ListDisplayLinks: []string{"country"},
				ListPerPage:      5,
				CustomChangeLink: countryProfileLink,
				ForeignKey:       "type",
				ParentField:      "type",
			},
			{
				Name:             "inactive",
				Model:            "demo.demomodel",
				Label:            "Inactive demo models",
				ListDisplay:      []string{"name", "type", "color", "ordering", "is_active", "email"},
				ListDisplayLinks: []string{"name"},
				ListPerPage:      5,
				Filter:           map[string]interface{}{"is_active": false},
			},
		},
		ExtraInlines: []string{"sample_extra"},
		CopyOverrides: models.FieldOverrides{
			"demo.demomodel.name": func(old interface{}) interface{} {
				return fmt.Sprintf("%v-%s", old, uuid.NewString())
			},
			"demo.demomodel.is_active": func(interface{}) interface{} { return false },
		},
	})

	r.Register(named("demo", "level", "Level", 10), nil)
	r.Register(named("demo", "country", "Country", 50), &models.ModelAdmin{
		ListDisplay:  []string{"name"},
		SearchFields: []string{"name"},
		CustomInlines: []models.Inline{{
			Name:             "profile",
			Model:            "demo.countryprofile",
			Label:            "Profile",
			ListDisplay:      []string{"level", "type", "area"},
			CustomChangeLink: countryProfileLink,
		}},
	})
	r.Register(&models.ModelSchema{
		App:        "demo",
		Name:       "countryprofile",
		ObjectName: "CountryProfile",
		Fields: append([]models.FieldSchema{
			{Name: "id", Type: models.FieldBigAuto, PrimaryKey: true},
			{Name: "country", Type: models.FieldOneToOne, Target: "demo.country", Unique: true},
			{Name: "level", Type: models.FieldForeignKey, Target: "demo.level"},
			{Name: "type", Type: models.FieldForeignKey, Target: "demo.type"},
			{Name: "area", Type: models.FieldPositiveInteger, Default: 0},
		}, timestamps()...),
	}, &models.ModelAdmin{
		ListDisplay:        []string{"country", "level", "type", "area"},
		AutocompleteFields: []string{"country"},
		CustomChangeLink:   countryProfileLink,
	})

	r.Override("demo", models.AppOverride{
		Models: map[string]models.ModelOverride{
			"countryprofile": {AdminURL: countryProfileLink, AddURL: countryProfileLink + "/add"},
		},
	})
}
