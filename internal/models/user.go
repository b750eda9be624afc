package models

import "time"

// Permission verbs applied per model.
const (
	PermAdd    = "add"
	PermEdit   = "edit"
	PermDelete = "delete"
	PermView   = "view"
)

// PermissionCodename builds the `app.<perm>_<model>` codename.
func PermissionCodename(app, model, perm string) string {
	return app + "." + perm + "_" + model
}

// Permission is one grantable codename of the catalogue.
type Permission struct {
	Codename string `json:"codename"`
	Name     string `json:"name"`
	App      string `json:"app_label"`
	Model    string `json:"model"`
	Perm     string `json:"perm"`
}

// PermissionTree groups codenames as app, then model, then verb.
type PermissionTree map[string]map[string]map[string]string

// Add files codename under its app, model and verb.
func (t PermissionTree) Add(p Permission) {
	if t[p.App] == nil {
		t[p.App] = map[string]map[string]string{}
	}
	if t[p.App][p.Model] == nil {
		t[p.App][p.Model] = map[string]string{}
	}
	t[p.App][p.Model][p.Perm] = p.Codename
}

// User represents an admin account stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	IsStaff      bool       `db:"is_staff" json:"is_staff"`
	IsSuperuser  bool       `db:"is_superuser" json:"is_superuser"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CacheKeyModelDocs caches the documentation list.
const CacheKeyModelDocs = "ModelDocs"

// ModelDocumentation is admin-authored help content for a model.
type ModelDocumentation struct {
	ID           int64     `db:"id" json:"id"`
	AppModelName string    `db:"app_model_name" json:"app_model_name"`
	Content      string    `db:"content" json:"content"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
