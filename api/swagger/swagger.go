package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {"title": "Admin API", "description": "Metadata-driven admin backend for registered data models", "version": "1.0.0"},
    "basePath": "/api/v1",
    "schemes": ["http"],
    "securityDefinitions": {"BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}},
    "paths": {
        "/health": {
            "get": {"tags": ["System"], "summary": "Liveness check", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/auth/login": {
            "post": {"tags": ["Auth"], "summary": "Obtain access and refresh tokens", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}]}
        },
        "/auth/refresh": {
            "post": {"tags": ["Auth"], "summary": "Rotate the refresh token", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}]}
        },
        "/auth/logout": {
            "post": {"tags": ["Auth"], "summary": "Revoke the current session", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "security": [{"BearerAuth": []}]}
        },
        "/auth/me": {
            "get": {"tags": ["Auth"], "summary": "Current user profile", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "security": [{"BearerAuth": []}]}
        },
        "/auth/change-password": {
            "post": {"tags": ["Auth"], "summary": "Change the current password", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}], "security": [{"BearerAuth": []}]}
        },
        "/auth/password-reset/{uid}/{token}": {
            "get": {"tags": ["Auth"], "summary": "Check a password reset link", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "uid", "in": "path", "type": "string", "required": true}, {"name": "token", "in": "path", "type": "string", "required": true}]},
            "post": {"tags": ["Auth"], "summary": "Set a new password through a reset link", "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "uid", "in": "path", "type": "string", "required": true}, {"name": "token", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResetPasswordRequest"}}]}
        },
        "/admin/verify-token": {
            "post": {"tags": ["Site"], "summary": "Verify a captcha token", "responses": {"202": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyTokenRequest"}}]}
        },
        "/admin/apps": {
            "get": {"tags": ["Admin"], "summary": "Registered apps and models visible to the caller", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "security": [{"BearerAuth": []}]}
        },
        "/admin/model-docs": {
            "get": {"tags": ["Site"], "summary": "Model documentation entries", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "security": [{"BearerAuth": []}]}
        },
        "/admin/model-docs/{app}/{model}": {
            "get": {"tags": ["Site"], "summary": "Documentation of one model", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/permissions": {
            "get": {"tags": ["Users"], "summary": "Permission catalogue", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "security": [{"BearerAuth": []}]}
        },
        "/admin/users/{id}/permissions": {
            "get": {"tags": ["Users"], "summary": "Permissions of one user", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/users/{id}/password-reset-link": {
            "post": {"tags": ["Users"], "summary": "Email a password reset link", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/log-entries": {
            "get": {"tags": ["Users"], "summary": "Audit trail", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "user_id", "in": "query", "type": "string", "required": false}, {"name": "action", "in": "query", "type": "string", "required": false}, {"name": "resource", "in": "query", "type": "string", "required": false}, {"name": "resource_id", "in": "query", "type": "string", "required": false}, {"name": "limit", "in": "query", "type": "integer", "required": false}, {"name": "offset", "in": "query", "type": "integer", "required": false}], "security": [{"BearerAuth": []}]}
        },
        "/admin/models/{app}/{model}/fields": {
            "get": {"tags": ["Admin"], "summary": "Field descriptors for the add form", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/models/{app}/{model}/{pk}/fields": {
            "get": {"tags": ["Admin"], "summary": "Field descriptors for the edit form", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "pk", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/models/{app}/{model}/settings": {
            "get": {"tags": ["Admin"], "summary": "List view settings", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/models/{app}/{model}/records": {
            "get": {"tags": ["Admin"], "summary": "List records", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "limit", "in": "query", "type": "integer", "required": false}, {"name": "offset", "in": "query", "type": "integer", "required": false}, {"name": "custom_search", "in": "query", "type": "string", "required": false}], "security": [{"BearerAuth": []}]},
            "post": {"tags": ["Admin"], "summary": "Create a record", "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPayload"}}], "security": [{"BearerAuth": []}]}
        },
        "/admin/models/{app}/{model}/records/{pk}": {
            "get": {"tags": ["Admin"], "summary": "Record detail", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "pk", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]},
            "put": {"tags": ["Admin"], "summary": "Update a record", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "pk", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPayload"}}], "security": [{"BearerAuth": []}]},
            "delete": {"tags": ["Admin"], "summary": "Delete a record", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "pk", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/models/{app}/{model}/records/{pk}/copy": {
            "post": {"tags": ["Admin"], "summary": "Copy a record graph", "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "pk", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/models/{app}/{model}/records/{pk}/inlines/{inline}": {
            "get": {"tags": ["Admin"], "summary": "Inline rows of a record", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "pk", "in": "path", "type": "string", "required": true}, {"name": "inline", "in": "path", "type": "string", "required": true}, {"name": "limit", "in": "query", "type": "integer", "required": false}, {"name": "offset", "in": "query", "type": "integer", "required": false}], "security": [{"BearerAuth": []}]}
        },
        "/admin/models/{app}/{model}/actions/{action}": {
            "post": {"tags": ["Admin"], "summary": "Run a bulk action", "responses": {"202": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "action", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActionPayload"}}], "security": [{"BearerAuth": []}]}
        },
        "/admin/models/{app}/{model}/export": {
            "get": {"tags": ["Admin"], "summary": "Export the list view", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "format", "in": "query", "type": "string", "required": false}, {"name": "publish", "in": "query", "type": "boolean", "required": false}], "security": [{"BearerAuth": []}]}
        },
        "/admin/models/{app}/{model}/upload/{field}": {
            "post": {"tags": ["Admin"], "summary": "Upload a file for a file field", "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}, {"name": "field", "in": "path", "type": "string", "required": true}, {"name": "file", "in": "formData", "type": "file", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/saved-queries": {
            "get": {"tags": ["Saved Queries"], "summary": "List saved queries", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "security": [{"BearerAuth": []}]},
            "post": {"tags": ["Saved Queries"], "summary": "Create a saved query", "responses": {"201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SavedQueryRequest"}}], "security": [{"BearerAuth": []}]}
        },
        "/admin/saved-queries/run": {
            "post": {"tags": ["Saved Queries"], "summary": "Run a query definition", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/QueryDefinition"}}], "security": [{"BearerAuth": []}]}
        },
        "/admin/saved-queries/builder/{app}/{model}": {
            "get": {"tags": ["Saved Queries"], "summary": "Builder descriptors of a model", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "app", "in": "path", "type": "string", "required": true}, {"name": "model", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/saved-queries/{id}": {
            "get": {"tags": ["Saved Queries"], "summary": "Saved query detail", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]},
            "put": {"tags": ["Saved Queries"], "summary": "Update a saved query", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SavedQueryRequest"}}], "security": [{"BearerAuth": []}]},
            "delete": {"tags": ["Saved Queries"], "summary": "Delete a saved query", "responses": {"204": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/system-metrics": {
            "get": {"tags": ["Metrics"], "summary": "Aggregated request, cache and admin counters", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "security": [{"BearerAuth": []}]}
        },
        "/admin/queues": {
            "get": {"tags": ["Queues"], "summary": "Queue statistics", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "security": [{"BearerAuth": []}]}
        },
        "/admin/queues/{queue}/failed": {
            "get": {"tags": ["Queues"], "summary": "Failed jobs of a queue", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "queue", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/queues/{queue}/jobs/{id}": {
            "get": {"tags": ["Queues"], "summary": "Job detail", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "queue", "in": "path", "type": "string", "required": true}, {"name": "id", "in": "path", "type": "string", "required": true}], "security": [{"BearerAuth": []}]}
        },
        "/admin/queues/{queue}/requeue": {
            "post": {"tags": ["Queues"], "summary": "Requeue failed jobs", "responses": {"202": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "queue", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JobIDsRequest"}}], "security": [{"BearerAuth": []}]}
        },
        "/admin/queues/{queue}/delete": {
            "post": {"tags": ["Queues"], "summary": "Delete failed jobs", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "default": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}, "parameters": [{"name": "queue", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JobIDsRequest"}}], "security": [{"BearerAuth": []}]}
        }
    },
    "definitions": {
        "LoginRequest": {"type": "object", "properties": {"email": {"type": "string"}, "password": {"type": "string"}}, "required": ["email", "password"]},
        "RefreshTokenRequest": {"type": "object", "properties": {"refresh_token": {"type": "string"}}, "required": ["refresh_token"]},
        "ChangePasswordRequest": {"type": "object", "properties": {"old_password": {"type": "string"}, "new_password": {"type": "string"}}, "required": ["old_password", "new_password"]},
        "ResetPasswordRequest": {"type": "object", "properties": {"password": {"type": "string"}}, "required": ["password"]},
        "VerifyTokenRequest": {"type": "object", "properties": {"token": {"type": "string"}}, "required": ["token"]},
        "RecordPayload": {"type": "object", "additionalProperties": true},
        "ActionPayload": {"type": "object", "properties": {"payload": {"type": "array", "items": {}}}, "required": ["payload"]},
        "QueryCondition": {"type": "array", "description": "[field, operator, value]", "items": {}, "minItems": 3, "maxItems": 3},
        "QueryDefinition": {"type": "object", "properties": {"app_name": {"type": "string"}, "model_name": {"type": "string"}, "conditions": {"type": "array", "items": {"$ref": "#/definitions/QueryCondition"}}, "orderings": {"type": "array", "items": {"type": "string"}}, "query_limit": {"type": "integer"}}, "required": ["app_name", "model_name"]},
        "SavedQueryRequest": {"type": "object", "properties": {"name": {"type": "string"}, "query": {"$ref": "#/definitions/QueryDefinition"}}, "required": ["name", "query"]},
        "JobIDsRequest": {"type": "object", "properties": {"ids": {"type": "array", "items": {"type": "string"}}}, "required": ["ids"]},
        "Pagination": {"type": "object", "properties": {"limit": {"type": "integer"}, "offset": {"type": "integer"}, "total_count": {"type": "integer"}, "next": {"type": "integer"}, "previous": {"type": "integer"}}},
        "APIError": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "status": {"type": "integer"}, "fields": {"type": "object"}, "details": {}}},
        "ResponseEnvelope": {"type": "object", "properties": {"data": {"type": "object"}, "message": {"type": "string"}, "error": {"$ref": "#/definitions/APIError"}, "pagination": {"$ref": "#/definitions/Pagination"}, "meta": {"type": "object"}}}
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
