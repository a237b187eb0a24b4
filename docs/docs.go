// Package docs registers the API description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/apps": {
            "get": {"tags": ["App"], "summary": "List apps", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}},
            "post": {"tags": ["App"], "summary": "Create app", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.CreateAppRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        },
        "/api/v1/apps/{appId}": {
            "get": {"tags": ["App"], "summary": "Get app", "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "appId", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        },
        "/api/v1/apps/{appId}/write": {
            "post": {"tags": ["App"], "summary": "Edit app", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "appId", "type": "string", "required": true}, {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.WriteRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        },
        "/api/v1/apps/{appId}/history": {
            "get": {"tags": ["App"], "summary": "App history", "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "appId", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        },
        "/api/v1/apps/{appId}/status": {
            "get": {"tags": ["App"], "summary": "App status", "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "appId", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        },
        "/api/v1/apps/{appId}/ping": {
            "get": {"tags": ["App"], "summary": "Ping app", "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "appId", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        },
        "/api/v1/apps/{appId}/terminate": {
            "post": {"tags": ["Admin"], "summary": "Terminate app", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "appId", "type": "string", "required": true}, {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.AdminRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        },
        "/api/v1/apps/{appId}/toggle-feature": {
            "post": {"tags": ["Admin"], "summary": "Toggle featured", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "appId", "type": "string", "required": true}, {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.AdminRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        },
        "/api/v1/status": {
            "get": {"tags": ["App"], "summary": "Service status", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        },
        "/api/v1/admin/terminate-all": {
            "post": {"tags": ["Admin"], "summary": "Terminate all apps", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.AdminRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        },
        "/api/v1/admin/cleanup": {
            "post": {"tags": ["Admin"], "summary": "Cleanup dead apps", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.AdminRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/respond.Response"}}}}
        }
    },
    "definitions": {
        "handler.AdminRequest": {"type": "object", "properties": {"admin_secret": {"type": "string"}}},
        "handler.CreateAppRequest": {"type": "object", "required": ["prompt"], "properties": {"prompt": {"type": "string"}}},
        "handler.WriteRequest": {"type": "object", "required": ["text"], "properties": {"text": {"type": "string"}}},
        "respond.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 0},
                "message": {"type": "string", "example": "success"},
                "processingTime": {"type": "integer", "example": 123},
                "data": {}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:7380",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Sandbox App Service API",
	Description:      "Create, edit and manage generated UI components running in remote sandboxes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
