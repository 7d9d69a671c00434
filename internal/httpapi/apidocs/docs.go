// Package apidocs registers the control API description with swag.
// Regenerate with `swag init -g cmd/stlauncher/docs.go -o internal/httpapi/apidocs`.
package apidocs

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
        "/api/status": {"get": {"tags": ["server"], "summary": "Managed server status", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}}},
        "/api/start": {"post": {"tags": ["server"], "summary": "Start the managed server", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ResultResponse"}}}}},
        "/api/stop": {"post": {"tags": ["server"], "summary": "Stop the managed server", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ResultResponse"}}}}},
        "/api/logs": {"get": {"tags": ["server"], "summary": "Buffered log lines, oldest first", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/clear-logs": {"post": {"tags": ["server"], "summary": "Clear the log buffer", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ResultResponse"}}}}},
        "/api/versions": {"get": {"tags": ["versions"], "summary": "List installed and installable versions", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/versions/rescan": {"post": {"tags": ["versions"], "summary": "Rescan local installations", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/versions/switch": {"post": {"tags": ["versions"], "summary": "Switch the active version", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.VersionRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ResultResponse"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/api/versions/install": {"post": {"tags": ["versions"], "summary": "Install a catalog version", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.VersionRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ResultResponse"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/api/versions/uninstall": {"post": {"tags": ["versions"], "summary": "Uninstall a catalog version", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.VersionRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ResultResponse"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/api/settings": {"get": {"tags": ["settings"], "summary": "Persisted flags and aggregator state", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/settings/speed-optimization": {"post": {"tags": ["settings"], "summary": "Toggle speed optimisation for the active version", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.SpeedOptimizationRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ResultResponse"}}}}},
        "/api/aggregator/start": {"post": {"tags": ["aggregator"], "summary": "Start API key aggregation", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/aggregator/stop": {"post": {"tags": ["aggregator"], "summary": "Stop API key aggregation", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ResultResponse"}}}}},
        "/api/aggregator/status": {"get": {"tags": ["aggregator"], "summary": "Key pool state", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}}
    },
    "definitions": {
        "types.ResultResponse": {"type": "object", "properties": {"success": {"type": "boolean"}, "message": {"type": "string", "example": "server started"}}},
        "types.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string", "example": "invalid JSON body"}, "code": {"type": "integer", "example": 400}}},
        "types.VersionRequest": {"type": "object", "properties": {"version": {"type": "string", "example": "1.13.5"}}},
        "types.SpeedOptimizationRequest": {"type": "object", "properties": {"enable": {"type": "boolean"}}},
        "types.StatusResponse": {"type": "object", "properties": {"running": {"type": "boolean"}, "port": {"type": "integer", "example": 8000}, "version": {"type": "object"}, "activeVersion": {"type": "string", "example": "1.13.5"}, "managedByLauncher": {"type": "boolean"}, "state": {"type": "string", "example": "running"}, "runId": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "stlauncher API",
	Description:      "Control API for a locally managed SillyTavern server and its API key aggregator.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
