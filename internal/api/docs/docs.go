// Package docs holds the generated swagger spec for the admin API.
// Normally produced by `swag init` from the handler doc comments in
// internal/api/handlers; checked in here so swagger UI has something
// to serve without a build step.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "flowinspect"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/stats": {
            "get": {
                "tags": ["system"],
                "summary": "Runtime statistics",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/domains/{ip}": {
            "get": {
                "tags": ["engine"],
                "summary": "Domains ever observed for a flow IP",
                "parameters": [{"name": "ip", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/domains/{ip}/history": {
            "get": {
                "tags": ["engine"],
                "summary": "Historical domain observations for a flow IP",
                "description": "Reads the durable observation store, if enabled",
                "parameters": [
                    {"name": "ip", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "required": false, "type": "integer", "description": "max rows to return (default 100)"}
                ],
                "responses": {"200": {"description": "ok"}, "404": {"description": "observation store not enabled"}}
            }
        },
        "/flows/{session_id}": {
            "get": {
                "tags": ["engine"],
                "summary": "Last-known flow snapshot for a session",
                "description": "Reads the durable observation store, if enabled",
                "parameters": [{"name": "session_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "ok"}, "404": {"description": "observation store not enabled or session not found"}}
            }
        },
        "/cache/clear": {
            "post": {
                "tags": ["engine"],
                "summary": "Clear the DNS response cache and reverse index",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/clustersync/status": {
            "get": {
                "tags": ["clustersync"],
                "summary": "Current cluster-sync status",
                "responses": {"200": {"description": "ok"}, "404": {"description": "cluster sync not enabled"}}
            }
        },
        "/clustersync/snapshot": {
            "get": {
                "tags": ["clustersync"],
                "summary": "Full reverse-index snapshot for a secondary to ingest",
                "description": "Served by any node; a secondary's clustersync.Syncer polls this on its configured primary_url",
                "responses": {"200": {"description": "ok"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8099",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "flowinspectord admin API",
	Description:      "Admin and introspection endpoints for the flow inspection engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
