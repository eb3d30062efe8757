// Package docs holds the swagger template served at /swagger. It is kept by
// hand in step with the handler annotations; `go generate ./cmd/server`
// replaces it with swag output when the toolchain is available.
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
        "/healthz": {"get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/readyz": {"get": {"tags": ["health"], "summary": "Readiness check", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/api/deals": {
            "get": {
                "tags": ["deals"],
                "summary": "List deals",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "tenant", "in": "query"},
                    {"type": "string", "name": "market", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"},
                    {"type": "string", "name": "order_by", "in": "query"},
                    {"type": "boolean", "name": "asc", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["deals"],
                "summary": "Create deal",
                "consumes": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.CreateDealInput"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/deals/{id}": {
            "get": {"tags": ["deals"], "summary": "Get complete deal", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["deals"], "summary": "Delete deal and its artifacts", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/deals/{id}/archive": {"post": {"tags": ["deals"], "summary": "Archive deal", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/deals/{id}/memos": {"get": {"tags": ["deals"], "summary": "List memo versions, newest first", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/deals/{id}/ingest": {"post": {"tags": ["stages"], "summary": "Run one pipeline stage", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/pipeline.StageInput"}}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}, "502": {"description": "Bad Gateway"}, "503": {"description": "Service Unavailable"}}}},
        "/api/deals/{id}/enrich": {"post": {"tags": ["stages"], "summary": "Run one pipeline stage", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "502": {"description": "Bad Gateway"}}}},
        "/api/deals/{id}/underwrite": {"post": {"tags": ["stages"], "summary": "Run one pipeline stage", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/pipeline.StageInput"}}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "502": {"description": "Bad Gateway"}}}},
        "/api/deals/{id}/memo": {"post": {"tags": ["stages"], "summary": "Run one pipeline stage", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "502": {"description": "Bad Gateway"}}}},
        "/api/deals/{id}/explain": {"post": {"tags": ["stages"], "summary": "Run one pipeline stage", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "502": {"description": "Bad Gateway"}}}},
        "/api/deals/{id}/pipeline": {"post": {"tags": ["stages"], "summary": "Run the full pipeline", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/pipeline.StageInput"}}], "responses": {"200": {"description": "OK"}}}},
        "/api/deals/{id}/pipeline/stream": {"get": {"tags": ["stages"], "summary": "Stream a full pipeline run over websocket", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {}}},
        "/api/pipeline-runs/{id}": {"get": {"tags": ["stages"], "summary": "Get a stored pipeline run", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/portfolio/insights": {"get": {"tags": ["portfolio"], "summary": "Portfolio insights across non-archived deals", "responses": {"200": {"description": "OK"}, "502": {"description": "Bad Gateway"}, "503": {"description": "Service Unavailable"}}}}
    },
    "definitions": {
        "service.CreateDealInput": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "source_kind": {"type": "string"},
                "source_url": {"type": "string"}
            }
        },
        "pipeline.StageInput": {
            "type": "object",
            "properties": {
                "document": {"type": "string"},
                "manual_data": {"type": "object"},
                "purchase_price": {"type": "number"},
                "assumptions": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Dealflow API",
	Description:      "Deal ingestion, enrichment, underwriting, memo generation and portfolio insights.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
