// Package docs registers the generated swagger description served at
// /swagger/doc.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/settlements": {
            "post": {
                "tags": ["treasury"],
                "summary": "Found a settlement",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/v1/settlements/{settlement_id}": {
            "get": {
                "tags": ["treasury"],
                "summary": "Get a settlement",
                "parameters": [{"name": "settlement_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/settlements/{settlement_id}/treasury/income": {
            "post": {
                "tags": ["treasury"],
                "summary": "Accrue settlement income",
                "parameters": [{"name": "settlement_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/settlements/{settlement_id}/treasury/distribute": {
            "post": {
                "tags": ["treasury"],
                "summary": "Run a merit-weighted distribution",
                "parameters": [{"name": "settlement_id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Cooldown active, empty pool, or pool exceeds treasury"},
                    "503": {"description": "Another distribution in progress"}
                }
            }
        },
        "/v1/settlements/{settlement_id}/treasury/reward-rate": {
            "put": {
                "tags": ["treasury"],
                "summary": "Change the subject reward rate (ruler only)",
                "parameters": [{"name": "settlement_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/v1/settlements/{settlement_id}/treasury/cooldown": {
            "get": {
                "tags": ["treasury"],
                "summary": "Cooldown gate status",
                "parameters": [{"name": "settlement_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/settlements/{settlement_id}/treasury/history": {
            "get": {
                "tags": ["treasury"],
                "summary": "Distribution history, newest first",
                "parameters": [
                    {"name": "settlement_id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/settlements/{settlement_id}/treasury/estimated-share": {
            "get": {
                "tags": ["treasury"],
                "summary": "Preview a player's share of the pending pool",
                "parameters": [
                    {"name": "settlement_id", "in": "path", "required": true, "type": "string"},
                    {"name": "player_id", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/subjects": {
            "post": {
                "tags": ["roster"],
                "summary": "Register a subject",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Already registered"}}
            }
        },
        "/v1/subjects/{player_id}": {
            "get": {
                "tags": ["roster"],
                "summary": "Get a subject",
                "parameters": [{"name": "player_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/subjects/{player_id}/skills": {
            "put": {
                "tags": ["roster"],
                "summary": "Update a subject's skills",
                "parameters": [{"name": "player_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/settlements/{settlement_id}/subjects": {
            "get": {
                "tags": ["roster"],
                "summary": "List a settlement's roster",
                "parameters": [{"name": "settlement_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/settlements/{settlement_id}/subjects/{player_id}/join": {
            "post": {
                "tags": ["roster"],
                "summary": "Join a settlement",
                "parameters": [
                    {"name": "settlement_id", "in": "path", "required": true, "type": "string"},
                    {"name": "player_id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Already joined"}}
            }
        },
        "/v1/settlements/{settlement_id}/subjects/{player_id}/check-in": {
            "post": {
                "tags": ["roster"],
                "summary": "Record a check-in",
                "parameters": [
                    {"name": "settlement_id", "in": "path", "required": true, "type": "string"},
                    {"name": "player_id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/settlements/{settlement_id}/subjects/{player_id}/reputation": {
            "post": {
                "tags": ["roster"],
                "summary": "Adjust reputation",
                "parameters": [
                    {"name": "settlement_id", "in": "path", "required": true, "type": "string"},
                    {"name": "player_id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Demesne API",
	Description:      "Settlement treasury distribution and subject roster API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
