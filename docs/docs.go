// Package docs registers the OpenAPI description of the fitdash HTTP API with swag.
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
        "/auth/callback": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Complete the Fitbit authorization flow",
                "parameters": [
                    {"type": "string", "description": "authorization code", "name": "code", "in": "query", "required": true},
                    {"type": "string", "description": "state echoed by Fitbit", "name": "state", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "502": {"description": "Bad Gateway"}
                }
            }
        },
        "/auth/login": {
            "get": {
                "tags": ["auth"],
                "summary": "Start the Fitbit authorization flow",
                "responses": {"302": {"description": "Found"}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["auth"],
                "summary": "End the current session",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/auth/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Account of the logged-in user",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Aggregated dashboard for a day or a period",
                "parameters": [
                    {"type": "string", "description": "YYYY-MM-DD, defaults to today", "name": "startDate", "in": "query"},
                    {"type": "string", "description": "YYYY-MM-DD, requires startDate", "name": "endDate", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/metrics/{family}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Relay one metric family from Fitbit",
                "parameters": [
                    {"type": "string", "description": "activity, heart, sleep or profile", "name": "family", "in": "path", "required": true},
                    {"type": "string", "description": "YYYY-MM-DD", "name": "startDate", "in": "query"},
                    {"type": "string", "description": "YYYY-MM-DD, requires startDate", "name": "endDate", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "fitdash API",
	Description:      "Fitbit metrics gateway and dashboard aggregation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
