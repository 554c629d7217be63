// Package docs is regenerated by swaggo/swag from the handler annotations.
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
        "/connectivity": {
            "get": {
                "produces": ["application/json"],
                "tags": ["connectivity"],
                "summary": "Remote connectivity status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/connectivity.Status"}}
                }
            }
        },
        "/notes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "List notes, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notes.ListNotesResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Create a new note",
                "parameters": [
                    {"description": "Create note request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/notes.CreateNoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/notes.NoteResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            }
        },
        "/notes/archive": {
            "get": {
                "produces": ["application/json"],
                "tags": ["archive"],
                "summary": "List archived notes",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notes.ListNotesResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            }
        },
        "/notes/archive/{id}": {
            "delete": {
                "tags": ["archive"],
                "summary": "Delete an archived note",
                "parameters": [{"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httperr.E"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            }
        },
        "/notes/{id}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Update a note",
                "parameters": [
                    {"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true},
                    {"description": "Update note request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/notes.UpdateNoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notes.NoteResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            },
            "delete": {
                "tags": ["notes"],
                "summary": "Delete a note",
                "parameters": [{"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            }
        },
        "/session": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["session"],
                "summary": "Set the remote API token",
                "parameters": [
                    {"description": "Token", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/engine.SetSessionRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            },
            "delete": {
                "tags": ["session"],
                "summary": "Sign out and clear local data",
                "responses": {
                    "204": {"description": "No Content"},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            }
        },
        "/sync": {
            "post": {
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Run a sync pass now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notes.Report"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            }
        },
        "/sync/report": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Last sync report",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notes.Report"}},
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "connectivity.Status": {
            "type": "object",
            "properties": {"online": {"type": "boolean", "example": true}}
        },
        "engine.SetSessionRequest": {
            "type": "object",
            "required": ["token"],
            "properties": {"token": {"type": "string"}}
        },
        "httperr.E": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "Bad Request"}}
        },
        "notes.CreateNoteRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string", "maxLength": 512, "example": "Groceries"},
                "content": {"type": "string", "maxLength": 65536, "example": "milk, eggs"},
                "reminderDatetime": {"type": "string"}
            }
        },
        "notes.UpdateNoteRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string", "maxLength": 512},
                "content": {"type": "string", "maxLength": 65536},
                "reminderDatetime": {"type": "string"}
            }
        },
        "notes.Note": {
            "type": "object",
            "properties": {
                "_id": {"type": "string"},
                "title": {"type": "string"},
                "content": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"},
                "lastModified": {"type": "integer"},
                "isOffline": {"type": "boolean"},
                "reminderDatetime": {"type": "string"},
                "reminderSent": {"type": "boolean"}
            }
        },
        "notes.NoteResponse": {
            "type": "object",
            "properties": {"note": {"$ref": "#/definitions/notes.Note"}}
        },
        "notes.ListNotesResponse": {
            "type": "object",
            "properties": {
                "notes": {"type": "array", "items": {"$ref": "#/definitions/notes.Note"}},
                "online": {"type": "boolean"}
            }
        },
        "notes.Report": {
            "type": "object",
            "properties": {
                "startedAt": {"type": "string"},
                "finishedAt": {"type": "string"},
                "skipped": {"type": "boolean"},
                "applied": {"type": "integer"},
                "halted": {"type": "boolean"},
                "remaining": {"type": "integer"},
                "merged": {"type": "integer"},
                "created": {"type": "integer"},
                "pushed": {"type": "integer"},
                "discarded": {"type": "integer"},
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8090",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "NoteSync API",
	Description:      "Offline-first notes: local CRUD, connectivity and sync control.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
