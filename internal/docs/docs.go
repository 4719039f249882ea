// Package docs registers the OpenAPI document served under /swagger/.
// Keep it in step with the swag annotations on the handlers.
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
        "/api/bot-info": {
            "get": {
                "produces": ["application/json"],
                "tags": ["api"],
                "summary": "Bot account files are sent to",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/domain.APIEnvelope"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.BotInfo"}}}
                            ]
                        }
                    }
                }
            }
        },
        "/api/file/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["api"],
                "summary": "File metadata",
                "parameters": [
                    {"type": "string", "description": "file id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/domain.APIEnvelope"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.FileRecord"}}}
                            ]
                        }
                    },
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}}
                }
            }
        },
        "/api/stats": {
            "get": {
                "description": "Zeros when the store is unavailable.",
                "produces": ["application/json"],
                "tags": ["api"],
                "summary": "Totals across all files",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/domain.APIEnvelope"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.Stats"}}}
                            ]
                        }
                    }
                }
            }
        },
        "/dl/{id}": {
            "get": {
                "description": "Streams the file as an attachment. Supports a single \"bytes=start-end\" range.",
                "produces": ["application/octet-stream"],
                "tags": ["files"],
                "summary": "Download a file",
                "parameters": [
                    {"type": "string", "description": "file id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "bytes=start-end", "name": "Range", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "206": {"description": "Partial Content", "schema": {"type": "file"}},
                    "404": {"description": "File not found, or no source could serve it", "schema": {"type": "string"}},
                    "416": {"description": "empty body, Content-Range: bytes */size", "schema": {"type": "string"}},
                    "500": {"description": "Failed to serve file", "schema": {"type": "string"}}
                }
            }
        },
        "/stream/{id}": {
            "get": {
                "description": "Same as /dl/{id} with Content-Disposition inline, for media players.",
                "produces": ["application/octet-stream"],
                "tags": ["files"],
                "summary": "Stream a file inline",
                "parameters": [
                    {"type": "string", "description": "file id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "bytes=start-end", "name": "Range", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "206": {"description": "Partial Content", "schema": {"type": "file"}},
                    "404": {"description": "File not found, or no source could serve it", "schema": {"type": "string"}},
                    "416": {"description": "empty body, Content-Range: bytes */size", "schema": {"type": "string"}},
                    "500": {"description": "Failed to serve file", "schema": {"type": "string"}}
                }
            }
        },
        "/v1/healthz": {
            "get": {
                "description": "Whether the process is up; does not touch the database or cache",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/domain.APIEnvelope"},
                                {"type": "object", "properties": {"data": {"type": "string"}}}
                            ]
                        }
                    }
                }
            }
        },
        "/v1/readyz": {
            "get": {
                "description": "Pings PostgreSQL and Redis and reports whether MTProto bulk transfer is available",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/domain.APIEnvelope"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/health.Status"}}}
                            ]
                        }
                    },
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "domain.APIEnvelope": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/domain.APIError"}
            }
        },
        "domain.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "text": {"type": "string"}
            }
        },
        "domain.BotInfo": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "domain.FileRecord": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "downloads": {"type": "integer"},
                "duration": {"type": "integer"},
                "file_id": {"type": "string"},
                "file_name": {"type": "string"},
                "file_size": {"type": "integer"},
                "file_type": {"type": "string"},
                "file_unique_id": {"type": "string"},
                "height": {"type": "integer"},
                "id": {"type": "string"},
                "mime_type": {"type": "string"},
                "sender_id": {"type": "integer"},
                "sender_name": {"type": "string"},
                "source": {"$ref": "#/definitions/domain.SourceLocation"},
                "thumbnail_file_id": {"type": "string"},
                "width": {"type": "integer"}
            }
        },
        "domain.SourceLocation": {
            "type": "object",
            "properties": {
                "chat_id": {"type": "integer"},
                "message_id": {"type": "integer"}
            }
        },
        "domain.Stats": {
            "type": "object",
            "properties": {
                "totalDownloads": {"type": "integer"},
                "totalFiles": {"type": "integer"},
                "totalSize": {"type": "integer"}
            }
        },
        "health.Status": {
            "type": "object",
            "properties": {
                "bulk_transfer": {"type": "boolean"},
                "status": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Filetolink API",
	Description:      "Download and stream links for files sent to a Telegram bot.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
