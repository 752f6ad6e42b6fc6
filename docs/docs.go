// Package docs holds the OpenAPI description served at /swagger/.
// Regenerate with: swag init -g cmd/wa-relay/main.go
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
        "/webhook": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["Webhooks"],
                "summary": "Verify webhook subscription",
                "parameters": [
                    {"type": "string", "description": "Must be subscribe", "name": "hub.mode", "in": "query", "required": true},
                    {"type": "string", "description": "Challenge to echo", "name": "hub.challenge", "in": "query", "required": true},
                    {"type": "string", "description": "Shared verify token", "name": "hub.verify_token", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "the challenge", "schema": {"type": "string"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Always acknowledges with 200 once the body is read, so the provider does not redeliver.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Receive webhook notification",
                "parameters": [
                    {"type": "string", "description": "HMAC of the body, checked when an app secret is configured", "name": "X-Hub-Signature-256", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/webhook/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Webhook configuration status",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/messages": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "List received messages",
                "parameters": [
                    {"type": "integer", "default": 50, "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "Messages to skip", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Page"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/messages/send": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Send a message",
                "parameters": [
                    {"description": "Message to send", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.SendMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Message"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/messages/send-text": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Send a text message (form)",
                "parameters": [
                    {"type": "string", "description": "Recipient phone number, country code, no +", "name": "to", "in": "formData", "required": true},
                    {"type": "string", "description": "Message body", "name": "text", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Message"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/messages/send-media": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Send a media message (form)",
                "parameters": [
                    {"type": "string", "description": "Recipient phone number, country code, no +", "name": "to", "in": "formData", "required": true},
                    {"type": "string", "description": "audio, document, image or video", "name": "media_type", "in": "formData", "required": true},
                    {"type": "string", "description": "Public URL of the media", "name": "media_url", "in": "formData", "required": true},
                    {"type": "string", "description": "Caption, ignored for audio", "name": "caption", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Message"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/messages/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Get a received message",
                "parameters": [
                    {"type": "string", "description": "Provider message id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Message"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/messages/media/upload": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Stores the file locally and returns the public URL to pass as media_url.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Media"],
                "summary": "Upload a media file",
                "parameters": [
                    {"type": "file", "description": "File to upload", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/messages/media/test/{filename}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Media"],
                "summary": "Check an uploaded file",
                "parameters": [
                    {"type": "string", "description": "Stored file name", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Service banner",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/config": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Configuration status without secrets",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "detail": {"type": "string"}
            }
        },
        "api.SendMessageRequest": {
            "type": "object",
            "properties": {
                "to": {"type": "string"},
                "message_type": {"type": "string"},
                "text": {"type": "string"},
                "media_url": {"type": "string"},
                "media_caption": {"type": "string"}
            }
        },
        "api.UploadResponse": {
            "type": "object",
            "properties": {
                "filename": {"type": "string"},
                "content_type": {"type": "string"},
                "stored_filename": {"type": "string"},
                "media_url": {"type": "string"},
                "file_size": {"type": "integer"},
                "message": {"type": "string"},
                "test_url": {"type": "string"}
            }
        },
        "model.MediaRef": {
            "type": "object",
            "properties": {
                "media_id": {"type": "string"},
                "media_url": {"type": "string"}
            }
        },
        "model.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "from_number": {"type": "string"},
                "to": {"type": "string"},
                "type": {"type": "string", "enum": ["text", "audio", "document", "image", "video"]},
                "text": {"type": "string"},
                "media": {"$ref": "#/definitions/model.MediaRef"},
                "timestamp": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "sent", "delivered", "read", "failed"]}
            }
        },
        "model.Page": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/model.Message"}},
                "total": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "WhatsApp Relay API",
	Description:      "Relay between the WhatsApp Business Cloud API and a local application",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
