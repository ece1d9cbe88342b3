package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Multi-group timetable generation and attendance capture",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetable", "description": "Feasibility analysis, regeneration and timetable views"},
        {"name": "Attendance", "description": "Attendance tokens, scans and the absence sweep"}
    ],
    "paths": {
        "/timetable/feasibility": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Analyse timetable feasibility",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/analysis": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Summarise scheduling resource utilisation",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/regenerate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Regenerate the full timetable",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "408": {"description": "Deadline exceeded"},
                    "409": {"description": "No conflict-free timetable exists"},
                    "422": {"description": "Inputs are infeasible"}
                }
            }
        },
        "/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List the compiled timetable",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/export/csv": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Export the compiled timetable as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV document"}
                }
            }
        },
        "/timetable/export/pdf": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Export the compiled timetable as PDF",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/groups/{id}/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List a group's timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List a teacher's timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/class-instances": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Materialise class instances over a date range",
                "parameters": [
                    {"name": "from", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "scope", "in": "query", "type": "string", "enum": ["all", "group", "teacher", "student"]},
                    {"name": "id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid range or scope"}
                }
            }
        },
        "/class-instances/{id}/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records of a class instance",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/attendance-token": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Issue a fresh attendance token for a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/students/{id}/attendance-token/qr": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Issue a fresh attendance token rendered as a QR code",
                "produces": ["image/png"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PNG image"}
                }
            }
        },
        "/students/{id}/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List a student's attendance history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/scan": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record attendance by scanning a token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Marker not allowed or wrong group"},
                    "404": {"description": "Token or instance not found"},
                    "409": {"description": "Outside class window, consumed token or already marked"},
                    "410": {"description": "Token expired"}
                }
            }
        },
        "/attendance/sweep": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark absences for ended class instances",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ScanRequest": {
            "type": "object",
            "required": ["nonce", "class_instance_id"],
            "properties": {
                "nonce": {"type": "string"},
                "class_instance_id": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
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
