package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Weekly school timetable generation and teacher gap optimization.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetables", "description": "Generate, optimize, browse and export weekly timetables"},
        {"name": "Operations", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Operations"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Operations"],
                "summary": "Readiness check of postgres and redis",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Operations"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Metrics in exposition format"}
                }
            }
        },
        "/api/v1/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a weekly timetable",
                "description": "Solves a conflict-free timetable from the stored teachers, lessons and locations. Unless dryRun is set the result is saved.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Dry-run result", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "201": {"description": "Saved timetable", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "400": {"description": "Invalid payload or weights", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "School data cannot be scheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List saved timetables",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"},
                    {"name": "sortBy", "in": "query", "type": "string", "enum": ["name", "fitness_score", "total_gaps", "created_at"]},
                    {"name": "sortOrder", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a saved timetable",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Timetables"],
                "summary": "Rename or describe a saved timetable",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTimetableMetadataRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete a saved timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/{id}/optimize": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Reduce teacher gaps of a saved timetable",
                "description": "Moves single lesson-hours into teacher gaps while every hard constraint keeps holding. Optimizer failures are reported with success=false.",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Optimization outcome", "schema": {"$ref": "#/definitions/OptimizeEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "Already being optimized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/{id}/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download a saved timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "teacherId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Weights": {
            "type": "object",
            "properties": {
                "variance": {"type": "number", "minimum": 0},
                "gaps": {"type": "number", "minimum": 0},
                "unassigned": {"type": "number", "minimum": 0},
                "spread": {"type": "number", "minimum": 0}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "maxLength": 120},
                "description": {"type": "string", "maxLength": 500},
                "weights": {"$ref": "#/definitions/Weights"},
                "maxBlockHours": {"type": "integer", "minimum": 1, "maximum": 10},
                "dryRun": {"type": "boolean"}
            }
        },
        "UpdateTimetableMetadataRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "maxLength": 120},
                "description": {"type": "string", "maxLength": 500}
            }
        },
        "ScheduledEntry": {
            "type": "object",
            "properties": {
                "key": {"type": "string", "example": "t1-0-3"},
                "lessonId": {"type": "string"},
                "teacherIds": {"type": "array", "items": {"type": "string"}},
                "locationIds": {"type": "array", "items": {"type": "string"}},
                "classIds": {"type": "array", "items": {"type": "string"}},
                "gradeLevel": {"type": "integer"}
            }
        },
        "UnassignedLesson": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "weeklyHours": {"type": "integer"}
            }
        },
        "Timetable": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "fitnessScore": {"type": "number"},
                "workloadVariance": {"type": "number"},
                "totalGaps": {"type": "integer"},
                "schedule": {
                    "type": "array",
                    "description": "Pairs of [key, entry]",
                    "items": {"type": "array", "items": {"$ref": "#/definitions/ScheduledEntry"}}
                },
                "unassignedLessons": {"type": "array", "items": {"$ref": "#/definitions/UnassignedLesson"}},
                "logs": {"type": "array", "items": {"type": "string"}},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "cancelled": {"type": "boolean"},
                "persisted": {"type": "boolean"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "Change": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "teacherId": {"type": "string"},
                "lessonId": {"type": "string"},
                "fromKey": {"type": "string"},
                "toKey": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "OptimizeResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "newGaps": {"type": "integer"},
                "changes": {"type": "array", "items": {"$ref": "#/definitions/Change"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "TimetableEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/Timetable"},
                "meta": {"type": "object"}
            }
        },
        "OptimizeEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/OptimizeResult"}
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
