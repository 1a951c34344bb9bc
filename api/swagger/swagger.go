package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable Engine API",
        "description": "School timetable generation and incremental rescheduling",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Engine", "description": "Timetable generation, repair and projections"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/generate": {
            "post": {
                "tags": ["Engine"],
                "summary": "Generate a timetable for a term scope",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Generated timetable, possibly partial", "schema": {"$ref": "#/definitions/GenerateResponse"}},
                    "400": {"description": "Invalid request or scope", "schema": {"$ref": "#/definitions/LegacyError"}},
                    "404": {"description": "Term not found", "schema": {"$ref": "#/definitions/LegacyError"}},
                    "409": {"description": "Generation already in progress for this term", "schema": {"$ref": "#/definitions/LegacyError"}}
                }
            }
        },
        "/update-lesson": {
            "post": {
                "tags": ["Engine"],
                "summary": "Move a single lesson to a new day and start time",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateLessonRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated full timetable", "schema": {"$ref": "#/definitions/UpdateLessonResponse"}},
                    "400": {"description": "Invalid request or unknown slot", "schema": {"$ref": "#/definitions/LegacyError"}},
                    "404": {"description": "Lesson or term not found", "schema": {"$ref": "#/definitions/LegacyError"}},
                    "409": {"description": "Conflicting placement or concurrent modification", "schema": {"$ref": "#/definitions/LegacyError"}}
                }
            }
        },
        "/check-feasibility": {
            "post": {
                "tags": ["Engine"],
                "summary": "Run counting feasibility bounds without searching",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FeasibilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "Feasibility report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable": {
            "get": {
                "tags": ["Engine"],
                "summary": "Read the current weekly timetable projection",
                "parameters": [
                    {"name": "term_id", "in": "query", "required": true, "type": "string"},
                    {"name": "scope", "in": "query", "type": "string", "enum": ["school", "grade", "class", "teacher"]},
                    {"name": "grade_levels", "in": "query", "type": "string", "description": "Comma-separated grade levels"},
                    {"name": "class_section_ids", "in": "query", "type": "string"},
                    {"name": "teacher_ids", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid scope", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/export": {
            "get": {
                "tags": ["Engine"],
                "summary": "Download the weekly timetable as CSV or PDF",
                "parameters": [
                    {"name": "term_id", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"},
                    {"name": "scope", "in": "query", "type": "string"}
                ],
                "produces": ["text/csv", "application/pdf"],
                "responses": {
                    "200": {"description": "Rendered file"},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateRequest": {
            "type": "object",
            "required": ["term_id", "user_id"],
            "properties": {
                "term_id": {"type": "string"},
                "user_id": {"type": "string"},
                "scope": {"type": "string", "enum": ["school", "grade", "class", "teacher"]},
                "grade_levels": {"type": "array", "items": {"type": "integer"}},
                "class_section_ids": {"type": "array", "items": {"type": "string"}},
                "teacher_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "GenerateResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "solver_status": {"type": "string", "enum": ["OPTIMAL", "FEASIBLE", "INFEASIBLE"]},
                "solve_time": {"type": "number"},
                "timetable": {"type": "array", "items": {"$ref": "#/definitions/TimetableEntry"}},
                "unplaced": {"type": "array", "items": {"$ref": "#/definitions/UnplacedOffering"}},
                "stats": {"type": "object"}
            }
        },
        "UpdateLessonRequest": {
            "type": "object",
            "required": ["term_id", "lesson_id", "new_day", "new_start_time"],
            "properties": {
                "term_id": {"type": "string"},
                "lesson_id": {"type": "string"},
                "new_day": {"type": "integer", "minimum": 1, "maximum": 7},
                "new_start_time": {"type": "string", "example": "08:00"}
            }
        },
        "UpdateLessonResponse": {
            "type": "object",
            "properties": {
                "timetable": {"type": "array", "items": {"$ref": "#/definitions/TimetableEntry"}}
            }
        },
        "FeasibilityRequest": {
            "type": "object",
            "required": ["term_id"],
            "properties": {
                "term_id": {"type": "string"},
                "scope": {"type": "string"},
                "grade_levels": {"type": "array", "items": {"type": "integer"}},
                "class_section_ids": {"type": "array", "items": {"type": "string"}},
                "teacher_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "TimetableEntry": {
            "type": "object",
            "properties": {
                "lesson_id": {"type": "string"},
                "class_section_name": {"type": "string"},
                "day": {"type": "integer"},
                "period": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "subject_name": {"type": "string"},
                "teacher_name": {"type": "string"}
            }
        },
        "UnplacedOffering": {
            "type": "object",
            "properties": {
                "offering_id": {"type": "string"},
                "subject_name": {"type": "string"},
                "class_section_name": {"type": "string"},
                "missing_periods": {"type": "integer"},
                "reason": {"type": "string"}
            }
        },
        "LegacyError": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
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
