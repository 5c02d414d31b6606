package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Academic timetable engine: schedule entries, conflict and load rules, free slots and term audits",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {
            "name": "Schedules",
            "description": "Schedule entry lifecycle"
        },
        {
            "name": "Timetables",
            "description": "Free slot, free room and timetable queries"
        },
        {
            "name": "Audit",
            "description": "Term-wide conflict sweeps"
        },
        {
            "name": "Subjects",
            "description": "Subject catalogue and yearly hours"
        },
        {
            "name": "Observability",
            "description": "Probes and metrics"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Liveness probe",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Readiness probe (pings the database)",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "Database unreachable"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Summarised runtime metrics",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/schedules": {
            "get": {
                "tags": [
                    "Schedules"
                ],
                "summary": "List schedule entries",
                "parameters": [
                    {
                        "name": "year",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "half",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "class_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "teacher_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "subject_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "room",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "day",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "include_cancelled",
                        "in": "query",
                        "type": "boolean"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "Schedules"
                ],
                "summary": "Create schedule entry",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateScheduleEntryRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid entry",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict or load ceiling exceeded; details carry the violations",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/schedules/validate": {
            "post": {
                "tags": [
                    "Schedules"
                ],
                "summary": "Dry-run a schedule entry against the timetable rules",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateScheduleEntryRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid entry",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/schedules/{id}": {
            "get": {
                "tags": [
                    "Schedules"
                ],
                "summary": "Get schedule entry",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/schedules/{id}/history": {
            "get": {
                "tags": [
                    "Schedules"
                ],
                "summary": "Lifecycle events of a schedule entry",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/schedules/{id}/timeslot/validate": {
            "post": {
                "tags": [
                    "Schedules"
                ],
                "summary": "Dry-run moving a schedule entry to another time slot",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/TimeSlotRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid time slot",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Cancelled entry",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/schedules/{id}/timeslot": {
            "patch": {
                "tags": [
                    "Schedules"
                ],
                "summary": "Move a schedule entry to another time slot",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/TimeSlotRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict, load ceiling or cancelled entry",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/schedules/{id}/teacher": {
            "patch": {
                "tags": [
                    "Schedules"
                ],
                "summary": "Reassign a schedule entry",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ChangeTeacherRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict, load ceiling or cancelled entry",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/schedules/{id}/room": {
            "patch": {
                "tags": [
                    "Schedules"
                ],
                "summary": "Move a schedule entry to another room",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ChangeRoomRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Room conflict or cancelled entry",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/schedules/{id}/cancel": {
            "post": {
                "tags": [
                    "Schedules"
                ],
                "summary": "Cancel a schedule entry",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Already cancelled",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/schedules/{id}/reactivate": {
            "post": {
                "tags": [
                    "Schedules"
                ],
                "summary": "Reactivate a cancelled entry",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Already active or would conflict",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/teachers/{id}/free-slots": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Standard periods a teacher has free on a day",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Teacher ID"
                    },
                    {
                        "name": "day",
                        "in": "query",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "year",
                        "in": "query",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "half",
                        "in": "query",
                        "type": "integer",
                        "required": true,
                        "enum": [
                            1,
                            2
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/teachers/{id}/timetable": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Teacher timetable",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Teacher ID"
                    },
                    {
                        "name": "year",
                        "in": "query",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "half",
                        "in": "query",
                        "type": "integer",
                        "required": true,
                        "enum": [
                            1,
                            2
                        ]
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "description": "ics for an iCalendar feed; JSON when omitted",
                        "enum": [
                            "json",
                            "ics"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/teachers/{id}/load": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Teacher weekly minutes against the ceiling",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Teacher ID"
                    },
                    {
                        "name": "year",
                        "in": "query",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "half",
                        "in": "query",
                        "type": "integer",
                        "required": true,
                        "enum": [
                            1,
                            2
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/rooms/free": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Rooms free during a time slot",
                "parameters": [
                    {
                        "name": "day",
                        "in": "query",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "start",
                        "in": "query",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "end",
                        "in": "query",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "year",
                        "in": "query",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "half",
                        "in": "query",
                        "type": "integer",
                        "required": true,
                        "enum": [
                            1,
                            2
                        ]
                    },
                    {
                        "name": "rooms",
                        "in": "query",
                        "type": "string",
                        "description": "Comma separated candidates; defaults to the configured rooms"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/rooms/{room}/timetable": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Room bookings",
                "parameters": [
                    {
                        "name": "room",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Room"
                    },
                    {
                        "name": "year",
                        "in": "query",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "half",
                        "in": "query",
                        "type": "integer",
                        "required": true,
                        "enum": [
                            1,
                            2
                        ]
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "description": "ics for an iCalendar feed; JSON when omitted",
                        "enum": [
                            "json",
                            "ics"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/classes/{id}/timetable": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Class timetable",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Class ID"
                    },
                    {
                        "name": "year",
                        "in": "query",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "half",
                        "in": "query",
                        "type": "integer",
                        "required": true,
                        "enum": [
                            1,
                            2
                        ]
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "description": "ics for an iCalendar feed; JSON when omitted",
                        "enum": [
                            "json",
                            "ics"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/terms/{year}/{half}/conflicts": {
            "get": {
                "tags": [
                    "Audit"
                ],
                "summary": "Every conflicting pair of a term",
                "produces": [
                    "application/json",
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "year",
                        "in": "path",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "half",
                        "in": "path",
                        "type": "integer",
                        "required": true,
                        "enum": [
                            1,
                            2
                        ]
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "json",
                            "csv",
                            "pdf",
                            "xlsx"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid term or format",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/terms/{year}/{half}/audit": {
            "post": {
                "tags": [
                    "Audit"
                ],
                "summary": "Queue a background conflict sweep",
                "parameters": [
                    {
                        "name": "year",
                        "in": "path",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "half",
                        "in": "path",
                        "type": "integer",
                        "required": true,
                        "enum": [
                            1,
                            2
                        ]
                    }
                ],
                "responses": {
                    "202": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Sweep already pending",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "503": {
                        "description": "Queue not running",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/subjects": {
            "get": {
                "tags": [
                    "Subjects"
                ],
                "summary": "List subjects",
                "parameters": [
                    {
                        "name": "search",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/subjects/{id}": {
            "get": {
                "tags": [
                    "Subjects"
                ],
                "summary": "Get subject",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Subject ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "Subjects"
                ],
                "summary": "Create or replace a subject",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Subject ID"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpsertSubjectRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid payload",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "TimeSlotRequest": {
            "type": "object",
            "required": [
                "day_of_week",
                "start_time",
                "end_time"
            ],
            "properties": {
                "day_of_week": {
                    "type": "string",
                    "example": "MONDAY"
                },
                "start_time": {
                    "type": "string",
                    "example": "08:00"
                },
                "end_time": {
                    "type": "string",
                    "example": "08:50"
                }
            }
        },
        "CreateScheduleEntryRequest": {
            "type": "object",
            "required": [
                "class_id",
                "subject_id",
                "teacher_id",
                "day_of_week",
                "start_time",
                "end_time",
                "year",
                "half"
            ],
            "properties": {
                "class_id": {
                    "type": "string"
                },
                "subject_id": {
                    "type": "string"
                },
                "teacher_id": {
                    "type": "string"
                },
                "day_of_week": {
                    "type": "string",
                    "example": "MONDAY"
                },
                "start_time": {
                    "type": "string",
                    "example": "08:00"
                },
                "end_time": {
                    "type": "string",
                    "example": "08:50"
                },
                "year": {
                    "type": "integer"
                },
                "half": {
                    "type": "integer",
                    "enum": [
                        1,
                        2
                    ]
                },
                "room": {
                    "type": "string",
                    "maxLength": 50
                }
            }
        },
        "ChangeTeacherRequest": {
            "type": "object",
            "required": [
                "teacher_id"
            ],
            "properties": {
                "teacher_id": {
                    "type": "string"
                }
            }
        },
        "ChangeRoomRequest": {
            "type": "object",
            "properties": {
                "room": {
                    "type": "string",
                    "maxLength": 50
                }
            }
        },
        "UpsertSubjectRequest": {
            "type": "object",
            "required": [
                "code",
                "name"
            ],
            "properties": {
                "code": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "yearly_hours": {
                    "type": "integer",
                    "minimum": 0
                }
            }
        },
        "ScheduleViolation": {
            "type": "object",
            "properties": {
                "kind": {
                    "type": "string",
                    "enum": [
                        "CONFLICT",
                        "TEACHER_LOAD_CEILING",
                        "SUBJECT_LOAD_CEILING"
                    ]
                },
                "dimension": {
                    "type": "string",
                    "enum": [
                        "TEACHER",
                        "ROOM",
                        "CLASS"
                    ]
                },
                "message": {
                    "type": "string"
                },
                "conflicting_entry_id": {
                    "type": "string"
                },
                "current_minutes": {
                    "type": "integer"
                },
                "added_minutes": {
                    "type": "integer"
                },
                "ceiling_minutes": {
                    "type": "integer"
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "details": {
                    "type": "object"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
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
