package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Care Ops API",
        "description": "Corrective action record lifecycle: issue, sign, void and score disciplinary records",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "CorrectiveActions", "description": "Corrective action records"},
        {"name": "Employees", "description": "Per-employee discipline history and points"},
        {"name": "ViolationCategories", "description": "Violation catalog (reference data)"},
        {"name": "Signing", "description": "Public employee signing links"}
    ],
    "paths": {
        "/corrective-actions": {
            "post": {
                "tags": ["CorrectiveActions"],
                "summary": "Raise a corrective action",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCorrectiveActionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Employee, house or category not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrective-actions/{id}": {
            "get": {
                "tags": ["CorrectiveActions"],
                "summary": "Get a corrective action with signatures and effective points",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["CorrectiveActions"],
                "summary": "Edit a corrective action before the employee signs",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCorrectiveActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Signed by the employee or voided", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrective-actions/{id}/signatures": {
            "post": {
                "tags": ["CorrectiveActions"],
                "summary": "Record a supervisor, witness or HR signature",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignCorrectiveActionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Signed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role may not sign as this signer type", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already signed or voided", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrective-actions/{id}/void": {
            "post": {
                "tags": ["CorrectiveActions"],
                "summary": "Void a corrective action",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VoidCorrectiveActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Voided", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already voided", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrective-actions/{id}/history": {
            "get": {
                "tags": ["CorrectiveActions"],
                "summary": "List status transitions of a corrective action",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrective-actions/{id}/signing-link": {
            "post": {
                "tags": ["CorrectiveActions"],
                "summary": "Issue a signing link for the subject employee",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Voided or already signed by the employee", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/employees/{id}/corrective-actions": {
            "get": {
                "tags": ["Employees"],
                "summary": "List an employee's corrective actions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/employees/{id}/discipline-points": {
            "get": {
                "tags": ["Employees"],
                "summary": "Get an employee's cumulative discipline points",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/violation-categories": {
            "get": {
                "tags": ["ViolationCategories"],
                "summary": "List violation categories",
                "parameters": [
                    {"name": "severity", "in": "query", "type": "string", "enum": ["MINOR", "MODERATE", "SERIOUS", "CRITICAL", "IMMEDIATE_TERMINATION"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/violation-categories/{id}": {
            "get": {
                "tags": ["ViolationCategories"],
                "summary": "Get a violation category",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/signing/{token}": {
            "get": {
                "tags": ["Signing"],
                "summary": "View the corrective action behind a signing link",
                "security": [],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Signing"],
                "summary": "Sign as the subject employee, optionally disputing",
                "security": [],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EmployeeSignRequest"}}
                ],
                "responses": {
                    "201": {"description": "Signed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already signed or voided", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateCorrectiveActionRequest": {
            "type": "object",
            "required": ["employeeId", "violationCategoryId", "violationDate", "incidentDescription", "disciplineLevel"],
            "properties": {
                "employeeId": {"type": "string"},
                "violationCategoryId": {"type": "string"},
                "violationDate": {"type": "string", "format": "date"},
                "violationTime": {"type": "string", "example": "21:30"},
                "incidentDescription": {"type": "string"},
                "disciplineLevel": {"type": "string", "enum": ["COACHING", "VERBAL_WARNING", "WRITTEN_WARNING", "FINAL_WARNING", "PIP", "TERMINATION"]},
                "houseId": {"type": "string"},
                "mitigatingCircumstances": {"type": "string"},
                "pointsOverride": {"type": "integer", "minimum": 0},
                "adjustmentReason": {"type": "string"},
                "correctiveExpectations": {"type": "array", "items": {"type": "string"}},
                "consequencesText": {"type": "string"},
                "pipScheduled": {"type": "boolean"},
                "pipDate": {"type": "string", "format": "date"}
            }
        },
        "UpdateCorrectiveActionRequest": {
            "type": "object",
            "properties": {
                "houseId": {"type": "string"},
                "violationDate": {"type": "string", "format": "date"},
                "violationTime": {"type": "string"},
                "incidentDescription": {"type": "string"},
                "mitigatingCircumstances": {"type": "string"},
                "disciplineLevel": {"type": "string"},
                "pointsOverride": {"type": "integer", "minimum": 0},
                "adjustmentReason": {"type": "string"},
                "clearPointsAdjustment": {"type": "boolean"},
                "correctiveExpectations": {"type": "array", "items": {"type": "string"}},
                "consequencesText": {"type": "string"},
                "pipScheduled": {"type": "boolean"},
                "pipDate": {"type": "string", "format": "date"}
            }
        },
        "SignCorrectiveActionRequest": {
            "type": "object",
            "required": ["signerType", "signatureData"],
            "properties": {
                "signerType": {"type": "string", "enum": ["SUPERVISOR", "WITNESS", "HR"]},
                "signatureData": {"type": "string", "format": "byte"}
            }
        },
        "EmployeeSignRequest": {
            "type": "object",
            "required": ["signatureData"],
            "properties": {
                "signatureData": {"type": "string", "format": "byte"},
                "dispute": {"type": "boolean"},
                "employeeComments": {"type": "string"}
            }
        },
        "VoidCorrectiveActionRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
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
