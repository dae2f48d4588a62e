package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Edu-Resource API",
        "description": "Course catalog, capacity-guarded enrollment, module progression and submission grading",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Courses", "description": "Course catalog"},
        {"name": "Modules", "description": "Ordered course modules and gating references"},
        {"name": "Assignments", "description": "Course assignments"},
        {"name": "Enrollments", "description": "Capacity-guarded admission"},
        {"name": "Progression", "description": "Module unlock state"},
        {"name": "Submissions", "description": "Submission lifecycle and grading"},
        {"name": "Notifications", "description": "Workflow event feed"},
        {"name": "Exports", "description": "Gradebook downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and obtain an access token",
                "responses": {
                    "200": {"description": "Token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Profile"}}
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "responses": {"200": {"description": "Courses"}}
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create a course",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Course detail with ordered modules",
                "responses": {"200": {"description": "Course"}, "404": {"description": "Not found"}}
            }
        },
        "/courses/{id}/approval": {
            "put": {
                "tags": ["Courses"],
                "summary": "Approve or revoke a course for enrollment",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Updated"}}
            }
        },
        "/courses/{id}/enroll": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll the caller into a course",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Enrolled"},
                    "409": {"description": "Course full or already enrolled"},
                    "412": {"description": "Course not open for enrollment"}
                }
            },
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Drop the caller's active enrollment",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Dropped"}}
            }
        },
        "/courses/{id}/progression": {
            "get": {
                "tags": ["Progression"],
                "summary": "Module unlock state for a student",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Progression"}}
            }
        },
        "/courses/{id}/gradebook": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the course gradebook (csv or pdf)",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Submit work for an assignment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Submitted"},
                    "400": {"description": "Type mismatch or invalid attachment"},
                    "409": {"description": "Already submitted or window closed"}
                }
            }
        },
        "/submissions/{id}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Submission detail",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Submission"}}
            },
            "put": {
                "tags": ["Submissions"],
                "summary": "Replace submission content",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Updated"}, "409": {"description": "Already graded"}}
            },
            "delete": {
                "tags": ["Submissions"],
                "summary": "Delete a submission (staff)",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/submissions/{id}/grade": {
            "put": {
                "tags": ["Submissions"],
                "summary": "Record or overwrite the grade",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Graded"}, "400": {"description": "Grade out of range"}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Recent notifications for the caller",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Notifications"}}
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
        "Envelope": {
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
