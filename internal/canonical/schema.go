package canonical

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// applicationSchema mirrors the canonical application wire shape. Every
// application must pass it before being handed to an adapter or fallback.
const applicationSchema = `{
  "type": "object",
  "required": ["applicationId", "studentId", "courseCode", "personalInfo", "academicInfo", "documents"],
  "properties": {
    "applicationId": {"type": "string", "minLength": 1},
    "studentId": {"type": "string", "minLength": 1},
    "courseCode": {"type": "string", "minLength": 1},
    "personalInfo": {
      "type": "object",
      "required": ["firstName", "lastName", "idNumber", "email", "phone"],
      "properties": {
        "firstName": {"type": "string", "minLength": 1},
        "lastName": {"type": "string", "minLength": 1},
        "idNumber": {"type": "string", "minLength": 1},
        "email": {"type": "string", "format": "email"},
        "phone": {"type": "string", "minLength": 1},
        "dateOfBirth": {"type": "string"},
        "nationality": {"type": "string"}
      }
    },
    "academicInfo": {
      "type": "object",
      "required": ["matricYear", "subjects"],
      "properties": {
        "matricYear": {"type": "string", "minLength": 4},
        "schoolName": {"type": "string"},
        "subjects": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["name", "level", "mark"],
            "properties": {
              "name": {"type": "string", "minLength": 1},
              "level": {"type": "string"},
              "mark": {"type": "number", "minimum": 0, "maximum": 100}
            }
          }
        }
      }
    },
    "documents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "filename", "url"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "filename": {"type": "string", "minLength": 1},
          "url": {"type": "string", "minLength": 1},
          "verified": {"type": "boolean"}
        }
      }
    },
    "applicationData": {"type": "object"}
  }
}`

var compiledSchema *gojsonschema.Schema

func init() {
	var err error
	compiledSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(applicationSchema))
	if err != nil {
		panic(fmt.Sprintf("canonical application schema does not compile: %v", err))
	}
}

// Validate checks app against the canonical application schema and returns a
// single error listing every violation.
func Validate(app *Application) error {
	result, err := compiledSchema.Validate(gojsonschema.NewGoLoader(app))
	if err != nil {
		return fmt.Errorf("schema validation failed to run: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("application failed validation: %s", strings.Join(msgs, "; "))
}
