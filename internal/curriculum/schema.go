package curriculum

// curriculumSchema is the JSON Schema every curriculum seed document must
// satisfy before it is admitted into the catalog. YAML documents are converted
// to JSON for validation.
const curriculumSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["class", "subject", "modules"],
  "properties": {
    "class": {"type": "string", "minLength": 1},
    "subject": {"type": "string", "minLength": 1},
    "modules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "activities"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "activities": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "type", "title"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "type": {"enum": ["quiz", "video", "pdf", "interactive", "discussion"]},
                "title": {"type": "string", "minLength": 1},
                "duration_minutes": {"type": "integer", "minimum": 0}
              }
            }
          }
        }
      }
    }
  }
}`
