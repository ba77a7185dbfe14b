// Package schema defines the strict response contract for the vision
// comparison collaborator. Provider payloads are validated against a JSON
// schema and rejected whole when they do not conform; nothing is ever
// scraped out of free-text prose.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aryakhanna/renderqa/pkg/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidResponse marks provider payloads that fail schema validation.
var ErrInvalidResponse = errors.New("vision provider returned invalid response")

const analysisSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["differences", "summary", "verdict"],
  "properties": {
    "differences": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["rendered_index", "reference_index", "issues", "bbox", "severity"],
        "properties": {
          "rendered_index": {"type": "integer", "minimum": 0},
          "reference_index": {"type": "integer", "minimum": 0},
          "issues": {"type": "array", "items": {"type": "string", "minLength": 1}},
          "bbox": {
            "type": "object",
            "additionalProperties": false,
            "required": ["x", "y", "width", "height"],
            "properties": {
              "x": {"type": "integer", "minimum": 0},
              "y": {"type": "integer", "minimum": 0},
              "width": {"type": "integer", "minimum": 0},
              "height": {"type": "integer", "minimum": 0}
            }
          },
          "severity": {"type": "string", "enum": ["low", "medium", "high"]}
        }
      }
    },
    "summary": {"type": "string", "minLength": 1},
    "verdict": {"type": "string", "enum": ["approved", "not_approved"]},
    "scores": {
      "type": "object",
      "additionalProperties": {"type": "number", "minimum": 0, "maximum": 100}
    }
  }
}`

var compiled = jsonschema.MustCompileString("analysis.json", analysisSchema)

// Validate checks data against the analysis response schema.
func Validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: not valid JSON: %v", ErrInvalidResponse, err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// Parse validates data and decodes it into an AnalysisResult.
func Parse(data []byte) (models.AnalysisResult, error) {
	if err := Validate(data); err != nil {
		return models.AnalysisResult{}, err
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if result.Differences == nil {
		result.Differences = []models.Difference{}
	}
	return result, nil
}
