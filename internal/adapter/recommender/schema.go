package recommender

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

// responseSchema is the recommender contract. Nested arrays must be present
// but may be empty; unknown keys are tolerated.
const responseSchema = `{
  "type": "object",
  "required": ["student_id", "total_recommendations", "generated_at", "recommendations"],
  "properties": {
    "student_id": {"type": "string"},
    "total_recommendations": {"type": "integer", "minimum": 0},
    "generated_at": {"type": "string"},
    "recommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["internship_id", "title", "organization_name", "domain", "location",
                     "duration", "stipend", "success_prob", "missing_skills", "reasons", "courses"],
        "properties": {
          "internship_id": {"type": "string"},
          "title": {"type": "string"},
          "organization_name": {"type": "string"},
          "domain": {"type": "string"},
          "location": {"type": "string"},
          "duration": {"type": "string"},
          "stipend": {"type": "number", "minimum": 0},
          "success_prob": {"type": "number", "minimum": 0, "maximum": 1},
          "missing_skills": {"type": "array", "items": {"type": "string"}},
          "reasons": {"type": "array", "items": {"type": "string"}},
          "description": {"type": "string"},
          "courses": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "url", "platform"],
              "properties": {
                "name": {"type": "string"},
                "url": {"type": "string"},
                "platform": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var compiledSchema = mustSchema(responseSchema)

func mustSchema(s string) *gojsonschema.Schema {
	sc, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("recommender: invalid response schema: %v", err))
	}
	return sc
}

// ParseResponse validates body against the recommender contract and decodes
// it. A missing or mistyped key is ErrSchemaInvalid; a total that disagrees
// with the list length is ErrDataIntegrity.
func ParseResponse(body []byte) (*domain.RecommendationResponse, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", domain.ErrSchemaInvalid)
	}
	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrSchemaInvalid, strings.Join(errs, "; "))
	}
	var out domain.RecommendationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	if out.TotalRecommendations != len(out.Recommendations) {
		return nil, fmt.Errorf("%w: total_recommendations=%d but %d recommendations",
			domain.ErrDataIntegrity, out.TotalRecommendations, len(out.Recommendations))
	}
	return &out, nil
}
