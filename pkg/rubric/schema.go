package rubric

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
)

// Load reads, schema-validates, and parses the rubric at jsonPath against
// schemaPath. The rubric is loaded once at process start and treated as
// an immutable structure thereafter (spec §3 "Rubric").
func Load(schemaPath, jsonPath string) (*Rubric, error) {
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("rubric: read schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		return nil, fmt.Errorf("rubric: parse schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("rubric: resolve schema: %w", err)
	}

	docBytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("rubric: read document: %w", err)
	}
	var instance any
	if err := json.Unmarshal(docBytes, &instance); err != nil {
		return nil, fmt.Errorf("rubric: parse document: %w", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return nil, fmt.Errorf("rubric: schema validation failed: %w", err)
	}

	var r Rubric
	if err := json.Unmarshal(docBytes, &r); err != nil {
		return nil, fmt.Errorf("rubric: decode document: %w", err)
	}
	if r.EvidenceMinPerStageClaim <= 0 {
		return nil, &RubricError{Msg: "evidence_min_per_stage_claim must be >= 1"}
	}
	for _, th := range r.Themes {
		if len(th.Stages) != 5 {
			return nil, &RubricError{Msg: fmt.Sprintf("theme %s must declare exactly 5 stages", th.Code)}
		}
	}
	return &r, nil
}
