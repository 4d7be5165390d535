package gemini

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/extraction"
)

// candidateFields is the closed field set of the classifier response schema.
// All fields are required and no additional fields are accepted.
var candidateFields = []string{
	"is_task",
	"title",
	"description",
	"assignee",
	"priority",
	"due_text",
	"due_at",
	"client_name",
	"object_name",
	"tags",
	"confidence",
}

// ParseCandidate validates a raw classifier response against the strict
// candidate schema and returns the decoded candidate. Any deviation is a
// classification failure: non-JSON payload, missing field, unknown field,
// wrong type, invalid enum, out-of-range confidence, malformed due_at.
func ParseCandidate(data []byte) (*domain.TaskCandidate, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", extraction.ErrInvalidResponse, err)
	}

	for _, field := range candidateFields {
		if _, ok := raw[field]; !ok {
			return nil, fmt.Errorf("%w: missing field %q", extraction.ErrSchemaViolation, field)
		}
	}

	if len(raw) != len(candidateFields) {
		for key := range raw {
			if !isCandidateField(key) {
				return nil, fmt.Errorf(
					"%w: unexpected field %q",
					extraction.ErrSchemaViolation,
					key,
				)
			}
		}
	}

	var c domain.TaskCandidate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", extraction.ErrSchemaViolation, err)
	}

	// json.Unmarshal maps JSON null onto zero values without complaint, so
	// the non-nullable fields need explicit null checks.
	for _, field := range []string{"is_task", "title", "priority", "tags", "confidence"} {
		if string(raw[field]) == "null" {
			return nil, fmt.Errorf("%w: field %q cannot be null", extraction.ErrSchemaViolation, field)
		}
	}

	switch c.Priority {
	case "low", "normal", "high":
	default:
		return nil, fmt.Errorf(
			"%w: invalid priority %q",
			extraction.ErrSchemaViolation,
			c.Priority,
		)
	}

	if c.Confidence < 0 || c.Confidence > 1 {
		return nil, fmt.Errorf(
			"%w: confidence %v out of range",
			extraction.ErrSchemaViolation,
			c.Confidence,
		)
	}

	if c.DueAt != nil {
		if _, err := time.Parse(time.RFC3339, *c.DueAt); err != nil {
			return nil, fmt.Errorf(
				"%w: malformed due_at %q",
				extraction.ErrSchemaViolation,
				*c.DueAt,
			)
		}
	}

	return &c, nil
}

func isCandidateField(name string) bool {
	for _, field := range candidateFields {
		if name == field {
			return true
		}
	}
	return false
}
