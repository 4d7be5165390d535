package domain

// MinConfidence is the hard acceptance threshold for extracted candidates.
// It is a business constant, not a tunable default: historical decisions
// must stay reproducible.
const MinConfidence = 0.7

// TaskCandidate is the structured, schema-validated output of the
// classification step. It is ephemeral: only accepted candidates are
// converted into a Task, nothing is persisted as-is.
type TaskCandidate struct {
	IsTask      bool     `json:"is_task"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Assignee    *string  `json:"assignee"`
	Priority    string   `json:"priority"`
	DueText     *string  `json:"due_text"`
	DueAt       *string  `json:"due_at"`
	ClientName  *string  `json:"client_name"`
	ObjectName  *string  `json:"object_name"`
	Tags        []string `json:"tags"`
	Confidence  float64  `json:"confidence"`
}

// Accepted reports whether the candidate clears the confidence gate.
// Exactly MinConfidence is accepted; anything below is rejected.
func (c *TaskCandidate) Accepted() bool {
	return c.IsTask && c.Confidence >= MinConfidence
}
