package extraction

import (
	"context"

	"github.com/dvolkov/taskdesk/internal/domain"
)

// MessageContext carries optional conversational context that helps the
// classifier attribute a task.
type MessageContext struct {
	// SenderName is the display name of the message author, if known.
	SenderName string

	// ChatName is the display name of the conversation, if known.
	ChatName string
}

// Extractor defines the interface for turning a chat message into a task
// candidate. This interface is the boundary between the application core and
// the external classification service.
//
// The contract: a nil candidate with a nil error means "not a task" (either
// the classifier said so or the candidate fell under the confidence gate).
// A non-nil error is a classification failure: schema violation, malformed
// response, transport error or timeout. Callers drop the message either way;
// the error only exists so failures stay countable.
type Extractor interface {
	ExtractTask(ctx context.Context, message string, msgCtx MessageContext) (*domain.TaskCandidate, error)
}
