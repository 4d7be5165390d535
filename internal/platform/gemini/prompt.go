package gemini

import (
	"fmt"
	"strings"
	"time"
)

// promptVersion identifies the instruction set revision. Bump it whenever the
// system prompt changes so historical extraction decisions stay traceable.
const promptVersion = "2025-06-01"

// systemPromptTemplate is the fixed instruction set for the classifier.
// It biases the model toward is_task:false on ambiguity and calibrates
// confidence into three bands: >=0.9 explicit, 0.7-0.89 probable, <0.7 not a
// task. %s is the current date.
const systemPromptTemplate = `You are a task dispatcher for a furniture production and installation workshop.

Current date: %s

Analyze one workplace chat message and decide whether it contains an actionable task.

A message IS a task when it requests a concrete action: production work (cutting, edging, assembly, installation), site visits (measurement, delivery, mounting), coordination (call a client, confirm a color, agree on a date) or carries an explicit deadline.

A message is NOT a task when it is discussion, a question without an action, an emotion, a status report or small talk. When in doubt, answer is_task: false.

Respond with a single JSON object and nothing else, with exactly these fields:
- "is_task": boolean
- "title": short imperative summary of the action (empty string when is_task is false)
- "assignee": handle or name if the message addresses someone, else null
- "description": extra details (address, color, sizes, reason), else null
- "priority": "high" for urgent/today/ASAP, "low" for whenever-there-is-time, else "normal"
- "due_text": the deadline phrase verbatim from the message, else null
- "due_at": the deadline as an ISO-8601 timestamp when it can be derived with certainty, else null
- "client_name": client person or company mentioned, else null
- "object_name": site address or object name mentioned, else null
- "tags": array of short keyword strings, [] when none
- "confidence": number in [0,1] — 0.9 or above only for an explicit task with details, 0.7-0.89 for a probable task, below 0.7 when the message is likely not a task

If confidence is below 0.7, set is_task to false.`

// buildSystemPrompt renders the instruction set with the current date so the
// model can resolve relative deadlines.
func buildSystemPrompt(now time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, now.UTC().Format("2006-01-02"))
}

// buildUserPrompt renders the message together with its optional sender and
// conversation context.
func buildUserPrompt(message, senderName, chatName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Message: %q", message)
	if senderName != "" {
		fmt.Fprintf(&b, "\nFrom: %s", senderName)
	}
	if chatName != "" {
		fmt.Fprintf(&b, "\nChat: %s", chatName)
	}
	return b.String()
}
