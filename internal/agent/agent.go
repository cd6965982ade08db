package agent

import "context"

// Request is one turn against a configured agent identity. ConversationID
// threads server-side context across turns; Instructions are only set when a
// conversation is being primed for the first time. Tooling (web search etc.)
// is configured on the agent identity itself, not per request.
type Request struct {
	AgentID         string
	Instructions    string
	Input           string
	ConversationID  string
	MaxOutputTokens int
	Temperature     float32
}

// Response is the provider response normalized to the one shape the engine
// consumes: the assistant's text, if any, and the continuation token. Text
// may be empty on a completed call that produced no assistant message; that
// is not an error here.
type Response struct {
	Text           string
	ConversationID string
}

// Caller is an agent-calling capability. Implementations own transport,
// polling, and response-shape probing; the analysis engine only sees this.
type Caller interface {
	Call(ctx context.Context, req Request) (Response, error)
}
