package memory

// Role identifies the author of a conversational message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable entry in a session transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultMaxTurns bounds retained history per session. One turn is a
// user message plus the assistant reply, so the message cap is twice this.
const DefaultMaxTurns = 20
