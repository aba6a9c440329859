package httpapi

import "github.com/antoniostano/echoroom/internal/turn"

// ChatRequest is one single-persona turn.
type ChatRequest struct {
	Persona   string `json:"persona"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type ChatResponse struct {
	Text string    `json:"text"`
	Used turn.Used `json:"used"`
}

// RoundtableRequest asks several personas to answer the same message in
// sequence.
type RoundtableRequest struct {
	Personas []string `json:"personas"`
	Message  string   `json:"message"`
}

type RoundtableReply struct {
	Persona string `json:"persona"`
	Text    string `json:"text"`
}

type RoundtableResponse struct {
	Replies []RoundtableReply `json:"replies"`
}
