package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient produces deterministic local replies for tests and for
// running the service without provider credentials.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Complete(ctx context.Context, req CompletionRequest, onDelta DeltaHandler) (CompletionResponse, error) {
	select {
	case <-ctx.Done():
		return CompletionResponse{}, ctx.Err()
	default:
	}

	text := buildMockReply(req)
	if onDelta != nil && text != "" {
		if err := onDelta(text); err != nil {
			return CompletionResponse{}, err
		}
	}
	return CompletionResponse{Text: text}, nil
}

func buildMockReply(req CompletionRequest) string {
	name := strings.TrimSpace(req.PersonaName)
	if name == "" {
		name = "Assistant"
	}

	question := strings.TrimSpace(req.Prompt)
	if i := strings.Index(question, "\n"); i >= 0 {
		question = strings.TrimSpace(question[:i])
	}
	if question == "" {
		return fmt.Sprintf("%s is listening.", name)
	}
	return fmt.Sprintf("Speaking as %s: you asked %q, and I would say it is a question worth pondering.", name, question)
}
