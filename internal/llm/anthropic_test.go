package llm

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type stubMessages struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func TestAnthropicClientComplete(t *testing.T) {
	stub := &stubMessages{
		resp: &sdk.Message{
			Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "a reply"},
			},
			Usage: sdk.Usage{InputTokens: 10, OutputTokens: 5},
		},
	}
	c := &AnthropicClient{msg: stub, model: "claude-test", maxTokens: 128, temperature: 0.7}

	resp, err := c.Complete(context.Background(), CompletionRequest{
		System:  "You are Einstein.",
		Prompt:  "Why is the sky blue?",
		FewShot: []Exchange{{User: "hi", Assistant: "hello"}},
	}, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if resp.Text != "a reply" {
		t.Fatalf("Text = %q, want %q", resp.Text, "a reply")
	}
	if resp.Usage == nil || resp.Usage.PromptTokens != 10 || resp.Usage.CompletionTokens != 5 {
		t.Fatalf("Usage = %+v, want {10 5}", resp.Usage)
	}

	if got := len(stub.lastParams.Messages); got != 3 {
		t.Fatalf("sent %d messages, want few-shot pair plus prompt", got)
	}
	if len(stub.lastParams.System) != 1 || stub.lastParams.System[0].Text != "You are Einstein." {
		t.Fatalf("System = %+v, want persona preamble", stub.lastParams.System)
	}
	if stub.lastParams.MaxTokens != 128 {
		t.Fatalf("MaxTokens = %d, want 128", stub.lastParams.MaxTokens)
	}
}

func TestAnthropicClientPropagatesError(t *testing.T) {
	stub := &stubMessages{err: errors.New("overloaded")}
	c := &AnthropicClient{msg: stub, model: "claude-test", maxTokens: 128}

	if _, err := c.Complete(context.Background(), CompletionRequest{Prompt: "hi"}, nil); err == nil {
		t.Fatalf("Complete() expected error from the API")
	}
}
