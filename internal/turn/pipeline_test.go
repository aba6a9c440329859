package turn

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/antoniostano/echoroom/internal/llm"
	"github.com/antoniostano/echoroom/internal/memory"
	"github.com/antoniostano/echoroom/internal/planner"
	"github.com/antoniostano/echoroom/internal/styling"
)

type fixedSource struct{ v float64 }

func (s fixedSource) Float64() float64 { return s.v }

type stubFacts struct {
	facts []string
}

func (s stubFacts) Facts(context.Context, string) []string { return s.facts }
func (s stubFacts) Close() error                           { return nil }

type stubClient struct {
	lastReq llm.CompletionRequest
	resp    llm.CompletionResponse
	err     error
	panics  bool
}

func (s *stubClient) Complete(_ context.Context, req llm.CompletionRequest, onDelta llm.DeltaHandler) (llm.CompletionResponse, error) {
	s.lastReq = req
	if s.panics {
		panic("stub client exploded")
	}
	if s.err != nil {
		return llm.CompletionResponse{}, s.err
	}
	if onDelta != nil {
		_ = onDelta(s.resp.Text)
	}
	return s.resp, nil
}

type stubUsage struct {
	in, out int
}

func (s *stubUsage) RecordTokens(promptTokens, completionTokens int) {
	s.in += promptTokens
	s.out += completionTokens
}

func newTestPipeline(client llm.Client, facts []string, quoteDraw float64) (*Pipeline, *memory.Store, *stubUsage) {
	store := memory.NewStore()
	usage := &stubUsage{}
	p := New(
		planner.New(fixedSource{v: quoteDraw}),
		store,
		stubFacts{facts: facts},
		client,
		usage,
		nil,
		zerolog.Nop(),
		20,
		styling.DefaultMaxWords,
	)
	return p, store, usage
}

func TestRunEnrichedPrompt(t *testing.T) {
	client := &stubClient{resp: llm.CompletionResponse{
		Text:  "Light always travels at the same speed.",
		Usage: &llm.Usage{PromptTokens: 12, CompletionTokens: 7},
	}}
	p, store, usage := newTestPipeline(client, []string{"f1", "f2", "f3", "f4"}, 0.1)

	res := p.Run(context.Background(), Request{
		PersonaID:        "Einstein",
		PersonaName:      "Albert Einstein",
		PersonaStyle:     "thoughtful",
		Message:          "tell me about relativity",
		SessionID:        "s1",
		ParticipantCount: 1,
	})

	if !res.Used.Facts || !res.Used.Quotes {
		t.Fatalf("Used = %+v, want facts and quotes", res.Used)
	}
	if !strings.HasSuffix(res.Text, styling.Disclaimer) {
		t.Fatalf("Text = %q, want disclaimer suffix", res.Text)
	}

	prompt := client.lastReq.Prompt
	if !strings.Contains(prompt, "Relevant facts:\n- f1\n- f2\n- f3") {
		t.Fatalf("prompt missing facts block: %q", prompt)
	}
	if strings.Contains(prompt, "f4") {
		t.Fatalf("prompt includes more than three facts: %q", prompt)
	}
	if !strings.Contains(prompt, `Relevant quote: "`) {
		t.Fatalf("prompt missing quote: %q", prompt)
	}
	if !strings.Contains(client.lastReq.System, "Albert Einstein") ||
		!strings.Contains(client.lastReq.System, "thoughtful") {
		t.Fatalf("system prompt = %q", client.lastReq.System)
	}

	if usage.in != 12 || usage.out != 7 {
		t.Fatalf("recorded usage = %d/%d, want 12/7", usage.in, usage.out)
	}

	hist := store.History("s1")
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	if hist[0].Role != memory.RoleUser || hist[0].Content != "tell me about relativity" {
		t.Fatalf("history[0] = %+v", hist[0])
	}
	if hist[1].Role != memory.RoleAssistant || hist[1].Content != res.Text {
		t.Fatalf("history[1] = %+v", hist[1])
	}
}

func TestRunUsedFlagsReportIntentNotRetrieval(t *testing.T) {
	client := &stubClient{resp: llm.CompletionResponse{Text: "Nothing much."}}
	p, _, _ := newTestPipeline(client, nil, 0.9)

	res := p.Run(context.Background(), Request{
		PersonaID:        "Cleopatra",
		PersonaName:      "Cleopatra",
		Message:          "explain your reign",
		SessionID:        "s1",
		ParticipantCount: 1,
	})

	if !res.Used.Facts {
		t.Fatalf("Used.Facts = false, want planned intent to stick")
	}
	if strings.Contains(client.lastReq.Prompt, "Relevant facts") {
		t.Fatalf("prompt has facts block despite empty retrieval: %q", client.lastReq.Prompt)
	}
}

func TestRunRoundtableSkipsQuotes(t *testing.T) {
	client := &stubClient{resp: llm.CompletionResponse{Text: "A reply."}}
	p, _, _ := newTestPipeline(client, nil, 0.0)

	res := p.Run(context.Background(), Request{
		PersonaID:        "Einstein",
		PersonaName:      "Albert Einstein",
		Message:          "hello everyone",
		SessionID:        "rt-1",
		ParticipantCount: 3,
	})

	if res.Used.Quotes {
		t.Fatalf("Used.Quotes = true for a roundtable turn")
	}
	if strings.Contains(client.lastReq.Prompt, "Relevant quote") {
		t.Fatalf("prompt has quote in roundtable: %q", client.lastReq.Prompt)
	}
}

func TestRunProviderFailureYieldsApology(t *testing.T) {
	client := &stubClient{err: errors.New("upstream 500")}
	p, store, usage := newTestPipeline(client, nil, 0.9)

	res := p.Run(context.Background(), Request{
		PersonaID:   "Einstein",
		PersonaName: "Albert Einstein",
		Message:     "hi",
		SessionID:   "s1",
	})

	want := apologyProviderDown + styling.Disclaimer
	if res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}
	if usage.in != 0 || usage.out != 0 {
		t.Fatalf("usage recorded for failed completion: %d/%d", usage.in, usage.out)
	}

	// The apology is still persisted as the assistant's reply.
	hist := store.History("s1")
	if len(hist) != 2 || hist[1].Content != want {
		t.Fatalf("history after failure = %+v", hist)
	}
}

func TestRunEmptyDraftYieldsFallback(t *testing.T) {
	client := &stubClient{resp: llm.CompletionResponse{Text: ""}}
	p, _, _ := newTestPipeline(client, nil, 0.9)

	res := p.Run(context.Background(), Request{
		PersonaID:   "Einstein",
		PersonaName: "Albert Einstein",
		Message:     "hi",
		SessionID:   "s1",
	})

	if res.Text != apologyNoDraft {
		t.Fatalf("Text = %q, want %q", res.Text, apologyNoDraft)
	}
}

func TestRunPanicIsContained(t *testing.T) {
	client := &stubClient{panics: true}
	p, _, _ := newTestPipeline(client, nil, 0.9)

	res := p.Run(context.Background(), Request{
		PersonaID:   "Einstein",
		PersonaName: "Albert Einstein",
		Message:     "hi",
		SessionID:   "s1",
	})

	if res.Text != apologyInternal {
		t.Fatalf("Text = %q, want %q", res.Text, apologyInternal)
	}
	if res.Used.Facts || res.Used.Quotes {
		t.Fatalf("Used = %+v after fault, want neutral flags", res.Used)
	}
}

func TestRunIncludesRecentHistory(t *testing.T) {
	client := &stubClient{resp: llm.CompletionResponse{Text: "Again."}}
	p, store, _ := newTestPipeline(client, nil, 0.9)

	store.Append("s1", memory.RoleUser, "first question")
	store.Append("s1", memory.RoleAssistant, strings.Repeat("x", 60))
	store.Append("s1", memory.RoleUser, "second question")

	p.Run(context.Background(), Request{
		PersonaID:   "Einstein",
		PersonaName: "Albert Einstein",
		Message:     "hi",
		SessionID:   "s1",
	})

	prompt := client.lastReq.Prompt
	if !strings.Contains(prompt, "Recent conversation context: ") {
		t.Fatalf("prompt missing history block: %q", prompt)
	}
	// Only the two most recent messages, assistant as "You", long
	// content truncated to 50 runes.
	if strings.Contains(prompt, "first question") {
		t.Fatalf("prompt includes message beyond the tail: %q", prompt)
	}
	if !strings.Contains(prompt, "You: "+strings.Repeat("x", 50)+"...") {
		t.Fatalf("prompt missing truncated assistant snippet: %q", prompt)
	}
	if !strings.Contains(prompt, "User: second question") {
		t.Fatalf("prompt missing latest user message: %q", prompt)
	}
}

func TestRunTrimsHistory(t *testing.T) {
	client := &stubClient{resp: llm.CompletionResponse{Text: "Ok."}}
	store := memory.NewStore()
	p := New(planner.New(fixedSource{v: 0.9}), store, stubFacts{}, client, nil, nil, zerolog.Nop(), 2, 0)

	for i := 0; i < 5; i++ {
		p.Run(context.Background(), Request{
			PersonaID:   "Einstein",
			PersonaName: "Albert Einstein",
			Message:     "hi",
			SessionID:   "s1",
		})
	}

	if got := len(store.History("s1")); got != 4 {
		t.Fatalf("history length = %d, want 4 (2 turns)", got)
	}
}

func TestRunStreamingForwardsDeltas(t *testing.T) {
	client := &stubClient{resp: llm.CompletionResponse{Text: "Streamed reply."}}
	p, _, _ := newTestPipeline(client, nil, 0.9)

	var deltas []string
	res := p.RunStreaming(context.Background(), Request{
		PersonaID:   "Einstein",
		PersonaName: "Albert Einstein",
		Message:     "hi",
		SessionID:   "s1",
	}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})

	if len(deltas) != 1 || deltas[0] != "Streamed reply." {
		t.Fatalf("deltas = %q", deltas)
	}
	if !strings.HasPrefix(res.Text, "Streamed reply.") {
		t.Fatalf("Text = %q", res.Text)
	}
}
