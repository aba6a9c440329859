package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/antoniostano/echoroom/internal/admission"
	"github.com/antoniostano/echoroom/internal/knowledge"
	"github.com/antoniostano/echoroom/internal/llm"
	"github.com/antoniostano/echoroom/internal/memory"
	"github.com/antoniostano/echoroom/internal/observability"
	"github.com/antoniostano/echoroom/internal/planner"
	"github.com/antoniostano/echoroom/internal/styling"
)

// Request is the boundary data for one turn.
type Request struct {
	PersonaID        string
	PersonaName      string
	PersonaStyle     string
	FewShot          []llm.Exchange
	Message          string
	SessionID        string
	ParticipantCount int
}

// Used reports planning intent, not retrieval success: a turn that
// planned to use facts but found none still reports Facts true.
type Used struct {
	Facts  bool `json:"facts"`
	Quotes bool `json:"quotes"`
}

// Result is what a turn always yields, even when every provider fails.
type Result struct {
	Text string `json:"text"`
	Used Used   `json:"used"`
}

// UsageRecorder receives the token cost of completed turns.
type UsageRecorder interface {
	RecordTokens(promptTokens, completionTokens int)
}

const (
	apologyProviderDown = "I apologize, but I'm having trouble generating a response right now. Please try again."
	apologyNoDraft      = "I apologize, but I couldn't generate a proper response."
	apologyInternal     = "I apologize, but I encountered an error processing your request."
)

const (
	maxPromptFacts    = 3
	historyTail       = 2
	historySnippetLen = 50
)

// state is the single-owner record threaded through the stages of one
// turn. Nothing survives the turn except what SaveMemory writes.
type state struct {
	turnID   string
	req      Request
	history  []memory.Message
	decision planner.Decision
	facts    []string
	quote    string
	draft    string
	final    string
}

// Pipeline sequences one turn: Plan, FetchFacts (conditional),
// FetchQuote, CallCompletion, Style, SaveMemory. The graph is fixed, so
// it is an explicit call sequence with one branch rather than a
// configurable workflow.
type Pipeline struct {
	planner  *planner.Planner
	memory   *memory.Store
	facts    knowledge.FactSource
	client   llm.Client
	usage    UsageRecorder
	metrics  *observability.Metrics
	logger   zerolog.Logger
	maxTurns int
	maxWords int
}

func New(
	pl *planner.Planner,
	store *memory.Store,
	facts knowledge.FactSource,
	client llm.Client,
	usage UsageRecorder,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	maxTurns int,
	maxWords int,
) *Pipeline {
	if maxTurns <= 0 {
		maxTurns = memory.DefaultMaxTurns
	}
	if maxWords <= 0 {
		maxWords = styling.DefaultMaxWords
	}
	return &Pipeline{
		planner:  pl,
		memory:   store,
		facts:    facts,
		client:   client,
		usage:    usage,
		metrics:  metrics,
		logger:   logger,
		maxTurns: maxTurns,
		maxWords: maxWords,
	}
}

// Run executes one turn to completion.
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	return p.RunStreaming(ctx, req, nil)
}

// RunStreaming executes one turn, forwarding raw completion deltas to
// onDelta as they arrive. The finalized text still comes back in the
// Result; deltas are a preview, not the contract.
//
// Any unexpected stage fault is converted into a fixed apology with
// neutral used flags; the pipeline never surfaces internal errors.
func (p *Pipeline) RunStreaming(ctx context.Context, req Request, onDelta llm.DeltaHandler) (res Result) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Interface("panic", r).
				Str("persona", req.PersonaID).
				Msg("turn pipeline fault")
			res = Result{Text: apologyInternal}
			outcome = "fault"
		}
		p.metrics.ObserveTurn(outcome, time.Since(start))
	}()

	st := &state{turnID: uuid.NewString(), req: req}
	if st.req.SessionID == "" {
		st.req.SessionID = "anon"
	}
	// History snapshot is taken before any write in this turn.
	st.history = p.memory.History(st.req.SessionID)

	p.plan(st)
	p.fetchFacts(ctx, st)
	p.fetchQuote(st)
	if !p.callCompletion(ctx, st, onDelta) {
		outcome = "provider_error"
	}
	p.style(st)
	p.saveMemory(st)

	return Result{
		Text: st.final,
		Used: Used{Facts: st.decision.UseFacts, Quotes: st.decision.UseQuotes},
	}
}

func (p *Pipeline) plan(st *state) {
	defer p.observeStage("plan", time.Now())

	st.decision = p.planner.Plan(st.req.Message, st.req.ParticipantCount)
	p.logger.Debug().
		Str("turn_id", st.turnID).
		Str("persona", st.req.PersonaID).
		Bool("use_facts", st.decision.UseFacts).
		Bool("use_quotes", st.decision.UseQuotes).
		Msg("turn planned")
}

func (p *Pipeline) fetchFacts(ctx context.Context, st *state) {
	defer p.observeStage("fetch_facts", time.Now())

	if !st.decision.UseFacts {
		st.facts = nil
		return
	}
	st.facts = p.facts.Facts(ctx, st.req.PersonaID)
	p.logger.Debug().
		Str("turn_id", st.turnID).
		Int("facts", len(st.facts)).
		Msg("facts fetched")
}

func (p *Pipeline) fetchQuote(st *state) {
	defer p.observeStage("fetch_quote", time.Now())

	if !st.decision.UseQuotes {
		st.quote = ""
		return
	}
	if q, ok := knowledge.Quote(st.req.PersonaID); ok {
		st.quote = q
	}
}

func (p *Pipeline) callCompletion(ctx context.Context, st *state, onDelta llm.DeltaHandler) bool {
	defer p.observeStage("call_completion", time.Now())

	req := llm.CompletionRequest{
		TurnID:      st.turnID,
		PersonaName: st.req.PersonaName,
		System:      buildSystemPrompt(st.req.PersonaName, st.req.PersonaStyle),
		Prompt:      buildUserPrompt(st),
		FewShot:     st.req.FewShot,
	}

	resp, err := p.client.Complete(ctx, req, onDelta)
	if err != nil {
		// Provider failures never abort the turn; an apologetic draft
		// flows through finalization like any other completion.
		p.logger.Warn().
			Err(err).
			Str("turn_id", st.turnID).
			Str("persona", st.req.PersonaID).
			Msg("completion provider failed")
		st.draft = apologyProviderDown
		return false
	}

	st.draft = resp.Text
	if p.usage != nil {
		in, out := tokenCost(resp)
		p.usage.RecordTokens(in, out)
		p.metrics.AddTokens(in, out)
	}
	return true
}

func (p *Pipeline) style(st *state) {
	defer p.observeStage("style", time.Now())

	if st.draft == "" {
		st.final = apologyNoDraft
		return
	}
	st.final = styling.Finalize(st.draft, st.req.PersonaStyle, p.maxWords)
}

func (p *Pipeline) saveMemory(st *state) {
	defer p.observeStage("save_memory", time.Now())

	p.memory.Append(st.req.SessionID, memory.RoleUser, st.req.Message)
	if st.final != "" {
		p.memory.Append(st.req.SessionID, memory.RoleAssistant, st.final)
	}
	p.memory.Trim(st.req.SessionID, p.maxTurns)
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.ObserveStage(stage, time.Since(start))
}

// tokenCost prefers the provider's reported usage and falls back to the
// length-based estimate.
func tokenCost(resp llm.CompletionResponse) (int, int) {
	if resp.Usage != nil {
		return resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}
	return admission.EstimateTokens(resp.Text)
}

func buildSystemPrompt(name, style string) string {
	return fmt.Sprintf(
		"You are %s, a fictionalized historical figure. "+
			"Your speaking style is: %s. "+
			"Be educational and concise. Avoid medical/legal/financial advice. "+
			"Refuse harmful content. Keep responses under 100 words.",
		name, style,
	)
}

func buildUserPrompt(st *state) string {
	var b strings.Builder
	b.WriteString(st.req.Message)

	if len(st.facts) > 0 {
		b.WriteString("\n\nRelevant facts:")
		facts := st.facts
		if len(facts) > maxPromptFacts {
			facts = facts[:maxPromptFacts]
		}
		for _, f := range facts {
			b.WriteString("\n- ")
			b.WriteString(f)
		}
	}

	if st.quote != "" {
		b.WriteString("\n\nRelevant quote: \"")
		b.WriteString(st.quote)
		b.WriteString("\"")
	}

	if len(st.history) > 0 {
		tail := st.history
		if len(tail) > historyTail {
			tail = tail[len(tail)-historyTail:]
		}
		var h strings.Builder
		h.WriteString("Recent conversation context: ")
		for _, m := range tail {
			role := "User"
			if m.Role == memory.RoleAssistant {
				role = "You"
			}
			h.WriteString(role)
			h.WriteString(": ")
			h.WriteString(snippet(m.Content, historySnippetLen))
			h.WriteString(". ")
		}
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(h.String()))
	}

	return b.String()
}

func snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
