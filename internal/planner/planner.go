package planner

import (
	"math/rand"
	"strings"
)

// Decision records which enrichment steps a turn will take. It is made
// once at the start of a turn and never revised.
type Decision struct {
	UseFacts  bool
	UseQuotes bool
}

// Source supplies the probabilistic part of planning, injectable so
// tests can force either quote branch.
type Source interface {
	Float64() float64
}

const quoteProbability = 0.2

// Keywords that mark a message as a factual inquiry. Matching is a
// plain substring scan over the lowercased message, so a keyword inside
// an unrelated word still triggers (e.g. "show" contains "how"). That
// mirrors the shipped behavior and is pinned by tests.
var factKeywords = []string{
	"who", "what", "when", "where", "why", "how",
	"explain", "fact", "facts", "define", "definition",
	"history", "background", "origin", "tell me about",
	"describe", "details", "information", "learn",
	"teach", "example", "examples",
}

// Planner decides enrichment for a turn.
type Planner struct {
	rng Source
}

// New returns a planner using the supplied randomness source, or the
// process-wide source when nil.
func New(src Source) *Planner {
	if src == nil {
		src = defaultSource{}
	}
	return &Planner{rng: src}
}

// Plan inspects the message and participant count. Facts are planned
// when the message looks like a factual inquiry; quotes are planned
// with probability 0.2, and only for single-persona turns.
func (p *Planner) Plan(message string, participantCount int) Decision {
	lower := strings.ToLower(message)

	var d Decision
	for _, kw := range factKeywords {
		if strings.Contains(lower, kw) {
			d.UseFacts = true
			break
		}
	}

	if participantCount <= 1 {
		d.UseQuotes = p.rng.Float64() < quoteProbability
	}
	return d
}

type defaultSource struct{}

func (defaultSource) Float64() float64 { return rand.Float64() }
