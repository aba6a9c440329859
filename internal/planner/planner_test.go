package planner

import "testing"

type fixedSource struct{ v float64 }

func (s fixedSource) Float64() float64 { return s.v }

func TestPlanFactKeywords(t *testing.T) {
	cases := []struct {
		message  string
		useFacts bool
	}{
		{"Why is the sky blue?", true},
		{"Tell me about relativity", true},
		{"EXPLAIN this please", true},
		{"hello there", false},
		{"greetings, friend", false},
		// Substring matching is intentional: "show" contains "how".
		{"show me something", true},
	}

	p := New(fixedSource{v: 0.9})
	for _, tc := range cases {
		d := p.Plan(tc.message, 1)
		if d.UseFacts != tc.useFacts {
			t.Fatalf("Plan(%q).UseFacts = %v, want %v", tc.message, d.UseFacts, tc.useFacts)
		}
	}
}

func TestPlanQuoteDraw(t *testing.T) {
	hit := New(fixedSource{v: 0.1})
	if d := hit.Plan("hello", 1); !d.UseQuotes {
		t.Fatalf("Plan() with draw below threshold: UseQuotes = false, want true")
	}

	miss := New(fixedSource{v: 0.5})
	if d := miss.Plan("hello", 1); d.UseQuotes {
		t.Fatalf("Plan() with draw above threshold: UseQuotes = true, want false")
	}
}

func TestPlanRoundtableForcesQuotesOff(t *testing.T) {
	p := New(fixedSource{v: 0.0})
	d := p.Plan("hello there", 2)
	if d.UseFacts {
		t.Fatalf("Plan().UseFacts = true, want false")
	}
	if d.UseQuotes {
		t.Fatalf("Plan() for roundtable: UseQuotes = true, want false regardless of draw")
	}
}

func TestNewNilSourceUsesDefault(t *testing.T) {
	p := New(nil)
	// The draw itself is nondeterministic; just exercise the path.
	_ = p.Plan("what is this", 1)
}
