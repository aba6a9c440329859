package knowledge

// Short, safe quotes per persona. Absence is a valid lookup result, not
// an error.
var personaQuotes = map[string]string{
	"Einstein":    "Imagination is more important than knowledge.",
	"Cleopatra":   "I will not be triumphed over.",
	"Shakespeare": "All the world's a stage.",
	"DaVinci":     "Learning never exhausts the mind.",
	"MarieCurie":  "Nothing in life is to be feared, it is only to be understood.",
	"AdaLovelace": "The Analytical Engine might act upon other things besides number.",
}

// Quote returns the persona's quotation, if one is on file.
func Quote(personaID string) (string, bool) {
	q, ok := personaQuotes[personaID]
	return q, ok
}
