package domain

// SelectionConfig controls diversity selection for one run.
// Lambda weighs relevance (1) against dissimilarity to already chosen files (0).
type SelectionConfig struct {
	TopK   int
	Lambda float64
}

// DefaultSelectionConfig returns a fresh default value.
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{TopK: 8, Lambda: 0.65}
}

// Normalize clamps Lambda into [0,1] and replaces a non-positive TopK with the default.
func (c SelectionConfig) Normalize() SelectionConfig {
	if c.TopK <= 0 {
		c.TopK = DefaultSelectionConfig().TopK
	}
	if c.Lambda < 0 {
		c.Lambda = 0
	}
	if c.Lambda > 1 {
		c.Lambda = 1
	}
	return c
}

// ContextBudget bounds the assembled context, in characters.
type ContextBudget struct {
	MaxCharsPerFile int
	MaxTotalChars   int
}

// DefaultContextBudget returns a fresh default value.
func DefaultContextBudget() ContextBudget {
	return ContextBudget{MaxCharsPerFile: 4000, MaxTotalChars: 50000}
}
