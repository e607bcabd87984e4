package domain

// Confidence ranks how certain an attribution is. The tiers form a total
// order: HIGH > MEDIUM > LOW > UNATTRIBUTED.
type Confidence string

const (
	ConfidenceUnattributed Confidence = "UNATTRIBUTED"
	ConfidenceLow          Confidence = "LOW"
	ConfidenceMedium       Confidence = "MEDIUM"
	ConfidenceHigh         Confidence = "HIGH"
)

var confidenceRank = map[Confidence]int{
	ConfidenceUnattributed: 1,
	ConfidenceLow:          2,
	ConfidenceMedium:       3,
	ConfidenceHigh:         4,
}

// Rank returns the position of c in the tier order. Unknown values rank 0,
// below UNATTRIBUTED.
func (c Confidence) Rank() int { return confidenceRank[c] }

// Valid reports whether c is one of the four known tiers.
func (c Confidence) Valid() bool { return c.Rank() > 0 }

// Less reports whether c ranks strictly below other.
func (c Confidence) Less(other Confidence) bool { return c.Rank() < other.Rank() }

// MaxConfidence returns the highest tier among cs, or UNATTRIBUTED when cs is
// empty.
func MaxConfidence(cs ...Confidence) Confidence {
	best := ConfidenceUnattributed
	for _, c := range cs {
		if best.Less(c) {
			best = c
		}
	}
	return best
}
