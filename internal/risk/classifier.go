package risk

import "strings"

const (
	mediumThreshold = 10
	highThreshold   = 15
)

// ChatLevel normalizes the label produced by the chat keyword matcher.
// Only an exact "High" or "Medium" (after trimming) raises the level.
func ChatLevel(label string) Level {
	return ParseLevel(strings.TrimSpace(label))
}

// AssessmentLevel classifies PHQ and GAD totals. Either scale alone can drive
// the result; thresholds are inclusive (14 is Medium, 15 is High).
func AssessmentLevel(phq, gad int) Level {
	switch {
	case phq >= highThreshold || gad >= highThreshold:
		return High
	case inMediumBand(phq) || inMediumBand(gad):
		return Medium
	default:
		return Low
	}
}

func inMediumBand(score int) bool {
	return score >= mediumThreshold && score < highThreshold
}

// Combine returns the worst of the chat and assessment classifications.
// An absent channel (empty label, zero scores) is Low and never raises the result.
func Combine(label string, phq, gad int) Level {
	return Max(ChatLevel(label), AssessmentLevel(phq, gad))
}
