// Package chatbot holds the keyword classifier and the canned replies of the
// student chat.
package chatbot

import (
	"strings"

	"wellnessconnect/internal/risk"
)

const (
	EmptyMessageReply = "Please type a message."

	assessmentHint = " We recommend completing a PHQ-9/GAD-7 assessment for better support."
	notifiedNote   = " A counsellor has been notified and will reach out. You are not alone."
)

var mediumWords = []string{"sad", "anxiety", "anxious", "depressed"}

var replies = [...]string{
	risk.Low:    "That's good to hear. Keep taking care of yourself. You're doing great!",
	risk.Medium: "It's okay to feel this way. Try: deep breathing, a short walk, or talking to someone you trust. You can also book a counselling session if you'd like extra support.",
	risk.High:   "We're concerned about your wellbeing. Please consider booking a counselling session as soon as you can. You're not alone - reach out to a counsellor or a trusted person.",
}

// StressFromMessage labels a chat message by substring match on its lower-cased text.
func StressFromMessage(text string) risk.Level {
	t := strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(t, "suicide") {
		return risk.High
	}
	for _, w := range mediumWords {
		if strings.Contains(t, w) {
			return risk.Medium
		}
	}
	return risk.Low
}

// ResponseFor returns the canned reply for a chat stress level.
func ResponseFor(level risk.Level) string {
	if int(level) < len(replies) {
		return replies[level]
	}
	return replies[risk.Low]
}

// Reply is the body returned to the student after a chat message.
type Reply struct {
	Response           string     `json:"response"`
	StressLevel        risk.Level `json:"stress_level"`
	FinalLevel         risk.Level `json:"final_level"`
	ShowAlert          bool       `json:"show_alert"`
	CounsellorNotified bool       `json:"counsellor_notified"`
}

// Shape decorates reply with the assessment hint when the message itself was
// Medium or High, and with the counsellor note when the combined level is High.
func Shape(stress, final risk.Level, reply string) Reply {
	if stress >= risk.Medium {
		reply += assessmentHint
	}
	high := final == risk.High
	if high {
		reply += notifiedNote
	}
	return Reply{
		Response:           reply,
		StressLevel:        stress,
		FinalLevel:         final,
		ShowAlert:          high,
		CounsellorNotified: high,
	}
}
