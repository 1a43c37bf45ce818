package models

import (
	"time"

	"wellnessconnect/internal/risk"
)

// ChatLog is one chatbot exchange.
type ChatLog struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"user_id"`
	Message     string     `json:"message"`
	Response    string     `json:"response"`
	StressLevel risk.Level `json:"stress_level"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Assessment is one PHQ-9/GAD-7 submission.
type Assessment struct {
	ID              string     `json:"id"`
	UserID          int64      `json:"user_id"`
	PHQScore        int        `json:"phq_score"`
	GADScore        int        `json:"gad_score"`
	TotalScore      int        `json:"total_score"`
	ChatStressLevel string     `json:"chat_stress_level"`
	FinalLevel      risk.Level `json:"final_level"`
	CreatedAt       time.Time  `json:"created_at"`
}
