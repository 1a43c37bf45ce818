package risk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatLevel(t *testing.T) {
	tests := []struct {
		label string
		want  Level
	}{
		{"High", High},
		{"Medium", Medium},
		{"Low", Low},
		{"  High\n", High},
		{"\tMedium ", Medium},
		{"", Low},
		{"   ", Low},
		{"high", Low},
		{"HIGH", Low},
		{"medium", Low},
		{"I feel fine", Low},
		{"Highest", Low},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.label), func(t *testing.T) {
			got := ChatLevel(tt.label)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ChatLevel(got.String()), "chat level should be idempotent")
		})
	}
}

func TestAssessmentLevelBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		phq, gad int
		want     Level
	}{
		{"both zero", 0, 0, Low},
		{"both nine", 9, 9, Low},
		{"phq ten", 10, 0, Medium},
		{"phq fourteen", 14, 0, Medium},
		{"phq fifteen", 15, 0, High},
		{"gad fourteen", 0, 14, Medium},
		{"gad fifteen", 0, 15, High},
		{"gad only high", 0, 20, High},
		{"medium and high", 12, 27, High},
		{"huge value", 1 << 30, 0, High},
		{"negative ignored", -5, -1, Low},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessmentLevel(tt.phq, tt.gad))
		})
	}
}

func TestCombineIsMaximum(t *testing.T) {
	assert.Equal(t, High, Combine("Low", 20, 0))
	assert.Equal(t, High, Combine("High", 0, 0))
	assert.Equal(t, Medium, Combine("Medium", 3, 4))
	assert.Equal(t, Medium, Combine("", 0, 11))
	assert.Equal(t, Low, Combine("", 0, 0))

	labels := []string{"", "Low", "Medium", "High", "nonsense"}
	for _, label := range labels {
		for phq := 0; phq <= 27; phq++ {
			for _, gad := range []int{0, 9, 10, 14, 15, 21} {
				want := Max(ChatLevel(label), AssessmentLevel(phq, gad))
				assert.Equal(t, want, Combine(label, phq, gad), "label=%q phq=%d gad=%d", label, phq, gad)
			}
		}
	}
}

func TestLevelOrderAndText(t *testing.T) {
	assert.True(t, Low < Medium && Medium < High)
	assert.Equal(t, High, Max(Medium, High))
	assert.Equal(t, Medium, Max(Medium, Low))
	assert.Equal(t, "Low", Low.String())
	assert.Equal(t, "Medium", Medium.String())
	assert.Equal(t, "High", High.String())
	assert.Equal(t, "Low", Level(9).String())
}
