// Package questionnaire scores PHQ-9 and GAD-7 answer sheets.
package questionnaire

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	PHQItems = 9
	GADItems = 7
)

// Answers holds one 0..3 response per item.
type Answers struct {
	PHQ []int `json:"phq" validate:"len=9,dive,min=0,max=3"`
	GAD []int `json:"gad" validate:"len=7,dive,min=0,max=3"`
}

var validate = validator.New()

// Validate checks item counts and ranges.
func (a Answers) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid answers: %w", err)
	}
	return nil
}

// Score returns the PHQ-9 and GAD-7 sums. Negative answers count as 0 and
// the sums saturate at math.MaxInt instead of wrapping.
func Score(a Answers) (phq, gad int) {
	return sum(a.PHQ), sum(a.GAD)
}

// Total is phq+gad, saturating like Score.
func Total(phq, gad int) int {
	return sum([]int{phq, gad})
}

func sum(answers []int) int {
	total := 0
	for _, v := range answers {
		if v <= 0 {
			continue
		}
		if total > math.MaxInt-v {
			return math.MaxInt
		}
		total += v
	}
	return total
}

// FromForm reads q1..q9 and g1..g7. Missing, non-numeric or negative fields
// count as 0. Values above 3 are kept so an oversized sheet still scores High.
func FromForm(values url.Values) Answers {
	a := Answers{PHQ: make([]int, PHQItems), GAD: make([]int, GADItems)}
	for i := range a.PHQ {
		a.PHQ[i] = formInt(values, "q"+strconv.Itoa(i+1))
	}
	for i := range a.GAD {
		a.GAD[i] = formInt(values, "g"+strconv.Itoa(i+1))
	}
	return a
}

func formInt(values url.Values, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(values.Get(key)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
