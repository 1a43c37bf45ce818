package risk

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Level is the ordered stress classification Low < Medium < High.
type Level uint8

const (
	Low Level = iota
	Medium
	High
)

var levelNames = [...]string{
	Low:    "Low",
	Medium: "Medium",
	High:   "High",
}

// String returns the canonical label. Out-of-range values read as Low.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return levelNames[Low]
}

// ParseLevel maps an exact, already-trimmed label to a Level. Anything that is
// not "Medium" or "High" is Low.
func ParseLevel(label string) Level {
	switch label {
	case "High":
		return High
	case "Medium":
		return Medium
	default:
		return Low
	}
}

// Max returns the more severe of a and b.
func Max(a, b Level) Level {
	if b > a {
		return b
	}
	return a
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode level: %w", err)
	}
	*l = ParseLevel(strings.TrimSpace(s))
	return nil
}

// Value stores the level as its label.
func (l Level) Value() (driver.Value, error) {
	return l.String(), nil
}

// Scan reads a label column. NULL and unknown labels become Low.
func (l *Level) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = Low
	case string:
		*l = ParseLevel(strings.TrimSpace(v))
	case []byte:
		*l = ParseLevel(strings.TrimSpace(string(v)))
	default:
		return fmt.Errorf("scan level: unsupported type %T", src)
	}
	return nil
}
