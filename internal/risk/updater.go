package risk

import (
	"context"
	"fmt"
)

// Snapshot is the derived risk state stored on a user record.
type Snapshot struct {
	RiskScore   int   `json:"risk_score"`
	Level       Level `json:"current_stress_level"`
	FlaggedHigh bool  `json:"is_flagged_high"`
}

var ordinals = [...]int{
	Low:    1,
	Medium: 2,
	High:   3,
}

// Ordinal is the numeric encoding used for sorting and reporting.
func Ordinal(l Level) int {
	if int(l) < len(ordinals) {
		return ordinals[l]
	}
	return 0
}

// SnapshotFor derives all three stored fields from a single level.
func SnapshotFor(l Level) Snapshot {
	return Snapshot{
		RiskScore:   Ordinal(l),
		Level:       l,
		FlaggedHigh: l == High,
	}
}

// Signals are the raw inputs for one risk update. Zero values mean the channel
// was not part of this call.
type Signals struct {
	ChatLabel string
	PHQ       int
	GAD       int
}

// Level classifies the signals.
func (s Signals) Level() Level {
	return Combine(s.ChatLabel, s.PHQ, s.GAD)
}

// SnapshotWriter persists only the three snapshot fields of a user, as one write.
type SnapshotWriter interface {
	UpdateRiskSnapshot(ctx context.Context, userID int64, snap Snapshot) error
}

// Record is the in-memory user the updater mirrors the snapshot onto.
type Record interface {
	RiskUserID() int64
	SetRiskSnapshot(Snapshot)
}

// Updater applies combined classifications to user records.
type Updater struct {
	writer SnapshotWriter
}

// NewUpdater returns an Updater persisting through w.
func NewUpdater(w SnapshotWriter) *Updater {
	return &Updater{writer: w}
}

// Apply recomputes the user's level from sig alone, persists the snapshot and
// returns the level. Prior stored levels are not consulted. The record is only
// modified once the write succeeds.
func (u *Updater) Apply(ctx context.Context, rec Record, sig Signals) (Level, error) {
	final := sig.Level()
	snap := SnapshotFor(final)
	if err := u.writer.UpdateRiskSnapshot(ctx, rec.RiskUserID(), snap); err != nil {
		return final, fmt.Errorf("apply risk snapshot: %w", err)
	}
	rec.SetRiskSnapshot(snap)
	return final, nil
}
