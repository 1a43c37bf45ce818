package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecord struct {
	id   int64
	snap Snapshot
	name string
}

func (r *fakeRecord) RiskUserID() int64 { return r.id }
func (r *fakeRecord) SetRiskSnapshot(s Snapshot) { r.snap = s }

type memWriter struct {
	rows  map[int64]Snapshot
	calls int
	err   error
}

func (w *memWriter) UpdateRiskSnapshot(ctx context.Context, userID int64, snap Snapshot) error {
	w.calls++
	if w.err != nil {
		return w.err
	}
	if w.rows == nil {
		w.rows = make(map[int64]Snapshot)
	}
	w.rows[userID] = snap
	return nil
}

func TestSnapshotForIsConsistent(t *testing.T) {
	for _, l := range []Level{Low, Medium, High} {
		s := SnapshotFor(l)
		assert.Equal(t, Ordinal(l), s.RiskScore)
		assert.Equal(t, l, s.Level)
		assert.Equal(t, l == High, s.FlaggedHigh)
	}
	assert.Equal(t, 1, Ordinal(Low))
	assert.Equal(t, 2, Ordinal(Medium))
	assert.Equal(t, 3, Ordinal(High))
}

func TestApplyWritesConsistentTriple(t *testing.T) {
	w := &memWriter{}
	u := NewUpdater(w)
	rec := &fakeRecord{id: 7}
	ctx := context.Background()

	for _, label := range []string{"", "Low", "Medium", "High", "??"} {
		for phq := 0; phq <= 27; phq += 3 {
			for gad := 0; gad <= 21; gad += 7 {
				got, err := u.Apply(ctx, rec, Signals{ChatLabel: label, PHQ: phq, GAD: gad})
				require.NoError(t, err)
				stored := w.rows[7]
				assert.Equal(t, got, stored.Level)
				assert.Equal(t, Ordinal(stored.Level), stored.RiskScore)
				assert.Equal(t, stored.Level == High, stored.FlaggedHigh)
				assert.Equal(t, stored, rec.snap)
			}
		}
	}
}

func TestApplyDoesNotCarryHistory(t *testing.T) {
	w := &memWriter{}
	u := NewUpdater(w)
	rec := &fakeRecord{id: 1, name: "student"}
	ctx := context.Background()

	got, err := u.Apply(ctx, rec, Signals{ChatLabel: "Medium"})
	require.NoError(t, err)
	assert.Equal(t, Medium, got)
	assert.Equal(t, Snapshot{RiskScore: 2, Level: Medium, FlaggedHigh: false}, w.rows[1])

	got, err = u.Apply(ctx, rec, Signals{PHQ: 16, GAD: 3})
	require.NoError(t, err)
	assert.Equal(t, High, got)
	assert.Equal(t, Snapshot{RiskScore: 3, Level: High, FlaggedHigh: true}, w.rows[1])

	got, err = u.Apply(ctx, rec, Signals{ChatLabel: "Low"})
	require.NoError(t, err)
	assert.Equal(t, Low, got, "a calmer message lowers the level")
	assert.Equal(t, Snapshot{RiskScore: 1, Level: Low}, rec.snap)
	assert.Equal(t, "student", rec.name)
}

func TestApplyPropagatesWriteError(t *testing.T) {
	boom := errors.New("disk full")
	w := &memWriter{err: boom}
	rec := &fakeRecord{id: 3}

	got, err := NewUpdater(w).Apply(context.Background(), rec, Signals{ChatLabel: "High"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, High, got)
	assert.Equal(t, Snapshot{}, rec.snap, "record untouched on failed write")
	assert.Equal(t, 1, w.calls)
}
