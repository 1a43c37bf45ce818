package booking

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellnessconnect/internal/config"
	"wellnessconnect/internal/models"
	"wellnessconnect/internal/storage"
)

type fixedCounsellor struct {
	user *models.User
}

func (f fixedCounsellor) FirstCounsellor(context.Context) (*models.User, error) {
	if f.user == nil {
		return nil, sql.ErrNoRows
	}
	return f.user, nil
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db, "sqlite3"))
	users := []struct {
		id    int64
		email string
		role  models.Role
	}{
		{1, "student@example.com", models.RoleStudent},
		{2, "c1@example.com", models.RoleCounsellor},
		{3, "c2@example.com", models.RoleCounsellor},
	}
	for _, u := range users {
		_, err := db.Exec(`INSERT INTO users (id, email, name, role, password_hash, created_at) VALUES (?, ?, 'n', ?, '', ?)`,
			u.id, u.email, u.role, time.Now().UTC())
		require.NoError(t, err)
	}
	return db
}

func TestRequestAssignsFirstCounsellor(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	ctx := context.Background()

	svc := NewService(db, fixedCounsellor{user: &models.User{ID: 2}})
	appt, err := svc.Request(ctx, 1, " 2026-11-02 ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), appt.CounsellorID)
	assert.Equal(t, "2026-11-02", appt.Date)
	assert.Equal(t, models.AppointmentPending, appt.Status)

	_, err = svc.Request(ctx, 1, "   ")
	assert.ErrorIs(t, err, ErrDateRequired)

	none := NewService(db, fixedCounsellor{})
	_, err = none.Request(ctx, 1, "2026-11-02")
	assert.ErrorIs(t, err, ErrNoCounsellor)
}

func TestUpdateStatusOwnershipAndValues(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	ctx := context.Background()
	svc := NewService(db, fixedCounsellor{user: &models.User{ID: 2}})

	appt, err := svc.Schedule(ctx, 2, 1, "2026-11-05")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdateStatus(ctx, 2, appt.ID, models.AppointmentPending), ErrInvalidStatus)
	assert.ErrorIs(t, svc.UpdateStatus(ctx, 2, appt.ID, "Cancelled"), ErrInvalidStatus)
	assert.ErrorIs(t, svc.UpdateStatus(ctx, 3, appt.ID, models.AppointmentApproved), sql.ErrNoRows)
	assert.ErrorIs(t, svc.UpdateStatus(ctx, 2, 999, models.AppointmentApproved), sql.ErrNoRows)

	require.NoError(t, svc.UpdateStatus(ctx, 2, appt.ID, models.AppointmentApproved))
	list, err := svc.ListForCounsellor(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.AppointmentApproved, list[0].Status)

	require.NoError(t, svc.UpdateStatus(ctx, 2, appt.ID, models.AppointmentCompleted))
}

func TestListForCounsellorOrder(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	ctx := context.Background()
	svc := NewService(db, fixedCounsellor{user: &models.User{ID: 2}})

	for _, d := range []string{"2026-11-01", "2026-12-24", "2026-11-15"} {
		_, err := svc.Schedule(ctx, 2, 1, d)
		require.NoError(t, err)
	}
	_, err := svc.Schedule(ctx, 3, 1, "2027-01-01")
	require.NoError(t, err)

	list, err := svc.ListForCounsellor(ctx, 2)
	require.NoError(t, err)
	var dates []string
	for _, a := range list {
		dates = append(dates, a.Date)
	}
	assert.Equal(t, []string{"2026-12-24", "2026-11-15", "2026-11-01"}, dates)

	n, err := svc.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
