package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"wellnessconnect/internal/models"
)

var (
	ErrNoCounsellor  = errors.New("no counsellor available, please try later")
	ErrInvalidStatus = errors.New("invalid status")
	ErrDateRequired  = errors.New("please select a date")
)

// CounsellorFinder picks the counsellor assigned to student requests.
type CounsellorFinder interface {
	FirstCounsellor(ctx context.Context) (*models.User, error)
}

// Service manages counselling appointments.
type Service struct {
	db          *sql.DB
	counsellors CounsellorFinder
}

func NewService(db *sql.DB, counsellors CounsellorFinder) *Service {
	return &Service{db: db, counsellors: counsellors}
}

// Request books a pending appointment for a student with the first counsellor.
func (s *Service) Request(ctx context.Context, studentID int64, date string) (*models.Appointment, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, ErrDateRequired
	}
	counsellor, err := s.counsellors.FirstCounsellor(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoCounsellor
		}
		return nil, fmt.Errorf("find counsellor: %w", err)
	}
	return s.insert(ctx, studentID, counsellor.ID, date)
}

// Schedule books a pending appointment initiated by a counsellor.
func (s *Service) Schedule(ctx context.Context, counsellorID, studentID int64, date string) (*models.Appointment, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, ErrDateRequired
	}
	return s.insert(ctx, studentID, counsellorID, date)
}

func (s *Service) insert(ctx context.Context, studentID, counsellorID int64, date string) (*models.Appointment, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments (student_id, counsellor_id, date, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		studentID, counsellorID, date, models.AppointmentPending, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("appointment id: %w", err)
	}
	return &models.Appointment{
		ID:           id,
		StudentID:    studentID,
		CounsellorID: counsellorID,
		Date:         date,
		Status:       models.AppointmentPending,
		CreatedAt:    now,
	}, nil
}

// UpdateStatus moves one of the counsellor's own appointments to Approved or
// Completed. Appointments of other counsellors report sql.ErrNoRows.
func (s *Service) UpdateStatus(ctx context.Context, counsellorID, id int64, status models.AppointmentStatus) error {
	switch status {
	case models.AppointmentApproved, models.AppointmentCompleted:
	default:
		return ErrInvalidStatus
	}
	var owner int64
	err := s.db.QueryRowContext(ctx,
		`SELECT counsellor_id FROM appointments WHERE id = ?`, id,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("load appointment: %w", err)
	}
	if owner != counsellorID {
		return sql.ErrNoRows
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE appointments SET status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

// ListForCounsellor returns the counsellor's appointments, latest date first.
func (s *Service) ListForCounsellor(ctx context.Context, counsellorID int64) ([]*models.Appointment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, counsellor_id, date, status, created_at
		 FROM appointments WHERE counsellor_id = ? ORDER BY date DESC, id DESC`, counsellorID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []*models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.StudentID, &a.CounsellorID, &a.Date, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Service) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return n, nil
}
