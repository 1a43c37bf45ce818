// Package triage builds the counsellor's risk board and the admin report from
// the stored risk snapshots.
package triage

import (
	"context"
	"fmt"
	"time"

	"wellnessconnect/internal/logger"
	"wellnessconnect/internal/models"
	"wellnessconnect/internal/redis"
	"wellnessconnect/internal/risk"
)

type Users interface {
	ListStudents(ctx context.Context) ([]*models.User, error)
	ListAll(ctx context.Context) ([]*models.User, error)
	CountAll(ctx context.Context) (int, error)
	CountFlaggedHigh(ctx context.Context) (int, error)
}

type Assessments interface {
	LatestAssessments(ctx context.Context, userIDs []int64) (map[int64]*models.Assessment, error)
}

type Appointments interface {
	CountAll(ctx context.Context) (int, error)
}

// StudentEntry is one row of the board. LatestPHQ and LatestGAD are nil when
// the student has never submitted an assessment.
type StudentEntry struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	RiskScore   int        `json:"risk_score"`
	Level       risk.Level `json:"current_stress_level"`
	FlaggedHigh bool       `json:"is_flagged_high"`
	LatestPHQ   *int       `json:"latest_phq"`
	LatestGAD   *int       `json:"latest_gad"`
}

// Board groups students by their stored level, most at risk first inside each group.
type Board struct {
	High   []StudentEntry `json:"high_risk_students"`
	Medium []StudentEntry `json:"medium_risk_students"`
	Low    []StudentEntry `json:"low_risk_students"`
}

type Report struct {
	TotalUsers        int            `json:"total_users"`
	TotalHighRisk     int            `json:"total_high_risk"`
	TotalAppointments int            `json:"total_appointments"`
	Users             []*models.User `json:"users"`
}

type Service struct {
	users        Users
	assessments  Assessments
	appointments Appointments
	cache        *rosterCache
}

// NewService wires the board sources. client may be nil for a process-local cache.
func NewService(users Users, assessments Assessments, appointments Appointments, client *redis.Client, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		users:        users,
		assessments:  assessments,
		appointments: appointments,
		cache:        newRosterCache(client, ttl, log),
	}
}

// Start subscribes to invalidations from other instances until ctx ends.
func (s *Service) Start(ctx context.Context) error {
	if err := s.cache.listen(ctx); err != nil {
		return fmt.Errorf("listen for roster invalidation: %w", err)
	}
	return nil
}

// Invalidate must be called after any change to a student's snapshot or to the
// set of students.
func (s *Service) Invalidate(ctx context.Context, reason string) {
	s.cache.invalidate(ctx, reason)
}

func (s *Service) Board(ctx context.Context) (*Board, error) {
	if b, ok := s.cache.get(ctx); ok {
		return b, nil
	}
	gen := s.cache.snapshot(ctx)
	students, err := s.users.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	ids := make([]int64, len(students))
	for i, u := range students {
		ids[i] = u.ID
	}
	latest, err := s.assessments.LatestAssessments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("latest assessments: %w", err)
	}

	board := &Board{
		High:   []StudentEntry{},
		Medium: []StudentEntry{},
		Low:    []StudentEntry{},
	}
	for _, u := range students {
		entry := StudentEntry{
			ID:          u.ID,
			Name:        u.DisplayName(),
			Email:       u.Email,
			RiskScore:   u.RiskScore,
			Level:       u.CurrentStressLevel,
			FlaggedHigh: u.IsFlaggedHigh,
		}
		if a, ok := latest[u.ID]; ok {
			phq, gad := a.PHQScore, a.GADScore
			entry.LatestPHQ = &phq
			entry.LatestGAD = &gad
		}
		switch u.CurrentStressLevel {
		case risk.High:
			board.High = append(board.High, entry)
		case risk.Medium:
			board.Medium = append(board.Medium, entry)
		default:
			board.Low = append(board.Low, entry)
		}
	}
	s.cache.put(ctx, board, gen)
	return board, nil
}

// Report counts high-risk users from the stored snapshot, not from history.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	total, err := s.users.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	high, err := s.users.CountFlaggedHigh(ctx)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return &Report{
		TotalUsers:        total,
		TotalHighRisk:     high,
		TotalAppointments: appts,
		Users:             users,
	}, nil
}
