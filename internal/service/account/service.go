package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"wellnessconnect/internal/models"
	"wellnessconnect/internal/risk"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service owns the users table.
type Service struct {
	db       *sql.DB
	validate *validator.Validate
	cost     int
}

// NewService builds an account service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db, validate: validator.New(), cost: bcrypt.DefaultCost}
}

// WithHashCost lowers the bcrypt cost. Tests only.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

type RegisterInput struct {
	Email     string      `json:"email" validate:"required,email,max=255"`
	Name      string      `json:"name" validate:"required,max=255"`
	Role      models.Role `json:"role" validate:"required,oneof=Student Counsellor Admin"`
	Password  string      `json:"password" validate:"required,min=6,max=72"`
	Anonymous bool        `json:"anonymous_flag"`
}

const userColumns = `id, email, name, role, anonymous_flag, password_hash, risk_score, current_stress_level, is_flagged_high, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Anonymous, &u.PasswordHash,
		&u.RiskScore, &u.CurrentStressLevel, &u.IsFlaggedHigh, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Register creates a user with a fresh risk snapshot (0, Low, false).
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Role = models.Role(strings.TrimSpace(string(in.Role)))
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, in.Email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, name, role, anonymous_flag, password_hash, risk_score, current_stress_level, is_flagged_high, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		in.Email, in.Name, in.Role, in.Anonymous, string(hash), risk.Low, false, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return &models.User{
		ID:                 id,
		Email:              in.Email,
		Name:               in.Name,
		Role:               in.Role,
		Anonymous:          in.Anonymous,
		PasswordHash:       string(hash),
		CurrentStressLevel: risk.Low,
		CreatedAt:          now,
	}, nil
}

// Login validates credentials and returns the user profile.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get loads one user. Missing users return sql.ErrNoRows.
func (s *Service) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetWithRole loads a user and checks its role; a role mismatch is reported as sql.ErrNoRows.
func (s *Service) GetWithRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

// ListStudents returns students most at risk first, then by name.
func (s *Service) ListStudents(ctx context.Context) ([]*models.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY risk_score DESC, name ASC`, models.RoleStudent)
}

// ListAll returns every user, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*models.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
}

func (s *Service) list(ctx context.Context, query string, args ...interface{}) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// FirstCounsellor returns the counsellor with the lowest id.
func (s *Service) FirstCounsellor(ctx context.Context) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY id ASC LIMIT 1`, models.RoleCounsellor,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find counsellor: %w", err)
	}
	return user, nil
}

// Delete removes a user and cascaded rows.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountAll returns the number of users.
func (s *Service) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountAtLevel counts users whose stored level equals l.
func (s *Service) CountAtLevel(ctx context.Context, l risk.Level) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE current_stress_level = ?`, l,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users at %s: %w", l, err)
	}
	return n, nil
}

// CountFlaggedHigh counts users whose stored snapshot is High.
func (s *Service) CountFlaggedHigh(ctx context.Context) (int, error) {
	return s.CountAtLevel(ctx, risk.High)
}

// UpdateRiskSnapshot writes only the three risk fields in a single statement.
func (s *Service) UpdateRiskSnapshot(ctx context.Context, userID int64, snap risk.Snapshot) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET risk_score = ?, current_stress_level = ?, is_flagged_high = ? WHERE id = ?`,
		snap.RiskScore, snap.Level, snap.FlaggedHigh, userID,
	)
	if err != nil {
		return fmt.Errorf("update risk snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	// mysql reports 0 affected rows when the values did not change
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("verify user: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return nil
}
