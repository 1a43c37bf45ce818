package models

import (
	"time"

	"wellnessconnect/internal/risk"
)

type Role string

const (
	RoleStudent    Role = "Student"
	RoleCounsellor Role = "Counsellor"
	RoleAdmin      Role = "Admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleCounsellor, RoleAdmin:
		return true
	}
	return false
}

// DashboardPath is where a user of this role lands after login.
func (r Role) DashboardPath() string {
	switch r {
	case RoleStudent:
		return "/api/student/dashboard"
	case RoleCounsellor:
		return "/api/counsellor/dashboard"
	case RoleAdmin:
		return "/api/admin/dashboard"
	}
	return ""
}

// User is an account together with its derived risk snapshot. The snapshot
// fields are written only through risk.Updater.
type User struct {
	ID                 int64      `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Role               Role       `json:"role"`
	Anonymous          bool       `json:"anonymous_flag"`
	PasswordHash       string     `json:"-"`
	RiskScore          int        `json:"risk_score"`
	CurrentStressLevel risk.Level `json:"current_stress_level"`
	IsFlaggedHigh      bool       `json:"is_flagged_high"`
	CreatedAt          time.Time  `json:"created_at"`
}

func (u *User) RiskUserID() int64 { return u.ID }

func (u *User) SetRiskSnapshot(s risk.Snapshot) {
	u.RiskScore = s.RiskScore
	u.CurrentStressLevel = s.Level
	u.IsFlaggedHigh = s.FlaggedHigh
}

// Snapshot returns the stored risk fields.
func (u *User) Snapshot() risk.Snapshot {
	return risk.Snapshot{
		RiskScore:   u.RiskScore,
		Level:       u.CurrentStressLevel,
		FlaggedHigh: u.IsFlaggedHigh,
	}
}

// DisplayName hides the name of students who registered anonymously.
func (u *User) DisplayName() string {
	if u.Anonymous && u.Role == RoleStudent {
		return "Anonymous Student"
	}
	return u.Name
}
