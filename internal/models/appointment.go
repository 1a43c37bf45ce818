package models

import "time"

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "Pending"
	AppointmentApproved  AppointmentStatus = "Approved"
	AppointmentCompleted AppointmentStatus = "Completed"
)

type Appointment struct {
	ID           int64             `json:"id"`
	StudentID    int64             `json:"student_id"`
	CounsellorID int64             `json:"counsellor_id"`
	Date         string            `json:"date"`
	Status       AppointmentStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}
