package model

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAdmin, RoleStudent:
		return Role(value), true
	default:
		return "", false
	}
}

type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Role          Role
	StudentNumber *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Slide struct {
	ID        string
	Title     string
	Subtitle  *string
	ImageURL  string
	Position  int32
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Event struct {
	ID          string
	Title       string
	Description *string
	Location    *string
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedAt   time.Time
}

type AttendanceMethod string

const (
	AttendanceMethodQR     AttendanceMethod = "qr"
	AttendanceMethodManual AttendanceMethod = "manual"
)

type AttendanceRecord struct {
	ID        string
	EventID   string
	StudentID string
	TimeIn    time.Time
	TimeOut   *time.Time
	Method    AttendanceMethod
	CreatedAt time.Time
	UpdatedAt time.Time
}
