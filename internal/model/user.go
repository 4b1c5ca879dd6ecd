package model

import "time"

// Role is one of the three actor roles collaborating on a report.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleOfficer   Role = "pdrm"
	RoleInsurance Role = "insurance"
)

// User is the identity record the backend of record returns from
// /auth/me. The portal never creates or verifies users; it only reads
// the role to scope list calls.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	ICNumber    string    `json:"ic_number"`
	PhoneNumber string    `json:"phone_number"`
	Role        Role      `json:"user_type"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
