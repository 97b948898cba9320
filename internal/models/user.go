package models

import (
	"strings"
	"time"
)

// Enrollment role values.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// User represents an account that can submit or grade assignments.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirstName string    `gorm:"size:128;not null" json:"first_name"`
	LastName  string    `gorm:"size:128;not null" json:"last_name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName renders the display name used in grading views and notifications.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Enrollment ties a user to a course with a role. Capabilities are derived
// from the role by the authorizer.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_user" json:"course_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_user" json:"user_id"`
	Role      string    `gorm:"size:32;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}

// Course is the minimal course record the assignment module needs.
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"size:255;not null" json:"full_name"`
	ShortName string    `gorm:"size:64;not null" json:"short_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Scale is a named ordinal grading scale referenced by a negative assignment
// grade descriptor. Items are stored comma separated, lowest first.
type Scale struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:255;not null" json:"name"`
	Items string `gorm:"type:text;not null" json:"items"`
}

// ItemAt returns the scale entry for a one-based grade value.
func (s Scale) ItemAt(value int) (string, bool) {
	items := strings.Split(s.Items, ",")
	if value < 1 || value > len(items) {
		return "", false
	}
	return strings.TrimSpace(items[value-1]), true
}
