package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a student account. The chat core only reads it.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id" gorm:"type:text;primaryKey"`
	Name         string     `json:"name" db:"name" gorm:"not null"`
	Email        string     `json:"email" db:"email" gorm:"uniqueIndex;not null"`
	CollegeID    *uuid.UUID `json:"collegeId,omitempty" db:"college_id" gorm:"type:text"`
	DepartmentID *uuid.UUID `json:"departmentId,omitempty" db:"department_id" gorm:"type:text"`
	Year         *string    `json:"year,omitempty" db:"year"`
	IsApproved   bool       `json:"isApproved" db:"is_approved"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

func (User) TableName() string { return "users" }

// Admin is an administrator account. Admins can chat like users.
type Admin struct {
	ID         uuid.UUID `json:"id" db:"id" gorm:"type:text;primaryKey"`
	Name       string    `json:"name" db:"name" gorm:"not null"`
	Email      string    `json:"email" db:"email" gorm:"uniqueIndex;not null"`
	Role       AdminRole `json:"role" db:"role" gorm:"type:text;default:admin"`
	IsApproved bool      `json:"isApproved" db:"is_approved"`
	IsActive   bool      `json:"isActive" db:"is_active" gorm:"default:true"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

func (Admin) TableName() string { return "admins" }

// CanSignIn reports whether the admin passed approval; super admins are approved implicitly
func (a *Admin) CanSignIn() bool {
	return a.Role == AdminRoleSuper || a.IsApproved
}
