package models

import "github.com/google/uuid"

// PrincipalKind distinguishes the two identity tables that can take part in chats
type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalAdmin PrincipalKind = "admin"
)

// Principal is an authenticated actor. Participant and sender ids reference
// either table, so the kind travels alongside the id instead of a foreign key.
type Principal struct {
	ID   uuid.UUID     `json:"id"`
	Kind PrincipalKind `json:"kind"`
}

// IsAdmin reports whether the principal came from the admin table
func (p Principal) IsAdmin() bool {
	return p.Kind == PrincipalAdmin
}

// AdminRole is the privilege level of an administrator
type AdminRole string

const (
	AdminRoleSuper     AdminRole = "super_admin"
	AdminRoleAdmin     AdminRole = "admin"
	AdminRoleModerator AdminRole = "moderator"
)
