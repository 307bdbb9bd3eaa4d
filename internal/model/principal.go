package model

import "github.com/google/uuid"

// Roles carried in the access token. Admins pass every role check.
const (
	RoleAdmin          = "admin"
	RoleProjectManager = "project_manager"
	RoleSiteManager    = "site_manager"
	RoleFinance        = "finance"
	RoleClient         = "client"
)

type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Identity is the string recorded in audit fields (createdBy, approvedBy, ...).
func (p Principal) Identity() string {
	if p.Email != "" {
		return p.Email
	}
	return p.UserID.String()
}
