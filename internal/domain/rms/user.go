package rms

import "time"

// RmsUser is a console user synced from the identity provider.
type RmsUser struct {
	Entity
	KeycloakUserID string     `json:"keycloakUserId"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FirstName      *string    `json:"firstName,omitempty"`
	LastName       *string    `json:"lastName,omitempty"`
	PhoneNumber    *string    `json:"phoneNumber,omitempty"`
	IsActive       *bool      `json:"isActive,omitempty"`
	LastSyncDate   *time.Time `json:"lastSyncDate,omitempty"`
}

// UserBranchRole grants a role to a user for one branch.
type UserBranchRole struct {
	Entity
	UserID   string `json:"userId"`
	BranchID string `json:"branchId"`
	RoleID   string `json:"roleId"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// Permission is a single grantable capability.
type Permission struct {
	Entity
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// RolePermission is a role and the permissions bundled into it.
type RolePermission struct {
	Entity
	Code          string       `json:"code"`
	Name          string       `json:"name"`
	Description   *string      `json:"description,omitempty"`
	Permissions   []Permission `json:"permissions,omitempty"`
	PermissionIDs []string     `json:"permissionIds,omitempty"`
	IsActive      *bool        `json:"isActive,omitempty"`
}
