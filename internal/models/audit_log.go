package models

import (
	"time"
)

// Actions recorded in the authentication audit log
const (
	AuditActionLogin       = "login"
	AuditActionLogout      = "logout"
	AuditActionLoginFailed = "login_failed"
	AuditActionRegister    = "register"
	AuditActionRefresh     = "refresh_token"
	AuditActionUserCreated = "user_created"
)

// AuthAuditLog is an append-only record of an authentication event.
type AuthAuditLog struct {
	ID        string    `db:"id"`
	UserID    *string   `db:"user_id"`
	Action    string    `db:"action"`
	IPAddress *string   `db:"ip_address"`
	UserAgent *string   `db:"user_agent"`
	Success   bool      `db:"success"`
	CreatedAt time.Time `db:"created_at"`
}

// AuditLogFilter narrows audit log reports.
type AuditLogFilter struct {
	UserID  *string
	Action  *string
	Success *bool
	Limit   int
	Offset  int
}
