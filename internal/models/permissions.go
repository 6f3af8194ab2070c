package models

import (
	"sort"
	"time"
)

// PermissionAll is the wildcard capability. A role holding it passes every
// permission and role check. The admin role is seeded with it.
const PermissionAll = "*"

// Built-in role names
const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
	RoleNurse  = "nurse"
	RoleStaff  = "staff"
)

// Permission names
const (
	PermViewUsers        = "VIEW_USERS"
	PermCreateUsers      = "CREATE_USERS"
	PermUpdateUsers      = "UPDATE_USERS"
	PermDeleteUsers      = "DELETE_USERS"
	PermToggleUserStatus = "TOGGLE_USER_STATUS"

	PermViewRoles   = "VIEW_ROLES"
	PermCreateRoles = "CREATE_ROLES"
	PermUpdateRoles = "UPDATE_ROLES"
	PermDeleteRoles = "DELETE_ROLES"

	PermViewPermissions   = "VIEW_PERMISSIONS"
	PermCreatePermissions = "CREATE_PERMISSIONS"
	PermUpdatePermissions = "UPDATE_PERMISSIONS"
	PermDeletePermissions = "DELETE_PERMISSIONS"

	PermViewPatients   = "VIEW_PATIENTS"
	PermCreatePatients = "CREATE_PATIENTS"
	PermUpdatePatients = "UPDATE_PATIENTS"
	PermDeletePatients = "DELETE_PATIENTS"

	PermViewMedicalRecords   = "VIEW_MEDICAL_RECORDS"
	PermCreateMedicalRecords = "CREATE_MEDICAL_RECORDS"
	PermUpdateMedicalRecords = "UPDATE_MEDICAL_RECORDS"
	PermDeleteMedicalRecords = "DELETE_MEDICAL_RECORDS"

	PermViewAppointments   = "VIEW_APPOINTMENTS"
	PermCreateAppointments = "CREATE_APPOINTMENTS"
	PermUpdateAppointments = "UPDATE_APPOINTMENTS"
	PermDeleteAppointments = "DELETE_APPOINTMENTS"

	PermViewPrescriptions   = "VIEW_PRESCRIPTIONS"
	PermCreatePrescriptions = "CREATE_PRESCRIPTIONS"
	PermUpdatePrescriptions = "UPDATE_PRESCRIPTIONS"
	PermDeletePrescriptions = "DELETE_PRESCRIPTIONS"

	PermViewInventory   = "VIEW_INVENTORY"
	PermCreateInventory = "CREATE_INVENTORY"
	PermUpdateInventory = "UPDATE_INVENTORY"
	PermDeleteInventory = "DELETE_INVENTORY"

	PermViewReports   = "VIEW_REPORTS"
	PermCreateReports = "CREATE_REPORTS"
	PermExportReports = "EXPORT_REPORTS"

	PermViewSystemSettings   = "VIEW_SYSTEM_SETTINGS"
	PermUpdateSystemSettings = "UPDATE_SYSTEM_SETTINGS"

	PermViewHealthMonitoring   = "VIEW_HEALTH_MONITORING"
	PermCreateHealthMonitoring = "CREATE_HEALTH_MONITORING"
	PermUpdateHealthMonitoring = "UPDATE_HEALTH_MONITORING"
)

// Role is a named bundle of permissions.
type Role struct {
	ID          string
	Name        string
	Description *string
	IsActive    bool
	IsDeleted   bool
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is a named capability that can be granted to roles.
type Permission struct {
	ID          string
	Name        string
	Description *string
	IsActive    bool
	CreatedAt   time.Time
}

// PermissionSet is the set of capabilities held by a caller.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from permission names, skipping blanks.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Has checks whether the set grants the required permission.
// The wildcard grants everything.
func (s PermissionSet) Has(required string) bool {
	if _, ok := s[PermissionAll]; ok {
		return true
	}
	_, ok := s[required]
	return ok
}

// IsWildcard reports whether the set holds the wildcard capability.
func (s PermissionSet) IsWildcard() bool {
	_, ok := s[PermissionAll]
	return ok
}

// Names returns the permission names in sorted order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
