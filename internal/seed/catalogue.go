package seed

import "github.com/clinicwise/clinic-backend/internal/models"

// PermissionDef is a permission row to seed
type PermissionDef struct {
	Name        string
	Description string
}

// RoleDef is a built-in role and the permissions granted to it
type RoleDef struct {
	Name        string
	Description string
	Permissions []string
}

// CategoryDef is a starter category. Parent names another category's code.
type CategoryDef struct {
	Name        string
	Code        string
	Value       string
	Description string
	Parent      string
}

// Permissions is the permission catalogue, including the wildcard held by admin
var Permissions = []PermissionDef{
	{models.PermissionAll, "Every permission"},

	{models.PermViewUsers, "View users"},
	{models.PermCreateUsers, "Create users"},
	{models.PermUpdateUsers, "Update users"},
	{models.PermDeleteUsers, "Delete users"},
	{models.PermToggleUserStatus, "Activate or deactivate users"},

	{models.PermViewRoles, "View roles"},
	{models.PermCreateRoles, "Create roles"},
	{models.PermUpdateRoles, "Update roles"},
	{models.PermDeleteRoles, "Delete roles"},

	{models.PermViewPermissions, "View permissions"},
	{models.PermCreatePermissions, "Create permissions"},
	{models.PermUpdatePermissions, "Update permissions"},
	{models.PermDeletePermissions, "Delete permissions"},

	{models.PermViewPatients, "View patients"},
	{models.PermCreatePatients, "Create patient records"},
	{models.PermUpdatePatients, "Update patient records"},
	{models.PermDeletePatients, "Delete patient records"},

	{models.PermViewMedicalRecords, "View medical records"},
	{models.PermCreateMedicalRecords, "Create medical records"},
	{models.PermUpdateMedicalRecords, "Update medical records"},
	{models.PermDeleteMedicalRecords, "Delete medical records"},

	{models.PermViewAppointments, "View appointments"},
	{models.PermCreateAppointments, "Create appointments"},
	{models.PermUpdateAppointments, "Update appointments"},
	{models.PermDeleteAppointments, "Delete appointments"},

	{models.PermViewPrescriptions, "View prescriptions"},
	{models.PermCreatePrescriptions, "Create prescriptions"},
	{models.PermUpdatePrescriptions, "Update prescriptions"},
	{models.PermDeletePrescriptions, "Delete prescriptions"},

	{models.PermViewInventory, "View drug inventory"},
	{models.PermCreateInventory, "Add drugs to inventory"},
	{models.PermUpdateInventory, "Update drug inventory"},
	{models.PermDeleteInventory, "Remove drugs from inventory"},

	{models.PermViewReports, "View reports"},
	{models.PermCreateReports, "Create reports"},
	{models.PermExportReports, "Export reports"},

	{models.PermViewSystemSettings, "View system settings"},
	{models.PermUpdateSystemSettings, "Update system settings"},

	{models.PermViewHealthMonitoring, "View health monitoring"},
	{models.PermCreateHealthMonitoring, "Create health monitoring entries"},
	{models.PermUpdateHealthMonitoring, "Update health monitoring entries"},
}

// Roles are the built-in roles. Admin holds only the wildcard.
var Roles = []RoleDef{
	{
		Name:        models.RoleAdmin,
		Description: "System administrator",
		Permissions: []string{models.PermissionAll},
	},
	{
		Name:        models.RoleDoctor,
		Description: "Doctor",
		Permissions: []string{
			models.PermViewPatients, models.PermCreatePatients, models.PermUpdatePatients,
			models.PermViewMedicalRecords, models.PermCreateMedicalRecords, models.PermUpdateMedicalRecords,
			models.PermViewAppointments, models.PermCreateAppointments, models.PermUpdateAppointments,
			models.PermViewPrescriptions, models.PermCreatePrescriptions, models.PermUpdatePrescriptions,
			models.PermViewInventory, models.PermUpdateInventory,
			models.PermViewReports, models.PermCreateReports, models.PermExportReports,
			models.PermViewHealthMonitoring, models.PermCreateHealthMonitoring, models.PermUpdateHealthMonitoring,
		},
	},
	{
		Name:        models.RoleNurse,
		Description: "Nurse",
		Permissions: []string{
			models.PermViewPatients, models.PermUpdatePatients,
			models.PermViewMedicalRecords, models.PermUpdateMedicalRecords,
			models.PermViewAppointments, models.PermUpdateAppointments,
			models.PermViewPrescriptions, models.PermUpdatePrescriptions,
			models.PermViewInventory, models.PermUpdateInventory,
			models.PermViewReports,
			models.PermViewHealthMonitoring, models.PermCreateHealthMonitoring, models.PermUpdateHealthMonitoring,
		},
	},
	{
		Name:        models.RoleStaff,
		Description: "Clinic staff",
		Permissions: []string{
			models.PermViewPatients,
			models.PermViewMedicalRecords,
			models.PermViewAppointments, models.PermCreateAppointments,
			models.PermViewInventory,
			models.PermViewReports,
			models.PermViewHealthMonitoring,
		},
	},
}

// Categories are the starter reference data. Parents come before their children.
var Categories = []CategoryDef{
	{Name: "Provinces", Code: "PROVINCE", Description: "Provinces and cities"},
	{Name: "Hà Nội", Code: "HANOI", Value: "Hà Nội", Parent: "PROVINCE"},
	{Name: "TP. Hồ Chí Minh", Code: "HCM", Value: "TP. Hồ Chí Minh", Parent: "PROVINCE"},
	{Name: "Đà Nẵng", Code: "DANANG", Value: "Đà Nẵng", Parent: "PROVINCE"},

	{Name: "Chronic diseases", Code: "CHRONIC_DISEASE", Description: "Chronic conditions tracked on patient records"},
	{Name: "Diabetes", Code: "DIABETES", Parent: "CHRONIC_DISEASE"},
	{Name: "Hypertension", Code: "HYPERTENSION", Parent: "CHRONIC_DISEASE"},
	{Name: "Cardiovascular", Code: "CARDIOVASCULAR", Parent: "CHRONIC_DISEASE"},
	{Name: "Asthma", Code: "ASTHMA", Parent: "CHRONIC_DISEASE"},

	{Name: "Care levels", Code: "CARE_LEVEL", Description: "Levels of patient care"},
	{Name: "Intensive care", Code: "INTENSIVE_CARE", Parent: "CARE_LEVEL"},
	{Name: "General care", Code: "GENERAL_CARE", Parent: "CARE_LEVEL"},
	{Name: "Home care", Code: "HOME_CARE", Parent: "CARE_LEVEL"},
	{Name: "Day care", Code: "DAY_CARE", Parent: "CARE_LEVEL"},
}
