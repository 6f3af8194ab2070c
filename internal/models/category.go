package models

import "time"

// Category is a reference-data entry (provinces, ethnic groups, ...).
// Categories may nest through ParentID.
type Category struct {
	ID          string
	Name        string
	Code        string
	Value       *string
	Description *string
	ParentID    *string
	IsActive    bool
	IsDeleted   bool
	CreatedBy   *string
	UpdatedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	ParentID *string
	Active   *bool
	Limit    int
	Offset   int
}
