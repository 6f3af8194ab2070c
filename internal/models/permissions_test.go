package models

import (
	"reflect"
	"testing"
)

func TestPermissionSetHas(t *testing.T) {
	tests := []struct {
		name     string
		set      PermissionSet
		required string
		expected bool
	}{
		{name: "exact match", set: NewPermissionSet(PermViewPatients), required: PermViewPatients, expected: true},
		{name: "missing permission", set: NewPermissionSet(PermViewPatients), required: PermDeletePatients, expected: false},
		{name: "wildcard grants anything", set: NewPermissionSet(PermissionAll), required: PermDeleteUsers, expected: true},
		{name: "wildcard grants unknown names", set: NewPermissionSet(PermissionAll), required: "NOT_A_PERMISSION", expected: true},
		{name: "empty set", set: NewPermissionSet(), required: PermViewUsers, expected: false},
		{name: "nil set", set: nil, required: PermViewUsers, expected: false},
		{name: "case sensitive", set: NewPermissionSet(PermViewUsers), required: "view_users", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.set.Has(tt.required)
			if result != tt.expected {
				t.Errorf("Has(%q) = %v, want %v", tt.required, result, tt.expected)
			}
		})
	}
}

func TestNewPermissionSet_SkipsBlankNames(t *testing.T) {
	set := NewPermissionSet("", PermViewUsers, "", PermViewUsers)
	if len(set) != 1 {
		t.Errorf("expected 1 permission, got %d", len(set))
	}
}

func TestPermissionSetIsWildcard(t *testing.T) {
	if !NewPermissionSet(PermViewUsers, PermissionAll).IsWildcard() {
		t.Error("expected wildcard set")
	}
	if NewPermissionSet(PermViewUsers).IsWildcard() {
		t.Error("expected non-wildcard set")
	}
}

func TestPermissionSetNames_Sorted(t *testing.T) {
	set := NewPermissionSet(PermViewUsers, PermCreateUsers, PermDeleteUsers)
	expected := []string{PermCreateUsers, PermDeleteUsers, PermViewUsers}
	if got := set.Names(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Names() = %v, want %v", got, expected)
	}
}
