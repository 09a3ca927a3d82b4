package model

import "fmt"

// Role is the account role assigned at registration. It is immutable for
// the lifetime of the account; there is no role-change flow.
type Role string

const (
	RolePatient      Role = "patient"
	RoleDoctor       Role = "doctor"
	RolePharmacist   Role = "pharmacist"
	RoleReceptionist Role = "receptionist"
	RoleAdmin        Role = "admin"
)

// Roles lists every assignable role.
var Roles = []Role{RolePatient, RoleDoctor, RolePharmacist, RoleReceptionist, RoleAdmin}

func (r Role) String() string { return string(r) }

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RolePharmacist, RoleReceptionist, RoleAdmin:
		return true
	}
	return false
}

// HasProfile reports whether the role carries a role profile and therefore
// goes through onboarding. Admin accounts have neither.
func (r Role) HasProfile() bool {
	return r != RoleAdmin
}

// DashboardPath is the role's dashboard route prefix.
func (r Role) DashboardPath() string {
	return fmt.Sprintf("/%s/dashboard", r)
}

// OnboardingPath is the role's onboarding route prefix.
func (r Role) OnboardingPath() string {
	return fmt.Sprintf("/%s/onboarding", r)
}

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
