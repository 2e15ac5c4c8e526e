package models

import "github.com/google/uuid"

// Role is the authorization role carried by an authenticated principal
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleHotel      Role = "hotel"
	RoleTourGuide  Role = "tour_guide"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleHotel, RoleTourGuide, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// Principal is the validated caller identity supplied by the auth layer
type Principal struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

// HasRole reports whether the principal holds any of the given roles
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
