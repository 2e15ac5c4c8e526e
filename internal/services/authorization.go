package services

import (
	"github.com/google/uuid"
	"github.com/tripnest/booking-core/internal/models"
)

// Action is something a principal attempts on a resource
type Action string

const (
	ActionView           Action = "view"
	ActionCancel         Action = "cancel"
	ActionPay            Action = "pay"
	ActionRequestRefund  Action = "request_refund"
	ActionCheckIn        Action = "check_in"
	ActionCheckOut       Action = "check_out"
	ActionApproveRefund  Action = "approve_refund"
	ActionManageSchedule Action = "manage_schedule"
)

// ResourceKind selects the policy that decides access
type ResourceKind string

const (
	ResourceHotelBooking ResourceKind = "hotel_booking"
	ResourceTourBooking  ResourceKind = "tour_booking"
	ResourceSchedule     ResourceKind = "schedule"
)

// Resource describes the target of an action.
// OwnerID is the customer; ManagerID is the hotel owner or the assigned guide.
type Resource struct {
	Kind      ResourceKind
	OwnerID   uuid.UUID
	ManagerID *uuid.UUID
}

// BookingResource builds the resource for a booking and the party managing it
func BookingResource(b *models.Booking, managerID *uuid.UUID) Resource {
	kind := ResourceHotelBooking
	if b.Kind == models.BookingKindTour {
		kind = ResourceTourBooking
	}
	return Resource{Kind: kind, OwnerID: b.UserID, ManagerID: managerID}
}

// Policy decides whether principal may perform action on res
type Policy func(action Action, res Resource, p models.Principal) bool

// Authorizer dispatches capability checks by resource kind
type Authorizer struct {
	policies map[ResourceKind]Policy
}

// NewAuthorizer creates an authorizer with the booking and schedule policies
func NewAuthorizer() *Authorizer {
	return &Authorizer{
		policies: map[ResourceKind]Policy{
			ResourceHotelBooking: hotelBookingPolicy,
			ResourceTourBooking:  tourBookingPolicy,
			ResourceSchedule:     schedulePolicy,
		},
	}
}

// Authorize reports whether the principal may perform action on res. Unknown kinds are denied.
func (a *Authorizer) Authorize(action Action, res Resource, p models.Principal) bool {
	policy, ok := a.policies[res.Kind]
	if !ok {
		return false
	}
	return policy(action, res, p)
}

func isOwner(res Resource, p models.Principal) bool {
	return p.UserID != uuid.Nil && p.UserID == res.OwnerID
}

func isManager(res Resource, p models.Principal, role models.Role) bool {
	return p.Role == role && res.ManagerID != nil && *res.ManagerID == p.UserID
}

func hotelBookingPolicy(action Action, res Resource, p models.Principal) bool {
	switch action {
	case ActionView:
		return isOwner(res, p) || isManager(res, p, models.RoleHotel) || p.HasRole(models.RoleAdmin)
	case ActionCancel, ActionPay, ActionRequestRefund:
		return isOwner(res, p)
	case ActionCheckIn, ActionCheckOut:
		return isManager(res, p, models.RoleHotel) || p.HasRole(models.RoleAdmin)
	case ActionApproveRefund:
		return isManager(res, p, models.RoleHotel)
	}
	return false
}

func tourBookingPolicy(action Action, res Resource, p models.Principal) bool {
	switch action {
	case ActionView:
		return isOwner(res, p) || isManager(res, p, models.RoleTourGuide) ||
			p.HasRole(models.RoleSupervisor, models.RoleAdmin)
	case ActionCancel, ActionPay, ActionRequestRefund:
		return isOwner(res, p)
	case ActionCheckIn, ActionCheckOut:
		return isManager(res, p, models.RoleTourGuide) || p.HasRole(models.RoleSupervisor, models.RoleAdmin)
	case ActionApproveRefund:
		return p.HasRole(models.RoleSupervisor, models.RoleAdmin)
	}
	return false
}

func schedulePolicy(action Action, _ Resource, p models.Principal) bool {
	switch action {
	case ActionView:
		return true
	case ActionManageSchedule:
		return p.HasRole(models.RoleSupervisor, models.RoleAdmin)
	}
	return false
}
