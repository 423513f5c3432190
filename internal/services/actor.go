package services

import "uturn/internal/domain/entities"

type Role string

const (
	RoleVendor Role = "vendor"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

func Vendor(id string) Actor { return Actor{ID: id, Role: RoleVendor} }
func Driver(id string) Actor { return Actor{ID: id, Role: RoleDriver} }
func Admin(id string) Actor  { return Actor{ID: id, Role: RoleAdmin} }

// CanSee reports whether the actor is a party to the job: the owning vendor,
// the assigned driver, or an admin.
func (a Actor) CanSee(j *entities.Job) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleVendor:
		return j.Kind == entities.JobKindBooking && j.VendorID == a.ID
	case RoleDriver:
		return j.AssignedDriverID != "" && j.AssignedDriverID == a.ID
	}
	return false
}

// View returns the job as the actor may see it. Only the owning vendor and
// admins see the trip start code.
func (a Actor) View(j *entities.Job) *entities.Job {
	if a.Role == RoleAdmin || (a.Role == RoleVendor && j.VendorID == a.ID) {
		return j
	}
	return j.Redacted()
}
