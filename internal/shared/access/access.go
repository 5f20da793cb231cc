// Package access holds the roles known to the dispatch system and the Actor
// value services use to decide who may act on a job, photo or route.
package access

import (
	"hvac_dispatch_backend/platform/httpkit"

	"github.com/google/uuid"
)

// Role names as carried in the access token "roles" claim.
const (
	RoleOperations = "operations"
	RoleTechnician = "technician"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// Actor is the authenticated caller as seen by services.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

// FromIdentity converts the HTTP identity into an Actor.
func FromIdentity(id httpkit.Identity) Actor {
	return Actor{ID: id.UserID(), Roles: id.Roles()}
}

// Has reports whether the actor holds role.
func (a Actor) Has(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsDispatcher reports whether the actor runs the operations console.
func (a Actor) IsDispatcher() bool {
	return a.Has(RoleOperations) || a.Has(RoleAdmin)
}

// IsTechnicianOf reports whether the actor is the given assigned technician.
func (a Actor) IsTechnicianOf(technicianID uuid.UUID) bool {
	return a.Has(RoleTechnician) && a.ID == technicianID
}

// IsSupervisorOf reports whether the actor is the given assigned supervisor.
func (a Actor) IsSupervisorOf(supervisorID uuid.UUID) bool {
	return a.Has(RoleSupervisor) && a.ID == supervisorID
}

// DispatcherRoles lists the roles allowed on operations endpoints.
func DispatcherRoles() []string {
	return []string{RoleOperations, RoleAdmin}
}
