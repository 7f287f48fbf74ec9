package shared

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the operational role of the user performing an action
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleStaff    Role = "staff"
	RoleDelivery Role = "delivery"
	RoleSystem   Role = "system"
)

// ParseRole normalizes a role name; unknown names are kept as-is
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Actor identifies who performs an operation. The role is always passed
// explicitly and never read from ambient state.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role Role
}

// SystemActor is used for actions the engine performs on its own behalf
var SystemActor = Actor{Name: "system", Role: RoleSystem}

// IDPtr returns a pointer to the actor id, or nil for anonymous/system actors
func (a Actor) IDPtr() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}
