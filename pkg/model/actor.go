package model

// Role of the caller as asserted by the upstream identity provider.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the trusted identity attached to every call. The core never
// authenticates; it receives the resolved id, role and contact profile from
// the identity collaborator.
type Actor struct {
	ID    string `json:"id" validate:"required,mongodb"`
	Role  Role   `json:"role" validate:"required,oneof=user admin"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
