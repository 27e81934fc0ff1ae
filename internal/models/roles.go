package models

// Role is the access level attached to a back-office account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTreasurer Role = "treasurer"
	RoleViewer    Role = "viewer"
)

// Valid reports whether the role is one of the known access levels.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTreasurer, RoleViewer:
		return true
	}
	return false
}

// Status marks whether an account may authenticate.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)
