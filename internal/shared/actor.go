package shared

import "strings"

// AdminUsername is the reserved login of the single administrator account.
const AdminUsername = "admin"

// Role identifies what an authenticated account may do.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// RoleFor derives the role of an account from its username.
func RoleFor(username string) Role {
	if username == AdminUsername {
		return RoleAdmin
	}
	return RoleCustomer
}

// Actor is the authenticated account performing an operation.
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// NewActor builds an actor with its role derived from the username.
func NewActor(id int64, username string) Actor {
	username = strings.TrimSpace(username)
	return Actor{ID: id, Username: username, Role: RoleFor(username)}
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
