package auth

import "github.com/labportal/reagent-portal/internal/shared"

// Account is the credential view of a customer row.
type Account struct {
	ID           int64
	Username     string
	Name         string
	PasswordHash string
}

// Actor returns the session identity for the account. The role follows from
// the username.
func (a Account) Actor() shared.Actor {
	return shared.NewActor(a.ID, a.Username)
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Actor     shared.Actor `json:"actor"`
	CSRFToken string       `json:"csrf_token"`
}

// ChangePasswordRequest replaces the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}
