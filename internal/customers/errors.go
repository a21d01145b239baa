package customers

import (
	"fmt"

	"github.com/labportal/reagent-portal/internal/shared"
)

var (
	// ErrCustomerNotFound is returned when no customer matches the id.
	ErrCustomerNotFound = fmt.Errorf("customer %w", shared.ErrNotFound)
	// ErrUsernameTaken is returned when the username belongs to another account.
	ErrUsernameTaken = fmt.Errorf("username %w", shared.ErrAlreadyExists)
	// ErrReservedUsername is returned when a customer would take the admin login.
	ErrReservedUsername = fmt.Errorf("%w: username %q is reserved", shared.ErrValidation, shared.AdminUsername)
)
