package catalog

import (
	"fmt"

	"github.com/labportal/reagent-portal/internal/shared"
)

var (
	// ErrProductNotFound is returned when no product matches the id or code.
	ErrProductNotFound = fmt.Errorf("product %w", shared.ErrNotFound)
	// ErrProductInUse is returned when deleting a product that order lines still reference.
	ErrProductInUse = fmt.Errorf("%w: product is referenced by orders", shared.ErrInUse)
)
