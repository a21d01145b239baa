package orders

import (
	"fmt"

	"github.com/labportal/reagent-portal/internal/shared"
)

var (
	// ErrOrderNotFound is returned for missing orders and for orders owned by
	// another customer.
	ErrOrderNotFound = fmt.Errorf("order %w", shared.ErrNotFound)
	// ErrInvalidStatus is returned when the lifecycle forbids a transition.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status transition", shared.ErrConflict)
	// ErrEmptyOrder is returned when submitting an order without lines.
	ErrEmptyOrder = fmt.Errorf("%w: order has no lines", shared.ErrConflict)
	// ErrUnknownProduct is returned when a line references a missing product.
	ErrUnknownProduct = fmt.Errorf("%w: order line references an unknown product", shared.ErrValidation)
)
