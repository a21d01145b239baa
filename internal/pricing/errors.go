package pricing

import (
	"fmt"

	"github.com/labportal/reagent-portal/internal/shared"
)

var (
	// ErrFixedPriceNotFound is returned when the pair has no override.
	ErrFixedPriceNotFound = fmt.Errorf("fixed price %w", shared.ErrNotFound)
	// ErrUnknownParty is returned when the customer or product does not exist.
	ErrUnknownParty = fmt.Errorf("customer or product %w", shared.ErrNotFound)
)
