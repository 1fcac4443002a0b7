package catalog

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the structural invariants of a product before it is stored:
// non-empty id, name and category, non-negative price and stock, and a
// well-formed image URI when one is present.
func Validate(p Product) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid product %q: %w", p.ID, err)
	}
	return nil
}
