package inventory

import (
	"fmt"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Direction is the way an order moves stock
type Direction string

const (
	// DirectionDeduct removes stock (sale side)
	DirectionDeduct Direction = "deduct"
	// DirectionAdd brings stock in (purchase side)
	DirectionAdd Direction = "add"
)

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// IsValid returns true if the direction is known
func (d Direction) IsValid() bool {
	return d == DirectionDeduct || d == DirectionAdd
}

// Opposite returns the direction that undoes d
func (d Direction) Opposite() Direction {
	if d == DirectionDeduct {
		return DirectionAdd
	}
	return DirectionDeduct
}

// Delta returns the signed stock change for moving quantity in direction d
func (d Direction) Delta(quantity decimal.Decimal) decimal.Decimal {
	if d == DirectionDeduct {
		return quantity.Neg()
	}
	return quantity
}

// NextStock computes the balance after moving quantity from current.
// Stock may never become negative.
func NextStock(current decimal.Decimal, d Direction, quantity decimal.Decimal) (decimal.Decimal, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return current, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}
	next := current.Add(d.Delta(quantity))
	if next.IsNegative() {
		return current, shared.NewInsufficientInventoryError(
			fmt.Sprintf("Insufficient stock: available %s, requested %s", current.String(), quantity.String()))
	}
	return next, nil
}
