package profit

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/errors"
)

var (
	marginFloor = decimal.Zero
	marginCeil  = decimal.NewFromInt(1)
)

// Calculator derives the operator's profit from an order's line items.
// Pure: no I/O, deterministic for the same inputs.
type Calculator struct {
	defaultMargin decimal.Decimal
}

func NewCalculator(defaultMargin string) (*Calculator, error) {
	margin, err := decimal.NewFromString(defaultMargin)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidAmount, err, "parse default margin")
	}
	if err := validateMargin(margin); err != nil {
		return nil, err
	}
	return &Calculator{defaultMargin: margin}, nil
}

// Calculate sums per-item profit (total × margin) across line items,
// falling back to order total × default margin when the order has no
// items. The result is rounded half-up to whole cents.
func (c *Calculator) Calculate(order *models.Order) (int64, error) {
	if order == nil {
		return 0, errors.New(errors.CodeInvalidAmount, "order is required")
	}
	if len(order.Items) == 0 {
		if order.TotalCents < 0 {
			return 0, errors.New(errors.CodeInvalidAmount, "order total must not be negative")
		}
		return roundCents(decimal.NewFromInt(order.TotalCents).Mul(c.defaultMargin)), nil
	}

	sum := decimal.Zero
	for i := range order.Items {
		item := &order.Items[i]
		if err := validateItem(item); err != nil {
			return 0, err
		}
		margin := c.defaultMargin
		if item.MarginFraction != nil {
			margin = *item.MarginFraction
			if err := validateMargin(margin); err != nil {
				return 0, err
			}
		}
		sum = sum.Add(decimal.NewFromInt(item.TotalCents).Mul(margin))
	}
	return roundCents(sum), nil
}

func validateItem(item *models.OrderItem) error {
	if item.Qty <= 0 {
		return errors.New(errors.CodeInvalidAmount, fmt.Sprintf("item %s quantity must be positive", item.ID))
	}
	if item.UnitPriceCents < 0 {
		return errors.New(errors.CodeInvalidAmount, fmt.Sprintf("item %s unit price must not be negative", item.ID))
	}
	if item.TotalCents != int64(item.Qty)*item.UnitPriceCents {
		return errors.New(errors.CodeInvalidAmount, fmt.Sprintf("item %s total does not equal qty x unit price", item.ID))
	}
	return nil
}

func validateMargin(margin decimal.Decimal) error {
	if margin.LessThan(marginFloor) || margin.GreaterThan(marginCeil) {
		return errors.New(errors.CodeInvalidAmount, "margin fraction must be within [0,1]")
	}
	return nil
}

func roundCents(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
