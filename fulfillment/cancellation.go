/*
cancellation.go - Withdrawal of confirmed, not-yet-invoiced quantity

PURPOSE:
  A cancellation is strictly a reduction against existing confirmed
  stock. The targets are the same as for invoices (confirmed net of
  invoiced and cancelled), optionally narrowed to the confirmation the
  row names, and the netting counts lines built earlier in the same
  in-progress batch. Unlike confirmations and invoices there is no
  Unknown fallback: quantity that no target can absorb is an
  over-cancellation error and aborts the whole batch, including other
  valid product groups in the same request.
*/
package fulfillment

import (
	"context"

	"github.com/supplyline/fulfillment-engine/ledger"
)

// CreateCancellation validates the document, allocates each product
// group against remaining confirmed stock, and persists the cancellation
// with its full line set atomically. Over-cancellation anywhere means
// nothing is written. Returns the created lines.
func (e *Engine) CreateCancellation(ctx context.Context, c ledger.Cancellation, rows []Row) ([]ledger.CancellationLine, error) {
	if c.ID == "" {
		return nil, &ledger.ValidationError{Field: "id", Value: c.ID, Reason: "required"}
	}
	if err := e.requireSupplier(ctx, c.SupplierID); err != nil {
		return nil, err
	}
	if err := e.requireBrand(ctx, c.BrandID); err != nil {
		return nil, err
	}
	c.CancellationDate = normalizeDate(c.CancellationDate)

	groups, err := groupByProduct(rows)
	if err != nil {
		return nil, err
	}

	var lines []ledger.CancellationLine
	for _, g := range groups {
		// Cancellations never create products: you cannot withdraw stock
		// that was never confirmed.
		p, err := e.Store.GetProduct(ctx, g.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, &ledger.NotFoundError{Kind: "product", ID: string(g.ProductID)}
		}
		if g.ConfirmationID != "" {
			conf, err := e.Store.GetConfirmation(ctx, g.ConfirmationID)
			if err != nil {
				return nil, err
			}
			if conf == nil {
				return nil, &ledger.NotFoundError{Kind: "confirmation", ID: string(g.ConfirmationID)}
			}
		}

		targets, err := e.remainingConfirmedTargets(ctx, g.ProductID, remainingScope{
			onOrBefore:     c.CancellationDate,
			confirmationID: g.ConfirmationID,
		}, lines)
		if err != nil {
			return nil, err
		}

		allocs, leftover := Distribute(g.Total, targets)
		if leftover > 0 {
			return nil, &ledger.OverCancellationError{ProductID: g.ProductID, Excess: leftover}
		}
		for _, a := range allocs {
			lines = append(lines, ledger.CancellationLine{
				CancellationID: c.ID,
				ClientID:       a.ClientID,
				ProductID:      g.ProductID,
				ConfirmationID: a.ConfirmationID,
				OrderID:        a.OrderID,
				Quantity:       a.Quantity,
			})
		}
	}

	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	if err := e.Store.SaveCancellation(ctx, c, lines); err != nil {
		return nil, err
	}
	return lines, nil
}
