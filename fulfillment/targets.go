/*
targets.go - Shared target construction for the consuming stages

Invoices and cancellations consume the same thing: confirmed stock net of
prior consumption. Both build their target sets here; the only
differences are the cancellation's optional single-confirmation scope and
its in-progress batch lines.
*/
package fulfillment

import (
	"context"
	"time"

	"github.com/supplyline/fulfillment-engine/ledger"
)

// remainingScope narrows which confirmed stock is eligible.
type remainingScope struct {
	// onOrBefore excludes supply confirmed after the consuming document's
	// own date.
	onOrBefore time.Time

	// confirmationID, when set, restricts consumption to one named
	// confirmation (a cancellation that knows its provenance).
	confirmationID ledger.ConfirmationID
}

// remainingConfirmedTargets nets the product's confirmation lines against
// all invoice and cancellation lines sharing the same provenance, plus
// any batchCancelled lines built earlier in the current in-progress
// batch. Target order follows the confirmed lines' store ordering (order
// date, then confirmation date), the deterministic tie-break.
func (e *Engine) remainingConfirmedTargets(ctx context.Context, productID ledger.ProductID, scope remainingScope, batchCancelled []ledger.CancellationLine) ([]Target, error) {
	confirmed, err := e.Store.ConfirmationLines(ctx, ledger.ConfirmationLineFilter{
		ProductID:           productID,
		ConfirmationID:      scope.confirmationID,
		ConfirmedOnOrBefore: &scope.onOrBefore,
	})
	if err != nil {
		return nil, err
	}
	invoiced, err := e.Store.InvoiceLines(ctx, ledger.InvoiceLineFilter{
		ProductID:      productID,
		ConfirmationID: scope.confirmationID,
	})
	if err != nil {
		return nil, err
	}
	cancelled, err := e.Store.CancellationLines(ctx, ledger.CancellationLineFilter{
		ProductID:      productID,
		ConfirmationID: scope.confirmationID,
	})
	if err != nil {
		return nil, err
	}
	for _, l := range batchCancelled {
		if l.ProductID != productID {
			continue
		}
		if scope.confirmationID != "" && l.ConfirmationID != scope.confirmationID {
			continue
		}
		cancelled = append(cancelled, l)
	}

	left := ledger.LeftPerGroup(confirmed, invoiced, cancelled)
	targets := make([]Target, 0, len(left))
	for _, l := range left {
		targets = append(targets, Target{
			ClientID:       l.ClientID,
			OrderID:        l.OrderID,
			ConfirmationID: l.ConfirmationID,
			Remaining:      l.Quantity,
		})
	}
	return targets, nil
}
