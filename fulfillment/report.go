/*
report.go - Reconciliation report over outstanding quantities

PURPOSE:
  The read-only pass that answers "what is still open?". It drives the
  ledger's netting across every known product, resolves IDs to display
  names, and returns a denormalized, sorted result for rendering or
  export by an outside collaborator. No allocation side effects; safe to
  run at any time, accepting that a concurrent allocation may commit
  between reads.

  Absence of data is an empty report, never an error.
*/
package fulfillment

import (
	"context"
	"sort"

	"github.com/supplyline/fulfillment-engine/ledger"
)

// BalanceScope optionally restricts the balance to one confirmation
// and/or one order. The zero value means everything.
type BalanceScope struct {
	ConfirmationID ledger.ConfirmationID
	OrderID        ledger.OrderID
}

// ReportRow is one open position with display-resolved names.
type ReportRow struct {
	ProductID        ledger.ProductID
	ConfirmationName string
	OrderName        string
	ClientID         ledger.ClientID
	Quantity         int64
}

// Balance computes outstanding quantity for every product within the
// scope, sorted by (product, confirmation name, client).
func (e *Engine) Balance(ctx context.Context, scope BalanceScope) ([]ReportRow, error) {
	products, err := e.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	confirmationNames := make(map[ledger.ConfirmationID]string)
	orderNames := make(map[ledger.OrderID]string)

	var report []ReportRow
	for _, p := range products {
		confirmed, err := e.Store.ConfirmationLines(ctx, ledger.ConfirmationLineFilter{
			ProductID:      p.ID,
			ConfirmationID: scope.ConfirmationID,
			OrderID:        scope.OrderID,
		})
		if err != nil {
			return nil, err
		}
		invoiced, err := e.Store.InvoiceLines(ctx, ledger.InvoiceLineFilter{
			ProductID:      p.ID,
			ConfirmationID: scope.ConfirmationID,
			OrderID:        scope.OrderID,
		})
		if err != nil {
			return nil, err
		}
		cancelled, err := e.Store.CancellationLines(ctx, ledger.CancellationLineFilter{
			ProductID:      p.ID,
			ConfirmationID: scope.ConfirmationID,
			OrderID:        scope.OrderID,
		})
		if err != nil {
			return nil, err
		}

		for _, left := range ledger.LeftPerGroup(confirmed, invoiced, cancelled) {
			confirmationName, err := e.confirmationName(ctx, left.ConfirmationID, confirmationNames)
			if err != nil {
				return nil, err
			}
			orderName, err := e.orderName(ctx, left.OrderID, orderNames)
			if err != nil {
				return nil, err
			}
			report = append(report, ReportRow{
				ProductID:        left.ProductID,
				ConfirmationName: confirmationName,
				OrderName:        orderName,
				ClientID:         left.ClientID,
				Quantity:         left.Quantity,
			})
		}
	}

	sort.Slice(report, func(i, j int) bool {
		if report[i].ProductID != report[j].ProductID {
			return report[i].ProductID < report[j].ProductID
		}
		if report[i].ConfirmationName != report[j].ConfirmationName {
			return report[i].ConfirmationName < report[j].ConfirmationName
		}
		return report[i].ClientID < report[j].ClientID
	})
	return report, nil
}

// Report is the full reconciliation report: Balance with no scope.
func (e *Engine) Report(ctx context.Context) ([]ReportRow, error) {
	return e.Balance(ctx, BalanceScope{})
}

func (e *Engine) confirmationName(ctx context.Context, id ledger.ConfirmationID, cache map[ledger.ConfirmationID]string) (string, error) {
	if id == "" {
		return "", nil
	}
	if name, ok := cache[id]; ok {
		return name, nil
	}
	c, err := e.Store.GetConfirmation(ctx, id)
	if err != nil {
		return "", err
	}
	name := string(id)
	if c != nil {
		name = c.Name
	}
	cache[id] = name
	return name, nil
}

func (e *Engine) orderName(ctx context.Context, id ledger.OrderID, cache map[ledger.OrderID]string) (string, error) {
	if id == "" {
		return "", nil
	}
	if name, ok := cache[id]; ok {
		return name, nil
	}
	o, err := e.Store.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}
	name := string(id)
	if o != nil {
		name = o.Name
	}
	cache[id] = name
	return name, nil
}
