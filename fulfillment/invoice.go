/*
invoice.go - Allocation of billed quantity against confirmed stock

PURPOSE:
  An invoice consumes previously confirmed quantity. Eligible stock is
  every confirmation line for the product dated on or before the invoice
  date, net of everything already invoiced or cancelled for the same
  (client, order, confirmation) triple. Billing beyond confirmed stock is
  legitimate (the supplier may invoice unrecorded supply) and falls back
  to the Unknown client with no provenance.
*/
package fulfillment

import (
	"context"

	"github.com/supplyline/fulfillment-engine/ledger"
)

// CreateInvoice validates the document, allocates each product group
// against the product's remaining confirmed stock, and persists the
// invoice with its full line set atomically. Returns the created lines.
func (e *Engine) CreateInvoice(ctx context.Context, inv ledger.Invoice, rows []Row) ([]ledger.InvoiceLine, error) {
	if inv.ID == "" {
		return nil, &ledger.ValidationError{Field: "id", Value: inv.ID, Reason: "required"}
	}
	if err := e.requireSupplier(ctx, inv.SupplierID); err != nil {
		return nil, err
	}
	inv.InvoiceDate = normalizeDate(inv.InvoiceDate)

	groups, err := groupByProduct(rows)
	if err != nil {
		return nil, err
	}

	var lines []ledger.InvoiceLine
	for _, g := range groups {
		// Unlike confirmations, invoices only fill product gaps; an
		// existing record keeps its name and brand.
		if err := e.Store.EnsureProduct(ctx, ledger.Product{
			ID:      g.ProductID,
			Name:    g.ProductName,
			BrandID: brandFromProduct(g.ProductID),
		}); err != nil {
			return nil, err
		}

		targets, err := e.remainingConfirmedTargets(ctx, g.ProductID, remainingScope{
			onOrBefore: inv.InvoiceDate,
		}, nil)
		if err != nil {
			return nil, err
		}

		allocs, leftover := Distribute(g.Total, targets)
		for _, a := range allocs {
			lines = append(lines, ledger.InvoiceLine{
				InvoiceID:      inv.ID,
				ClientID:       a.ClientID,
				ProductID:      g.ProductID,
				ConfirmationID: a.ConfirmationID,
				OrderID:        a.OrderID,
				Quantity:       a.Quantity,
				UnitPrice:      g.UnitPrice,
			})
		}
		if leftover > 0 {
			unknown, err := e.Store.GetOrCreateClient(ctx, ledger.UnknownClientID)
			if err != nil {
				return nil, err
			}
			lines = append(lines, ledger.InvoiceLine{
				InvoiceID: inv.ID,
				ClientID:  unknown.ID,
				ProductID: g.ProductID,
				Quantity:  leftover,
				UnitPrice: g.UnitPrice,
			})
		}
	}

	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	if err := e.Store.SaveInvoice(ctx, inv, lines); err != nil {
		return nil, err
	}
	return lines, nil
}
