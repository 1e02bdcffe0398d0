/*
confirmation.go - Allocation of committed supply against open order demand

PURPOSE:
  A confirmation answers demand recorded by the orders it is linked to.
  For each product group, the batch total is distributed across the
  linked orders in order-date order; within one order, across clients in
  ascending ID order, each capped by that client's still-unconfirmed
  quantity. Supply beyond any recorded demand is legitimate here and
  attaches to the Unknown client with no order provenance.

SIDE CHANNEL:
  The imported batch is the system of record for product names: each
  group upserts its product from the carried name and the brand encoded
  in the product ID. Idempotent on product ID.
*/
package fulfillment

import (
	"context"
	"sort"

	"github.com/supplyline/fulfillment-engine/ledger"
)

// CreateConfirmation validates the document, allocates each product
// group against the linked orders' open demand, and persists the
// confirmation with its full line set atomically. Returns the created
// lines.
func (e *Engine) CreateConfirmation(ctx context.Context, c ledger.Confirmation, rows []Row) ([]ledger.ConfirmationLine, error) {
	if c.ID == "" {
		// The confirmation code is the natural identifier.
		c.ID = ledger.ConfirmationID(c.Code)
	}
	if c.ID == "" {
		return nil, &ledger.ValidationError{Field: "confirmation_code", Value: c.Code, Reason: "required"}
	}
	if err := e.requireSupplier(ctx, c.SupplierID); err != nil {
		return nil, err
	}
	c.ConfirmationDate = normalizeDate(c.ConfirmationDate)

	orders, err := e.linkedOrders(ctx, c)
	if err != nil {
		return nil, err
	}

	groups, err := groupByProduct(rows)
	if err != nil {
		return nil, err
	}

	var lines []ledger.ConfirmationLine
	for _, g := range groups {
		if err := e.Store.UpsertProduct(ctx, ledger.Product{
			ID:      g.ProductID,
			Name:    g.ProductName,
			BrandID: brandFromProduct(g.ProductID),
		}); err != nil {
			return nil, err
		}

		total := g.Total
		for _, o := range orders {
			if total <= 0 {
				break
			}
			targets, err := e.orderDemandTargets(ctx, o.ID, g.ProductID)
			if err != nil {
				return nil, err
			}
			allocs, leftover := Distribute(total, targets)
			total = leftover
			for _, a := range allocs {
				lines = append(lines, ledger.ConfirmationLine{
					ConfirmationID: c.ID,
					ClientID:       a.ClientID,
					ProductID:      g.ProductID,
					OrderID:        a.OrderID,
					Quantity:       a.Quantity,
					UnitPrice:      g.UnitPrice,
				})
			}
		}

		if total > 0 {
			unknown, err := e.Store.GetOrCreateClient(ctx, ledger.UnknownClientID)
			if err != nil {
				return nil, err
			}
			lines = append(lines, ledger.ConfirmationLine{
				ConfirmationID: c.ID,
				ClientID:       unknown.ID,
				ProductID:      g.ProductID,
				Quantity:       total,
				UnitPrice:      g.UnitPrice,
			})
		}
	}

	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	if err := e.Store.SaveConfirmation(ctx, c, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// linkedOrders resolves and validates the confirmation's order links:
// every order must exist and must not be dated after the confirmation
// (supply cannot answer demand recorded in the future). Returned in
// order-date order, then ID, the allocation walk order.
func (e *Engine) linkedOrders(ctx context.Context, c ledger.Confirmation) ([]ledger.Order, error) {
	orders := make([]ledger.Order, 0, len(c.OrderIDs))
	for _, id := range c.OrderIDs {
		o, err := e.Store.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, &ledger.NotFoundError{Kind: "order", ID: string(id)}
		}
		if o.OrderDate.After(c.ConfirmationDate) {
			return nil, &ledger.ValidationError{
				Field:  "order",
				Value:  string(id),
				Reason: "order is dated after the confirmation",
			}
		}
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.Before(orders[j].OrderDate)
		}
		return orders[i].ID < orders[j].ID
	})
	return orders, nil
}

// orderDemandTargets builds the target set for one (order, product) pair:
// each client's ordered quantity net of what earlier confirmations
// already committed.
func (e *Engine) orderDemandTargets(ctx context.Context, orderID ledger.OrderID, productID ledger.ProductID) ([]Target, error) {
	ordered, err := e.Store.OrderLines(ctx, ledger.OrderLineFilter{OrderID: orderID, ProductID: productID})
	if err != nil {
		return nil, err
	}
	confirmed, err := e.Store.ConfirmationLines(ctx, ledger.ConfirmationLineFilter{OrderID: orderID, ProductID: productID})
	if err != nil {
		return nil, err
	}

	open := ledger.OpenDemandPerClient(ordered, confirmed)
	targets := make([]Target, 0, len(open))
	for _, d := range open {
		targets = append(targets, Target{
			ClientID:  d.ClientID,
			OrderID:   orderID,
			Remaining: d.Quantity,
		})
	}
	return targets, nil
}
