/*
rows.go - Normalized import rows and product grouping

PURPOSE:
  The engine's input boundary. An external importer (spreadsheet parser
  or direct API caller) hands over normalized rows; here they are
  validated and collapsed into one group per product, the unit the
  allocator works in.

GROUPING:
  Rows are grouped by product ID only. Quantities for the same product
  sum into a single group total; unit price, product name, and any
  confirmation/order provenance are group-level metadata taken from the
  group's first row (a batch has one effective price and name per
  product). Rows with an empty product are skipped.
*/
package fulfillment

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/supplyline/fulfillment-engine/ledger"
)

// Row is one normalized imported line.
type Row struct {
	ProductID   ledger.ProductID
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal

	// ClientID is set on order-import rows only; allocation rows carry no
	// client (the allocator decides the client).
	ClientID ledger.ClientID

	// ConfirmationID narrows a cancellation to one named confirmation.
	ConfirmationID ledger.ConfirmationID
	OrderID        ledger.OrderID
}

// productGroup is the allocator's working unit: one product, the batch's
// summed quantity, and the group-level metadata.
type productGroup struct {
	ProductID      ledger.ProductID
	ProductName    string
	UnitPrice      decimal.Decimal
	ConfirmationID ledger.ConfirmationID
	OrderID        ledger.OrderID
	Total          int64
}

// groupByProduct validates rows and collapses them into per-product
// groups, sorted by product ID ascending so batches allocate in a
// reproducible order.
func groupByProduct(rows []Row) ([]productGroup, error) {
	byProduct := make(map[ledger.ProductID]*productGroup)
	var order []ledger.ProductID
	for _, r := range rows {
		if r.ProductID == "" {
			continue
		}
		if r.Quantity <= 0 {
			return nil, &ledger.ValidationError{Field: "quantity", Value: r.Quantity, Reason: "must be positive"}
		}
		g, ok := byProduct[r.ProductID]
		if !ok {
			g = &productGroup{
				ProductID:      r.ProductID,
				ProductName:    r.ProductName,
				UnitPrice:      r.UnitPrice,
				ConfirmationID: r.ConfirmationID,
				OrderID:        r.OrderID,
			}
			byProduct[r.ProductID] = g
			order = append(order, r.ProductID)
		}
		g.Total += r.Quantity
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	groups := make([]productGroup, 0, len(order))
	for _, id := range order {
		groups = append(groups, *byProduct[id])
	}
	return groups, nil
}

// brandFromProduct derives the brand from the product ID's second
// underscore-separated token, the importer's ID convention
// (e.g. "P100_acme" belongs to brand "acme").
func brandFromProduct(id ledger.ProductID) ledger.BrandID {
	parts := strings.Split(string(id), "_")
	if len(parts) < 2 {
		return ""
	}
	return ledger.BrandID(parts[1])
}
