/*
Package fulfillment implements the quantity allocation engine.

PURPOSE:
  One document-creation request performs one allocation pass: imported
  rows are grouped by product, each group's total is distributed across
  the earlier stage's open demand (allocator.go), and the parent document
  plus its complete line set is persisted as a single atomic unit. The
  netting that defines "open demand" lives in the ledger package
  (LeftPerGroup, OpenDemandPerClient), which this package depends on and
  never the other way around.

ALLOCATION PATHS:
  CreateOrder:        demand import, no allocation
  CreateConfirmation: against open order demand, leftover to Unknown
  CreateInvoice:      against confirmed stock net of consumption,
                      leftover to Unknown
  CreateCancellation: same targets as invoices, leftover is an error

ERROR POLICY:
  Validation runs before any allocation; any failure aborts the entire
  batch with no partial state. There is no partial-success or
  retry-with-remainder semantic - the caller re-submits corrected input.

SEE ALSO:
  - allocator.go: the shared distribution walk
  - report.go: the read-only reconciliation pass
*/
package fulfillment

import (
	"context"
	"sort"
	"time"

	"github.com/supplyline/fulfillment-engine/ledger"
)

// Engine drives allocation against a ledger store.
type Engine struct {
	Store ledger.Store
}

func NewEngine(store ledger.Store) *Engine {
	return &Engine{Store: store}
}

// =============================================================================
// ORDER CREATION - Demand import
// =============================================================================

// CreateOrder records imported client demand. Rows must carry a client;
// quantities for the same (product, client) pair are summed into one
// line. Products are created on first sight from the row's name and the
// brand encoded in the product ID.
func (e *Engine) CreateOrder(ctx context.Context, o ledger.Order, rows []Row) ([]ledger.OrderLine, error) {
	if o.ID == "" {
		return nil, &ledger.ValidationError{Field: "id", Value: o.ID, Reason: "required"}
	}
	if err := e.requireSupplier(ctx, o.SupplierID); err != nil {
		return nil, err
	}
	o.OrderDate = normalizeDate(o.OrderDate)

	type demandKey struct {
		ProductID ledger.ProductID
		ClientID  ledger.ClientID
	}
	sums := make(map[demandKey]int64)
	names := make(map[ledger.ProductID]string)
	for _, r := range rows {
		if r.ProductID == "" {
			continue
		}
		if r.ClientID == "" {
			return nil, &ledger.ValidationError{Field: "client", Value: r.ClientID, Reason: "required"}
		}
		if r.Quantity <= 0 {
			return nil, &ledger.ValidationError{Field: "quantity", Value: r.Quantity, Reason: "must be positive"}
		}
		sums[demandKey{r.ProductID, r.ClientID}] += r.Quantity
		if _, ok := names[r.ProductID]; !ok {
			names[r.ProductID] = r.ProductName
		}
	}

	keys := make([]demandKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ProductID != keys[j].ProductID {
			return keys[i].ProductID < keys[j].ProductID
		}
		return keys[i].ClientID < keys[j].ClientID
	})

	lines := make([]ledger.OrderLine, 0, len(keys))
	for _, k := range keys {
		if err := e.Store.EnsureProduct(ctx, ledger.Product{
			ID:      k.ProductID,
			Name:    names[k.ProductID],
			BrandID: brandFromProduct(k.ProductID),
		}); err != nil {
			return nil, err
		}
		if _, err := e.Store.GetOrCreateClient(ctx, k.ClientID); err != nil {
			return nil, err
		}
		lines = append(lines, ledger.OrderLine{
			OrderID:   o.ID,
			ClientID:  k.ClientID,
			ProductID: k.ProductID,
			Quantity:  sums[k],
		})
	}

	if err := e.Store.SaveOrder(ctx, o, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// =============================================================================
// SHARED VALIDATION
// =============================================================================

func (e *Engine) requireSupplier(ctx context.Context, id ledger.SupplierID) error {
	if id == "" {
		return &ledger.ValidationError{Field: "supplier", Value: id, Reason: "required"}
	}
	s, err := e.Store.GetSupplier(ctx, id)
	if err != nil {
		return err
	}
	if s == nil {
		return &ledger.NotFoundError{Kind: "supplier", ID: string(id)}
	}
	return nil
}

func (e *Engine) requireBrand(ctx context.Context, id ledger.BrandID) error {
	if id == "" {
		return &ledger.ValidationError{Field: "brand", Value: id, Reason: "required"}
	}
	b, err := e.Store.GetBrand(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return &ledger.NotFoundError{Kind: "brand", ID: string(id)}
	}
	return nil
}

// normalizeDate truncates to day granularity, defaulting to today.
// All lifecycle dates are calendar days.
func normalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
