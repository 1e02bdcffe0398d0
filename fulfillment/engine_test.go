package fulfillment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplyline/fulfillment-engine/fulfillment"
	"github.com/supplyline/fulfillment-engine/ledger"
	"github.com/supplyline/fulfillment-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*fulfillment.Engine, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, s.SaveSupplier(ctx, ledger.Supplier{ID: "sup-1", Name: "Acme GmbH"}))
	require.NoError(t, s.SaveBrand(ctx, ledger.Brand{ID: "acme", Name: "Acme"}))
	return fulfillment.NewEngine(s), s
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func demandRow(product, client string, qty int64) fulfillment.Row {
	return fulfillment.Row{
		ProductID:   ledger.ProductID(product),
		ProductName: "Widget " + product,
		ClientID:    ledger.ClientID(client),
		Quantity:    qty,
	}
}

func supplyRow(product string, qty int64) fulfillment.Row {
	return fulfillment.Row{
		ProductID:   ledger.ProductID(product),
		ProductName: "Widget " + product,
		Quantity:    qty,
	}
}

// recordOrder seeds one order with per-client demand for a single product.
func recordOrder(t *testing.T, e *fulfillment.Engine, id string, date time.Time, rows ...fulfillment.Row) {
	t.Helper()
	_, err := e.CreateOrder(context.Background(), ledger.Order{
		ID:         ledger.OrderID(id),
		Name:       "Order " + id,
		OrderDate:  date,
		SupplierID: "sup-1",
	}, rows)
	require.NoError(t, err)
}

// recordConfirmation seeds one confirmation linked to the given orders.
func recordConfirmation(t *testing.T, e *fulfillment.Engine, code string, date time.Time, orderIDs []string, rows ...fulfillment.Row) []ledger.ConfirmationLine {
	t.Helper()
	ids := make([]ledger.OrderID, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = ledger.OrderID(id)
	}
	lines, err := e.CreateConfirmation(context.Background(), ledger.Confirmation{
		Code:             code,
		Name:             "Confirmation " + code,
		ConfirmationDate: date,
		SupplierID:       "sup-1",
		OrderIDs:         ids,
	}, rows)
	require.NoError(t, err)
	return lines
}

// =============================================================================
// ORDER CREATION
// =============================================================================

func TestCreateOrder_AggregatesDuplicateRows(t *testing.T) {
	// GIVEN: Two rows for the same (product, client) pair
	// WHEN: Recording the order
	// THEN: One line with the summed quantity

	e, _ := newTestEngine(t)

	lines, err := e.CreateOrder(context.Background(), ledger.Order{
		ID: "o-1", OrderDate: day(1), SupplierID: "sup-1",
	}, []fulfillment.Row{
		demandRow("P100_acme", "c-1", 3),
		demandRow("P100_acme", "c-1", 4),
		demandRow("P100_acme", "c-2", 5),
	})

	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, ledger.ClientID("c-1"), lines[0].ClientID)
	assert.Equal(t, int64(7), lines[0].Quantity)
	assert.Equal(t, ledger.ClientID("c-2"), lines[1].ClientID)
	assert.Equal(t, int64(5), lines[1].Quantity)
}

func TestCreateOrder_CreatesProductAndClient(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	recordOrder(t, e, "o-1", day(1), demandRow("P100_acme", "c-1", 5))

	p, err := s.GetProduct(ctx, "P100_acme")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, ledger.BrandID("acme"), p.BrandID)

	c, err := s.GetClient(ctx, "c-1")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCreateOrder_UnknownSupplierRejected(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CreateOrder(context.Background(), ledger.Order{
		ID: "o-1", OrderDate: day(1), SupplierID: "nope",
	}, []fulfillment.Row{demandRow("P100_acme", "c-1", 5)})

	assert.True(t, ledger.IsNotFound(err))
}

func TestCreateOrder_NonPositiveQuantityRejected(t *testing.T) {
	e, s := newTestEngine(t)

	_, err := e.CreateOrder(context.Background(), ledger.Order{
		ID: "o-1", OrderDate: day(1), SupplierID: "sup-1",
	}, []fulfillment.Row{demandRow("P100_acme", "c-1", 0)})

	assert.ErrorIs(t, err, ledger.ErrValidation)

	// Nothing persisted
	o, err := s.GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Nil(t, o)
}

// =============================================================================
// CONFIRMATION ALLOCATION
// =============================================================================

func TestCreateConfirmation_AllocatesOpenDemandByClient(t *testing.T) {
	// GIVEN: An order with demand c-1:10, c-2:5
	// WHEN: Confirming 12 pieces against it
	// THEN: c-1 gets 10, c-2 gets 2, clients in ascending order

	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1),
		demandRow("P100_acme", "c-1", 10),
		demandRow("P100_acme", "c-2", 5),
	)

	lines := recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 12))

	require.Len(t, lines, 2)
	assert.Equal(t, ledger.ClientID("c-1"), lines[0].ClientID)
	assert.Equal(t, int64(10), lines[0].Quantity)
	assert.Equal(t, ledger.OrderID("o-1"), lines[0].OrderID)
	assert.Equal(t, ledger.ClientID("c-2"), lines[1].ClientID)
	assert.Equal(t, int64(2), lines[1].Quantity)
}

func TestCreateConfirmation_SurplusGoesToUnknown(t *testing.T) {
	// GIVEN: Total open demand of 15
	// WHEN: Confirming 20 pieces
	// THEN: The 5-piece surplus lands on the Unknown client with no order

	e, s := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1),
		demandRow("P100_acme", "c-1", 10),
		demandRow("P100_acme", "c-2", 5),
	)

	lines := recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 20))

	require.Len(t, lines, 3)
	last := lines[2]
	assert.Equal(t, ledger.UnknownClientID, last.ClientID)
	assert.Equal(t, int64(5), last.Quantity)
	assert.Empty(t, last.OrderID)

	// The fallback client is created on demand
	c, err := s.GetClient(context.Background(), ledger.UnknownClientID)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCreateConfirmation_SecondConfirmationSeesReducedDemand(t *testing.T) {
	// Open demand shrinks as confirmations accumulate.

	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1), demandRow("P100_acme", "c-1", 10))

	recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 6))
	lines := recordConfirmation(t, e, "k-2", day(8), []string{"o-1"}, supplyRow("P100_acme", 6))

	require.Len(t, lines, 2)
	assert.Equal(t, ledger.ClientID("c-1"), lines[0].ClientID)
	assert.Equal(t, int64(4), lines[0].Quantity)
	assert.Equal(t, ledger.UnknownClientID, lines[1].ClientID)
	assert.Equal(t, int64(2), lines[1].Quantity)
}

func TestCreateConfirmation_WalksOrdersByDate(t *testing.T) {
	// GIVEN: Two linked orders, the later one listed first
	// THEN: The earlier order's demand is satisfied first

	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-late", day(3), demandRow("P100_acme", "c-1", 5))
	recordOrder(t, e, "o-early", day(1), demandRow("P100_acme", "c-2", 5))

	lines := recordConfirmation(t, e, "k-1", day(5), []string{"o-late", "o-early"},
		supplyRow("P100_acme", 7))

	require.Len(t, lines, 2)
	assert.Equal(t, ledger.OrderID("o-early"), lines[0].OrderID)
	assert.Equal(t, int64(5), lines[0].Quantity)
	assert.Equal(t, ledger.OrderID("o-late"), lines[1].OrderID)
	assert.Equal(t, int64(2), lines[1].Quantity)
}

func TestCreateConfirmation_IDDefaultsToCode(t *testing.T) {
	e, s := newTestEngine(t)

	recordConfirmation(t, e, "AB-2025-001", day(5), nil, supplyRow("P100_acme", 3))

	conf, err := s.GetConfirmation(context.Background(), "AB-2025-001")
	require.NoError(t, err)
	require.NotNil(t, conf)
	assert.Equal(t, "AB-2025-001", conf.Code)
}

func TestCreateConfirmation_OrderDatedAfterRejected(t *testing.T) {
	// Supply cannot answer demand recorded in the future.

	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-1", day(10), demandRow("P100_acme", "c-1", 5))

	_, err := e.CreateConfirmation(context.Background(), ledger.Confirmation{
		Code: "k-1", ConfirmationDate: day(5), SupplierID: "sup-1",
		OrderIDs: []ledger.OrderID{"o-1"},
	}, []fulfillment.Row{supplyRow("P100_acme", 5)})

	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestCreateConfirmation_UnknownOrderRejected(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CreateConfirmation(context.Background(), ledger.Confirmation{
		Code: "k-1", ConfirmationDate: day(5), SupplierID: "sup-1",
		OrderIDs: []ledger.OrderID{"missing"},
	}, []fulfillment.Row{supplyRow("P100_acme", 5)})

	assert.True(t, ledger.IsNotFound(err))
}

func TestCreateConfirmation_DuplicateCodeRejected(t *testing.T) {
	e, _ := newTestEngine(t)

	recordConfirmation(t, e, "k-1", day(5), nil, supplyRow("P100_acme", 3))

	_, err := e.CreateConfirmation(context.Background(), ledger.Confirmation{
		Code: "k-1", ConfirmationDate: day(6), SupplierID: "sup-1",
	}, []fulfillment.Row{supplyRow("P100_acme", 3)})

	assert.ErrorIs(t, err, ledger.ErrDuplicateDocument)
}

// =============================================================================
// INVOICE ALLOCATION
// =============================================================================

func TestCreateInvoice_ConsumesEarliestConfirmedFirst(t *testing.T) {
	// GIVEN: 6 confirmed under k-1 (Mar 5) and 4 under k-2 (Mar 8)
	// WHEN: Invoicing 8 on Mar 15
	// THEN: k-1's group drains fully before k-2 is touched

	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1), demandRow("P100_acme", "c-1", 10))
	recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 6))
	recordConfirmation(t, e, "k-2", day(8), []string{"o-1"}, supplyRow("P100_acme", 4))

	lines, err := e.CreateInvoice(context.Background(), ledger.Invoice{
		ID: "i-1", InvoiceDate: day(15), SupplierID: "sup-1",
	}, []fulfillment.Row{supplyRow("P100_acme", 8)})

	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, ledger.ConfirmationID("k-1"), lines[0].ConfirmationID)
	assert.Equal(t, int64(6), lines[0].Quantity)
	assert.Equal(t, ledger.ConfirmationID("k-2"), lines[1].ConfirmationID)
	assert.Equal(t, int64(2), lines[1].Quantity)
}

func TestCreateInvoice_LaterConfirmationNotEligible(t *testing.T) {
	// Stock confirmed after the invoice date cannot absorb the invoice;
	// the remainder falls back to Unknown.

	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1), demandRow("P100_acme", "c-1", 10))
	recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 6))
	recordConfirmation(t, e, "k-2", day(8), []string{"o-1"}, supplyRow("P100_acme", 4))

	lines, err := e.CreateInvoice(context.Background(), ledger.Invoice{
		ID: "i-1", InvoiceDate: day(6), SupplierID: "sup-1",
	}, []fulfillment.Row{supplyRow("P100_acme", 8)})

	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, ledger.ConfirmationID("k-1"), lines[0].ConfirmationID)
	assert.Equal(t, int64(6), lines[0].Quantity)
	assert.Equal(t, ledger.UnknownClientID, lines[1].ClientID)
	assert.Equal(t, int64(2), lines[1].Quantity)
	assert.Empty(t, lines[1].ConfirmationID)
}

func TestCreateInvoice_WithoutAnyConfirmedStock(t *testing.T) {
	// Invoicing unrecorded supply is legitimate; everything goes to the
	// Unknown client.

	e, _ := newTestEngine(t)

	lines, err := e.CreateInvoice(context.Background(), ledger.Invoice{
		ID: "i-1", InvoiceDate: day(15), SupplierID: "sup-1",
	}, []fulfillment.Row{supplyRow("P900_acme", 5)})

	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, ledger.UnknownClientID, lines[0].ClientID)
	assert.Equal(t, int64(5), lines[0].Quantity)
}

func TestCreateInvoice_SecondInvoiceSeesReducedStock(t *testing.T) {
	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1), demandRow("P100_acme", "c-1", 10))
	recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 10))

	_, err := e.CreateInvoice(context.Background(), ledger.Invoice{
		ID: "i-1", InvoiceDate: day(10), SupplierID: "sup-1",
	}, []fulfillment.Row{supplyRow("P100_acme", 7)})
	require.NoError(t, err)

	lines, err := e.CreateInvoice(context.Background(), ledger.Invoice{
		ID: "i-2", InvoiceDate: day(12), SupplierID: "sup-1",
	}, []fulfillment.Row{supplyRow("P100_acme", 5)})
	require.NoError(t, err)

	require.Len(t, lines, 2)
	assert.Equal(t, ledger.ClientID("c-1"), lines[0].ClientID)
	assert.Equal(t, int64(3), lines[0].Quantity)
	assert.Equal(t, ledger.UnknownClientID, lines[1].ClientID)
	assert.Equal(t, int64(2), lines[1].Quantity)
}

// =============================================================================
// CANCELLATION ALLOCATION
// =============================================================================

func cancelRows(product string, qty int64) []fulfillment.Row {
	return []fulfillment.Row{{ProductID: ledger.ProductID(product), Quantity: qty}}
}

func TestCreateCancellation_ReducesRemaining(t *testing.T) {
	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1), demandRow("P100_acme", "c-1", 10))
	recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 10))

	lines, err := e.CreateCancellation(context.Background(), ledger.Cancellation{
		ID: "can-1", CancellationDate: day(10), BrandID: "acme", SupplierID: "sup-1",
	}, cancelRows("P100_acme", 4))

	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, ledger.ClientID("c-1"), lines[0].ClientID)
	assert.Equal(t, ledger.ConfirmationID("k-1"), lines[0].ConfirmationID)
	assert.Equal(t, int64(4), lines[0].Quantity)

	// Remaining confirmed stock shrinks accordingly
	report, err := e.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, int64(6), report[0].Quantity)
}

func TestCreateCancellation_OverCancellationRejectedAtomically(t *testing.T) {
	// GIVEN: 10 confirmed for P100, 10 for P200
	// WHEN: Cancelling 5 of P100 and 15 of P200 in one document
	// THEN: The whole batch is rejected and nothing persists

	e, s := newTestEngine(t)
	recordConfirmation(t, e, "k-1", day(5), nil,
		supplyRow("P100_acme", 10),
		supplyRow("P200_acme", 10),
	)

	_, err := e.CreateCancellation(context.Background(), ledger.Cancellation{
		ID: "can-1", CancellationDate: day(10), BrandID: "acme", SupplierID: "sup-1",
	}, []fulfillment.Row{
		{ProductID: "P100_acme", Quantity: 5},
		{ProductID: "P200_acme", Quantity: 15},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrOverCancellation)
	var overErr *ledger.OverCancellationError
	require.ErrorAs(t, err, &overErr)
	assert.Equal(t, ledger.ProductID("P200_acme"), overErr.ProductID)
	assert.Equal(t, int64(5), overErr.Excess)

	ctx := context.Background()
	c, err := s.GetCancellation(ctx, "can-1")
	require.NoError(t, err)
	assert.Nil(t, c)
	persisted, err := s.CancellationLines(ctx, ledger.CancellationLineFilter{})
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestCreateCancellation_ScopedToNamedConfirmation(t *testing.T) {
	// A row naming a confirmation only consumes that confirmation's
	// remaining stock.

	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1), demandRow("P100_acme", "c-1", 10))
	recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 6))
	recordConfirmation(t, e, "k-2", day(8), []string{"o-1"}, supplyRow("P100_acme", 4))

	lines, err := e.CreateCancellation(context.Background(), ledger.Cancellation{
		ID: "can-1", CancellationDate: day(10), BrandID: "acme", SupplierID: "sup-1",
	}, []fulfillment.Row{
		{ProductID: "P100_acme", ConfirmationID: "k-2", Quantity: 3},
	})

	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, ledger.ConfirmationID("k-2"), lines[0].ConfirmationID)
	assert.Equal(t, int64(3), lines[0].Quantity)

	// Exceeding the named confirmation's stock is an over-cancellation
	// even though other confirmations still have room.
	_, err = e.CreateCancellation(context.Background(), ledger.Cancellation{
		ID: "can-2", CancellationDate: day(11), BrandID: "acme", SupplierID: "sup-1",
	}, []fulfillment.Row{
		{ProductID: "P100_acme", ConfirmationID: "k-2", Quantity: 2},
	})
	assert.ErrorIs(t, err, ledger.ErrOverCancellation)
}

func TestCreateCancellation_UnknownProductRejected(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CreateCancellation(context.Background(), ledger.Cancellation{
		ID: "can-1", CancellationDate: day(10), BrandID: "acme", SupplierID: "sup-1",
	}, cancelRows("never-confirmed", 1))

	assert.True(t, ledger.IsNotFound(err))
}

func TestCreateCancellation_MissingBrandRejected(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CreateCancellation(context.Background(), ledger.Cancellation{
		ID: "can-1", CancellationDate: day(10), SupplierID: "sup-1",
	}, cancelRows("P100_acme", 1))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrValidation))
}

// =============================================================================
// BALANCE AND REPORT
// =============================================================================

func TestBalance_ScopedByConfirmation(t *testing.T) {
	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1), demandRow("P100_acme", "c-1", 10))
	recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 6))
	recordConfirmation(t, e, "k-2", day(8), []string{"o-1"}, supplyRow("P100_acme", 4))

	_, err := e.CreateInvoice(context.Background(), ledger.Invoice{
		ID: "i-1", InvoiceDate: day(15), SupplierID: "sup-1",
	}, []fulfillment.Row{supplyRow("P100_acme", 8)})
	require.NoError(t, err)

	// Full balance: only k-2 has 2 left
	full, err := e.Balance(context.Background(), fulfillment.BalanceScope{})
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.Equal(t, int64(2), full[0].Quantity)

	// Scoped to the drained confirmation: nothing open
	scoped, err := e.Balance(context.Background(), fulfillment.BalanceScope{ConfirmationID: "k-1"})
	require.NoError(t, err)
	assert.Empty(t, scoped)

	scoped, err = e.Balance(context.Background(), fulfillment.BalanceScope{ConfirmationID: "k-2"})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, int64(2), scoped[0].Quantity)
}

func TestReport_ResolvesDisplayNames(t *testing.T) {
	e, _ := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1), demandRow("P100_acme", "c-1", 10))
	recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 6))

	report, err := e.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, ledger.ProductID("P100_acme"), report[0].ProductID)
	assert.Equal(t, "Confirmation k-1", report[0].ConfirmationName)
	assert.Equal(t, "Order o-1", report[0].OrderName)
	assert.Equal(t, ledger.ClientID("c-1"), report[0].ClientID)
	assert.Equal(t, int64(6), report[0].Quantity)
}

func TestReport_EmptyStore(t *testing.T) {
	e, _ := newTestEngine(t)

	report, err := e.Report(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestReport_InvoiceDeletionReopensBalance(t *testing.T) {
	// Lines die with their document; deleting the invoice restores the
	// confirmed quantity to the open balance.

	e, s := newTestEngine(t)
	recordOrder(t, e, "o-1", day(1), demandRow("P100_acme", "c-1", 10))
	recordConfirmation(t, e, "k-1", day(5), []string{"o-1"}, supplyRow("P100_acme", 10))

	_, err := e.CreateInvoice(context.Background(), ledger.Invoice{
		ID: "i-1", InvoiceDate: day(15), SupplierID: "sup-1",
	}, []fulfillment.Row{supplyRow("P100_acme", 10)})
	require.NoError(t, err)

	report, err := e.Report(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report)

	require.NoError(t, s.DeleteInvoice(context.Background(), "i-1"))

	report, err = e.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, int64(10), report[0].Quantity)
}
