package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplyline/fulfillment-engine/ledger"
	"github.com/supplyline/fulfillment-engine/ledger/store"
)

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

// seedSupply records two orders, two confirmations, and confirmation
// lines spanning both plus one orderless fallback line.
func seedSupply(t *testing.T, m *store.Memory) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, m.SaveOrder(ctx, ledger.Order{ID: "o-1", OrderDate: day(1), SupplierID: "sup-1"}, []ledger.OrderLine{
		{OrderID: "o-1", ClientID: "c-1", ProductID: "P100_acme", Quantity: 10},
	}))
	require.NoError(t, m.SaveOrder(ctx, ledger.Order{ID: "o-2", OrderDate: day(3), SupplierID: "sup-1"}, []ledger.OrderLine{
		{OrderID: "o-2", ClientID: "c-2", ProductID: "P100_acme", Quantity: 5},
	}))

	require.NoError(t, m.SaveConfirmation(ctx,
		ledger.Confirmation{ID: "k-1", Code: "k-1", ConfirmationDate: day(5), SupplierID: "sup-1"},
		[]ledger.ConfirmationLine{
			{ConfirmationID: "k-1", ClientID: "c-1", ProductID: "P100_acme", OrderID: "o-1", Quantity: 6},
		}))
	require.NoError(t, m.SaveConfirmation(ctx,
		ledger.Confirmation{ID: "k-2", Code: "k-2", ConfirmationDate: day(8), SupplierID: "sup-1"},
		[]ledger.ConfirmationLine{
			{ConfirmationID: "k-2", ClientID: "c-2", ProductID: "P100_acme", OrderID: "o-2", Quantity: 5},
			{ConfirmationID: "k-2", ClientID: "c-1", ProductID: "P100_acme", OrderID: "o-1", Quantity: 4},
			{ConfirmationID: "k-2", ClientID: ledger.UnknownClientID, ProductID: "P100_acme", Quantity: 3},
		}))
}

// =============================================================================
// DOCUMENT ATOMICITY AND UNIQUENESS
// =============================================================================

func TestMemory_SaveOrder_DuplicateRejected(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	o := ledger.Order{ID: "o-1", OrderDate: day(1), SupplierID: "sup-1"}
	require.NoError(t, m.SaveOrder(ctx, o, nil))

	err := m.SaveOrder(ctx, o, []ledger.OrderLine{
		{OrderID: "o-1", ClientID: "c-1", ProductID: "P100_acme", Quantity: 1},
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateDocument)

	// The rejected batch left no lines behind
	lines, err := m.OrderLines(ctx, ledger.OrderLineFilter{})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestMemory_DeleteOrder_CascadesLines(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	seedSupply(t, m)

	require.NoError(t, m.DeleteOrder(ctx, "o-1"))

	o, err := m.GetOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.Nil(t, o)

	lines, err := m.OrderLines(ctx, ledger.OrderLineFilter{})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, ledger.OrderID("o-2"), lines[0].OrderID)
}

func TestMemory_DeleteConfirmation_CascadesLines(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	seedSupply(t, m)

	require.NoError(t, m.DeleteConfirmation(ctx, "k-2"))

	lines, err := m.ConfirmationLines(ctx, ledger.ConfirmationLineFilter{})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, ledger.ConfirmationID("k-1"), lines[0].ConfirmationID)
}

func TestMemory_DeleteMissing_NotFound(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	assert.True(t, ledger.IsNotFound(m.DeleteOrder(ctx, "nope")))
	assert.True(t, ledger.IsNotFound(m.DeleteConfirmation(ctx, "nope")))
	assert.True(t, ledger.IsNotFound(m.DeleteInvoice(ctx, "nope")))
	assert.True(t, ledger.IsNotFound(m.DeleteCancellation(ctx, "nope")))
}

// =============================================================================
// LINE ORDERING AND FILTERS
// =============================================================================

func TestMemory_ConfirmationLines_Ordering(t *testing.T) {
	// Orderless fallback lines first, then order date ascending, then
	// confirmation date, then client.

	m := store.NewMemory()
	ctx := context.Background()
	seedSupply(t, m)

	lines, err := m.ConfirmationLines(ctx, ledger.ConfirmationLineFilter{ProductID: "P100_acme"})
	require.NoError(t, err)
	require.Len(t, lines, 4)

	assert.Equal(t, ledger.UnknownClientID, lines[0].ClientID) // no order
	assert.Equal(t, ledger.ConfirmationID("k-1"), lines[1].ConfirmationID)
	assert.Equal(t, ledger.OrderID("o-1"), lines[1].OrderID)
	assert.Equal(t, ledger.ConfirmationID("k-2"), lines[2].ConfirmationID)
	assert.Equal(t, ledger.OrderID("o-1"), lines[2].OrderID)
	assert.Equal(t, ledger.OrderID("o-2"), lines[3].OrderID)
}

func TestMemory_ConfirmationLines_ConfirmedOnOrBefore(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	seedSupply(t, m)

	cutoff := day(5)
	lines, err := m.ConfirmationLines(ctx, ledger.ConfirmationLineFilter{
		ProductID:           "P100_acme",
		ConfirmedOnOrBefore: &cutoff,
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, ledger.ConfirmationID("k-1"), lines[0].ConfirmationID)

	// The boundary is inclusive
	cutoff = day(8)
	lines, err = m.ConfirmationLines(ctx, ledger.ConfirmationLineFilter{
		ProductID:           "P100_acme",
		ConfirmedOnOrBefore: &cutoff,
	})
	require.NoError(t, err)
	assert.Len(t, lines, 4)
}

func TestMemory_ConfirmationLines_FilterByOrder(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	seedSupply(t, m)

	lines, err := m.ConfirmationLines(ctx, ledger.ConfirmationLineFilter{OrderID: "o-1"})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, ledger.OrderID("o-1"), l.OrderID)
	}
}

func TestMemory_OrderLines_SortedByClient(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveOrder(ctx, ledger.Order{ID: "o-1", OrderDate: day(1), SupplierID: "sup-1"}, []ledger.OrderLine{
		{OrderID: "o-1", ClientID: "c-3", ProductID: "P100_acme", Quantity: 1},
		{OrderID: "o-1", ClientID: "c-1", ProductID: "P100_acme", Quantity: 2},
		{OrderID: "o-1", ClientID: "c-2", ProductID: "P200_acme", Quantity: 3},
	}))

	lines, err := m.OrderLines(ctx, ledger.OrderLineFilter{OrderID: "o-1"})
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, ledger.ClientID("c-1"), lines[0].ClientID)
	assert.Equal(t, ledger.ClientID("c-2"), lines[1].ClientID)
	assert.Equal(t, ledger.ClientID("c-3"), lines[2].ClientID)

	byProduct, err := m.OrderLines(ctx, ledger.OrderLineFilter{OrderID: "o-1", ProductID: "P200_acme"})
	require.NoError(t, err)
	require.Len(t, byProduct, 1)
	assert.Equal(t, ledger.ClientID("c-2"), byProduct[0].ClientID)
}

func TestMemory_InvoiceLines_FilterByConfirmation(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveInvoice(ctx, ledger.Invoice{ID: "i-1", InvoiceDate: day(10), SupplierID: "sup-1"}, []ledger.InvoiceLine{
		{InvoiceID: "i-1", ClientID: "c-1", ProductID: "P100_acme", ConfirmationID: "k-1", Quantity: 2},
		{InvoiceID: "i-1", ClientID: "c-1", ProductID: "P100_acme", ConfirmationID: "k-2", Quantity: 3},
	}))

	lines, err := m.InvoiceLines(ctx, ledger.InvoiceLineFilter{ConfirmationID: "k-2"})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3), lines[0].Quantity)
}

// =============================================================================
// DIRECTORIES
// =============================================================================

func TestMemory_GetOrCreateClient_Idempotent(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveClient(ctx, ledger.Client{ID: "c-1", Name: "First Client"}))

	c, err := m.GetOrCreateClient(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "First Client", c.Name)

	created, err := m.GetOrCreateClient(ctx, ledger.UnknownClientID)
	require.NoError(t, err)
	assert.Equal(t, ledger.UnknownClientID, created.ID)

	clients, err := m.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 2)
}

func TestMemory_EnsureProduct_KeepsExisting(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertProduct(ctx, ledger.Product{ID: "P100_acme", Name: "Original", BrandID: "acme"}))
	require.NoError(t, m.EnsureProduct(ctx, ledger.Product{ID: "P100_acme", Name: "Replacement", BrandID: "acme"}))

	p, err := m.GetProduct(ctx, "P100_acme")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Original", p.Name)

	require.NoError(t, m.UpsertProduct(ctx, ledger.Product{ID: "P100_acme", Name: "Replacement", BrandID: "acme"}))
	p, err = m.GetProduct(ctx, "P100_acme")
	require.NoError(t, err)
	assert.Equal(t, "Replacement", p.Name)
}
