// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/supplyline/fulfillment-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	products  map[ledger.ProductID]ledger.Product
	clients   map[ledger.ClientID]ledger.Client
	suppliers map[ledger.SupplierID]ledger.Supplier
	brands    map[ledger.BrandID]ledger.Brand

	orders        map[ledger.OrderID]ledger.Order
	confirmations map[ledger.ConfirmationID]ledger.Confirmation
	invoices      map[ledger.InvoiceID]ledger.Invoice
	cancellations map[ledger.CancellationID]ledger.Cancellation

	orderLines        []ledger.OrderLine
	confirmationLines []ledger.ConfirmationLine
	invoiceLines      []ledger.InvoiceLine
	cancellationLines []ledger.CancellationLine
}

func NewMemory() *Memory {
	return &Memory{
		products:      make(map[ledger.ProductID]ledger.Product),
		clients:       make(map[ledger.ClientID]ledger.Client),
		suppliers:     make(map[ledger.SupplierID]ledger.Supplier),
		brands:        make(map[ledger.BrandID]ledger.Brand),
		orders:        make(map[ledger.OrderID]ledger.Order),
		confirmations: make(map[ledger.ConfirmationID]ledger.Confirmation),
		invoices:      make(map[ledger.InvoiceID]ledger.Invoice),
		cancellations: make(map[ledger.CancellationID]ledger.Cancellation),
	}
}

// =============================================================================
// DIRECTORY STORE
// =============================================================================

func (m *Memory) GetProduct(_ context.Context, id ledger.ProductID) (*ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.products[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Product, 0, len(m.products))
	for _, p := range m.products {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) UpsertProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

func (m *Memory) EnsureProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		m.products[p.ID] = p
	}
	return nil
}

func (m *Memory) GetClient(_ context.Context, id ledger.ClientID) (*ledger.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clients[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) ListClients(_ context.Context) ([]ledger.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Client, 0, len(m.clients))
	for _, c := range m.clients {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveClient(_ context.Context, c ledger.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	return nil
}

func (m *Memory) GetOrCreateClient(_ context.Context, id ledger.ClientID) (ledger.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[id]; ok {
		return c, nil
	}
	c := ledger.Client{ID: id}
	m.clients[id] = c
	return c, nil
}

func (m *Memory) GetSupplier(_ context.Context, id ledger.SupplierID) (*ledger.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.suppliers[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) ListSuppliers(_ context.Context) ([]ledger.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveSupplier(_ context.Context, s ledger.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppliers[s.ID] = s
	return nil
}

func (m *Memory) GetBrand(_ context.Context, id ledger.BrandID) (*ledger.Brand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.brands[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (m *Memory) ListBrands(_ context.Context) ([]ledger.Brand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Brand, 0, len(m.brands))
	for _, b := range m.brands {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveBrand(_ context.Context, b ledger.Brand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brands[b.ID] = b
	return nil
}

// =============================================================================
// DOCUMENT STORE - Atomic parent-plus-lines writes
// =============================================================================
// Each Save* validates under the lock before mutating anything, so a
// rejected batch leaves no partial state.

func (m *Memory) SaveOrder(_ context.Context, o ledger.Order, lines []ledger.OrderLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return ledger.ErrDuplicateDocument
	}
	m.orders[o.ID] = o
	m.orderLines = append(m.orderLines, lines...)
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id ledger.OrderID) (*ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		return &o, nil
	}
	return nil, nil
}

func (m *Memory) ListOrders(_ context.Context) ([]ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Order, 0, len(m.orders))
	for _, o := range m.orders {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].OrderDate.Equal(result[j].OrderDate) {
			return result[i].OrderDate.Before(result[j].OrderDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) DeleteOrder(_ context.Context, id ledger.OrderID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return &ledger.NotFoundError{Kind: "order", ID: string(id)}
	}
	delete(m.orders, id)
	kept := m.orderLines[:0]
	for _, l := range m.orderLines {
		if l.OrderID != id {
			kept = append(kept, l)
		}
	}
	m.orderLines = kept
	return nil
}

func (m *Memory) SaveConfirmation(_ context.Context, c ledger.Confirmation, lines []ledger.ConfirmationLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.confirmations[c.ID]; ok {
		return ledger.ErrDuplicateDocument
	}
	m.confirmations[c.ID] = c
	m.confirmationLines = append(m.confirmationLines, lines...)
	return nil
}

func (m *Memory) GetConfirmation(_ context.Context, id ledger.ConfirmationID) (*ledger.Confirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.confirmations[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) ListConfirmations(_ context.Context) ([]ledger.Confirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Confirmation, 0, len(m.confirmations))
	for _, c := range m.confirmations {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ConfirmationDate.Equal(result[j].ConfirmationDate) {
			return result[i].ConfirmationDate.Before(result[j].ConfirmationDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) DeleteConfirmation(_ context.Context, id ledger.ConfirmationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.confirmations[id]; !ok {
		return &ledger.NotFoundError{Kind: "confirmation", ID: string(id)}
	}
	delete(m.confirmations, id)
	kept := m.confirmationLines[:0]
	for _, l := range m.confirmationLines {
		if l.ConfirmationID != id {
			kept = append(kept, l)
		}
	}
	m.confirmationLines = kept
	return nil
}

func (m *Memory) SaveInvoice(_ context.Context, inv ledger.Invoice, lines []ledger.InvoiceLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[inv.ID]; ok {
		return ledger.ErrDuplicateDocument
	}
	m.invoices[inv.ID] = inv
	m.invoiceLines = append(m.invoiceLines, lines...)
	return nil
}

func (m *Memory) GetInvoice(_ context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if inv, ok := m.invoices[id]; ok {
		return &inv, nil
	}
	return nil, nil
}

func (m *Memory) ListInvoices(_ context.Context) ([]ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		result = append(result, inv)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].InvoiceDate.Equal(result[j].InvoiceDate) {
			return result[i].InvoiceDate.Before(result[j].InvoiceDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) DeleteInvoice(_ context.Context, id ledger.InvoiceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[id]; !ok {
		return &ledger.NotFoundError{Kind: "invoice", ID: string(id)}
	}
	delete(m.invoices, id)
	kept := m.invoiceLines[:0]
	for _, l := range m.invoiceLines {
		if l.InvoiceID != id {
			kept = append(kept, l)
		}
	}
	m.invoiceLines = kept
	return nil
}

func (m *Memory) SaveCancellation(_ context.Context, c ledger.Cancellation, lines []ledger.CancellationLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cancellations[c.ID]; ok {
		return ledger.ErrDuplicateDocument
	}
	m.cancellations[c.ID] = c
	m.cancellationLines = append(m.cancellationLines, lines...)
	return nil
}

func (m *Memory) GetCancellation(_ context.Context, id ledger.CancellationID) (*ledger.Cancellation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.cancellations[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) ListCancellations(_ context.Context) ([]ledger.Cancellation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Cancellation, 0, len(m.cancellations))
	for _, c := range m.cancellations {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CancellationDate.Equal(result[j].CancellationDate) {
			return result[i].CancellationDate.Before(result[j].CancellationDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) DeleteCancellation(_ context.Context, id ledger.CancellationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cancellations[id]; !ok {
		return &ledger.NotFoundError{Kind: "cancellation", ID: string(id)}
	}
	delete(m.cancellations, id)
	kept := m.cancellationLines[:0]
	for _, l := range m.cancellationLines {
		if l.CancellationID != id {
			kept = append(kept, l)
		}
	}
	m.cancellationLines = kept
	return nil
}

// =============================================================================
// LINE STORE - Filtered, deterministically ordered reads
// =============================================================================

func (m *Memory) OrderLines(_ context.Context, f ledger.OrderLineFilter) ([]ledger.OrderLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ledger.OrderLine
	for _, l := range m.orderLines {
		if f.OrderID != "" && l.OrderID != f.OrderID {
			continue
		}
		if f.ProductID != "" && l.ProductID != f.ProductID {
			continue
		}
		result = append(result, l)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ClientID < result[j].ClientID })
	return result, nil
}

func (m *Memory) ConfirmationLines(_ context.Context, f ledger.ConfirmationLineFilter) ([]ledger.ConfirmationLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ledger.ConfirmationLine
	for _, l := range m.confirmationLines {
		if f.ProductID != "" && l.ProductID != f.ProductID {
			continue
		}
		if f.ConfirmationID != "" && l.ConfirmationID != f.ConfirmationID {
			continue
		}
		if f.OrderID != "" && l.OrderID != f.OrderID {
			continue
		}
		if f.ConfirmedOnOrBefore != nil {
			c, ok := m.confirmations[l.ConfirmationID]
			if !ok || c.ConfirmationDate.After(*f.ConfirmedOnOrBefore) {
				continue
			}
		}
		result = append(result, l)
	}
	sort.SliceStable(result, func(i, j int) bool {
		di, dj := m.orderDateLocked(result[i].OrderID), m.orderDateLocked(result[j].OrderID)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		ci, cj := m.confirmationDateLocked(result[i].ConfirmationID), m.confirmationDateLocked(result[j].ConfirmationID)
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return result[i].ClientID < result[j].ClientID
	})
	return result, nil
}

func (m *Memory) InvoiceLines(_ context.Context, f ledger.InvoiceLineFilter) ([]ledger.InvoiceLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ledger.InvoiceLine
	for _, l := range m.invoiceLines {
		if f.ProductID != "" && l.ProductID != f.ProductID {
			continue
		}
		if f.InvoiceID != "" && l.InvoiceID != f.InvoiceID {
			continue
		}
		if f.ConfirmationID != "" && l.ConfirmationID != f.ConfirmationID {
			continue
		}
		if f.OrderID != "" && l.OrderID != f.OrderID {
			continue
		}
		result = append(result, l)
	}
	return result, nil
}

func (m *Memory) CancellationLines(_ context.Context, f ledger.CancellationLineFilter) ([]ledger.CancellationLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ledger.CancellationLine
	for _, l := range m.cancellationLines {
		if f.ProductID != "" && l.ProductID != f.ProductID {
			continue
		}
		if f.CancellationID != "" && l.CancellationID != f.CancellationID {
			continue
		}
		if f.ConfirmationID != "" && l.ConfirmationID != f.ConfirmationID {
			continue
		}
		if f.OrderID != "" && l.OrderID != f.OrderID {
			continue
		}
		result = append(result, l)
	}
	return result, nil
}

// orderDateLocked treats a missing order as the zero time so orderless
// fallback lines sort first.
func (m *Memory) orderDateLocked(id ledger.OrderID) time.Time {
	if id == "" {
		return time.Time{}
	}
	if o, ok := m.orders[id]; ok {
		return o.OrderDate
	}
	return time.Time{}
}

func (m *Memory) confirmationDateLocked(id ledger.ConfirmationID) time.Time {
	if c, ok := m.confirmations[id]; ok {
		return c.ConfirmationDate
	}
	return time.Time{}
}
