/*
store.go - Persistence interfaces for the fulfillment ledger

PURPOSE:
  Defines the interface between the allocation engine and the database.
  The engine consumes and produces plain records; how they are stored is
  irrelevant to the algorithm. Implementations exist for SQLite
  (store/sqlite) and in-memory (ledger/store).

CAPABILITIES (the collaborator contract):
  DirectoryStore: lookup and upsert of Product/Client/Supplier/Brand
  DocumentStore:  atomic insert of a parent document plus its full line
                  set, retrieval, listing, cascading deletion
  LineStore:      filter-by-field line queries with deterministic ordering

ATOMICITY:
  Save* persists a parent document and every one of its lines as a single
  atomic unit. An error anywhere means nothing is written. Partial
  allocation is never observable.

ORDERING CONTRACT:
  ConfirmationLines returns lines sorted by the owning order's date
  ascending, then the confirmation's date ascending, then client ID.
  Lines without an order (Unknown fallback) sort first, as an absent date.
  This is the deterministic tie-break the allocator relies on.

CONCURRENCY:
  Single-writer, request-scoped. Two simultaneous allocations against the
  same product's open targets require external serialization (document
  locking or serializable isolation); the engine assumes the caller
  provides it. Reads may run concurrently with writes and may observe a
  pre-commit snapshot.
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// LINE FILTERS
// =============================================================================

// OrderLineFilter selects order lines. Zero values mean "any".
type OrderLineFilter struct {
	OrderID   OrderID
	ProductID ProductID
}

// ConfirmationLineFilter selects confirmation lines. Zero values mean
// "any". ConfirmedOnOrBefore keeps only lines whose confirmation is dated
// on or before the given day (invoices and cancellations may not consume
// supply confirmed after their own date).
type ConfirmationLineFilter struct {
	ProductID           ProductID
	ConfirmationID      ConfirmationID
	OrderID             OrderID
	ConfirmedOnOrBefore *time.Time
}

// InvoiceLineFilter selects invoice lines. Zero values mean "any".
type InvoiceLineFilter struct {
	ProductID      ProductID
	InvoiceID      InvoiceID
	ConfirmationID ConfirmationID
	OrderID        OrderID
}

// CancellationLineFilter selects cancellation lines. Zero values mean "any".
type CancellationLineFilter struct {
	ProductID      ProductID
	CancellationID CancellationID
	ConfirmationID ConfirmationID
	OrderID        OrderID
}

// =============================================================================
// DIRECTORY STORE
// =============================================================================

// DirectoryStore manages the reference records lines point at.
type DirectoryStore interface {
	// GetProduct returns nil when the product doesn't exist.
	GetProduct(ctx context.Context, id ProductID) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	// UpsertProduct creates the product or updates its name and brand.
	// Idempotent on ID.
	UpsertProduct(ctx context.Context, p Product) error

	// EnsureProduct creates the product if missing and leaves an existing
	// record untouched.
	EnsureProduct(ctx context.Context, p Product) error

	GetClient(ctx context.Context, id ClientID) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)
	SaveClient(ctx context.Context, c Client) error

	// GetOrCreateClient returns the client, creating it on first use.
	// The Unknown sentinel client comes into existence through this call.
	GetOrCreateClient(ctx context.Context, id ClientID) (Client, error)

	GetSupplier(ctx context.Context, id SupplierID) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	SaveSupplier(ctx context.Context, s Supplier) error

	GetBrand(ctx context.Context, id BrandID) (*Brand, error)
	ListBrands(ctx context.Context) ([]Brand, error)
	SaveBrand(ctx context.Context, b Brand) error
}

// =============================================================================
// DOCUMENT STORE - Atomic parent-plus-lines persistence
// =============================================================================

// DocumentStore persists parent documents with their complete line sets.
// Each Save* call is atomic: the document and every line are written
// together or not at all. Saving an existing document ID returns
// ErrDuplicateDocument. Delete* cascades to the document's lines.
type DocumentStore interface {
	SaveOrder(ctx context.Context, o Order, lines []OrderLine) error
	GetOrder(ctx context.Context, id OrderID) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	DeleteOrder(ctx context.Context, id OrderID) error

	SaveConfirmation(ctx context.Context, c Confirmation, lines []ConfirmationLine) error
	GetConfirmation(ctx context.Context, id ConfirmationID) (*Confirmation, error)
	ListConfirmations(ctx context.Context) ([]Confirmation, error)
	DeleteConfirmation(ctx context.Context, id ConfirmationID) error

	SaveInvoice(ctx context.Context, inv Invoice, lines []InvoiceLine) error
	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)
	ListInvoices(ctx context.Context) ([]Invoice, error)
	DeleteInvoice(ctx context.Context, id InvoiceID) error

	SaveCancellation(ctx context.Context, c Cancellation, lines []CancellationLine) error
	GetCancellation(ctx context.Context, id CancellationID) (*Cancellation, error)
	ListCancellations(ctx context.Context) ([]Cancellation, error)
	DeleteCancellation(ctx context.Context, id CancellationID) error
}

// =============================================================================
// LINE STORE - Filtered reads with deterministic ordering
// =============================================================================

// LineStore reads lines. All results are deterministically ordered:
// order lines by client ID; confirmation lines by (order date,
// confirmation date, client ID) with orderless lines first; invoice and
// cancellation lines by insertion order.
type LineStore interface {
	OrderLines(ctx context.Context, f OrderLineFilter) ([]OrderLine, error)
	ConfirmationLines(ctx context.Context, f ConfirmationLineFilter) ([]ConfirmationLine, error)
	InvoiceLines(ctx context.Context, f InvoiceLineFilter) ([]InvoiceLine, error)
	CancellationLines(ctx context.Context, f CancellationLineFilter) ([]CancellationLine, error)
}

// Store is the full persistence capability the engine runs against.
type Store interface {
	DirectoryStore
	DocumentStore
	LineStore
}
