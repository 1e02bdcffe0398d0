/*
Package ledger provides the core order-fulfillment ledger.

PURPOSE:
  This package contains the entities and algorithms shared by every stage
  of the fulfillment lifecycle. Client demand (orders) is answered by
  supplier supply (confirmations), which is later consumed by invoices and
  cancellations. Every stage writes immutable quantity-bearing lines, and
  the outstanding quantity at any point is always computed by netting
  those lines - there is no stored "balance" field that can drift.

KEY CONCEPTS IN THIS FILE (types.go):
  - Directory records: Product, Client, Supplier, Brand
  - Documents: Order, Confirmation, Invoice, Cancellation
  - Lines: the ledger's actual quantity-bearing rows, one per allocation

DESIGN PRINCIPLES:
  1. Immutability: lines are never edited; corrections replace a parent
     document's line set wholesale (outside this core) or delete the
     parent, cascading to its lines.
  2. Precision: quantities are integral pieces (int64); money uses
     decimal.Decimal to avoid floating-point errors.
  3. Type safety: strong ID types prevent mixing, e.g., order and
     confirmation identifiers.
  4. Provenance: invoice and cancellation lines pin the confirmation and
     order they consume, so netting always targets the right batch.

SEE ALSO:
  - balance.go: outstanding-quantity calculation over line collections
  - store.go: persistence interfaces
  - fulfillment: the allocation paths that create lines
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	ProductID      string
	ClientID       string
	BrandID        string
	SupplierID     string
	OrderID        string
	ConfirmationID string
	InvoiceID      string
	CancellationID string
)

// UnknownClientID is the sentinel client that absorbs supply exceeding any
// recorded demand. It is part of the data model: confirmation and invoice
// leftovers attach to it, and it is created lazily on first use.
const UnknownClientID ClientID = "Unknown"

// =============================================================================
// DIRECTORY RECORDS
// =============================================================================

type Product struct {
	ID      ProductID
	Name    string
	BrandID BrandID
}

type Client struct {
	ID   ClientID
	Name string
}

type Supplier struct {
	ID   SupplierID
	Name string
}

type Brand struct {
	ID   BrandID
	Name string
}

// =============================================================================
// DOCUMENTS - Parent records owning their line sets
// =============================================================================

// Order records client demand grouped under one supplier document.
type Order struct {
	ID         OrderID
	Name       string
	OrderDate  time.Time
	SupplierID SupplierID
	Comment    string
}

// Confirmation is the supplier's committed supply against demand. It may be
// linked to zero or more orders for context; each of its lines pins at most
// one specific order.
type Confirmation struct {
	ID               ConfirmationID
	Name             string
	Code             string
	ConfirmationDate time.Time
	SupplierID       SupplierID
	OrderIDs         []OrderID
	Comment          string
}

// Invoice bills previously confirmed quantity.
type Invoice struct {
	ID          InvoiceID
	Name        string
	InvoiceDate time.Time
	SupplierID  SupplierID
	Comment     string
}

// Cancellation withdraws previously confirmed, not-yet-invoiced quantity.
type Cancellation struct {
	ID               CancellationID
	CancellationDate time.Time
	BrandID          BrandID
	SupplierID       SupplierID
	Comment          string
}

// =============================================================================
// LINES - Immutable quantity-bearing rows
// =============================================================================

// OrderLine is recorded demand: a client wants Quantity pieces of a product.
type OrderLine struct {
	OrderID   OrderID
	ClientID  ClientID
	ProductID ProductID
	Quantity  int64
}

func (l OrderLine) Validate() error {
	if l.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Value: l.Quantity, Reason: "must be positive"}
	}
	return nil
}

// ConfirmationLine is confirmed supply allocated to one client, optionally
// pinned to the order whose demand it answers. OrderID is empty for the
// Unknown-client fallback line.
type ConfirmationLine struct {
	ConfirmationID ConfirmationID
	ClientID       ClientID
	ProductID      ProductID
	OrderID        OrderID
	Quantity       int64
	UnitPrice      decimal.Decimal
	Comment        string
}

func (l ConfirmationLine) Validate() error {
	if l.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Value: l.Quantity, Reason: "must be positive"}
	}
	return nil
}

// TotalAmount is quantity times unit price.
func (l ConfirmationLine) TotalAmount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// InvoiceLine is billed quantity with its provenance: the confirmation and
// order it consumes. Both are empty for the Unknown-client fallback line.
type InvoiceLine struct {
	InvoiceID      InvoiceID
	ClientID       ClientID
	ProductID      ProductID
	ConfirmationID ConfirmationID
	OrderID        OrderID
	Quantity       int64
	UnitPrice      decimal.Decimal
	Comment        string
}

func (l InvoiceLine) Validate() error {
	if l.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Value: l.Quantity, Reason: "must be positive"}
	}
	return nil
}

func (l InvoiceLine) TotalAmount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// CancellationLine is withdrawn quantity. Unlike invoices there is no
// fallback: a cancellation can never exceed what remains confirmed.
type CancellationLine struct {
	CancellationID CancellationID
	ClientID       ClientID
	ProductID      ProductID
	ConfirmationID ConfirmationID
	OrderID        OrderID
	Quantity       int64
}

func (l CancellationLine) Validate() error {
	if l.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Value: l.Quantity, Reason: "must be positive"}
	}
	return nil
}

// =============================================================================
// DERIVED DOCUMENT TOTALS
// =============================================================================

// ConfirmationTotal sums line amounts for one confirmation.
func ConfirmationTotal(lines []ConfirmationLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.TotalAmount())
	}
	return total
}

// InvoiceTotal sums line amounts for one invoice.
func InvoiceTotal(lines []InvoiceLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.TotalAmount())
	}
	return total
}
