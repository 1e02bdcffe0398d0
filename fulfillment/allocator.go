/*
allocator.go - FIFO distribution of an aggregate quantity across open targets

PURPOSE:
  The one algorithm instantiated by every stage transition: a batch's
  total quantity for a product is split across the earlier stage's open
  demand, walking targets in a deterministic order and draining each in
  turn. Confirmation creation runs it against open order demand; invoice
  and cancellation creation run it against confirmed stock net of prior
  consumption.

CONTRACT:
  - Targets arrive already sorted by the caller's tie-break key (order
    date ascending, then confirmation date ascending, then client).
  - Each target receives min(running total, target remaining); targets
    with nothing remaining are skipped.
  - The walk stops when the running total reaches zero or targets run out;
  	whatever is left is returned to the caller, whose policy decides
  	between the Unknown-client fallback (confirmation, invoice) and a
  	hard error (cancellation).
  - One allocation per non-zero grant; a single target is never allocated
    more than its remaining quantity.
*/
package fulfillment

import "github.com/supplyline/fulfillment-engine/ledger"

// Target is one open-demand record eligible to absorb allocated quantity.
// OrderID and ConfirmationID carry the provenance the emitted line will
// pin; either may be empty depending on the stage.
type Target struct {
	ClientID       ledger.ClientID
	OrderID        ledger.OrderID
	ConfirmationID ledger.ConfirmationID
	Remaining      int64
}

// Allocation is one non-zero grant to a target.
type Allocation struct {
	ClientID       ledger.ClientID
	OrderID        ledger.OrderID
	ConfirmationID ledger.ConfirmationID
	Quantity       int64
}

// Distribute walks targets in order, allocating up to each target's
// remaining quantity, and returns the allocations plus the quantity no
// target could absorb.
func Distribute(total int64, targets []Target) ([]Allocation, int64) {
	var allocs []Allocation
	for _, t := range targets {
		if total <= 0 {
			break
		}
		if t.Remaining <= 0 {
			continue
		}
		quantity := t.Remaining
		if total < quantity {
			quantity = total
		}
		total -= quantity
		allocs = append(allocs, Allocation{
			ClientID:       t.ClientID,
			OrderID:        t.OrderID,
			ConfirmationID: t.ConfirmationID,
			Quantity:       quantity,
		})
	}
	return allocs, total
}
