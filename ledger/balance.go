/*
balance.go - Outstanding quantity calculation

PURPOSE:
  Computes the "left" quantity: what remains of confirmed supply after
  netting invoiced and cancelled consumption, per (client, order,
  confirmation) grouping. This is the shared read capability every
  allocation path and the reconciliation report depend on, and it has no
  reverse dependency on any of them.

KEY INSIGHT:
  left = confirmed - invoiced - cancelled, grouped by provenance. A group
  only surfaces while left > 0; fully settled or over-settled groups are
  omitted, never reported as negative.

ORDERING:
  Group order follows the confirmed collection's iteration order. Callers
  supply lines already sorted by the deterministic tie-break (order date
  ascending, then confirmation date ascending), so allocation against the
  result is reproducible.

NOTE ON THE AGGREGATE SHORT-CIRCUIT:
  An earlier revision skipped per-group computation whenever the product's
  aggregate netted to zero or below. That guard is wrong once fallback
  invoice lines exist: an invoice overshooting one confirmation attaches
  its excess to the Unknown client, whose group has no confirmed quantity
  and nets negative. The aggregate can then be non-positive while another
  confirmation's group still has stock left. Per-group computation always
  runs. See TestLeftPerGroup_AggregateNonPositive_GroupStillOpen.

SEE ALSO:
  - fulfillment: builds target sets from these results
  - types.go: the line entities being netted
*/
package ledger

import "sort"

// =============================================================================
// LEFT QUANTITY - confirmed net of invoiced and cancelled
// =============================================================================

// balanceKey is the netting granularity: consumption only counts against
// confirmed stock sharing the same client, order, and confirmation.
type balanceKey struct {
	ClientID       ClientID
	OrderID        OrderID
	ConfirmationID ConfirmationID
}

// LeftQuantity is one open group: how much of a product remains confirmed
// but neither invoiced nor cancelled for this client/order/confirmation.
type LeftQuantity struct {
	ProductID      ProductID
	ClientID       ClientID
	OrderID        OrderID
	ConfirmationID ConfirmationID
	Quantity       int64
}

// LeftPerGroup nets the three line collections per (client, order,
// confirmation) triple and returns the groups with positive leftover, in
// the confirmed collection's group order. Pure function; collections are
// assumed pre-filtered to one product (and any confirmation/order scope).
func LeftPerGroup(confirmed []ConfirmationLine, invoiced []InvoiceLine, cancelled []CancellationLine) []LeftQuantity {
	confirmedSums := make(map[balanceKey]int64)
	var order []balanceKey
	var productID ProductID
	for _, l := range confirmed {
		k := balanceKey{ClientID: l.ClientID, OrderID: l.OrderID, ConfirmationID: l.ConfirmationID}
		if _, seen := confirmedSums[k]; !seen {
			order = append(order, k)
		}
		confirmedSums[k] += l.Quantity
		productID = l.ProductID
	}

	invoicedSums := make(map[balanceKey]int64)
	for _, l := range invoiced {
		k := balanceKey{ClientID: l.ClientID, OrderID: l.OrderID, ConfirmationID: l.ConfirmationID}
		invoicedSums[k] += l.Quantity
	}
	cancelledSums := make(map[balanceKey]int64)
	for _, l := range cancelled {
		k := balanceKey{ClientID: l.ClientID, OrderID: l.OrderID, ConfirmationID: l.ConfirmationID}
		cancelledSums[k] += l.Quantity
	}

	var left []LeftQuantity
	for _, k := range order {
		remaining := confirmedSums[k] - invoicedSums[k] - cancelledSums[k]
		if remaining > 0 {
			left = append(left, LeftQuantity{
				ProductID:      productID,
				ClientID:       k.ClientID,
				OrderID:        k.OrderID,
				ConfirmationID: k.ConfirmationID,
				Quantity:       remaining,
			})
		}
	}
	return left
}

// =============================================================================
// OPEN DEMAND - ordered net of confirmed, per client
// =============================================================================

// OpenDemand is one client's unconfirmed order quantity for a product
// within a single order.
type OpenDemand struct {
	ClientID ClientID
	Quantity int64
}

// OpenDemandPerClient nets ordered against confirmed quantity per client
// for one (order, product) pair. Clients are returned in ascending ID
// order, the deterministic tie-break for confirmation allocation. Pure
// function; both collections are assumed pre-filtered to the pair.
func OpenDemandPerClient(ordered []OrderLine, confirmed []ConfirmationLine) []OpenDemand {
	orderedSums := make(map[ClientID]int64)
	for _, l := range ordered {
		orderedSums[l.ClientID] += l.Quantity
	}
	confirmedSums := make(map[ClientID]int64)
	for _, l := range confirmed {
		confirmedSums[l.ClientID] += l.Quantity
	}

	clients := make([]ClientID, 0, len(orderedSums))
	for c := range orderedSums {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i] < clients[j] })

	var open []OpenDemand
	for _, c := range clients {
		remaining := orderedSums[c] - confirmedSums[c]
		if remaining > 0 {
			open = append(open, OpenDemand{ClientID: c, Quantity: remaining})
		}
	}
	return open
}
