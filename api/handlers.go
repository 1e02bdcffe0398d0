/*
handlers.go - HTTP API handlers for the fulfillment engine

PURPOSE:
  Exposes the allocation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Documents:
    POST   /api/orders                    Record an order
    GET    /api/orders                    List orders
    GET    /api/orders/{id}               Order with its lines
    DELETE /api/orders/{id}               Remove order and lines
    (confirmations, invoices, cancellations follow the same shape)

  Reconciliation:
    GET    /api/balance                   Outstanding quantities, optionally
                                          scoped by ?confirmation= and ?order=
    GET    /api/report                    Full reconciliation report

  Directories:
    GET/POST /api/clients, /api/suppliers, /api/brands
    GET      /api/products

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input shape (dates, JSON)
  3. Call the fulfillment engine
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Document or directory record not found
  - 409: Over-cancellation, duplicate document ID
  - 500: Persistence errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - fulfillment/engine.go: Domain logic
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/supplyline/fulfillment-engine/fulfillment"
	"github.com/supplyline/fulfillment-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  ledger.Store
	Engine *fulfillment.Engine
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(store ledger.Store) *Handler {
	return &Handler{
		Store:  store,
		Engine: fulfillment.NewEngine(store),
	}
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// CreateOrder records an order and its per-client demand lines.
// POST /api/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	orderDate, ok := parseDate(w, "order_date", req.OrderDate)
	if !ok {
		return
	}

	lines, err := h.Engine.CreateOrder(r.Context(), ledger.Order{
		ID:         ledger.OrderID(req.ID),
		Name:       req.Name,
		OrderDate:  orderDate,
		SupplierID: ledger.SupplierID(req.SupplierID),
		Comment:    req.Comment,
	}, toRows(req.Rows))
	if err != nil {
		writeDomainError(w, "Failed to create order", err)
		return
	}

	order, err := h.Store.GetOrder(r.Context(), ledger.OrderID(req.ID))
	if err != nil || order == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load created order", err)
		return
	}
	writeJSON(w, http.StatusCreated, OrderDetailDTO{
		Order: toOrderDTO(*order),
		Lines: toOrderLineDTOs(lines),
	})
}

// ListOrders returns all orders, oldest first.
// GET /api/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Store.ListOrders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders", err)
		return
	}
	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = toOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrder returns one order with its lines.
// GET /api/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := ledger.OrderID(chi.URLParam(r, "id"))

	order, err := h.Store.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get order", err)
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found", nil)
		return
	}
	lines, err := h.Store.OrderLines(r.Context(), ledger.OrderLineFilter{OrderID: id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get order lines", err)
		return
	}
	writeJSON(w, http.StatusOK, OrderDetailDTO{
		Order: toOrderDTO(*order),
		Lines: toOrderLineDTOs(lines),
	})
}

// DeleteOrder removes an order and, by cascade, its lines.
// DELETE /api/orders/{id}
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := ledger.OrderID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteOrder(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONFIRMATION HANDLERS
// =============================================================================

// CreateConfirmation records a confirmation, allocating its rows against
// the linked orders' open demand.
// POST /api/confirmations
func (h *Handler) CreateConfirmation(w http.ResponseWriter, r *http.Request) {
	var req CreateConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	confirmationDate, ok := parseDate(w, "confirmation_date", req.ConfirmationDate)
	if !ok {
		return
	}
	orderIDs := make([]ledger.OrderID, len(req.OrderIDs))
	for i, id := range req.OrderIDs {
		orderIDs[i] = ledger.OrderID(id)
	}

	lines, err := h.Engine.CreateConfirmation(r.Context(), ledger.Confirmation{
		ID:               ledger.ConfirmationID(req.ID),
		Name:             req.Name,
		Code:             req.Code,
		ConfirmationDate: confirmationDate,
		SupplierID:       ledger.SupplierID(req.SupplierID),
		OrderIDs:         orderIDs,
		Comment:          req.Comment,
	}, toRows(req.Rows))
	if err != nil {
		writeDomainError(w, "Failed to create confirmation", err)
		return
	}

	// The engine may have defaulted the ID to the code.
	id := ledger.ConfirmationID(req.ID)
	if id == "" {
		id = ledger.ConfirmationID(req.Code)
	}
	conf, err := h.Store.GetConfirmation(r.Context(), id)
	if err != nil || conf == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load created confirmation", err)
		return
	}
	writeJSON(w, http.StatusCreated, ConfirmationDetailDTO{
		Confirmation: toConfirmationDTO(*conf),
		Lines:        toConfirmationLineDTOs(lines),
	})
}

// ListConfirmations returns all confirmations, oldest first.
// GET /api/confirmations
func (h *Handler) ListConfirmations(w http.ResponseWriter, r *http.Request) {
	confirmations, err := h.Store.ListConfirmations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list confirmations", err)
		return
	}
	dtos := make([]ConfirmationDTO, len(confirmations))
	for i, c := range confirmations {
		dtos[i] = toConfirmationDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetConfirmation returns one confirmation with its lines.
// GET /api/confirmations/{id}
func (h *Handler) GetConfirmation(w http.ResponseWriter, r *http.Request) {
	id := ledger.ConfirmationID(chi.URLParam(r, "id"))

	conf, err := h.Store.GetConfirmation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get confirmation", err)
		return
	}
	if conf == nil {
		writeError(w, http.StatusNotFound, "Confirmation not found", nil)
		return
	}
	lines, err := h.Store.ConfirmationLines(r.Context(), ledger.ConfirmationLineFilter{ConfirmationID: id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get confirmation lines", err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmationDetailDTO{
		Confirmation: toConfirmationDTO(*conf),
		Lines:        toConfirmationLineDTOs(lines),
	})
}

// DeleteConfirmation removes a confirmation and its lines.
// DELETE /api/confirmations/{id}
func (h *Handler) DeleteConfirmation(w http.ResponseWriter, r *http.Request) {
	id := ledger.ConfirmationID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteConfirmation(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete confirmation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// CreateInvoice records an invoice, allocating its rows against
// remaining confirmed stock.
// POST /api/invoices
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	invoiceDate, ok := parseDate(w, "invoice_date", req.InvoiceDate)
	if !ok {
		return
	}

	lines, err := h.Engine.CreateInvoice(r.Context(), ledger.Invoice{
		ID:          ledger.InvoiceID(req.ID),
		Name:        req.Name,
		InvoiceDate: invoiceDate,
		SupplierID:  ledger.SupplierID(req.SupplierID),
		Comment:     req.Comment,
	}, toRows(req.Rows))
	if err != nil {
		writeDomainError(w, "Failed to create invoice", err)
		return
	}

	inv, err := h.Store.GetInvoice(r.Context(), ledger.InvoiceID(req.ID))
	if err != nil || inv == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load created invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, InvoiceDetailDTO{
		Invoice: toInvoiceDTO(*inv),
		Lines:   toInvoiceLineDTOs(lines),
	})
}

// ListInvoices returns all invoices, oldest first.
// GET /api/invoices
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Store.ListInvoices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}
	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoice returns one invoice with its lines.
// GET /api/invoices/{id}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))

	inv, err := h.Store.GetInvoice(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get invoice", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}
	lines, err := h.Store.InvoiceLines(r.Context(), ledger.InvoiceLineFilter{InvoiceID: id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get invoice lines", err)
		return
	}
	writeJSON(w, http.StatusOK, InvoiceDetailDTO{
		Invoice: toInvoiceDTO(*inv),
		Lines:   toInvoiceLineDTOs(lines),
	})
}

// DeleteInvoice removes an invoice; its quantities return to the open
// balance.
// DELETE /api/invoices/{id}
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteInvoice(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CANCELLATION HANDLERS
// =============================================================================

// CreateCancellation records a cancellation. Over-cancellation anywhere
// in the batch rejects the whole document with 409.
// POST /api/cancellations
func (h *Handler) CreateCancellation(w http.ResponseWriter, r *http.Request) {
	var req CreateCancellationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cancellationDate, ok := parseDate(w, "cancellation_date", req.CancellationDate)
	if !ok {
		return
	}

	lines, err := h.Engine.CreateCancellation(r.Context(), ledger.Cancellation{
		ID:               ledger.CancellationID(req.ID),
		CancellationDate: cancellationDate,
		BrandID:          ledger.BrandID(req.BrandID),
		SupplierID:       ledger.SupplierID(req.SupplierID),
		Comment:          req.Comment,
	}, toRows(req.Rows))
	if err != nil {
		writeDomainError(w, "Failed to create cancellation", err)
		return
	}

	c, err := h.Store.GetCancellation(r.Context(), ledger.CancellationID(req.ID))
	if err != nil || c == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load created cancellation", err)
		return
	}
	writeJSON(w, http.StatusCreated, CancellationDetailDTO{
		Cancellation: toCancellationDTO(*c),
		Lines:        toCancellationLineDTOs(lines),
	})
}

// ListCancellations returns all cancellations, oldest first.
// GET /api/cancellations
func (h *Handler) ListCancellations(w http.ResponseWriter, r *http.Request) {
	cancellations, err := h.Store.ListCancellations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list cancellations", err)
		return
	}
	dtos := make([]CancellationDTO, len(cancellations))
	for i, c := range cancellations {
		dtos[i] = toCancellationDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCancellation returns one cancellation with its lines.
// GET /api/cancellations/{id}
func (h *Handler) GetCancellation(w http.ResponseWriter, r *http.Request) {
	id := ledger.CancellationID(chi.URLParam(r, "id"))

	c, err := h.Store.GetCancellation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get cancellation", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Cancellation not found", nil)
		return
	}
	lines, err := h.Store.CancellationLines(r.Context(), ledger.CancellationLineFilter{CancellationID: id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get cancellation lines", err)
		return
	}
	writeJSON(w, http.StatusOK, CancellationDetailDTO{
		Cancellation: toCancellationDTO(*c),
		Lines:        toCancellationLineDTOs(lines),
	})
}

// DeleteCancellation removes a cancellation; its quantities return to
// the open balance.
// DELETE /api/cancellations/{id}
func (h *Handler) DeleteCancellation(w http.ResponseWriter, r *http.Request) {
	id := ledger.CancellationID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteCancellation(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete cancellation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// GetBalance returns outstanding quantities, optionally scoped to one
// confirmation and/or order.
// GET /api/balance?confirmation={id}&order={id}
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	scope := fulfillment.BalanceScope{
		ConfirmationID: ledger.ConfirmationID(r.URL.Query().Get("confirmation")),
		OrderID:        ledger.OrderID(r.URL.Query().Get("order")),
	}
	rows, err := h.Engine.Balance(r.Context(), scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportRowDTOs(rows))
}

// GetReport returns the full reconciliation report.
// GET /api/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Engine.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportRowDTOs(rows))
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListClients returns all clients, including the Unknown fallback once
// it exists.
// GET /api/clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	dtos := make([]DirectoryDTO, len(clients))
	for i, c := range clients {
		dtos[i] = DirectoryDTO{ID: string(c.ID), Name: c.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateClient records or renames a client.
// POST /api/clients
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req DirectoryDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Client ID is required", nil)
		return
	}
	if err := h.Store.SaveClient(r.Context(), ledger.Client{ID: ledger.ClientID(req.ID), Name: req.Name}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save client", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListSuppliers returns all suppliers.
// GET /api/suppliers
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.Store.ListSuppliers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list suppliers", err)
		return
	}
	dtos := make([]DirectoryDTO, len(suppliers))
	for i, s := range suppliers {
		dtos[i] = DirectoryDTO{ID: string(s.ID), Name: s.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSupplier records or renames a supplier.
// POST /api/suppliers
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req DirectoryDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Supplier ID is required", nil)
		return
	}
	if err := h.Store.SaveSupplier(r.Context(), ledger.Supplier{ID: ledger.SupplierID(req.ID), Name: req.Name}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save supplier", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListBrands returns all brands.
// GET /api/brands
func (h *Handler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.Store.ListBrands(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list brands", err)
		return
	}
	dtos := make([]DirectoryDTO, len(brands))
	for i, b := range brands {
		dtos[i] = DirectoryDTO{ID: string(b.ID), Name: b.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBrand records or renames a brand.
// POST /api/brands
func (h *Handler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var req DirectoryDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Brand ID is required", nil)
		return
	}
	if err := h.Store.SaveBrand(r.Context(), ledger.Brand{ID: ledger.BrandID(req.ID), Name: req.Name}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save brand", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListProducts returns all products. Products are created by document
// import, not by hand, so there is no POST.
// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}
	dtos := make([]DirectoryDTO, len(products))
	for i, p := range products {
		dtos[i] = DirectoryDTO{ID: string(p.ID), Name: p.Name, BrandID: string(p.BrandID)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrOverCancellation),
		errors.Is(err, ledger.ErrDuplicateDocument):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// parseDate parses an ISO date, writing a 400 on failure. An empty
// value is allowed and means "today" (the engine defaults it).
func parseDate(w http.ResponseWriter, field, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+field+", expected YYYY-MM-DD", err)
		return time.Time{}, false
	}
	return t, true
}
