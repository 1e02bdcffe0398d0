/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - Create*Request: Request body types from clients

DATES:
  All document dates travel as ISO "2006-01-02" strings; an empty date
  means "today".

PRICES:
  Unit prices are decimal.Decimal, which marshals as a quoted string and
  unmarshals from either a string or a JSON number. Never float64.

VALIDATION:
  Structural validation (dates, JSON shape) happens in handlers; business
  validation lives in the fulfillment engine. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - fulfillment/rows.go: Row, the engine-side input type
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/supplyline/fulfillment-engine/fulfillment"
	"github.com/supplyline/fulfillment-engine/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RowDTO is one imported document row before allocation.
type RowDTO struct {
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name,omitempty"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ClientID       string          `json:"client_id,omitempty"`
	ConfirmationID string          `json:"confirmation_id,omitempty"`
	OrderID        string          `json:"order_id,omitempty"`
}

// CreateOrderRequest is the request to record an order.
type CreateOrderRequest struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	OrderDate  string   `json:"order_date"`
	SupplierID string   `json:"supplier_id"`
	Comment    string   `json:"comment,omitempty"`
	Rows       []RowDTO `json:"rows"`
}

// CreateConfirmationRequest is the request to record a confirmation.
type CreateConfirmationRequest struct {
	ID               string   `json:"id,omitempty"` // defaults to the code
	Name             string   `json:"name"`
	Code             string   `json:"confirmation_code"`
	ConfirmationDate string   `json:"confirmation_date"`
	SupplierID       string   `json:"supplier_id"`
	OrderIDs         []string `json:"order_ids,omitempty"`
	Comment          string   `json:"comment,omitempty"`
	Rows             []RowDTO `json:"rows"`
}

// CreateInvoiceRequest is the request to record an invoice.
type CreateInvoiceRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	InvoiceDate string   `json:"invoice_date"`
	SupplierID  string   `json:"supplier_id"`
	Comment     string   `json:"comment,omitempty"`
	Rows        []RowDTO `json:"rows"`
}

// CreateCancellationRequest is the request to record a cancellation.
type CreateCancellationRequest struct {
	ID               string   `json:"id"`
	CancellationDate string   `json:"cancellation_date"`
	BrandID          string   `json:"brand_id"`
	SupplierID       string   `json:"supplier_id"`
	Comment          string   `json:"comment,omitempty"`
	Rows             []RowDTO `json:"rows"`
}

// OrderDTO represents an order in API responses.
type OrderDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OrderDate  string `json:"order_date"`
	SupplierID string `json:"supplier_id"`
	Comment    string `json:"comment,omitempty"`
}

// OrderLineDTO is one client's demand for one product.
type OrderLineDTO struct {
	OrderID   string `json:"order_id"`
	ClientID  string `json:"client_id"`
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// OrderDetailDTO is an order with its lines.
type OrderDetailDTO struct {
	Order OrderDTO       `json:"order"`
	Lines []OrderLineDTO `json:"lines"`
}

// ConfirmationDTO represents a confirmation in API responses.
type ConfirmationDTO struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Code             string   `json:"confirmation_code"`
	ConfirmationDate string   `json:"confirmation_date"`
	SupplierID       string   `json:"supplier_id"`
	OrderIDs         []string `json:"order_ids,omitempty"`
	Comment          string   `json:"comment,omitempty"`
}

// ConfirmationLineDTO is one allocated confirmation line.
type ConfirmationLineDTO struct {
	ConfirmationID string          `json:"confirmation_id"`
	ClientID       string          `json:"client_id"`
	ProductID      string          `json:"product_id"`
	OrderID        string          `json:"order_id,omitempty"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Comment        string          `json:"comment,omitempty"`
}

// ConfirmationDetailDTO is a confirmation with its lines.
type ConfirmationDetailDTO struct {
	Confirmation ConfirmationDTO       `json:"confirmation"`
	Lines        []ConfirmationLineDTO `json:"lines"`
}

// InvoiceDTO represents an invoice in API responses.
type InvoiceDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	InvoiceDate string `json:"invoice_date"`
	SupplierID  string `json:"supplier_id"`
	Comment     string `json:"comment,omitempty"`
}

// InvoiceLineDTO is one allocated invoice line with provenance.
type InvoiceLineDTO struct {
	InvoiceID      string          `json:"invoice_id"`
	ClientID       string          `json:"client_id"`
	ProductID      string          `json:"product_id"`
	ConfirmationID string          `json:"confirmation_id,omitempty"`
	OrderID        string          `json:"order_id,omitempty"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Comment        string          `json:"comment,omitempty"`
}

// InvoiceDetailDTO is an invoice with its lines.
type InvoiceDetailDTO struct {
	Invoice InvoiceDTO       `json:"invoice"`
	Lines   []InvoiceLineDTO `json:"lines"`
}

// CancellationDTO represents a cancellation in API responses.
type CancellationDTO struct {
	ID               string `json:"id"`
	CancellationDate string `json:"cancellation_date"`
	BrandID          string `json:"brand_id"`
	SupplierID       string `json:"supplier_id"`
	Comment          string `json:"comment,omitempty"`
}

// CancellationLineDTO is one allocated cancellation line.
type CancellationLineDTO struct {
	CancellationID string `json:"cancellation_id"`
	ClientID       string `json:"client_id"`
	ProductID      string `json:"product_id"`
	ConfirmationID string `json:"confirmation_id,omitempty"`
	OrderID        string `json:"order_id,omitempty"`
	Quantity       int64  `json:"quantity"`
}

// CancellationDetailDTO is a cancellation with its lines.
type CancellationDetailDTO struct {
	Cancellation CancellationDTO       `json:"cancellation"`
	Lines        []CancellationLineDTO `json:"lines"`
}

// ReportRowDTO is one open position in the reconciliation report.
type ReportRowDTO struct {
	ProductID    string `json:"product_id"`
	Confirmation string `json:"confirmation"`
	Order        string `json:"order,omitempty"`
	ClientID     string `json:"client_id"`
	Quantity     int64  `json:"quantity"`
}

// DirectoryDTO is a directory record (client, supplier, brand, product).
type DirectoryDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BrandID string `json:"brand_id,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRows(dtos []RowDTO) []fulfillment.Row {
	rows := make([]fulfillment.Row, len(dtos))
	for i, d := range dtos {
		rows[i] = fulfillment.Row{
			ProductID:      ledger.ProductID(d.ProductID),
			ProductName:    d.ProductName,
			Quantity:       d.Quantity,
			UnitPrice:      d.UnitPrice,
			ClientID:       ledger.ClientID(d.ClientID),
			ConfirmationID: ledger.ConfirmationID(d.ConfirmationID),
			OrderID:        ledger.OrderID(d.OrderID),
		}
	}
	return rows
}

func toOrderDTO(o ledger.Order) OrderDTO {
	return OrderDTO{
		ID:         string(o.ID),
		Name:       o.Name,
		OrderDate:  o.OrderDate.Format("2006-01-02"),
		SupplierID: string(o.SupplierID),
		Comment:    o.Comment,
	}
}

func toOrderLineDTOs(lines []ledger.OrderLine) []OrderLineDTO {
	dtos := make([]OrderLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = OrderLineDTO{
			OrderID:   string(l.OrderID),
			ClientID:  string(l.ClientID),
			ProductID: string(l.ProductID),
			Quantity:  l.Quantity,
		}
	}
	return dtos
}

func toConfirmationDTO(c ledger.Confirmation) ConfirmationDTO {
	orderIDs := make([]string, len(c.OrderIDs))
	for i, id := range c.OrderIDs {
		orderIDs[i] = string(id)
	}
	return ConfirmationDTO{
		ID:               string(c.ID),
		Name:             c.Name,
		Code:             c.Code,
		ConfirmationDate: c.ConfirmationDate.Format("2006-01-02"),
		SupplierID:       string(c.SupplierID),
		OrderIDs:         orderIDs,
		Comment:          c.Comment,
	}
}

func toConfirmationLineDTOs(lines []ledger.ConfirmationLine) []ConfirmationLineDTO {
	dtos := make([]ConfirmationLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = ConfirmationLineDTO{
			ConfirmationID: string(l.ConfirmationID),
			ClientID:       string(l.ClientID),
			ProductID:      string(l.ProductID),
			OrderID:        string(l.OrderID),
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			TotalAmount:    l.TotalAmount(),
			Comment:        l.Comment,
		}
	}
	return dtos
}

func toInvoiceDTO(inv ledger.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:          string(inv.ID),
		Name:        inv.Name,
		InvoiceDate: inv.InvoiceDate.Format("2006-01-02"),
		SupplierID:  string(inv.SupplierID),
		Comment:     inv.Comment,
	}
}

func toInvoiceLineDTOs(lines []ledger.InvoiceLine) []InvoiceLineDTO {
	dtos := make([]InvoiceLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = InvoiceLineDTO{
			InvoiceID:      string(l.InvoiceID),
			ClientID:       string(l.ClientID),
			ProductID:      string(l.ProductID),
			ConfirmationID: string(l.ConfirmationID),
			OrderID:        string(l.OrderID),
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			TotalAmount:    l.TotalAmount(),
			Comment:        l.Comment,
		}
	}
	return dtos
}

func toCancellationDTO(c ledger.Cancellation) CancellationDTO {
	return CancellationDTO{
		ID:               string(c.ID),
		CancellationDate: c.CancellationDate.Format("2006-01-02"),
		BrandID:          string(c.BrandID),
		SupplierID:       string(c.SupplierID),
		Comment:          c.Comment,
	}
}

func toCancellationLineDTOs(lines []ledger.CancellationLine) []CancellationLineDTO {
	dtos := make([]CancellationLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = CancellationLineDTO{
			CancellationID: string(l.CancellationID),
			ClientID:       string(l.ClientID),
			ProductID:      string(l.ProductID),
			ConfirmationID: string(l.ConfirmationID),
			OrderID:        string(l.OrderID),
			Quantity:       l.Quantity,
		}
	}
	return dtos
}

func toReportRowDTOs(rows []fulfillment.ReportRow) []ReportRowDTO {
	dtos := make([]ReportRowDTO, len(rows))
	for i, r := range rows {
		dtos[i] = ReportRowDTO{
			ProductID:    string(r.ProductID),
			Confirmation: r.ConfirmationName,
			Order:        r.OrderName,
			ClientID:     string(r.ClientID),
			Quantity:     r.Quantity,
		}
	}
	return dtos
}
