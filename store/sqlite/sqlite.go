/*
Package sqlite provides a SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements ledger.Store (directories, documents, lines) using SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

ATOMIC LINE BATCHES:
  Every document save runs inside one database transaction: the parent
  row, any order links, and the complete line set commit together or not
  at all. A partially allocated document is never observable.

IMMUTABILITY:
  There are no UPDATE statements on line tables. Lines change only when
  their parent document is deleted (ON DELETE CASCADE) or a new document
  is recorded.

KEY TABLES:
  products/clients/suppliers/brands  directory records
  orders, order_lines                recorded demand
  confirmations, confirmation_orders (m2m), confirmation_lines
  invoices, invoice_lines
  cancellations, cancellation_lines

ORDERING:
  confirmation_lines reads join the owning order and confirmation to
  sort by (order date, confirmation date, client). Lines without an
  order coalesce to the empty string and sort first.

CONCURRENCY:
  WAL mode plus a sync.RWMutex for in-process safety. Serializing
  concurrent allocations against the same product is the caller's job.

USAGE:
  store, err := sqlite.New("./data/fulfillment.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/supplyline/fulfillment-engine/ledger"
)

const dateFormat = "2006-01-02"

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Directory records
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		brand_id TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS brands (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	);

	-- Orders: recorded demand
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		order_date TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS order_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		client_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0)
	);
	CREATE INDEX IF NOT EXISTS idx_order_lines_order_product
		ON order_lines(order_id, product_id);

	-- Confirmations: committed supply
	CREATE TABLE IF NOT EXISTS confirmations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL UNIQUE,
		confirmation_date TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS confirmation_orders (
		confirmation_id TEXT NOT NULL REFERENCES confirmations(id) ON DELETE CASCADE,
		order_id TEXT NOT NULL,
		PRIMARY KEY (confirmation_id, order_id)
	);
	CREATE TABLE IF NOT EXISTS confirmation_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		confirmation_id TEXT NOT NULL REFERENCES confirmations(id) ON DELETE CASCADE,
		client_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		order_id TEXT,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price TEXT NOT NULL DEFAULT '0',
		comment TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_confirmation_lines_product
		ON confirmation_lines(product_id);
	CREATE INDEX IF NOT EXISTS idx_confirmation_lines_order_product
		ON confirmation_lines(order_id, product_id);

	-- Invoices: billed consumption
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		invoice_date TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS invoice_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		client_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		confirmation_id TEXT,
		order_id TEXT,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price TEXT NOT NULL DEFAULT '0',
		comment TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_invoice_lines_product
		ON invoice_lines(product_id);

	-- Cancellations: withdrawn consumption
	CREATE TABLE IF NOT EXISTS cancellations (
		id TEXT PRIMARY KEY,
		cancellation_date TEXT NOT NULL,
		brand_id TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS cancellation_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cancellation_id TEXT NOT NULL REFERENCES cancellations(id) ON DELETE CASCADE,
		client_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		confirmation_id TEXT,
		order_id TEXT,
		quantity INTEGER NOT NULL CHECK (quantity > 0)
	);
	CREATE INDEX IF NOT EXISTS idx_cancellation_lines_product
		ON cancellation_lines(product_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DIRECTORY STORE
// =============================================================================

func (s *Store) GetProduct(ctx context.Context, id ledger.ProductID) (*ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p ledger.Product
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, brand_id FROM products WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.BrandID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, brand_id FROM products ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		var p ledger.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.BrandID); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) UpsertProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, brand_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, brand_id = excluded.brand_id
	`, p.ID, p.Name, p.BrandID)
	return err
}

func (s *Store) EnsureProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, brand_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, p.ID, p.Name, p.BrandID)
	return err
}

func (s *Store) GetClient(ctx context.Context, id ledger.ClientID) (*ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c ledger.Client
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM clients WHERE id = ?", id,
	).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM clients ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []ledger.Client
	for rows.Next() {
		var c ledger.Client
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *Store) SaveClient(ctx context.Context, c ledger.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, c.ID, c.Name)
	return err
}

func (s *Store) GetOrCreateClient(ctx context.Context, id ledger.ClientID) (ledger.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO clients (id, name) VALUES (?, '') ON CONFLICT(id) DO NOTHING", id,
	); err != nil {
		return ledger.Client{}, err
	}

	var c ledger.Client
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM clients WHERE id = ?", id,
	).Scan(&c.ID, &c.Name)
	return c, err
}

func (s *Store) GetSupplier(ctx context.Context, id ledger.SupplierID) (*ledger.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sup ledger.Supplier
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM suppliers WHERE id = ?", id,
	).Scan(&sup.ID, &sup.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]ledger.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM suppliers ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []ledger.Supplier
	for rows.Next() {
		var sup ledger.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *Store) SaveSupplier(ctx context.Context, sup ledger.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, sup.ID, sup.Name)
	return err
}

func (s *Store) GetBrand(ctx context.Context, id ledger.BrandID) (*ledger.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b ledger.Brand
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM brands WHERE id = ?", id,
	).Scan(&b.ID, &b.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListBrands(ctx context.Context) ([]ledger.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM brands ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []ledger.Brand
	for rows.Next() {
		var b ledger.Brand
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (s *Store) SaveBrand(ctx context.Context, b ledger.Brand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO brands (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, b.ID, b.Name)
	return err
}

// =============================================================================
// DOCUMENT STORE - atomic parent-plus-lines writes
// =============================================================================

func (s *Store) SaveOrder(ctx context.Context, o ledger.Order, lines []ledger.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkNew(ctx, tx, "orders", string(o.ID)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, name, order_date, supplier_id, comment)
		VALUES (?, ?, ?, ?, ?)
	`, o.ID, o.Name, o.OrderDate.Format(dateFormat), o.SupplierID, o.Comment); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreFailed, err)
	}
	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, client_id, product_id, quantity)
			VALUES (?, ?, ?, ?)
		`, l.OrderID, l.ClientID, l.ProductID, l.Quantity); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrStoreFailed, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetOrder(ctx context.Context, id ledger.OrderID) (*ledger.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var o ledger.Order
	var date string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, order_date, supplier_id, comment FROM orders WHERE id = ?", id,
	).Scan(&o.ID, &o.Name, &date, &o.SupplierID, &o.Comment)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.OrderDate, err = time.Parse(dateFormat, date)
	if err != nil {
		return nil, fmt.Errorf("invalid order date %q: %w", date, err)
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]ledger.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, order_date, supplier_id, comment FROM orders ORDER BY order_date, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []ledger.Order
	for rows.Next() {
		var o ledger.Order
		var date string
		if err := rows.Scan(&o.ID, &o.Name, &date, &o.SupplierID, &o.Comment); err != nil {
			return nil, err
		}
		if o.OrderDate, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("invalid order date %q: %w", date, err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) DeleteOrder(ctx context.Context, id ledger.OrderID) error {
	return s.deleteDocument(ctx, "orders", "order", string(id))
}

func (s *Store) SaveConfirmation(ctx context.Context, c ledger.Confirmation, lines []ledger.ConfirmationLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkNew(ctx, tx, "confirmations", string(c.ID)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO confirmations (id, name, code, confirmation_date, supplier_id, comment)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Code, c.ConfirmationDate.Format(dateFormat), c.SupplierID, c.Comment); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreFailed, err)
	}
	for _, orderID := range c.OrderIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO confirmation_orders (confirmation_id, order_id) VALUES (?, ?)
		`, c.ID, orderID); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrStoreFailed, err)
		}
	}
	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO confirmation_lines
				(confirmation_id, client_id, product_id, order_id, quantity, unit_price, comment)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, l.ConfirmationID, l.ClientID, l.ProductID, nullID(string(l.OrderID)),
			l.Quantity, l.UnitPrice.String(), l.Comment); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrStoreFailed, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetConfirmation(ctx context.Context, id ledger.ConfirmationID) (*ledger.Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c ledger.Confirmation
	var date string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, code, confirmation_date, supplier_id, comment FROM confirmations WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.Code, &date, &c.SupplierID, &c.Comment)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c.ConfirmationDate, err = time.Parse(dateFormat, date); err != nil {
		return nil, fmt.Errorf("invalid confirmation date %q: %w", date, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT order_id FROM confirmation_orders WHERE confirmation_id = ? ORDER BY order_id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID ledger.OrderID
		if err := rows.Scan(&orderID); err != nil {
			return nil, err
		}
		c.OrderIDs = append(c.OrderIDs, orderID)
	}
	return &c, rows.Err()
}

func (s *Store) ListConfirmations(ctx context.Context) ([]ledger.Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, code, confirmation_date, supplier_id, comment FROM confirmations ORDER BY confirmation_date, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var confirmations []ledger.Confirmation
	for rows.Next() {
		var c ledger.Confirmation
		var date string
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &date, &c.SupplierID, &c.Comment); err != nil {
			return nil, err
		}
		if c.ConfirmationDate, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("invalid confirmation date %q: %w", date, err)
		}
		confirmations = append(confirmations, c)
	}
	return confirmations, rows.Err()
}

func (s *Store) DeleteConfirmation(ctx context.Context, id ledger.ConfirmationID) error {
	return s.deleteDocument(ctx, "confirmations", "confirmation", string(id))
}

func (s *Store) SaveInvoice(ctx context.Context, inv ledger.Invoice, lines []ledger.InvoiceLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkNew(ctx, tx, "invoices", string(inv.ID)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (id, name, invoice_date, supplier_id, comment)
		VALUES (?, ?, ?, ?, ?)
	`, inv.ID, inv.Name, inv.InvoiceDate.Format(dateFormat), inv.SupplierID, inv.Comment); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreFailed, err)
	}
	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_lines
				(invoice_id, client_id, product_id, confirmation_id, order_id, quantity, unit_price, comment)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, l.InvoiceID, l.ClientID, l.ProductID, nullID(string(l.ConfirmationID)),
			nullID(string(l.OrderID)), l.Quantity, l.UnitPrice.String(), l.Comment); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrStoreFailed, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetInvoice(ctx context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var inv ledger.Invoice
	var date string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, invoice_date, supplier_id, comment FROM invoices WHERE id = ?", id,
	).Scan(&inv.ID, &inv.Name, &date, &inv.SupplierID, &inv.Comment)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if inv.InvoiceDate, err = time.Parse(dateFormat, date); err != nil {
		return nil, fmt.Errorf("invalid invoice date %q: %w", date, err)
	}
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, invoice_date, supplier_id, comment FROM invoices ORDER BY invoice_date, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []ledger.Invoice
	for rows.Next() {
		var inv ledger.Invoice
		var date string
		if err := rows.Scan(&inv.ID, &inv.Name, &date, &inv.SupplierID, &inv.Comment); err != nil {
			return nil, err
		}
		if inv.InvoiceDate, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("invalid invoice date %q: %w", date, err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (s *Store) DeleteInvoice(ctx context.Context, id ledger.InvoiceID) error {
	return s.deleteDocument(ctx, "invoices", "invoice", string(id))
}

func (s *Store) SaveCancellation(ctx context.Context, c ledger.Cancellation, lines []ledger.CancellationLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkNew(ctx, tx, "cancellations", string(c.ID)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cancellations (id, cancellation_date, brand_id, supplier_id, comment)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.CancellationDate.Format(dateFormat), c.BrandID, c.SupplierID, c.Comment); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreFailed, err)
	}
	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cancellation_lines
				(cancellation_id, client_id, product_id, confirmation_id, order_id, quantity)
			VALUES (?, ?, ?, ?, ?, ?)
		`, l.CancellationID, l.ClientID, l.ProductID, nullID(string(l.ConfirmationID)),
			nullID(string(l.OrderID)), l.Quantity); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrStoreFailed, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetCancellation(ctx context.Context, id ledger.CancellationID) (*ledger.Cancellation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c ledger.Cancellation
	var date string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, cancellation_date, brand_id, supplier_id, comment FROM cancellations WHERE id = ?", id,
	).Scan(&c.ID, &date, &c.BrandID, &c.SupplierID, &c.Comment)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c.CancellationDate, err = time.Parse(dateFormat, date); err != nil {
		return nil, fmt.Errorf("invalid cancellation date %q: %w", date, err)
	}
	return &c, nil
}

func (s *Store) ListCancellations(ctx context.Context) ([]ledger.Cancellation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, cancellation_date, brand_id, supplier_id, comment FROM cancellations ORDER BY cancellation_date, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cancellations []ledger.Cancellation
	for rows.Next() {
		var c ledger.Cancellation
		var date string
		if err := rows.Scan(&c.ID, &date, &c.BrandID, &c.SupplierID, &c.Comment); err != nil {
			return nil, err
		}
		if c.CancellationDate, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("invalid cancellation date %q: %w", date, err)
		}
		cancellations = append(cancellations, c)
	}
	return cancellations, rows.Err()
}

func (s *Store) DeleteCancellation(ctx context.Context, id ledger.CancellationID) error {
	return s.deleteDocument(ctx, "cancellations", "cancellation", string(id))
}

// deleteDocument removes a parent row; its lines go with it via cascade.
func (s *Store) deleteDocument(ctx context.Context, table, kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ledger.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

// =============================================================================
// LINE STORE - filtered, deterministically ordered reads
// =============================================================================

func (s *Store) OrderLines(ctx context.Context, f ledger.OrderLineFilter) ([]ledger.OrderLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT order_id, client_id, product_id, quantity FROM order_lines"
	var conds []string
	var args []any
	if f.OrderID != "" {
		conds = append(conds, "order_id = ?")
		args = append(args, f.OrderID)
	}
	if f.ProductID != "" {
		conds = append(conds, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY client_id, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ledger.OrderLine
	for rows.Next() {
		var l ledger.OrderLine
		if err := rows.Scan(&l.OrderID, &l.ClientID, &l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) ConfirmationLines(ctx context.Context, f ledger.ConfirmationLineFilter) ([]ledger.ConfirmationLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT l.confirmation_id, l.client_id, l.product_id, l.order_id,
		       l.quantity, l.unit_price, l.comment
		FROM confirmation_lines l
		LEFT JOIN orders o ON o.id = l.order_id
		JOIN confirmations c ON c.id = l.confirmation_id`
	var conds []string
	var args []any
	if f.ProductID != "" {
		conds = append(conds, "l.product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.ConfirmationID != "" {
		conds = append(conds, "l.confirmation_id = ?")
		args = append(args, f.ConfirmationID)
	}
	if f.OrderID != "" {
		conds = append(conds, "l.order_id = ?")
		args = append(args, f.OrderID)
	}
	if f.ConfirmedOnOrBefore != nil {
		conds = append(conds, "c.confirmation_date <= ?")
		args = append(args, f.ConfirmedOnOrBefore.Format(dateFormat))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	// Orderless (fallback) lines coalesce to '' and sort first.
	query += " ORDER BY COALESCE(o.order_date, ''), c.confirmation_date, l.client_id, l.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ledger.ConfirmationLine
	for rows.Next() {
		var l ledger.ConfirmationLine
		var orderID sql.NullString
		var price string
		if err := rows.Scan(&l.ConfirmationID, &l.ClientID, &l.ProductID, &orderID,
			&l.Quantity, &price, &l.Comment); err != nil {
			return nil, err
		}
		l.OrderID = ledger.OrderID(orderID.String)
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid unit price %q: %w", price, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) InvoiceLines(ctx context.Context, f ledger.InvoiceLineFilter) ([]ledger.InvoiceLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT invoice_id, client_id, product_id, confirmation_id, order_id,
		       quantity, unit_price, comment
		FROM invoice_lines`
	var conds []string
	var args []any
	if f.ProductID != "" {
		conds = append(conds, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.InvoiceID != "" {
		conds = append(conds, "invoice_id = ?")
		args = append(args, f.InvoiceID)
	}
	if f.ConfirmationID != "" {
		conds = append(conds, "confirmation_id = ?")
		args = append(args, f.ConfirmationID)
	}
	if f.OrderID != "" {
		conds = append(conds, "order_id = ?")
		args = append(args, f.OrderID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ledger.InvoiceLine
	for rows.Next() {
		var l ledger.InvoiceLine
		var confirmationID, orderID sql.NullString
		var price string
		if err := rows.Scan(&l.InvoiceID, &l.ClientID, &l.ProductID, &confirmationID, &orderID,
			&l.Quantity, &price, &l.Comment); err != nil {
			return nil, err
		}
		l.ConfirmationID = ledger.ConfirmationID(confirmationID.String)
		l.OrderID = ledger.OrderID(orderID.String)
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid unit price %q: %w", price, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) CancellationLines(ctx context.Context, f ledger.CancellationLineFilter) ([]ledger.CancellationLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT cancellation_id, client_id, product_id, confirmation_id, order_id, quantity
		FROM cancellation_lines`
	var conds []string
	var args []any
	if f.ProductID != "" {
		conds = append(conds, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.CancellationID != "" {
		conds = append(conds, "cancellation_id = ?")
		args = append(args, f.CancellationID)
	}
	if f.ConfirmationID != "" {
		conds = append(conds, "confirmation_id = ?")
		args = append(args, f.ConfirmationID)
	}
	if f.OrderID != "" {
		conds = append(conds, "order_id = ?")
		args = append(args, f.OrderID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ledger.CancellationLine
	for rows.Next() {
		var l ledger.CancellationLine
		var confirmationID, orderID sql.NullString
		if err := rows.Scan(&l.CancellationID, &l.ClientID, &l.ProductID, &confirmationID, &orderID,
			&l.Quantity); err != nil {
			return nil, err
		}
		l.ConfirmationID = ledger.ConfirmationID(confirmationID.String)
		l.OrderID = ledger.OrderID(orderID.String)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// checkNew rejects a duplicate document ID before any insert happens.
func checkNew(ctx context.Context, tx *sql.Tx, table, id string) error {
	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+" WHERE id = ?", id,
	).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ledger.ErrDuplicateDocument
	}
	return nil
}

// nullID maps the empty ID to NULL so provenance-free lines stay NULL in
// the schema.
func nullID(s string) any {
	if s == "" {
		return nil
	}
	return s
}
