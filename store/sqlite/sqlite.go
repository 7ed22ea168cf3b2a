/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store (members, orders, coupons, products, settings,
  audit log) using SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

MUTATE SEMANTICS:
  Mutate* runs SELECT -> updater -> UPDATE inside a single database
  transaction while holding the store mutex, giving atomic per-document
  read-modify-write. No cross-document transaction is exposed; callers
  must not assume one.

APPEND-ONLY ENFORCEMENT:
  The audit_log table has no UPDATE or DELETE path. The UNIQUE index on
  idempotency_key is the retry guard: a duplicate append fails before any
  effect.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/omega.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - store/memory.go: In-memory implementation for demo/testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ledger.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", ledger.ErrStorageUnavailable)
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
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		wallet TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		sales_this_month TEXT NOT NULL,
		leader_id TEXT,
		custom_commission_rate TEXT,
		activation_proof_url TEXT,
		joined_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_members_status ON members(status);
	CREATE INDEX IF NOT EXISTS idx_members_leader ON members(leader_id);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		tracking_id TEXT NOT NULL,
		status TEXT NOT NULL,
		total TEXT NOT NULL,
		customer_json TEXT NOT NULL,
		items_json TEXT NOT NULL,
		reseller_id TEXT,
		shipping_provider TEXT,
		payment_id TEXT,
		credited_items_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	CREATE INDEX IF NOT EXISTS idx_orders_reseller ON orders(reseller_id);

	CREATE TABLE IF NOT EXISTS coupons (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		member_id TEXT NOT NULL,
		reward_title TEXT NOT NULL,
		value TEXT NOT NULL,
		status TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_coupons_member ON coupons(member_id);
	CREATE INDEX IF NOT EXISTS idx_coupons_status_expiry ON coupons(status, expires_at);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		price_list TEXT NOT NULL,
		price_reseller TEXT NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		category TEXT,
		image TEXT,
		is_promo BOOLEAN DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Append-only audit log. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		environment TEXT,
		proof_url TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_log(actor_id);
	CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, ledger.ErrStorageUnavailable)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// MEMBERS
// =============================================================================

const memberColumns = `id, name, email, phone, role, status, wallet, points,
	sales_this_month, leader_id, custom_commission_rate, activation_proof_url, joined_at`

func (s *Store) GetMember(ctx context.Context, id ledger.MemberID) (*ledger.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getMember(ctx, s.db, id)
}

func (s *Store) getMember(ctx context.Context, q querier, id ledger.MemberID) (*ledger.Member, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id = ?", id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUnknownMember
	}
	if err != nil {
		return nil, storeErr("get member", err)
	}
	return m, nil
}

func scanMember(row rowScanner) (*ledger.Member, error) {
	var (
		m          ledger.Member
		email      sql.NullString
		phone      sql.NullString
		wallet     string
		sales      string
		leaderID   sql.NullString
		customRate sql.NullString
		proofURL   sql.NullString
		joinedAt   string
	)

	err := row.Scan(&m.ID, &m.Name, &email, &phone, &m.Role, &m.Status,
		&wallet, &m.Points, &sales, &leaderID, &customRate, &proofURL, &joinedAt)
	if err != nil {
		return nil, err
	}

	m.Email = email.String
	m.Phone = phone.String
	m.Wallet = mustDecimal(wallet)
	m.SalesThisMonth = mustDecimal(sales)
	m.LeaderID = ledger.MemberID(leaderID.String)
	if customRate.Valid && customRate.String != "" {
		d := mustDecimal(customRate.String)
		m.CustomCommissionRate = &d
	}
	m.ActivationProofURL = proofURL.String
	m.JoinedAt, _ = time.Parse(time.RFC3339, joinedAt)
	return &m, nil
}

func (s *Store) ListMembers(ctx context.Context, f ledger.MemberFilter) ([]ledger.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + memberColumns + " FROM members"
	var conds []string
	var args []any
	if f.Role != nil {
		conds = append(conds, "role = ?")
		args = append(args, *f.Role)
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *f.Status)
	}
	if f.LeaderID != nil {
		conds = append(conds, "leader_id = ?")
		args = append(args, *f.LeaderID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list members", err)
	}
	defer rows.Close()

	var members []ledger.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, storeErr("scan member", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *Store) PutMember(ctx context.Context, m ledger.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putMember(ctx, s.db, m)
}

func (s *Store) putMember(ctx context.Context, db execer, m ledger.Member) error {
	var customRate any
	if m.CustomCommissionRate != nil {
		customRate = m.CustomCommissionRate.String()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			role = excluded.role,
			status = excluded.status,
			wallet = excluded.wallet,
			points = excluded.points,
			sales_this_month = excluded.sales_this_month,
			leader_id = excluded.leader_id,
			custom_commission_rate = excluded.custom_commission_rate,
			activation_proof_url = excluded.activation_proof_url,
			joined_at = excluded.joined_at
	`,
		m.ID, m.Name, m.Email, m.Phone, m.Role, m.Status,
		m.Wallet.String(), m.Points, m.SalesThisMonth.String(),
		string(m.LeaderID), customRate, m.ActivationProofURL,
		m.JoinedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("put member", err)
	}
	return nil
}

func (s *Store) MutateMember(ctx context.Context, id ledger.MemberID, fn func(*ledger.Member) error) (*ledger.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin mutate member", err)
	}
	defer tx.Rollback()

	m, err := s.getMember(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	if err := s.putMember(ctx, tx, *m); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit mutate member", err)
	}
	return m, nil
}

// =============================================================================
// ORDERS
// =============================================================================

const orderColumns = `id, tracking_id, status, total, customer_json, items_json,
	reseller_id, shipping_provider, payment_id, credited_items_json, created_at, updated_at`

func (s *Store) GetOrder(ctx context.Context, id ledger.OrderID) (*ledger.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getOrder(ctx, s.db, id)
}

func (s *Store) getOrder(ctx context.Context, q querier, id ledger.OrderID) (*ledger.Order, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUnknownOrder
	}
	if err != nil {
		return nil, storeErr("get order", err)
	}
	return o, nil
}

func scanOrder(row rowScanner) (*ledger.Order, error) {
	var (
		o            ledger.Order
		total        string
		customerJSON string
		itemsJSON    string
		resellerID   sql.NullString
		provider     sql.NullString
		paymentID    sql.NullString
		creditedJSON string
		createdAt    string
		updatedAt    string
	)

	err := row.Scan(&o.ID, &o.TrackingID, &o.Status, &total, &customerJSON,
		&itemsJSON, &resellerID, &provider, &paymentID, &creditedJSON,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	o.Total = mustDecimal(total)
	if err := json.Unmarshal([]byte(customerJSON), &o.Customer); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(creditedJSON), &o.CreditedItems); err != nil {
		return nil, err
	}
	o.ResellerID = ledger.MemberID(resellerID.String)
	o.ShippingProvider = provider.String
	o.PaymentID = paymentID.String
	o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	o.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, f ledger.OrderFilter) ([]ledger.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + orderColumns + " FROM orders"
	var conds []string
	var args []any
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *f.Status)
	}
	if f.ResellerID != nil {
		conds = append(conds, "reseller_id = ?")
		args = append(args, *f.ResellerID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	defer rows.Close()

	var orders []ledger.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, storeErr("scan order", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *Store) PutOrder(ctx context.Context, o ledger.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putOrder(ctx, s.db, o)
}

func (s *Store) putOrder(ctx context.Context, db execer, o ledger.Order) error {
	customerJSON, _ := json.Marshal(o.Customer)
	itemsJSON, _ := json.Marshal(o.Items)
	credited := o.CreditedItems
	if credited == nil {
		credited = []int{}
	}
	creditedJSON, _ := json.Marshal(credited)

	_, err := db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tracking_id = excluded.tracking_id,
			status = excluded.status,
			total = excluded.total,
			customer_json = excluded.customer_json,
			items_json = excluded.items_json,
			reseller_id = excluded.reseller_id,
			shipping_provider = excluded.shipping_provider,
			payment_id = excluded.payment_id,
			credited_items_json = excluded.credited_items_json,
			updated_at = excluded.updated_at
	`,
		o.ID, o.TrackingID, o.Status, o.Total.String(),
		string(customerJSON), string(itemsJSON), string(o.ResellerID),
		o.ShippingProvider, o.PaymentID, string(creditedJSON),
		o.CreatedAt.UTC().Format(time.RFC3339), o.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("put order", err)
	}
	return nil
}

func (s *Store) MutateOrder(ctx context.Context, id ledger.OrderID, fn func(*ledger.Order) error) (*ledger.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin mutate order", err)
	}
	defer tx.Rollback()

	o, err := s.getOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if err := s.putOrder(ctx, tx, *o); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit mutate order", err)
	}
	return o, nil
}

// =============================================================================
// COUPONS
// =============================================================================

const couponColumns = `id, code, member_id, reward_title, value, status, expires_at, created_at`

func (s *Store) PutCoupon(ctx context.Context, c ledger.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putCoupon(ctx, s.db, c)
}

func (s *Store) putCoupon(ctx context.Context, db execer, c ledger.Coupon) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO coupons (`+couponColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			expires_at = excluded.expires_at
	`,
		c.ID, c.Code, string(c.MemberID), c.RewardTitle, c.Value, c.Status,
		c.ExpiresAt.UTC().Format(time.RFC3339), c.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("put coupon", err)
	}
	return nil
}

func scanCoupon(row rowScanner) (*ledger.Coupon, error) {
	var (
		c         ledger.Coupon
		memberID  string
		expiresAt string
		createdAt string
	)
	err := row.Scan(&c.ID, &c.Code, &memberID, &c.RewardTitle, &c.Value,
		&c.Status, &expiresAt, &createdAt)
	if err != nil {
		return nil, err
	}
	c.MemberID = ledger.MemberID(memberID)
	c.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func (s *Store) ListCoupons(ctx context.Context, f ledger.CouponFilter) ([]ledger.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + couponColumns + " FROM coupons"
	var conds []string
	var args []any
	if f.MemberID != nil {
		conds = append(conds, "member_id = ?")
		args = append(args, *f.MemberID)
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *f.Status)
	}
	if f.ExpiresBefore != nil {
		conds = append(conds, "expires_at < ?")
		args = append(args, f.ExpiresBefore.UTC().Format(time.RFC3339))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list coupons", err)
	}
	defer rows.Close()

	var coupons []ledger.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, storeErr("scan coupon", err)
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func (s *Store) MutateCoupon(ctx context.Context, id ledger.CouponID, fn func(*ledger.Coupon) error) (*ledger.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin mutate coupon", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		"SELECT "+couponColumns+" FROM coupons WHERE id = ?", id)
	c, err := scanCoupon(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUnknownCoupon
	}
	if err != nil {
		return nil, storeErr("get coupon", err)
	}

	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.putCoupon(ctx, tx, *c); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit mutate coupon", err)
	}
	return c, nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

const productColumns = `id, sku, name, description, price_list, price_reseller,
	stock, category, image, is_promo`

func (s *Store) GetProduct(ctx context.Context, id ledger.ProductID) (*ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUnknownProduct
	}
	if err != nil {
		return nil, storeErr("get product", err)
	}
	return p, nil
}

func scanProduct(row rowScanner) (*ledger.Product, error) {
	var (
		p             ledger.Product
		description   sql.NullString
		priceList     string
		priceReseller string
		category      sql.NullString
		image         sql.NullString
	)
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &description, &priceList,
		&priceReseller, &p.Stock, &category, &image, &p.IsPromo)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.PriceList = mustDecimal(priceList)
	p.PriceReseller = mustDecimal(priceReseller)
	p.Category = category.String
	p.Image = image.String
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY id ASC")
	if err != nil {
		return nil, storeErr("list products", err)
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storeErr("scan product", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *Store) PutProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sku = excluded.sku,
			name = excluded.name,
			description = excluded.description,
			price_list = excluded.price_list,
			price_reseller = excluded.price_reseller,
			stock = excluded.stock,
			category = excluded.category,
			image = excluded.image,
			is_promo = excluded.is_promo
	`,
		p.ID, p.SKU, p.Name, p.Description, p.PriceList.String(),
		p.PriceReseller.String(), p.Stock, p.Category, p.Image, p.IsPromo,
	)
	if err != nil {
		return storeErr("put product", err)
	}
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) GetSettings(ctx context.Context) (ledger.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json, updated_at FROM settings WHERE id = 1",
	).Scan(&configJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return ledger.DefaultSettings(), nil
	}
	if err != nil {
		return ledger.Settings{}, storeErr("get settings", err)
	}

	var cfg ledger.Settings
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return ledger.Settings{}, storeErr("decode settings", err)
	}
	cfg.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return cfg, nil
}

func (s *Store) PutSettings(ctx context.Context, cfg ledger.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return storeErr("encode settings", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, config_json, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`, string(configJSON), cfg.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return storeErr("put settings", err)
	}
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e ledger.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log
		(id, actor_id, action, details, environment, proof_url, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, string(e.ActorID), e.Action, e.Details, e.Environment,
		e.ProofURL, nullString(e.IdempotencyKey),
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateIdempotencyKey
		}
		return storeErr("append audit", err)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, f ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, actor_id, action, details, environment, proof_url,
		idempotency_key, created_at FROM audit_log`
	var conds []string
	var args []any
	if f.ActorID != nil {
		conds = append(conds, "actor_id = ?")
		args = append(args, *f.ActorID)
	}
	if len(f.Actions) > 0 {
		placeholders := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			placeholders[i] = "?"
			args = append(args, a)
		}
		conds = append(conds, "action IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(time.RFC3339))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list audit", err)
	}
	defer rows.Close()

	var entries []ledger.AuditEntry
	for rows.Next() {
		var (
			e        ledger.AuditEntry
			actorID  string
			details  sql.NullString
			env      sql.NullString
			proofURL sql.NullString
			idemKey  sql.NullString
			created  string
		)
		if err := rows.Scan(&e.ID, &actorID, &e.Action, &details, &env,
			&proofURL, &idemKey, &created); err != nil {
			return nil, storeErr("scan audit", err)
		}
		e.ActorID = ledger.MemberID(actorID)
		e.Details = details.String
		e.Environment = env.String
		e.ProofURL = proofURL.String
		e.IdempotencyKey = idemKey.String
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) AuditExists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_log WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	if err != nil {
		return false, storeErr("audit exists", err)
	}
	return count > 0, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
